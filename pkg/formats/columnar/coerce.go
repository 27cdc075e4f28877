package columnar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/ingestor/pkg/json"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// timestampLayouts are tried in order for string timestamps. Values
// without a zone are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// coerce converts v to the Go type stored for kind: int64, float64, string,
// bool, or time.Time for timestamps and dates. Temporal values that cannot
// be parsed become nil; any other mismatch is an error.
func coerce(v interface{}, kind schema.Kind) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case schema.KindInt64:
		return toInt64(v)
	case schema.KindFloat64:
		return toFloat64(v)
	case schema.KindBool:
		return toBool(v)
	case schema.KindTimestamp:
		t, ok := toTime(v)
		if !ok {
			return nil, nil
		}
		return t.Truncate(time.Second), nil
	case schema.KindDate:
		t, ok := toTime(v)
		if !ok {
			return nil, nil
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	default:
		return toString(v), nil
	}
}

func toInt64(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		return integralFloat(x)
	case float32:
		return integralFloat(float64(x))
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case json.Number:
		return parseInt(string(x))
	case string:
		return parseInt(x)
	case []byte:
		return parseInt(string(x))
	default:
		return nil, fmt.Errorf("cannot convert %T to int64", v)
	}
}

func parseInt(s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to int64", s)
	}
	return integralFloat(f)
}

func integralFloat(f float64) (interface{}, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("cannot convert %v to int64 without losing precision", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("value %v overflows int64", f)
	}
	return int64(f), nil
}

func toFloat64(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	case []byte:
		return parseFloat(string(x))
	default:
		return nil, fmt.Errorf("cannot convert %T to float64", v)
	}
}

func parseFloat(s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to float64", s)
	}
	return f, nil
}

func toBool(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			switch strings.ToLower(s) {
			case "yes", "y":
				return true, nil
			case "no", "n":
				return false, nil
			}
			return nil, fmt.Errorf("cannot convert %q to bool", s)
		}
		return b, nil
	case []byte:
		return toBool(string(x))
	default:
		n, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %T to bool", v)
		}
		switch n {
		case int64(0):
			return false, nil
		case int64(1):
			return true, nil
		}
		return nil, fmt.Errorf("cannot convert %v to bool", v)
	}
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// toTime interprets v as an instant. Numbers are unix seconds.
func toTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return x.UTC(), true
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return time.Unix(n, 0).UTC(), true
		}
		if f, err := x.Float64(); err == nil {
			return unixFloat(f), true
		}
		return time.Time{}, false
	case float64:
		return unixFloat(x), true
	case float32:
		return unixFloat(float64(x)), true
	default:
		n, err := toInt64(v)
		sec, ok := n.(int64)
		if err != nil || !ok {
			return time.Time{}, false
		}
		return time.Unix(sec, 0).UTC(), true
	}
}

func unixFloat(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
