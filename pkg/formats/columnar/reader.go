package columnar

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/linkedin/goavro/v2"
	"github.com/scritchley/orc"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/json"
	"github.com/ajitpratap0/ingestor/pkg/models"
)

// Table is a fully materialized columnar file. Column order is the file's
// field order. Values use the same Go types the writer accepts after
// coercion, with times in UTC.
type Table struct {
	Columns []string
	Rows    []models.Row
}

// ReadFile opens path on fs and reads it back. The format comes from the
// file extension.
func ReadFile(ctx context.Context, fs filesystem.Gateway, p string) (*Table, error) {
	format, err := ParseFormat(strings.TrimPrefix(path.Ext(p), "."))
	if err != nil {
		return nil, err
	}

	f, err := fs.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(ctx, f, format)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read "+p)
	}
	return t, nil
}

// Read decodes an entire file in format.
func Read(ctx context.Context, f filesystem.File, format Format) (*Table, error) {
	switch format {
	case Parquet:
		return readParquet(ctx, f)
	case ORC:
		return readORC(f)
	case Avro:
		return readAvro(f)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", format)
	}
}

func readParquet(ctx context.Context, f filesystem.File) (*Table, error) {
	tbl, err := pqarrow.ReadTable(ctx, f, nil, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Parquet file")
	}
	defer tbl.Release()

	sch := tbl.Schema()
	t := &Table{
		Columns: make([]string, sch.NumFields()),
		Rows:    make([]models.Row, tbl.NumRows()),
	}
	for i := range t.Rows {
		t.Rows[i] = make(models.Row, sch.NumFields())
	}

	for c := 0; c < int(tbl.NumCols()); c++ {
		name := sch.Field(c).Name
		t.Columns[c] = name

		r := 0
		for _, chunk := range tbl.Column(c).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				v, err := arrowValue(chunk, i)
				if err != nil {
					return nil, err
				}
				t.Rows[r][name] = v
				r++
			}
		}
	}
	return t, nil
}

func arrowValue(arr arrow.Array, i int) (interface{}, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.String:
		return a.Value(i), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC(), nil
	case *array.Date32:
		return a.Value(i).ToTime().UTC(), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unexpected column type %s", arr.DataType())
	}
}

func readORC(f filesystem.File) (*Table, error) {
	r, err := orc.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read ORC file")
	}
	defer r.Close()

	t := &Table{Columns: r.Schema().Columns()}
	c := r.Select(t.Columns...)
	for c.Stripes() {
		for c.Next() {
			values := c.Row()
			row := make(models.Row, len(t.Columns))
			for i, name := range t.Columns {
				row[name] = orcNative(values[i])
			}
			t.Rows = append(t.Rows, row)
		}
	}
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read ORC stripe")
	}
	return t, nil
}

func orcNative(v interface{}) interface{} {
	switch x := v.(type) {
	case orc.Date:
		return x.Time.UTC()
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

func readAvro(f filesystem.File) (*Table, error) {
	ocf, err := goavro.NewOCFReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Avro file")
	}

	columns, err := avroColumns(ocf.Codec().Schema())
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: columns}
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Avro record")
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "unexpected Avro datum %T", datum)
		}

		row := make(models.Row, len(columns))
		for _, name := range columns {
			row[name] = avroNative(rec[name])
		}
		t.Rows = append(t.Rows, row)
	}
	if err := ocf.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Avro block")
	}
	return t, nil
}

// avroNative unwraps a nullable union value.
func avroNative(v interface{}) interface{} {
	u, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	for _, inner := range u {
		if tm, ok := inner.(time.Time); ok {
			return tm.UTC()
		}
		return inner
	}
	return nil
}

func avroColumns(avsc string) ([]string, error) {
	var rec struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(avsc), &rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid Avro schema")
	}
	names := make([]string, len(rec.Fields))
	for i, f := range rec.Fields {
		names[i] = f.Name
	}
	return names, nil
}

// String renders t as tab-separated text, for the inspect command.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(t.Columns, "\t"))
	sb.WriteByte('\n')
	for _, row := range t.Rows {
		for i, name := range t.Columns {
			if i > 0 {
				sb.WriteByte('\t')
			}
			switch v := row[name].(type) {
			case nil:
				sb.WriteString("NULL")
			case time.Time:
				sb.WriteString(v.Format(time.RFC3339))
			default:
				fmt.Fprint(&sb, v)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
