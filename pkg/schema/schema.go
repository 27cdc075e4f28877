// Package schema maps declared feature types onto the physical column
// types shared by every columnar writer.
package schema

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

// Kind is the physical column category
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindTimestamp
	KindDate
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// DefaultDType is assumed for features that declare no dtype.
const DefaultDType = "string"

var kinds = map[string]Kind{
	"int":       KindInt64,
	"integer":   KindInt64,
	"bigint":    KindInt64,
	"long":      KindInt64,
	"float":     KindFloat64,
	"double":    KindFloat64,
	"decimal":   KindFloat64,
	"string":    KindString,
	"text":      KindString,
	"varchar":   KindString,
	"bool":      KindBool,
	"boolean":   KindBool,
	"datetime":  KindTimestamp,
	"timestamp": KindTimestamp,
	"date":      KindDate,
}

// Field is one resolved column
type Field struct {
	Name string
	// Logical is the declared dtype, lower-cased, with the default applied.
	Logical string
	Kind    Kind
	// Mapped is false when Logical was not recognized and fell back to string.
	Mapped bool
}

// Type returns the arrow physical type. Timestamps are second precision
// without a zone.
func (f Field) Type() arrow.DataType {
	switch f.Kind {
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindTimestamp:
		return arrow.FixedWidthTypes.Timestamp_s
	case KindDate:
		return arrow.FixedWidthTypes.Date32
	default:
		return arrow.BinaryTypes.String
	}
}

// Schema is the ordered list of fields, one per declared feature
type Schema struct {
	Fields []Field
}

// Resolve builds the schema for features in declaration order. It never
// fails: unknown dtypes map to string.
func Resolve(features []metadata.Feature) *Schema {
	s := &Schema{Fields: make([]Field, len(features))}
	for i, f := range features {
		dtype := strings.ToLower(strings.TrimSpace(f.DType))
		if dtype == "" {
			dtype = DefaultDType
		}
		kind, ok := kinds[dtype]
		s.Fields[i] = Field{Name: f.Name, Logical: dtype, Kind: kind, Mapped: ok}
	}
	return s
}

// Names returns field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Unmapped returns the fields whose dtype was not recognized.
func (s *Schema) Unmapped() []Field {
	var out []Field
	for _, f := range s.Fields {
		if !f.Mapped {
			out = append(out, f)
		}
	}
	return out
}

// Arrow returns the equivalent arrow schema. Every column is nullable.
func (s *Schema) Arrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
