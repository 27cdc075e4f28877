package columnar

import (
	"compress/flate"
	"io"
	"strings"

	"github.com/scritchley/orc"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

type orcWriter struct {
	writer *orc.Writer
	row    []interface{}
}

func newORCWriter(w io.Writer, sch *schema.Schema, compression string) (*orcWriter, error) {
	codec, err := orcCompression(compression)
	if err != nil {
		return nil, err
	}

	td, err := orc.ParseSchema(orcTypeString(sch))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid ORC schema")
	}

	ow, err := orc.NewWriter(w, orc.SetSchema(td), orc.SetCompression(codec))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create ORC writer")
	}

	return &orcWriter{writer: ow, row: make([]interface{}, len(sch.Fields))}, nil
}

func (w *orcWriter) WriteBlock(b *Block) error {
	for r := 0; r < b.Rows; r++ {
		for c := range b.Schema.Fields {
			w.row[c] = b.Columns[c][r]
		}
		if err := w.writer.Write(w.row...); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write ORC row").WithDetail("row", r)
		}
	}
	return nil
}

// Abort leaves the buffered stripe to the garbage collector.
func (w *orcWriter) Abort() {}

func (w *orcWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close ORC writer")
	}
	return nil
}

// orcTypeString renders sch as an ORC struct type description.
func orcTypeString(sch *schema.Schema) string {
	var sb strings.Builder
	sb.WriteString("struct<")
	for i, f := range sch.Fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Name)
		sb.WriteByte(':')
		sb.WriteString(orcType(f.Kind))
	}
	sb.WriteByte('>')
	return sb.String()
}

func orcType(k schema.Kind) string {
	switch k {
	case schema.KindInt64:
		return "bigint"
	case schema.KindFloat64:
		return "double"
	case schema.KindBool:
		return "boolean"
	case schema.KindTimestamp:
		return "timestamp"
	case schema.KindDate:
		return "date"
	default:
		return "string"
	}
}

// orcCompression maps a codec name. The ORC writer has no snappy encoder.
func orcCompression(name string) (orc.CompressionCodec, error) {
	switch strings.ToLower(name) {
	case "snappy":
		return nil, errors.New(errors.ErrorTypeConfig, "orc does not support snappy compression; use zlib or none")
	case "", "zlib", "deflate":
		return orc.CompressionZlib{Level: flate.DefaultCompression}, nil
	case "none", "uncompressed":
		return orc.CompressionNone{}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported orc compression %q", name)
	}
}
