package columnar

import (
	"io"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/json"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// avroWriter appends each block as one OCF data block
type avroWriter struct {
	ocf      *goavro.OCFWriter
	branches []string
}

func newAvroWriter(w io.Writer, sch *schema.Schema, compression string) (*avroWriter, error) {
	codecName, err := avroCompression(compression)
	if err != nil {
		return nil, err
	}

	avsc, err := avroSchema(sch)
	if err != nil {
		return nil, err
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Schema:          avsc,
		CompressionName: codecName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Avro writer")
	}

	branches := make([]string, len(sch.Fields))
	for i, f := range sch.Fields {
		branches[i] = avroBranch(f.Kind)
	}
	return &avroWriter{ocf: ocf, branches: branches}, nil
}

func (aw *avroWriter) WriteBlock(b *Block) error {
	records := make([]interface{}, b.Rows)
	for r := 0; r < b.Rows; r++ {
		native := make(map[string]interface{}, len(b.Schema.Fields))
		for c, f := range b.Schema.Fields {
			v := b.Columns[c][r]
			if v == nil {
				native[f.Name] = goavro.Union("null", nil)
				continue
			}
			native[f.Name] = goavro.Union(aw.branches[c], v)
		}
		records[r] = native
	}

	if err := aw.ocf.Append(records); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write Avro block")
	}
	return nil
}

// Abort is a no-op: blocks are flushed as they are appended.
func (aw *avroWriter) Abort() {}

// Close is a no-op: every Append already emitted a complete OCF block.
func (aw *avroWriter) Close() error {
	return nil
}

// avroSchema renders sch as an Avro record with nullable fields.
func avroSchema(sch *schema.Schema) (string, error) {
	fields := make([]map[string]interface{}, len(sch.Fields))
	for i, f := range sch.Fields {
		fields[i] = map[string]interface{}{
			"name":    f.Name,
			"type":    []interface{}{"null", avroType(f.Kind)},
			"default": nil,
		}
	}

	data, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   "Row",
		"fields": fields,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode Avro schema")
	}
	return string(data), nil
}

func avroType(k schema.Kind) interface{} {
	switch k {
	case schema.KindInt64:
		return "long"
	case schema.KindFloat64:
		return "double"
	case schema.KindBool:
		return "boolean"
	case schema.KindTimestamp:
		return map[string]string{"type": "long", "logicalType": "timestamp-millis"}
	case schema.KindDate:
		return map[string]string{"type": "int", "logicalType": "date"}
	default:
		return "string"
	}
}

// avroBranch names the union member for k as goavro expects it.
func avroBranch(k schema.Kind) string {
	switch k {
	case schema.KindInt64:
		return "long"
	case schema.KindFloat64:
		return "double"
	case schema.KindBool:
		return "boolean"
	case schema.KindTimestamp:
		return "long.timestamp-millis"
	case schema.KindDate:
		return "int.date"
	default:
		return "string"
	}
}

func avroCompression(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return goavro.CompressionSnappyLabel, nil
	case "deflate", "zlib":
		return goavro.CompressionDeflateLabel, nil
	case "none", "null", "uncompressed":
		return goavro.CompressionNullLabel, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported avro compression %q", name)
	}
}
