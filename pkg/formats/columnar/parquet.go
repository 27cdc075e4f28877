package columnar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// newAllocator supplies the arrow allocator of each Parquet writer.
var newAllocator = func() memory.Allocator { return memory.NewGoAllocator() }

// parquetWriter writes each block as one row group
type parquetWriter struct {
	schema     *schema.Schema
	fileWriter *pqarrow.FileWriter
	builder    *array.RecordBuilder
}

func newParquetWriter(w io.Writer, sch *schema.Schema, compression string) (*parquetWriter, error) {
	codec, err := parquetCompression(compression)
	if err != nil {
		return nil, err
	}

	arrowSchema := sch.Arrow()
	pool := newAllocator()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
		parquet.WithStats(true),
		parquet.WithCreatedBy("ingestor"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pool),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(arrowSchema, w, props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Parquet writer")
	}

	return &parquetWriter{
		schema:     sch,
		fileWriter: fw,
		builder:    array.NewRecordBuilder(pool, arrowSchema),
	}, nil
}

func (pw *parquetWriter) WriteBlock(b *Block) error {
	for c := range pw.schema.Fields {
		appendColumn(pw.builder.Field(c), b.Columns[c])
	}

	record := pw.builder.NewRecord()
	defer record.Release()

	if err := pw.fileWriter.Write(record); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write Parquet row group")
	}
	return nil
}

// Abort releases the builder and the writer's buffers. The caller detaches
// the sink first, so the footer written by Close goes nowhere.
func (pw *parquetWriter) Abort() {
	pw.builder.Release()
	_ = pw.fileWriter.Close()
}

func (pw *parquetWriter) Close() error {
	pw.builder.Release()
	if err := pw.fileWriter.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Parquet writer")
	}
	return nil
}

// appendColumn appends coerced values; the builder type follows the field
// kind so only the matching Go type can appear.
func appendColumn(builder array.Builder, values []interface{}) {
	switch b := builder.(type) {
	case *array.Int64Builder:
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(int64))
		}
	case *array.Float64Builder:
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(float64))
		}
	case *array.BooleanBuilder:
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(bool))
		}
	case *array.TimestampBuilder:
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Timestamp(v.(time.Time).Unix()))
		}
	case *array.Date32Builder:
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Date32FromTime(v.(time.Time)))
		}
	case *array.StringBuilder:
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(string))
		}
	default:
		panic(fmt.Sprintf("columnar: unexpected builder %T", builder))
	}
}

func parquetCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig, "unsupported parquet compression %q", name)
	}
}
