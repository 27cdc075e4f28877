// Package columnar streams row batches into a single compressed columnar
// file per dataset. Parquet, ORC and Avro share one block discipline:
// open on the first non-empty block, append one block per batch, close.
package columnar

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// Format represents a columnar storage format
type Format string

const (
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// ORC is Apache ORC format
	ORC Format = "orc"
	// Avro is Apache Avro object container format
	Avro Format = "avro"
)

// Formats lists the supported formats.
var Formats = []Format{Parquet, ORC, Avro}

// ParseFormat normalizes s. Empty means Parquet.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Parquet, nil
	case Parquet, ORC, Avro:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// DefaultCompression returns the codec used when none is configured.
func (f Format) DefaultCompression() string {
	if f == ORC {
		return "zlib"
	}
	return "snappy"
}

// codecs maps the accepted codec names of each format to their canonical
// form.
var codecs = map[Format]map[string]string{
	Parquet: {"snappy": "snappy", "gzip": "gzip", "zstd": "zstd", "lz4": "lz4", "brotli": "brotli", "none": "none", "uncompressed": "none"},
	ORC:     {"zlib": "zlib", "deflate": "zlib", "none": "none", "uncompressed": "none"},
	Avro:    {"snappy": "snappy", "deflate": "deflate", "zlib": "deflate", "none": "none", "null": "none", "uncompressed": "none"},
}

// ResolveCompression validates a codec name for format and returns its
// canonical form. Empty selects the format default.
func ResolveCompression(format Format, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return format.DefaultCompression(), nil
	}
	if c, ok := codecs[format][name]; ok {
		return c, nil
	}

	supported := make([]string, 0, len(codecs[format]))
	for alias, c := range codecs[format] {
		if alias == c {
			supported = append(supported, c)
		}
	}
	sort.Strings(supported)
	return "", errors.Newf(errors.ErrorTypeConfig, "unsupported %s compression %q; use one of %s",
		format, name, strings.Join(supported, ", ")).WithDetail("format", string(format))
}

// BlockWriter appends blocks to one open output file.
type BlockWriter interface {
	// WriteBlock appends every row of b.
	WriteBlock(b *Block) error
	// Close finalizes the file footer. It does not close the sink.
	Close() error
	// Abort releases the writer's resources without finalizing the file.
	Abort()
}

// NewBlockWriter opens a writer for format over w.
func NewBlockWriter(format Format, w io.Writer, sch *schema.Schema, compression string) (BlockWriter, error) {
	switch format {
	case Parquet:
		return newParquetWriter(w, sch, compression)
	case ORC:
		return newORCWriter(w, sch, compression)
	case Avro:
		return newAvroWriter(w, sch, compression)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", format)
	}
}

var simpleName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckSchema reports whether every field name is usable in format. ORC
// type strings and Avro records only accept simple identifiers.
func CheckSchema(format Format, sch *schema.Schema) error {
	if len(sch.Fields) == 0 {
		return errors.New(errors.ErrorTypeConfig, "schema has no fields")
	}
	if format == Parquet {
		return nil
	}
	for _, f := range sch.Fields {
		if !simpleName.MatchString(f.Name) {
			return errors.Newf(errors.ErrorTypeConfig,
				"field name %q is not valid for %s; use letters, digits and underscores", f.Name, format).
				WithDetail("field", f.Name)
		}
	}
	return nil
}

// countingWriter counts bytes and hides any Close method of the sink, so
// format libraries cannot close the stream the writer owns. Once detached
// it swallows writes, so an aborting block writer cannot reach the sink.
type countingWriter struct {
	w        io.Writer
	n        int64
	detached bool
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.detached {
		return len(p), nil
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
