// Package ddl renders Hive external-table statements over the files a
// group writes, so the output can be queried in place.
package ddl

import (
	"fmt"
	"io"
	"strings"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/formats/columnar"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// hiveTypes follows the physical column types the writers produce.
var hiveTypes = map[schema.Kind]string{
	schema.KindString:    "STRING",
	schema.KindInt64:     "BIGINT",
	schema.KindFloat64:   "DOUBLE",
	schema.KindBool:      "BOOLEAN",
	schema.KindTimestamp: "TIMESTAMP",
	schema.KindDate:      "DATE",
}

type storageFormat struct {
	storedAs string
	property string
	none     string
}

var storage = map[columnar.Format]storageFormat{
	columnar.Parquet: {"PARQUET", "parquet.compression", "UNCOMPRESSED"},
	columnar.ORC:     {"ORC", "orc.compress", "NONE"},
	columnar.Avro:    {"AVRO", "avro.output.codec", "NULL"},
}

// codec renders a canonical codec name as the table property value.
func (s storageFormat) codec(name string) string {
	if name == "none" {
		return s.none
	}
	return strings.ToUpper(name)
}

// Table describes one external table
type Table struct {
	Name        string
	Schema      *schema.Schema
	Format      columnar.Format
	Compression string
	Location    string
}

// TableName is {group}_{name}, where name is the destination name, then
// the dataset name.
func TableName(group string, ds metadata.Dataset) string {
	name := ds.Destination.Name
	if name == "" {
		name = ds.Name(group)
	}
	return group + "_" + name
}

// ForGroup builds one table per dataset. format overrides each dataset's
// destination format when non-empty.
func ForGroup(g *metadata.Group, format columnar.Format) ([]Table, error) {
	kind := g.Kind()
	tables := make([]Table, 0, len(g.Datasets))
	for _, ds := range g.Datasets {
		name := ds.Name(g.ID)
		f := format
		compression := ds.Destination.Compression
		declared, err := columnar.ParseFormat(ds.Destination.Format)
		if f == "" {
			if err != nil {
				return nil, errors.Annotate(err, "dataset "+name)
			}
			f = declared
		} else if err != nil || declared != f {
			// The dataset's codec belongs to its own format.
			compression = ""
		}
		if compression, err = columnar.ResolveCompression(f, compression); err != nil {
			return nil, errors.Annotate(err, "dataset "+name)
		}
		tables = append(tables, Table{
			Name:        TableName(g.ID, ds),
			Schema:      schema.Resolve(ds.Source.Features),
			Format:      f,
			Compression: compression,
			Location:    ds.OutputDir(kind),
		})
	}
	return tables, nil
}

// Statement renders the CREATE EXTERNAL TABLE statement for t.
func (t Table) Statement() string {
	st, ok := storage[t.Format]
	if !ok {
		st = storage[columnar.Parquet]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE EXTERNAL TABLE IF NOT EXISTS %s (\n", quote(t.Name))
	for i, f := range t.Schema.Fields {
		sep := ","
		if i == len(t.Schema.Fields)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "    %s %s%s\n", quote(f.Name), hiveTypes[f.Kind], sep)
	}
	sb.WriteString(")\n")
	fmt.Fprintf(&sb, "STORED AS %s\n", st.storedAs)
	fmt.Fprintf(&sb, "LOCATION '%s'\n", strings.ReplaceAll(t.Location, "'", "\\'"))
	fmt.Fprintf(&sb, "TBLPROPERTIES ('%s'='%s');\n", st.property, st.codec(t.Compression))
	return sb.String()
}

// Write renders every table to w, separated by blank lines.
func Write(w io.Writer, tables []Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to write DDL")
			}
		}
		if _, err := io.WriteString(w, t.Statement()); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write DDL")
		}
	}
	return nil
}

func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
