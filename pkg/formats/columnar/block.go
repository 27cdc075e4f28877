package columnar

import (
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/models"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// Block is one batch projected onto a schema: a column per field, in field
// order, holding coerced values or nil.
type Block struct {
	Schema  *schema.Schema
	Rows    int
	Columns [][]interface{}
}

// NewBlock projects batch onto sch. A key missing from a row is null; keys
// not in the schema are ignored.
func NewBlock(batch models.Batch, sch *schema.Schema) (*Block, error) {
	b := &Block{
		Schema:  sch,
		Rows:    len(batch),
		Columns: make([][]interface{}, len(sch.Fields)),
	}

	for c, f := range sch.Fields {
		col := make([]interface{}, len(batch))
		for r, row := range batch {
			v, err := coerce(row[f.Name], f.Kind)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConversion, "cannot coerce value for field "+f.Name).
					WithDetail("field", f.Name).
					WithDetail("row", r).
					WithDetail("type", f.Kind.String())
			}
			col[r] = v
		}
		b.Columns[c] = col
	}
	return b, nil
}

// Row returns row r as a map, for readers and tests.
func (b *Block) Row(r int) models.Row {
	row := make(models.Row, len(b.Columns))
	for c, f := range b.Schema.Fields {
		row[f.Name] = b.Columns[c][r]
	}
	return row
}
