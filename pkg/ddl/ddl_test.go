package ddl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/formats/columnar"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

func salesGroup() *metadata.Group {
	return &metadata.Group{
		ID:           "sales",
		SourceConfig: &metadata.SourceConfig{DBType: "postgresql"},
		Datasets: []metadata.Dataset{
			{
				Source: metadata.SourceSpec{Name: "orders", Features: []metadata.Feature{
					{Name: "id", DType: "int"},
					{Name: "total", DType: "float"},
					{Name: "placed_at", DType: "datetime"},
					{Name: "note"},
				}},
				Destination: metadata.DestinationSpec{Path: "/warehouse/orders/", Format: "parquet"},
			},
			{
				Source:      metadata.SourceSpec{Name: "days", Features: []metadata.Feature{{Name: "d", DType: "date"}}},
				Destination: metadata.DestinationSpec{Name: "calendar", Path: "/warehouse/days", Format: "orc", Compression: "zlib"},
			},
		},
	}
}

func TestStatement(t *testing.T) {
	tables, err := ForGroup(salesGroup(), "")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "CREATE EXTERNAL TABLE IF NOT EXISTS `sales_orders` (\n"+
		"    `id` BIGINT,\n"+
		"    `total` DOUBLE,\n"+
		"    `placed_at` TIMESTAMP,\n"+
		"    `note` STRING\n"+
		")\n"+
		"STORED AS PARQUET\n"+
		"LOCATION '/warehouse/orders/'\n"+
		"TBLPROPERTIES ('parquet.compression'='SNAPPY');\n", tables[0].Statement())

	assert.Equal(t, "sales_calendar", tables[1].Name)
	assert.Contains(t, tables[1].Statement(), "STORED AS ORC\n")
	assert.Contains(t, tables[1].Statement(), "('orc.compress'='ZLIB')")
}

func TestFormatOverride(t *testing.T) {
	tables, err := ForGroup(salesGroup(), columnar.Avro)
	require.NoError(t, err)
	for _, tbl := range tables {
		assert.Contains(t, tbl.Statement(), "STORED AS AVRO")
		assert.Contains(t, tbl.Statement(), "('avro.output.codec'='SNAPPY')")
	}
}

func TestORCDefaultsToZlib(t *testing.T) {
	g := salesGroup()
	g.Datasets[1].Destination.Compression = ""

	tables, err := ForGroup(g, "")
	require.NoError(t, err)
	assert.Contains(t, tables[1].Statement(), "('orc.compress'='ZLIB')")

	tables, err = ForGroup(salesGroup(), columnar.ORC)
	require.NoError(t, err)
	for _, tbl := range tables {
		assert.Contains(t, tbl.Statement(), "('orc.compress'='ZLIB')")
	}
}

func TestUncompressedProperty(t *testing.T) {
	g := salesGroup()
	g.Datasets[0].Destination.Compression = "uncompressed"
	g.Datasets[1].Destination.Compression = "none"

	tables, err := ForGroup(g, "")
	require.NoError(t, err)
	assert.Contains(t, tables[0].Statement(), "('parquet.compression'='UNCOMPRESSED')")
	assert.Contains(t, tables[1].Statement(), "('orc.compress'='NONE')")
}

func TestUnsupportedCompression(t *testing.T) {
	g := salesGroup()
	g.Datasets[1].Destination.Compression = "snappy"

	_, err := ForGroup(g, "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "dataset days")
}

func TestUnknownFormat(t *testing.T) {
	g := salesGroup()
	g.Datasets[0].Destination.Format = "xlsx"

	_, err := ForGroup(g, "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestWrite(t *testing.T) {
	tables, err := ForGroup(salesGroup(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tables))
	assert.Equal(t, tables[0].Statement()+"\n"+tables[1].Statement(), buf.String())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`we``ird`", quote("we`ird"))
}
