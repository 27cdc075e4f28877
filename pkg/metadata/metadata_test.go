package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rdbmsDoc = `{
  "source_config": {
    "db_type": "Postgres",
    "host": "db.internal",
    "port": "5433",
    "database": "shop",
    "sec_config": {"user": "ingest", "password": "${TEST_INGEST_PW}"}
  },
  "dataset_config": [
    {
      "source": {
        "name": "orders",
        "path": "public.orders",
        "features": [
          {"name": "id", "dtype": "int"},
          {"name": "total", "dtype": "float"},
          {"name": "created_at", "dtype": "datetime"}
        ]
      },
      "destination": {"path": "/warehouse/orders/"}
    },
    {
      "source": {"path": "public.customers", "features": [{"name": "id"}]},
      "destination": {"path": "/warehouse/customers"}
    }
  ]
}`

func TestLoadJSON(t *testing.T) {
	t.Setenv("TEST_INGEST_PW", "s3cret")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.json"), []byte(rdbmsDoc), 0o600))

	g, err := Load(dir, "shop")
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Equal(t, "shop", g.ID)
	assert.Equal(t, KindRDBMS, g.Kind())
	assert.Equal(t, FlexInt(5433), g.SourceConfig.Port)
	assert.Equal(t, "s3cret", g.SourceConfig.Sec.Password)
	assert.NotContains(t, g.SourceConfig.Sec.String(), "s3cret")

	require.Len(t, g.Datasets, 2)
	assert.Equal(t, "orders", g.Datasets[0].Name(g.ID))
	assert.Equal(t, "shop", g.Datasets[1].Name(g.ID))
	assert.Equal(t, []string{"id", "total", "created_at"}, g.Datasets[0].Columns())
}

func TestLoadYAML(t *testing.T) {
	doc := `
dataset_config:
  - source:
      name: events
      topic: events
      features:
        - name: user
          dtype: string
        - name: ts
          dtype: timestamp
    destination:
      path: /raw/events
`
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.yaml"), []byte(doc), 0o600))

	g, err := Load(dir, "events")
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, KindStream, g.Kind())
	assert.Equal(t, "timestamp", g.Datasets[0].Source.Features[1].DType)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "nope.json")
}

func TestKindInference(t *testing.T) {
	tests := []struct {
		name  string
		group Group
		want  Kind
	}{
		{"source config", Group{SourceConfig: &SourceConfig{}, Datasets: []Dataset{{}}}, KindRDBMS},
		{"topic", Group{Datasets: []Dataset{{Source: SourceSpec{Topic: "t"}}}}, KindStream},
		{"flat file", Group{Datasets: []Dataset{{Source: SourceSpec{Path: "a.csv"}}}}, KindFile},
		{"explicit wins", Group{SourceConfig: &SourceConfig{}, Datasets: []Dataset{{Source: SourceSpec{Kind: "File"}}}}, KindFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.group.Kind())
		})
	}
}

func TestValidate(t *testing.T) {
	features := []Feature{{Name: "id", DType: "int"}}

	tests := []struct {
		name    string
		group   Group
		wantErr string
	}{
		{
			name:    "no datasets",
			group:   Group{ID: "g"},
			wantErr: "no dataset_config",
		},
		{
			name: "missing destination",
			group: Group{ID: "g", SourceConfig: &SourceConfig{}, Datasets: []Dataset{
				{Source: SourceSpec{Path: "t", Features: features}},
			}},
			wantErr: "destination path not specified",
		},
		{
			name: "missing table",
			group: Group{ID: "g", SourceConfig: &SourceConfig{}, Datasets: []Dataset{
				{Source: SourceSpec{Features: features}, Destination: DestinationSpec{Path: "/out"}},
			}},
			wantErr: "source path not specified",
		},
		{
			name: "duplicate feature",
			group: Group{ID: "g", Datasets: []Dataset{
				{Source: SourceSpec{Path: "a.csv", Features: []Feature{{Name: "id"}, {Name: "id"}}}, Destination: DestinationSpec{Path: "/out"}},
			}},
			wantErr: `duplicate feature "id"`,
		},
		{
			name: "unknown kind",
			group: Group{ID: "g", Datasets: []Dataset{
				{Source: SourceSpec{Kind: "ftp", Path: "x", Features: features}, Destination: DestinationSpec{Path: "/out"}},
			}},
			wantErr: "unknown source kind",
		},
		{
			name: "stream falls back to source path",
			group: Group{ID: "g", Datasets: []Dataset{
				{Source: SourceSpec{Topic: "t", Path: "/raw", Features: features}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.group.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlexInt(t *testing.T) {
	var p FlexInt
	require.NoError(t, p.UnmarshalJSON([]byte(`1433`)))
	assert.Equal(t, FlexInt(1433), p)
	require.NoError(t, p.UnmarshalJSON([]byte(`"3306"`)))
	assert.Equal(t, FlexInt(3306), p)
	require.NoError(t, p.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, FlexInt(0), p)
	assert.Error(t, p.UnmarshalJSON([]byte(`"abc"`)))
}
