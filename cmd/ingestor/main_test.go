package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/testutil"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(testutil.TestContext(t))
	return out.String(), err
}

// financeGroup writes a flat-file group reading one CSV into lake.
func financeGroup(t *testing.T) (metaDir, lake string) {
	t.Helper()

	dir := t.TempDir()
	csvPath := testutil.WriteFile(t, dir, "in/orders.csv", testutil.CSV(
		"id,amount,note",
		"1,9.50,first",
		"2,3.25,",
	))
	lake = filepath.ToSlash(filepath.Join(dir, "lake"))
	metaDir = filepath.Join(dir, "meta")
	testutil.WriteFile(t, metaDir, "finance.json", fmt.Sprintf(`{
  "dataset_config": [{
    "source": {"name": "orders", "path": %q, "features": [
      {"name": "id", "dtype": "int"},
      {"name": "amount", "dtype": "float"},
      {"name": "note"}
    ]},
    "destination": {"path": %q}
  }]
}`, filepath.ToSlash(csvPath), lake+"/orders"))
	return metaDir, lake
}

func TestRunThenInspect(t *testing.T) {
	metaDir, lake := financeGroup(t)

	_, err := execute(t, "run", "--metadata-dir", metaDir, "--group", "finance")
	require.NoError(t, err)

	out, err := execute(t, "inspect", lake+"/orders/orders.parquet")
	require.NoError(t, err)
	assert.Equal(t, "id\tamount\tnote\n1\t9.5\tfirst\n2\t3.25\tNULL\n", out)

	out, err = execute(t, "inspect", "--limit", "1", lake+"/orders/orders.parquet")
	require.NoError(t, err)
	assert.Equal(t, "id\tamount\tnote\n1\t9.5\tfirst\n", out)
}

func TestRunUnknownGroup(t *testing.T) {
	metaDir, _ := financeGroup(t)

	_, err := execute(t, "run", "--metadata-dir", metaDir, "--group", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "metadata config not found")
}

func TestRunRequiresGroup(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"group" not set`)
}

func TestPlan(t *testing.T) {
	metaDir, lake := financeGroup(t)
	t.Setenv("INGESTOR_OUTPUT_FORMAT", "orc")

	out, err := execute(t, "plan", "--metadata-dir", metaDir, "--group", "finance")
	require.NoError(t, err)
	assert.Contains(t, out, "group finance (1 datasets)")
	assert.Contains(t, out, "orders [file]")
	assert.Contains(t, out, "output: "+lake+"/orders/orders.orc (orc, zlib)")
	assert.Contains(t, out, "amount")
	assert.Contains(t, out, "float64")

	_, err = os.Stat(filepath.FromSlash(lake))
	assert.True(t, os.IsNotExist(err), "plan must not create output")
}

func TestDDL(t *testing.T) {
	metaDir, lake := financeGroup(t)
	cfgPath := testutil.WriteFile(t, t.TempDir(), "ingestor.yaml", "ingestion:\n  metadata_dir: "+metaDir+"\n")

	out, err := execute(t, "ddl", "--config", cfgPath, "--group", "finance", "--format", "orc")
	require.NoError(t, err)

	want := strings.Join([]string{
		"CREATE EXTERNAL TABLE IF NOT EXISTS `finance_orders` (",
		"    `id` BIGINT,",
		"    `amount` DOUBLE,",
		"    `note` STRING",
		")",
		"STORED AS ORC",
		"LOCATION '" + lake + "/orders'",
		"TBLPROPERTIES ('orc.compress'='ZLIB');",
		"",
	}, "\n")
	assert.Equal(t, want, out)

	file := filepath.Join(t.TempDir(), "finance.sql")
	_, err = execute(t, "ddl", "--config", cfgPath, "--group", "finance", "--format", "orc", "--out", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

func TestDDLRejectsUnknownFormat(t *testing.T) {
	metaDir, _ := financeGroup(t)

	_, err := execute(t, "ddl", "--metadata-dir", metaDir, "--group", "finance", "--format", "csv")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ingestor v"+version)
}
