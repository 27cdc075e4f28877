package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // sqlite fixtures

	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// SQLiteSource creates a file-backed SQLite database in a temp dir, runs
// stmts against it, and returns a source config pointing at it.
func SQLiteSource(t *testing.T, stmts ...string) *metadata.SourceConfig {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return &metadata.SourceConfig{DBType: "sqlite", Database: path}
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// CSV joins header and rows into CSV text with a trailing newline.
func CSV(header string, rows ...string) string {
	return strings.Join(append([]string{header}, rows...), "\n") + "\n"
}
