package csvsource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ingestor/pkg/compression"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/models"
	"github.com/ajitpratap0/ingestor/pkg/testutil"
)

func readAll(t *testing.T, r *Reader) []models.Batch {
	t.Helper()
	var out []models.Batch
	for {
		b, err := r.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, b)
	}
}

func TestReaderProjectsColumns(t *testing.T) {
	in := testutil.CSV("Transaction_ID,User_Name,Age,Country",
		"1,alice,30,NZ",
		"2,bob,,AU",
		"3,carol,41,US",
	)

	r, err := NewReader(strings.NewReader(in), []string{"Transaction_ID", "Age", "Missing"},
		WithBatchSize(2), WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)

	batches := readAll(t, r)
	require.Len(t, batches, 2)
	assert.Equal(t, models.Row{"Transaction_ID": "1", "Age": "30", "Missing": nil}, batches[0][0])
	assert.Equal(t, models.Row{"Transaction_ID": "2", "Age": nil, "Missing": nil}, batches[0][1])
	assert.Equal(t, models.Row{"Transaction_ID": "3", "Age": "41", "Missing": nil}, batches[1][0])

	_, err = r.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	in := "id,name\n1,ok\n2,bad\"quote\n3,fine\n"

	r, err := NewReader(strings.NewReader(in), []string{"id", "name"})
	require.NoError(t, err)

	batches := readAll(t, r)
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, "1", batches[0][0]["id"])
	assert.Equal(t, "3", batches[0][1]["id"])
	assert.Equal(t, 1, r.Skipped())
}

func TestReaderShortRows(t *testing.T) {
	r, err := NewReader(strings.NewReader("a,b,c\n1\n"), []string{"a", "c"})
	require.NoError(t, err)

	batches := readAll(t, r)
	require.Len(t, batches, 1)
	assert.Equal(t, models.Row{"a": "1", "c": nil}, batches[0][0])
}

func TestReaderDelimiterAndBOM(t *testing.T) {
	r, err := NewReader(strings.NewReader("\ufeffid;name\n7;x\n"), []string{"id", "name"}, WithDelimiter(';'))
	require.NoError(t, err)

	batches := readAll(t, r)
	require.Len(t, batches, 1)
	assert.Equal(t, models.Row{"id": "7", "name": "x"}, batches[0][0])
}

func TestReaderEmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), []string{"id"})
	assert.Error(t, err)

	r, err := NewReader(strings.NewReader("id\n"), []string{"id"})
	require.NoError(t, err)
	assert.Empty(t, readAll(t, r))
}

func TestOpenCompressed(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	w, err := compression.NewWriter(&buf, compression.Zstd, compression.Default)
	require.NoError(t, err)
	_, err = io.WriteString(w, testutil.CSV("id,name", "1,a", "2,b"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	testutil.WriteFile(t, dir, "in/orders.csv.zst", buf.String())

	fs := filesystem.NewLocal(dir)
	r, err := Open(context.Background(), fs, "in/orders.csv.zst", []string{"name"})
	require.NoError(t, err)

	batches := readAll(t, r)
	require.NoError(t, r.Close())
	require.Len(t, batches, 1)
	assert.Equal(t, []models.Row{{"name": "a"}, {"name": "b"}}, []models.Row(batches[0]))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filesystem.NewLocal(t.TempDir()), "nope.csv", []string{"id"})
	assert.Error(t, err)
}
