package filesystem

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "/warehouse/orders/orders.parquet", Join("/warehouse/orders/", "orders", "parquet"))
	assert.Equal(t, "/warehouse/orders/orders.orc", Join("/warehouse/orders", "orders", "orc"))
	assert.Equal(t, "/x.parquet", Join("/", "x", "parquet"))
}

func TestLocalEnsureDirIdempotent(t *testing.T) {
	ctx := context.Background()
	g := NewLocal(t.TempDir())

	require.NoError(t, g.EnsureDir(ctx, "/a/b/c"))
	require.NoError(t, g.EnsureDir(ctx, "/a/b/c"), "existing directory is success")
	require.NoError(t, g.EnsureDir(ctx, "/a/b"))
}

func TestLocalCreateOverwrites(t *testing.T) {
	ctx := context.Background()
	g := NewLocal(t.TempDir())
	require.NoError(t, g.EnsureDir(ctx, "out"))

	write := func(s string) {
		w, err := g.Create(ctx, "out/f.bin")
		require.NoError(t, err)
		_, err = io.WriteString(w, s)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	write("first run, longer content")
	write("second")

	f, err := g.Open(ctx, "out/f.bin")
	require.NoError(t, err)
	defer f.Close()

	assert.EqualValues(t, len("second"), f.Size())
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalOpenMissing(t *testing.T) {
	_, err := NewLocal(t.TempDir()).Open(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestNewLocal(t *testing.T) {
	root := t.TempDir()
	g, err := New(context.Background(), config.FilesystemConfig{Kind: "local", Root: root}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.IsType(t, &Local{}, g)

	require.NoError(t, g.EnsureDir(context.Background(), "x"))
	assert.DirExists(t, filepath.Join(root, "x"))
	assert.NoError(t, g.Close())
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(context.Background(), config.FilesystemConfig{Kind: "ftp"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewHDFSRequiresNamenode(t *testing.T) {
	_, err := New(context.Background(), config.FilesystemConfig{Kind: "hdfs"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestFromRoot(t *testing.T) {
	tests := []struct {
		root string
		want config.FilesystemConfig
	}{
		{"/data", config.FilesystemConfig{Kind: "local", Root: "/data"}},
		{"hdfs://hadoop@nn1:8020/user/hive", config.FilesystemConfig{Kind: "hdfs", Root: "/user/hive", Namenodes: []string{"nn1:8020"}, User: "hadoop"}},
		{"s3://lake/raw", config.FilesystemConfig{Kind: "s3", Root: "/raw", Bucket: "lake"}},
		{"gs://lake", config.FilesystemConfig{Kind: "gcs", Root: "", Bucket: "lake"}},
	}
	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			got, err := fromRoot(config.FilesystemConfig{Root: tt.root})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := fromRoot(config.FilesystemConfig{Root: "ftp://x"})
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "raw/orders/orders.parquet", objectKey("/raw", "/orders/orders.parquet"))
	assert.Equal(t, "orders/orders.parquet", objectKey("", "/orders/orders.parquet"))
}

func TestPipeUpload(t *testing.T) {
	pr, pw := io.Pipe()
	w := &pipeUpload{pw: pw, done: make(chan error, 1)}

	got := make(chan string, 1)
	go func() {
		data, err := io.ReadAll(pr)
		_ = pr.CloseWithError(err)
		got <- string(data)
		w.done <- err
	}()

	_, err := io.WriteString(w, "hello ")
	require.NoError(t, err)
	_, err = io.WriteString(w, "world")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "hello world", <-got)
}

func TestPipeUploadAbort(t *testing.T) {
	pr, pw := io.Pipe()
	w := &pipeUpload{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := io.ReadAll(pr)
		w.done <- err
	}()

	_, err := io.WriteString(w, "partial")
	require.NoError(t, err)
	assert.NoError(t, w.CloseWithError(io.ErrUnexpectedEOF))
}

func TestMemFile(t *testing.T) {
	f := NewMemFile([]byte("abcdef"))
	assert.EqualValues(t, 6, f.Size())

	buf := make([]byte, 3)
	_, err := f.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "cde", string(buf))
	assert.NoError(t, f.Close())
}
