package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

// Local stores files on the local disk, optionally below a root directory.
type Local struct {
	root string
}

// NewLocal creates a local gateway. An empty root uses paths as given.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) resolve(p string) string {
	if l.root == "" {
		return filepath.FromSlash(p)
	}
	return filepath.Join(l.root, filepath.FromSlash(p))
}

// EnsureDir implements Gateway
func (l *Local) EnsureDir(_ context.Context, dir string) error {
	if err := os.MkdirAll(l.resolve(dir), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").
			WithDetail("path", dir)
	}
	return nil
}

// Create implements Gateway
func (l *Local) Create(_ context.Context, p string) (io.WriteCloser, error) {
	f, err := os.Create(l.resolve(p))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create file").
			WithDetail("path", p)
	}
	return f, nil
}

// Open implements Gateway
func (l *Local) Open(_ context.Context, p string) (File, error) {
	f, err := os.Open(l.resolve(p))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").
			WithDetail("path", p)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").
			WithDetail("path", p)
	}
	return &sizedFile{File: f, size: info.Size()}, nil
}

// Close implements Gateway
func (l *Local) Close() error {
	return nil
}

type sizedFile struct {
	*os.File
	size int64
}

func (f *sizedFile) Size() int64 { return f.size }
