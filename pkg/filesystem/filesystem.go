// Package filesystem is the storage gateway the columnar writer persists
// through. Backends: local disk, HDFS, S3 and GCS.
package filesystem

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/logger"
)

// Gateway creates directories and output streams on one storage backend.
type Gateway interface {
	// EnsureDir creates dir and its parents. An existing directory is
	// success.
	EnsureDir(ctx context.Context, dir string) error
	// Create opens path for writing, replacing any existing file. Bytes
	// are durable only after Close returns nil.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	// Open opens path for reading.
	Open(ctx context.Context, path string) (File, error)
	// Close releases the backend client.
	Close() error
}

// File is a readable, seekable file of known size.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
	Size() int64
}

// Aborter is implemented by output streams that can discard everything
// written so far instead of committing it.
type Aborter interface {
	CloseWithError(err error) error
}

// Kinds lists the supported backends.
var Kinds = []string{"local", "hdfs", "s3", "gcs"}

// New builds the gateway selected by cfg.Kind. When Kind is empty the
// scheme of cfg.Root decides: hdfs://namenode:port, s3://bucket or
// gs://bucket; a plain path means local.
func New(ctx context.Context, cfg config.FilesystemConfig, log *zap.Logger) (Gateway, error) {
	log = logger.OrNop(log).Named("filesystem")

	if cfg.Kind == "" {
		var err error
		if cfg, err = fromRoot(cfg); err != nil {
			return nil, err
		}
	}

	switch strings.ToLower(cfg.Kind) {
	case "local":
		return NewLocal(cfg.Root), nil
	case "hdfs":
		return NewHDFS(cfg.Namenodes, cfg.User, log)
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Root,
		}, log)
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Root, cfg.CredentialsFile, log)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported filesystem kind %q", cfg.Kind).
			WithDetail("supported", Kinds)
	}
}

func fromRoot(cfg config.FilesystemConfig) (config.FilesystemConfig, error) {
	if !strings.Contains(cfg.Root, "://") {
		cfg.Kind = "local"
		return cfg, nil
	}

	u, err := url.Parse(cfg.Root)
	if err != nil {
		return cfg, errors.Wrap(err, errors.ErrorTypeConfig, "invalid filesystem root").
			WithDetail("root", cfg.Root)
	}

	switch u.Scheme {
	case "hdfs":
		cfg.Kind = "hdfs"
		if u.Host != "" {
			cfg.Namenodes = []string{u.Host}
		}
		if u.User != nil && cfg.User == "" {
			cfg.User = u.User.Username()
		}
	case "s3", "s3a":
		cfg.Kind = "s3"
		cfg.Bucket = u.Host
	case "gs", "gcs":
		cfg.Kind = "gcs"
		cfg.Bucket = u.Host
	case "file":
		cfg.Kind = "local"
	default:
		return cfg, errors.Newf(errors.ErrorTypeConfig, "unsupported filesystem scheme %q", u.Scheme)
	}
	cfg.Root = u.Path
	return cfg, nil
}

// Join builds the output file path {dir}/{name}.{ext}, dropping trailing
// slashes from dir.
func Join(dir, name, ext string) string {
	file := name
	if ext != "" {
		file += "." + ext
	}
	return strings.TrimRight(dir, "/") + "/" + file
}

// objectKey maps a slash path onto an object-store key under prefix.
func objectKey(prefix, p string) string {
	return strings.TrimPrefix(path.Join(prefix, p), "/")
}
