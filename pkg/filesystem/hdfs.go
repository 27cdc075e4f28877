package filesystem

import (
	"context"
	"io"
	"os"

	"github.com/colinmarc/hdfs/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

// HDFS stores files on a Hadoop cluster through the namenode RPC protocol.
type HDFS struct {
	client *hdfs.Client
	logger *zap.Logger
}

// NewHDFS connects to the given namenodes as user. An empty user falls
// back to HADOOP_USER_NAME and then the OS user.
func NewHDFS(namenodes []string, user string, log *zap.Logger) (*HDFS, error) {
	if len(namenodes) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "hdfs requires at least one namenode address")
	}
	if user == "" {
		user = os.Getenv("HADOOP_USER_NAME")
	}

	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: namenodes,
		User:      user,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to hdfs").
			WithDetail("namenodes", namenodes)
	}

	log.Info("Connected to HDFS", zap.Strings("namenodes", namenodes), zap.String("user", user))
	return &HDFS{client: client, logger: log}, nil
}

// EnsureDir implements Gateway
func (h *HDFS) EnsureDir(_ context.Context, dir string) error {
	if err := h.client.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create hdfs directory").
			WithDetail("path", dir)
	}
	return nil
}

// Create implements Gateway. HDFS files cannot be truncated, so an
// existing file is removed first.
func (h *HDFS) Create(_ context.Context, p string) (io.WriteCloser, error) {
	if err := h.client.Remove(p); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to replace hdfs file").
			WithDetail("path", p)
	}
	w, err := h.client.Create(p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create hdfs file").
			WithDetail("path", p)
	}
	return w, nil
}

// Open implements Gateway
func (h *HDFS) Open(_ context.Context, p string) (File, error) {
	r, err := h.client.Open(p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open hdfs file").
			WithDetail("path", p)
	}
	return &hdfsFile{FileReader: r}, nil
}

// Close implements Gateway
func (h *HDFS) Close() error {
	return h.client.Close()
}

type hdfsFile struct {
	*hdfs.FileReader
}

func (f *hdfsFile) Size() int64 { return f.Stat().Size() }
