package filesystem

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

// GCS streams output files to a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *zap.Logger
}

// NewGCS creates a GCS gateway. An empty credentialsFile uses application
// default credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string, log *zap.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "gcs bucket is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create gcs client")
	}

	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: prefix,
		logger: log,
	}, nil
}

// EnsureDir implements Gateway. Object stores have no directories.
func (g *GCS) EnsureDir(context.Context, string) error {
	return nil
}

// Create implements Gateway. The object becomes visible when Close
// returns nil.
func (g *GCS) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	key := objectKey(g.prefix, p)
	ctx, cancel := context.WithCancel(ctx)
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	g.logger.Debug("Started gcs upload", zap.String("bucket", g.name), zap.String("object", key))
	return &gcsUpload{Writer: w, cancel: cancel, bucket: g.name, key: key}, nil
}

// Open implements Gateway. The object is read into memory.
func (g *GCS) Open(ctx context.Context, p string) (File, error) {
	key := objectKey(g.prefix, p)
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open gcs object").
			WithDetail("object", key)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read gcs object").
			WithDetail("object", key)
	}
	return NewMemFile(data), nil
}

// Close implements Gateway
func (g *GCS) Close() error {
	return g.client.Close()
}

type gcsUpload struct {
	*storage.Writer
	cancel context.CancelFunc
	bucket string
	key    string
}

func (w *gcsUpload) Close() error {
	defer w.cancel()
	if err := w.Writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to gcs").
			WithDetail("bucket", w.bucket).
			WithDetail("object", w.key)
	}
	return nil
}

// CloseWithError cancels the upload so the object is never created
func (w *gcsUpload) CloseWithError(error) error {
	w.cancel()
	_ = w.Writer.Close()
	return nil
}
