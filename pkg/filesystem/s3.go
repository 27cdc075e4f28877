package filesystem

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

// S3Options configures the S3 gateway
type S3Options struct {
	Bucket string
	Region string
	// Endpoint points at an S3-compatible service; path-style addressing
	// is enabled when it is set.
	Endpoint string
	// Prefix is prepended to every key.
	Prefix string
	// PartSize and Concurrency tune multipart uploads; zero keeps the
	// manager defaults.
	PartSize    int64
	Concurrency int
}

// S3 streams output files to an S3 bucket with multipart uploads.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     S3Options
	logger   *zap.Logger
}

// NewS3 loads the default AWS credential chain and builds the client
func NewS3(ctx context.Context, opts S3Options, log *zap.Logger) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load aws configuration")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3WithClient(client, opts, log), nil
}

func newS3WithClient(client *s3.Client, opts S3Options, log *zap.Logger) *S3 {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if opts.PartSize > 0 {
			u.PartSize = opts.PartSize
		}
		if opts.Concurrency > 0 {
			u.Concurrency = opts.Concurrency
		}
	})
	return &S3{client: client, uploader: uploader, opts: opts, logger: log}
}

// EnsureDir implements Gateway. Object stores have no directories.
func (g *S3) EnsureDir(context.Context, string) error {
	return nil
}

// Create implements Gateway. The returned writer feeds a background
// multipart upload through a pipe; Close waits for the upload to finish.
func (g *S3) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	key := objectKey(g.opts.Prefix, p)
	pr, pw := io.Pipe()
	w := &pipeUpload{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := g.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(g.opts.Bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		// unblock the writer if the upload stopped reading
		_ = pr.CloseWithError(err)
		if err != nil {
			err = errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to s3").
				WithDetail("bucket", g.opts.Bucket).
				WithDetail("key", key)
		}
		w.done <- err
	}()

	g.logger.Debug("Started s3 upload", zap.String("bucket", g.opts.Bucket), zap.String("key", key))
	return w, nil
}

// Open implements Gateway. The object is downloaded into memory.
func (g *S3) Open(ctx context.Context, p string) (File, error) {
	key := objectKey(g.opts.Prefix, p)
	buf := manager.NewWriteAtBuffer(nil)

	_, err := manager.NewDownloader(g.client).Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(g.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to download from s3").
			WithDetail("bucket", g.opts.Bucket).
			WithDetail("key", key)
	}
	return NewMemFile(buf.Bytes()), nil
}

// Close implements Gateway
func (g *S3) Close() error {
	return nil
}

// pipeUpload is the write side of a streaming upload
type pipeUpload struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *pipeUpload) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close commits the upload and returns its result
func (w *pipeUpload) Close() error {
	_ = w.pw.Close()
	return <-w.done
}

// CloseWithError aborts the upload so no partial object is committed
func (w *pipeUpload) CloseWithError(err error) error {
	_ = w.pw.CloseWithError(err)
	<-w.done
	return nil
}

// memFile serves an in-memory byte slice as a File
type memFile struct {
	*bytes.Reader
}

// NewMemFile wraps data as a File
func NewMemFile(data []byte) File {
	return &memFile{Reader: bytes.NewReader(data)}
}

func (f *memFile) Close() error { return nil }
