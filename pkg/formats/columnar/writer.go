package columnar

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/models"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// Destination names one output file: {Dir}/{Name}.{Format}
type Destination struct {
	FS          filesystem.Gateway
	Dir         string
	Name        string
	Format      Format
	Compression string
}

// Path returns the full output path.
func (d Destination) Path() string {
	return filesystem.Join(d.Dir, d.Name, d.Format.Extension())
}

// Result describes a finished write. Path is empty when the source was
// empty and no file was created.
type Result struct {
	Path     string
	Rows     int64
	Batches  int
	Bytes    int64
	Duration time.Duration
}

// Option configures Write
type Option func(*writeOptions)

type writeOptions struct {
	logger  *zap.Logger
	dataset string
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *writeOptions) { o.logger = l }
}

// WithDataset tags log lines and errors with the dataset name.
func WithDataset(name string) Option {
	return func(o *writeOptions) { o.dataset = name }
}

// Write drains src into one columnar file at dest. The file is created on
// the first non-empty batch, so an empty source writes nothing. On failure
// the partial output is discarded where the backend supports it.
func Write(ctx context.Context, src models.BatchSource, sch *schema.Schema, dest Destination, opts ...Option) (*Result, error) {
	o := writeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.OrNop(o.logger).Named("columnar")
	if o.dataset != "" {
		log = log.With(zap.String("dataset", o.dataset))
	}

	if dest.FS == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "destination filesystem is required")
	}
	if dest.Name == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "destination name is required")
	}
	if dest.Format == "" {
		dest.Format = Parquet
	}
	codec, err := ResolveCompression(dest.Format, dest.Compression)
	if err != nil {
		return nil, err
	}
	dest.Compression = codec
	if err := CheckSchema(dest.Format, sch); err != nil {
		return nil, err
	}

	if err := dest.FS.EnsureDir(ctx, dest.Dir); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
			WithDetail("dir", dest.Dir)
	}

	w := &fileWriter{dest: dest, schema: sch, log: log}
	start := time.Now()
	res, err := w.run(ctx, src)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	if res.Path == "" {
		log.Info("source produced no rows; no file written", zap.String("path", dest.Path()))
	} else {
		log.Info("columnar file written",
			zap.String("path", res.Path),
			zap.String("format", string(dest.Format)),
			zap.Int64("rows", res.Rows),
			zap.Int("batches", res.Batches),
			zap.Int64("bytes", res.Bytes),
			zap.Duration("duration", res.Duration))
	}
	return res, nil
}

// fileWriter owns the output stream for a single Write call.
type fileWriter struct {
	dest   Destination
	schema *schema.Schema
	log    *zap.Logger

	out     io.WriteCloser
	counter *countingWriter
	block   BlockWriter
}

func (w *fileWriter) run(ctx context.Context, src models.BatchSource) (res *Result, err error) {
	res = &Result{}
	defer func() {
		if cerr := w.finish(err); err == nil && cerr != nil {
			err = cerr
		}
		if w.counter != nil {
			res.Bytes = w.counter.n
		}
		if err != nil {
			res.Path = ""
		}
	}()

	for {
		if err = ctx.Err(); err != nil {
			return res, err
		}

		batch, nerr := src.Next(ctx)
		if stderrors.Is(nerr, io.EOF) {
			return res, nil
		}
		if nerr != nil {
			return res, errors.Annotate(nerr, "failed to read batch").WithDetail("batch", res.Batches)
		}
		if len(batch) == 0 {
			continue
		}

		block, berr := NewBlock(batch, w.schema)
		if berr != nil {
			return res, w.conversionFailed(berr, res.Batches)
		}

		if w.block == nil {
			if err = w.open(ctx); err != nil {
				return res, err
			}
			res.Path = w.dest.Path()
		}

		if err = w.block.WriteBlock(block); err != nil {
			return res, errors.Annotate(err, "failed to write batch").WithDetail("batch", res.Batches)
		}
		res.Rows += int64(block.Rows)
		res.Batches++
		w.log.Debug("batch written", zap.Int("batch", res.Batches), zap.Int("rows", block.Rows))
	}
}

func (w *fileWriter) open(ctx context.Context) error {
	path := w.dest.Path()
	out, err := w.dest.FS.Create(ctx, path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open output file").WithDetail("path", path)
	}
	w.out = out
	w.counter = &countingWriter{w: out}

	block, err := NewBlockWriter(w.dest.Format, w.counter, w.schema, w.dest.Compression)
	if err != nil {
		return err
	}
	w.block = block
	w.log.Debug("output opened", zap.String("path", path), zap.String("compression", w.dest.Compression))
	return nil
}

// finish closes the block writer and the stream. With cause set the stream
// is aborted instead of committed.
func (w *fileWriter) finish(cause error) error {
	if w.out == nil {
		return nil
	}

	var err error
	if w.block != nil {
		if cause == nil {
			err = w.block.Close()
		} else {
			w.counter.detached = true
			w.block.Abort()
		}
	}
	if cause != nil || err != nil {
		if a, ok := w.out.(filesystem.Aborter); ok {
			if aerr := a.CloseWithError(firstError(cause, err)); aerr != nil {
				w.log.Warn("failed to abort output", zap.Error(aerr))
			}
			return err
		}
	}
	if cerr := w.out.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.ErrorTypeFile, "failed to close output file").
			WithDetail("path", w.dest.Path())
	}
	return err
}

func (w *fileWriter) conversionFailed(err error, batch int) error {
	var e *errors.Error
	if !errors.As(err, &e) {
		w.log.Error("conversion failed", zap.Int("batch", batch), zap.Error(err))
		return err
	}
	w.log.Error("conversion failed",
		zap.Int("batch", batch),
		zap.Any("field", e.Details["field"]),
		zap.Any("row", e.Details["row"]),
		zap.Any("type", e.Details["type"]),
		zap.Error(err))
	return e.WithDetail("batch", batch)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
