// Package csvsource reads delimited flat files as batches of rows projected
// onto declared feature columns.
package csvsource

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/compression"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/models"
)

// DefaultBatchSize is the number of rows per batch when none is given.
const DefaultBatchSize = 10000

type options struct {
	batchSize int
	delimiter rune
	logger    *zap.Logger
}

// Option configures a Reader
type Option func(*options)

// WithBatchSize sets the rows per batch
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithDelimiter sets the field delimiter
func WithDelimiter(r rune) Option {
	return func(o *options) {
		if r != 0 {
			o.delimiter = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Reader yields batches from a CSV stream with a header row. Only the
// requested columns are kept; columns absent from the header and empty
// fields are null.
type Reader struct {
	reader    *csv.Reader
	closers   []io.Closer
	columns   []string
	index     []int
	batchSize int
	logger    *zap.Logger

	line    int
	skipped int
	done    bool
}

// Open opens path on fs, decompressing by extension, and reads its header.
func Open(ctx context.Context, fs filesystem.Gateway, path string, columns []string, opts ...Option) (*Reader, error) {
	f, err := fs.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	rc, err := compression.NewReader(f, compression.Detect(path))
	if err != nil {
		_ = f.Close()
		return nil, errors.Annotate(err, path)
	}

	r, err := NewReader(rc, columns, opts...)
	if err != nil {
		_ = rc.Close()
		_ = f.Close()
		return nil, errors.Annotate(err, path)
	}
	r.closers = []io.Closer{rc, f}
	return r, nil
}

// NewReader reads the header from r and returns a Reader over the rest.
func NewReader(r io.Reader, columns []string, opts ...Option) (*Reader, error) {
	o := options{batchSize: DefaultBatchSize, delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}
	if len(columns) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "at least one column is required")
	}

	cr := csv.NewReader(r)
	cr.Comma = o.delimiter
	cr.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeData, "csv input has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read csv header")
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	log := logger.OrNop(o.logger).Named("csv")
	index := make([]int, len(columns))
	for i, c := range columns {
		pos, ok := positions[c]
		if !ok {
			pos = -1
			log.Warn("Column missing from csv header, values will be null", zap.String("column", c))
		}
		index[i] = pos
	}

	return &Reader{
		reader:    cr,
		columns:   columns,
		index:     index,
		batchSize: o.batchSize,
		logger:    log,
		line:      1,
	}, nil
}

// Next returns the next batch of rows, or io.EOF at end of input.
// Malformed lines are logged and skipped.
func (r *Reader) Next(ctx context.Context) (models.Batch, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make(models.Batch, 0, r.batchSize)
	for len(batch) < r.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.reader.Read()
		r.line++
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if stderrors.As(err, &parseErr) {
				r.skipped++
				r.logger.Warn("Skipping malformed line", zap.Int("line", parseErr.StartLine), zap.Error(err))
				continue
			}
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read csv").
				WithDetail("line", r.line)
		}

		row := make(models.Row, len(r.columns))
		for i, c := range r.columns {
			pos := r.index[i]
			if pos < 0 || pos >= len(record) || record[pos] == "" {
				row[c] = nil
				continue
			}
			row[c] = record[pos]
		}
		batch = append(batch, row)
	}

	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Skipped returns the number of malformed lines skipped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Close releases the underlying streams
func (r *Reader) Close() error {
	r.done = true
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}
