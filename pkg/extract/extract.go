// Package extract pulls rows from a relational table in bounded batches
// over a single server-side cursor.
package extract

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/models"
)

// DefaultBatchSize is the page size used when none is given.
const DefaultBatchSize = 10000

// Queryer is satisfied by *sql.DB, *sql.Conn, *sql.Tx and
// *source.Connection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Quoter quotes identifiers for one dialect.
type Quoter interface {
	Quote(ident string) string
}

// BuildQuery renders SELECT <quoted columns> FROM <tableRef>. tableRef is
// used verbatim so schema-qualified names pass through.
func BuildQuery(tableRef string, columns []string, q Quoter) (string, error) {
	if strings.TrimSpace(tableRef) == "" {
		return "", errors.New(errors.ErrorTypeConfig, "table reference is required")
	}
	if len(columns) == 0 {
		return "", errors.New(errors.ErrorTypeConfig, "at least one column is required").
			WithDetail("table", tableRef)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = q.Quote(c)
	}
	return "SELECT " + strings.Join(quoted, ", ") + " FROM " + tableRef, nil
}

// Iterator yields batches of rows from one open cursor. It is single-pass:
// once it returns io.EOF it keeps doing so.
type Iterator struct {
	rows      *sql.Rows
	columns   []string
	batchSize int
	logger    *zap.Logger

	batches int
	total   int64
	started time.Time
	done    bool
}

// Option configures Fetch
type Option func(*Iterator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(it *Iterator) { it.logger = l }
}

// Fetch executes the select for columns of tableRef and returns an iterator
// over its result. The query is issued immediately; rows are read lazily.
func Fetch(ctx context.Context, conn Queryer, tableRef string, columns []string, q Quoter, batchSize int, opts ...Option) (*Iterator, error) {
	query, err := BuildQuery(tableRef, columns, q)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	it := &Iterator{batchSize: batchSize}
	for _, opt := range opts {
		opt(it)
	}
	it.logger = logger.OrNop(it.logger).Named("extract")

	it.logger.Info("Executing query", zap.String("sql", query), zap.Int("batch_size", batchSize))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "query failed").
			WithDetail("sql", query)
	}
	it.rows = rows
	it.started = time.Now()
	return it, nil
}

// Columns returns the result column names. They are read from the cursor
// metadata once, on the first page.
func (it *Iterator) Columns() []string {
	return it.columns
}

// Next returns the next batch of at most batchSize rows, or io.EOF when the
// cursor is exhausted. A short batch is never followed by another batch.
func (it *Iterator) Next(ctx context.Context) (models.Batch, error) {
	if it.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		it.finish()
		return nil, err
	}

	if it.columns == nil {
		cols, err := it.rows.Columns()
		if err != nil {
			it.finish()
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
		}
		it.columns = cols
	}

	batch := make(models.Batch, 0, it.batchSize)
	values := make([]interface{}, len(it.columns))
	ptrs := make([]interface{}, len(it.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for len(batch) < it.batchSize && it.rows.Next() {
		if err := it.rows.Scan(ptrs...); err != nil {
			it.finish()
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan row").
				WithDetail("batch", it.batches)
		}
		row := make(models.Row, len(it.columns))
		for i, c := range it.columns {
			row[c] = normalize(values[i])
		}
		batch = append(batch, row)
	}

	if len(batch) < it.batchSize {
		if err := it.rows.Err(); err != nil {
			it.finish()
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "cursor failed").
				WithDetail("batch", it.batches)
		}
	}

	if len(batch) > 0 {
		it.batches++
		it.total += int64(len(batch))
		it.logger.Debug("Fetched batch", zap.Int("batch", it.batches), zap.Int("rows", len(batch)))
	}
	if len(batch) < it.batchSize {
		it.finish()
		if len(batch) == 0 {
			return nil, io.EOF
		}
	}
	return batch, nil
}

// Close releases the cursor. Safe to call at any time.
func (it *Iterator) Close() error {
	if it.rows == nil {
		return nil
	}
	it.done = true
	return it.rows.Close()
}

func (it *Iterator) finish() {
	if it.done {
		return
	}
	it.done = true
	_ = it.rows.Close()
	it.logger.Info("Extraction finished",
		zap.Int("batches", it.batches),
		zap.Int64("rows", it.total),
		zap.Duration("elapsed", time.Since(it.started)))
}

// normalize turns driver-specific values into the plain Go values the
// writers coerce from.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	default:
		return v
	}
}
