package source

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

// DefaultConnectTimeout bounds connection establishment when no timeout
// option is given.
const DefaultConnectTimeout = 10 * time.Second

type options struct {
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures Connect
type Option func(*options)

// WithTimeout overrides DefaultConnectTimeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Connection is one live database session plus the dialect it speaks. All
// datasets of a group share it.
type Connection struct {
	dialect *Dialect
	db      *sql.DB
	conn    *sql.Conn
	logger  *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Connect resolves cfg's dialect and opens a single pinned connection.
// Unsupported dialects fail before any network I/O.
func Connect(ctx context.Context, cfg *metadata.SourceConfig, opts ...Option) (*Connection, error) {
	o := options{timeout: DefaultConnectTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.OrNop(o.logger).Named("source")

	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "source_config is required")
	}

	d, err := Lookup(cfg.DBType)
	if err != nil {
		return nil, err
	}
	if !driverRegistered(d.DriverName) {
		return nil, d.missingDriver()
	}

	dsn, err := d.DSN(cfg, o.timeout)
	if err != nil {
		return nil, err
	}

	log = log.With(zap.String("dialect", d.Name))
	log.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Duration("timeout", o.timeout))
	if cfg.Sec.Driver != "" {
		log.Debug("Ignoring ODBC driver name", zap.String("driver", cfg.Sec.Driver))
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open "+d.Name+" connection")
	}
	db.SetMaxOpenConns(1)

	connectCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	conn, err := db.Conn(connectCtx)
	if err == nil {
		err = conn.PingContext(connectCtx)
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to "+d.Name).
			WithDetail("host", cfg.Host).
			WithDetail("database", cfg.Database)
	}

	return &Connection{dialect: d, db: db, conn: conn, logger: log}, nil
}

// Dialect returns the dialect of the connection
func (c *Connection) Dialect() *Dialect {
	return c.dialect
}

// Conn returns the pinned session
func (c *Connection) Conn() *sql.Conn {
	return c.conn
}

// QueryContext runs query on the pinned session
func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

// Close releases the session and the pool. It is safe to call more than
// once; later calls return the first result.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		connErr := c.conn.Close()
		dbErr := c.db.Close()
		if connErr != nil {
			c.closeErr = errors.Wrap(connErr, errors.ErrorTypeConnection, "failed to close connection")
		} else if dbErr != nil {
			c.closeErr = errors.Wrap(dbErr, errors.ErrorTypeConnection, "failed to close connection pool")
		}
		c.logger.Debug("Connection closed")
	})
	return c.closeErr
}

func driverRegistered(name string) bool {
	for _, d := range sql.Drivers() {
		if d == name {
			return true
		}
	}
	return false
}
