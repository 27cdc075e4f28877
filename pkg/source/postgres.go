//go:build !no_postgres

package source

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

func init() {
	attachDriver("postgresql", postgresDSN)
}

func postgresDSN(cfg *metadata.SourceConfig, port int, timeout time.Duration) (string, error) {
	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(timeoutSeconds(timeout)))
	for k, v := range cfg.Options {
		q.Set(k, v)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Sec.User, cfg.Sec.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	dsn := u.String()

	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid postgresql connection parameters")
	}
	return dsn, nil
}
