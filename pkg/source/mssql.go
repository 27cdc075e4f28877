//go:build !no_mssql

package source

import (
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

func init() {
	attachDriver("mssql", mssqlDSN)
}

// mssqlDSN builds a sqlserver:// URL. sec_config.driver names an ODBC
// driver and has no meaning for the native TDS driver.
func mssqlDSN(cfg *metadata.SourceConfig, port int, timeout time.Duration) (string, error) {
	secs := strconv.Itoa(timeoutSeconds(timeout))

	q := url.Values{}
	q.Set("database", cfg.Database)
	q.Set("dial timeout", secs)
	q.Set("connection timeout", secs)
	for k, v := range cfg.Options {
		q.Set(k, v)
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Sec.User, cfg.Sec.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	dsn := u.String()

	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(dsn); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid mssql connection parameters")
	}
	return dsn, nil
}
