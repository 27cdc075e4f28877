//go:build !no_snowflake

package source

import (
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

func init() {
	attachDriver("snowflake", snowflakeDSN)
}

// snowflakeDSN maps host to the account identifier. warehouse, schema and
// role come from options.
func snowflakeDSN(cfg *metadata.SourceConfig, port int, timeout time.Duration) (string, error) {
	account := strings.TrimSuffix(cfg.Host, ".snowflakecomputing.com")
	if account == "" {
		return "", errors.New(errors.ErrorTypeConfig, "snowflake source requires host (account identifier)")
	}

	sc := &gosnowflake.Config{
		Account:      account,
		User:         cfg.Sec.User,
		Password:     cfg.Sec.Password,
		Database:     cfg.Database,
		Schema:       cfg.Options["schema"],
		Warehouse:    cfg.Options["warehouse"],
		Role:         cfg.Options["role"],
		Port:         port,
		LoginTimeout: timeout,
	}

	dsn, err := gosnowflake.DSN(sc)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid snowflake connection parameters")
	}
	return dsn, nil
}
