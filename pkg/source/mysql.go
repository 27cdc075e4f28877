//go:build !no_mysql

package source

import (
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

func init() {
	attachDriver("mysql", mysqlDSN)
}

func mysqlDSN(cfg *metadata.SourceConfig, port int, timeout time.Duration) (string, error) {
	c := mysql.NewConfig()
	c.User = cfg.Sec.User
	c.Passwd = cfg.Sec.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.Timeout = timeout
	c.ParseTime = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range cfg.Options {
		c.Params[k] = v
	}
	return c.FormatDSN(), nil
}
