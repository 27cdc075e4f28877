//go:build !no_sqlite

package source

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

func init() {
	attachDriver("sqlite", sqliteDSN)
}

// sqliteDSN treats database as the file path; host is accepted as a
// fallback. The connect timeout becomes the busy timeout.
func sqliteDSN(cfg *metadata.SourceConfig, _ int, timeout time.Duration) (string, error) {
	path := cfg.Database
	if path == "" {
		path = cfg.Host
	}
	if path == "" {
		return "", errors.New(errors.ErrorTypeConfig, "sqlite source requires a database path")
	}

	params := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", timeout.Milliseconds())}
	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params = append(params, url.QueryEscape(k)+"="+url.QueryEscape(cfg.Options[k]))
	}
	return path + "?" + strings.Join(params, "&"), nil
}
