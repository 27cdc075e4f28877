// Package source opens relational connections for metadata groups. Each
// supported database is a Dialect registered at init time; drivers are
// compiled in per dialect and can be left out with the no_<dialect> build
// tags.
package source

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

// DSNFunc builds a driver data source name from connection parameters.
type DSNFunc func(cfg *metadata.SourceConfig, port int, timeout time.Duration) (string, error)

// Dialect describes one database family: how to reach it and how to quote
// identifiers for it.
type Dialect struct {
	// Name is the canonical tag, e.g. "postgresql".
	Name string
	// Aliases are alternative db_type spellings.
	Aliases []string
	// DefaultPort is used when the source config omits a port; 0 means the
	// dialect has no network port.
	DefaultPort int
	// DriverName is the database/sql driver name.
	DriverName string
	// DriverModule names the Go module providing the driver, for error
	// messages when it is compiled out.
	DriverModule string

	open, close string
}

// Quote returns ident as a delimited identifier. Embedded closing
// delimiters are doubled.
func (d *Dialect) Quote(ident string) string {
	return d.open + strings.ReplaceAll(ident, d.close, d.close+d.close) + d.close
}

// Unquote reverses Quote.
func (d *Dialect) Unquote(quoted string) (string, error) {
	if len(quoted) < len(d.open)+len(d.close) ||
		!strings.HasPrefix(quoted, d.open) || !strings.HasSuffix(quoted, d.close) {
		return "", errors.Newf(errors.ErrorTypeValidation, "%s: %q is not a quoted identifier", d.Name, quoted)
	}
	inner := quoted[len(d.open) : len(quoted)-len(d.close)]
	return strings.ReplaceAll(inner, d.close+d.close, d.close), nil
}

// DSN builds the driver connection string. It fails with an environment
// error when the dialect's driver was compiled out.
func (d *Dialect) DSN(cfg *metadata.SourceConfig, timeout time.Duration) (string, error) {
	registryMu.RLock()
	fn := builders[d.Name]
	registryMu.RUnlock()

	if fn == nil {
		return "", d.missingDriver()
	}
	port := int(cfg.Port)
	if port == 0 {
		port = d.DefaultPort
	}
	return fn(cfg, port, timeout)
}

func (d *Dialect) missingDriver() error {
	return errors.Newf(errors.ErrorTypeEnvironment,
		"%s driver %q is not available in this build (requires %s)", d.Name, d.DriverName, d.DriverModule).
		WithDetail("dialect", d.Name)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Dialect{}
	aliases    = map[string]string{}
	builders   = map[string]DSNFunc{}
)

// Register adds a dialect. Registering the same name twice replaces it.
func Register(d *Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[d.Name] = d
	aliases[d.Name] = d.Name
	for _, a := range d.Aliases {
		aliases[a] = d.Name
	}
}

// attachDriver installs the DSN builder for a dialect. Driver files call it
// from init, so a dialect whose driver is compiled out has no builder.
func attachDriver(name string, fn DSNFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	builders[name] = fn
}

// Lookup resolves a db_type case-insensitively through the alias table. An
// empty db_type means postgresql.
func Lookup(dbType string) (*Dialect, error) {
	tag := strings.ToLower(strings.TrimSpace(dbType))
	if tag == "" {
		tag = "postgresql"
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	name, ok := aliases[tag]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported db_type: %s", tag).
			WithDetail("supported", names())
	}
	return registry[name], nil
}

// Dialects returns the canonical names of all registered dialects, sorted.
func Dialects() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return names()
}

func names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// timeoutSeconds rounds up to whole seconds, minimum one.
func timeoutSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
