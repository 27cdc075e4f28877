// Package metadata models the declarative group documents that drive every
// ingestion run: one optional source_config plus an ordered dataset_config
// list.
package metadata

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/json"
	"gopkg.in/yaml.v3"
)

// Kind selects the producer used for a group's datasets
type Kind string

const (
	KindRDBMS  Kind = "rdbms"
	KindFile   Kind = "file"
	KindStream Kind = "stream"
)

// Group is one metadata document
type Group struct {
	// ID is the document name, used as the default dataset name and as the
	// Hive table prefix.
	ID           string        `json:"-" yaml:"-"`
	SourceConfig *SourceConfig `json:"source_config,omitempty" yaml:"source_config,omitempty"`
	Datasets     []Dataset     `json:"dataset_config" yaml:"dataset_config"`
}

// SourceConfig holds the relational connection parameters shared by every
// dataset of a group.
type SourceConfig struct {
	DBType   string            `json:"db_type" yaml:"db_type"`
	Host     string            `json:"host" yaml:"host"`
	Port     FlexInt           `json:"port,omitempty" yaml:"port,omitempty"`
	Database string            `json:"database" yaml:"database"`
	Sec      SecConfig         `json:"sec_config" yaml:"sec_config"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// SecConfig holds credentials
type SecConfig struct {
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	// Driver is the ODBC driver name carried by SQL Server documents.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
}

// String redacts the password.
func (s SecConfig) String() string {
	return "user=" + s.User + " password=***"
}

// Dataset pairs a source with its destination
type Dataset struct {
	Source      SourceSpec      `json:"source" yaml:"source"`
	Destination DestinationSpec `json:"destination" yaml:"destination"`
}

// SourceSpec describes where a dataset's rows come from. Path is a table
// reference for relational groups and a file path for flat-file groups.
type SourceSpec struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Path     string            `json:"path,omitempty" yaml:"path,omitempty"`
	DBType   string            `json:"db_type,omitempty" yaml:"db_type,omitempty"`
	Kind     Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	Topic    string            `json:"topic,omitempty" yaml:"topic,omitempty"`
	Features []Feature         `json:"features" yaml:"features"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Feature is one declared column
type Feature struct {
	Name  string `json:"name" yaml:"name"`
	DType string `json:"dtype,omitempty" yaml:"dtype,omitempty"`
}

// DestinationSpec is the output directory and optional format override
type DestinationSpec struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Path        string `json:"path" yaml:"path"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`
}

// Name returns the dataset identity: source.name, or the group id.
func (d Dataset) Name(group string) string {
	if d.Source.Name != "" {
		return d.Source.Name
	}
	return group
}

// Columns returns feature names in declaration order.
func (d Dataset) Columns() []string {
	cols := make([]string, len(d.Source.Features))
	for i, f := range d.Source.Features {
		cols[i] = f.Name
	}
	return cols
}

// OutputDir returns the destination directory. Stream datasets fall back to
// source.path when destination.path is empty.
func (d Dataset) OutputDir(kind Kind) string {
	if d.Destination.Path == "" && kind == KindStream {
		return d.Source.Path
	}
	return d.Destination.Path
}

// Kind returns the group's producer kind: an explicit source kind on the
// first dataset wins, then source_config implies rdbms, a topic implies
// stream, and anything else is a flat file.
func (g *Group) Kind() Kind {
	if len(g.Datasets) > 0 && g.Datasets[0].Source.Kind != "" {
		return Kind(strings.ToLower(string(g.Datasets[0].Source.Kind)))
	}
	if g.SourceConfig != nil {
		return KindRDBMS
	}
	for _, ds := range g.Datasets {
		if ds.Source.Topic != "" {
			return KindStream
		}
	}
	return KindFile
}

// Validate checks the whole group before any connection is opened.
func (g *Group) Validate() error {
	if len(g.Datasets) == 0 {
		return errors.Newf(errors.ErrorTypeConfig, "group %s has no dataset_config entries", g.ID)
	}

	kind := g.Kind()
	switch kind {
	case KindRDBMS, KindFile, KindStream:
	default:
		return errors.Newf(errors.ErrorTypeConfig, "group %s: unknown source kind %q", g.ID, kind)
	}
	if kind == KindRDBMS && g.SourceConfig == nil {
		return errors.Newf(errors.ErrorTypeConfig, "group %s: source_config is required for relational sources", g.ID)
	}

	for i, ds := range g.Datasets {
		if err := ds.validate(kind); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "dataset "+ds.Name(g.ID)).
				WithDetail("index", i)
		}
	}
	return nil
}

func (d Dataset) validate(kind Kind) error {
	if d.OutputDir(kind) == "" {
		return errors.New(errors.ErrorTypeConfig, "destination path not specified")
	}
	if kind != KindStream && d.Source.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "source path not specified")
	}
	if len(d.Source.Features) == 0 {
		return errors.New(errors.ErrorTypeConfig, "no features declared")
	}

	seen := make(map[string]struct{}, len(d.Source.Features))
	for _, f := range d.Source.Features {
		if f.Name == "" {
			return errors.New(errors.ErrorTypeConfig, "feature with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return errors.Newf(errors.ErrorTypeConfig, "duplicate feature %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// FlexInt accepts a port written either as a number or a string.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (p *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid port "+string(data))
	}
	*p = FlexInt(n)
	return nil
}

// MarshalJSON implements json.Marshaler
func (p FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(p))
}

// UnmarshalYAML implements yaml.Unmarshaler
func (p *FlexInt) UnmarshalYAML(node *yaml.Node) error {
	return p.UnmarshalJSON([]byte(node.Value))
}
