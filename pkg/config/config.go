// Package config provides the runtime configuration for the ingestor.
//
// The configuration is organized into logical sections:
//   - Ingestion: batch sizes, connect timeout, metadata location
//   - Output: default columnar format and compression
//   - Filesystem: which storage backend receives output files
//   - Kafka: broker and consumer-group settings for stream groups
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg, err := config.Load("ingestor.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Ingestion.BatchSize = 5000
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"strings"
	"time"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

// Config is the root configuration structure
type Config struct {
	// Ingestion settings for relational and flat-file producers
	Ingestion IngestionConfig `yaml:"ingestion" json:"ingestion" mapstructure:"ingestion"`

	// Output controls the columnar encoding of written files
	Output OutputConfig `yaml:"output" json:"output" mapstructure:"output"`

	// Filesystem selects the gateway backend
	Filesystem FilesystemConfig `yaml:"filesystem" json:"filesystem" mapstructure:"filesystem"`

	// Kafka settings for stream groups and the publisher
	Kafka KafkaConfig `yaml:"kafka" json:"kafka" mapstructure:"kafka"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// IngestionConfig contains extraction settings.
type IngestionConfig struct {
	// BatchSize is the server-side page size
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout" mapstructure:"connect_timeout"`
	// MetadataDir holds {group}.json documents
	MetadataDir string `yaml:"metadata_dir" json:"metadata_dir" mapstructure:"metadata_dir"`
	// CSVDelimiter for flat-file groups
	CSVDelimiter string `yaml:"csv_delimiter" json:"csv_delimiter" mapstructure:"csv_delimiter"`
}

// OutputConfig contains writer defaults. Datasets may override both.
type OutputConfig struct {
	Format      string `yaml:"format" json:"format" mapstructure:"format"`
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
}

// FilesystemConfig selects and configures the storage backend.
type FilesystemConfig struct {
	// Kind is local, hdfs, s3 or gcs
	Kind string `yaml:"kind" json:"kind" mapstructure:"kind"`
	// Root prefixes relative destination paths on the local backend
	Root string `yaml:"root" json:"root" mapstructure:"root"`
	// Namenodes are HDFS namenode host:port addresses
	Namenodes []string `yaml:"namenodes" json:"namenodes" mapstructure:"namenodes"`
	// User is the HDFS user
	User string `yaml:"user" json:"user" mapstructure:"user"`
	// Bucket for s3 and gcs
	Bucket string `yaml:"bucket" json:"bucket" mapstructure:"bucket"`
	// Region for s3
	Region string `yaml:"region" json:"region" mapstructure:"region"`
	// Endpoint overrides the s3 endpoint (MinIO and friends)
	Endpoint string `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	// CredentialsFile is a GCS service account key
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file" mapstructure:"credentials_file"`
}

// KafkaConfig contains broker and consumer settings.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers" json:"brokers" mapstructure:"brokers"`
	GroupID       string        `yaml:"group_id" json:"group_id" mapstructure:"group_id"`
	Topic         string        `yaml:"topic" json:"topic" mapstructure:"topic"`
	OffsetReset   string        `yaml:"offset_reset" json:"offset_reset" mapstructure:"offset_reset"`
	BatchSize     int           `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval" mapstructure:"flush_interval"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogEncoding    string `yaml:"log_encoding" json:"log_encoding" mapstructure:"log_encoding"`
	MetricsAddr    string `yaml:"metrics_addr" json:"metrics_addr" mapstructure:"metrics_addr"`
	TracingEnabled bool   `yaml:"tracing_enabled" json:"tracing_enabled" mapstructure:"tracing_enabled"`
}

// Default returns a configuration with production defaults
func Default() *Config {
	return &Config{
		Ingestion: IngestionConfig{
			BatchSize:      10000,
			ConnectTimeout: 10 * time.Second,
			MetadataDir:    "config",
			CSVDelimiter:   ",",
		},
		Output: OutputConfig{
			Format: "parquet",
		},
		Filesystem: FilesystemConfig{
			Kind: "local",
		},
		Kafka: KafkaConfig{
			Brokers:     []string{"localhost:9092"},
			GroupID:     "atlas-insights-consumer",
			OffsetReset: "earliest",
			BatchSize:   1000,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogEncoding: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Ingestion.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "ingestion.batch_size must be positive")
	}
	if c.Ingestion.ConnectTimeout <= 0 {
		return errors.New(errors.ErrorTypeConfig, "ingestion.connect_timeout must be positive")
	}
	if len(c.Ingestion.CSVDelimiter) != 1 {
		return errors.New(errors.ErrorTypeConfig, "ingestion.csv_delimiter must be a single character")
	}

	switch strings.ToLower(c.Output.Format) {
	case "parquet", "orc", "avro":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported output format %q", c.Output.Format)
	}

	switch strings.ToLower(c.Filesystem.Kind) {
	case "local":
	case "hdfs":
		if len(c.Filesystem.Namenodes) == 0 {
			return errors.New(errors.ErrorTypeConfig, "filesystem.namenodes is required for hdfs")
		}
	case "s3", "gcs":
		if c.Filesystem.Bucket == "" {
			return errors.Newf(errors.ErrorTypeConfig, "filesystem.bucket is required for %s", c.Filesystem.Kind)
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported filesystem kind %q", c.Filesystem.Kind)
	}

	if c.Kafka.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "kafka.batch_size must be positive")
	}
	switch c.Kafka.OffsetReset {
	case "earliest", "latest":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "kafka.offset_reset must be earliest or latest, got %q", c.Kafka.OffsetReset)
	}
	return nil
}
