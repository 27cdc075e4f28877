package main

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/metrics"
)

// app holds the persistent flags and the state built from them.
type app struct {
	configFile  string
	envFile     string
	metadataDir string
	logLevel    string
	group       string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ingestor",
		Short: "Metadata-driven columnar ingestion",
		Long: `ingestor copies the datasets described by a metadata group document
({metadata_dir}/{group}.json or .yaml) from a relational database, flat
files or a Kafka topic into Parquet, ORC or Avro files on local disk,
HDFS, S3 or GCS.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "Path to YAML configuration file")
	pf.StringVar(&a.envFile, "env-file", "", "Additional .env file to load before reading configuration")
	pf.StringVar(&a.metadataDir, "metadata-dir", "", "Directory holding group metadata documents (overrides ingestion.metadata_dir)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(a),
		newPlanCmd(a),
		newDDLCmd(a),
		newPublishCmd(a),
		newInspectCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to load env file").WithDetail("path", a.envFile)
		}
	}

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.metadataDir != "" {
		cfg.Ingestion.MetadataDir = a.metadataDir
	}
	if a.logLevel != "" {
		cfg.Observability.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logger.New(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging configuration")
	}
	a.logger = a.logger.With(zap.String("command", cmd.Name()))
	return nil
}

// loadGroup reads --group from the metadata directory.
func (a *app) loadGroup() (*metadata.Group, error) {
	if a.group == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "--group is required")
	}
	return metadata.Load(a.cfg.Ingestion.MetadataDir, a.group)
}

// serveMetrics exposes a fresh registry on cfg.Observability.MetricsAddr
// until ctx ends. It returns a nil collector when no address is set.
func (a *app) serveMetrics(ctx context.Context) *metrics.Collector {
	addr := a.cfg.Observability.MetricsAddr
	if addr == "" {
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:              "version",
		Short:            "Show version information",
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ingestor v%s\n", version)
			cmd.Printf("Go version: %s\n", runtime.Version())
			cmd.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
