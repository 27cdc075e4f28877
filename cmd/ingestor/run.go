package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/internal/pipeline"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/observability"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest every dataset of a metadata group",
		Example: `  ingestor run --group shop
  ingestor run --group clicks --config ingestor.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&a.group, "group", "g", "", "Metadata group to ingest")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func (a *app) run(ctx context.Context) error {
	g, err := a.loadGroup()
	if err != nil {
		return err
	}

	out, err := filesystem.New(ctx, a.cfg.Filesystem, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			a.logger.Warn("failed to close filesystem", zap.Error(cerr))
		}
	}()

	tp, err := observability.NewProvider(ctx, observability.TracingConfig{
		Enabled:        a.cfg.Observability.TracingEnabled,
		ServiceName:    "ingestor",
		ServiceVersion: version,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	a.logger.Info("starting group",
		zap.String("group", g.ID),
		zap.String("kind", string(g.Kind())),
		zap.Int("datasets", len(g.Datasets)))

	return pipeline.RunGroup(ctx, g, pipeline.Deps{
		Config:  a.cfg,
		Output:  out,
		Logger:  a.logger,
		Metrics: a.serveMetrics(ctx),
		Tracer:  tp.Tracer(),
	})
}
