package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/extract"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/source"
)

// Orchestrator runs relational groups
type Orchestrator struct {
	runner
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{runner: newRunner(d, "orchestrator")}
}

// Run connects once, ingests every dataset of g in order and closes the
// connection. The first failing dataset stops the run; earlier datasets
// keep their files.
func (o *Orchestrator) Run(ctx context.Context, g *metadata.Group) error {
	if kind := g.Kind(); kind != metadata.KindRDBMS {
		return errors.Newf(errors.ErrorTypeConfig, "group %s has source kind %s, not rdbms", g.ID, kind)
	}
	targets, err := o.plan(g)
	if err != nil {
		return err
	}

	log := o.logger.With(zap.String("group", g.ID))
	start := time.Now()

	conn, err := source.Connect(ctx, g.SourceConfig,
		source.WithTimeout(o.cfg.Ingestion.ConnectTimeout),
		source.WithLogger(o.logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn("failed to close connection", zap.Error(cerr))
		}
	}()

	var total int64
	for i, t := range targets {
		rows, err := o.runDataset(ctx, conn, t)
		if err != nil {
			log.Error("dataset failed",
				zap.String("dataset", t.name),
				zap.Int("index", i),
				zap.Int("remaining", len(targets)-i-1),
				zap.Error(err))
			return datasetError(err, t.name)
		}
		total += rows
	}

	log.Info("group complete",
		zap.Int("datasets", len(targets)),
		zap.Int64("rows", total),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (o *Orchestrator) runDataset(ctx context.Context, conn *source.Connection, t target) (int64, error) {
	log := o.logger.With(zap.String("dataset", t.name))
	log.Info("starting dataset",
		zap.String("table", t.dataset.Source.Path),
		zap.Int("features", len(t.schema.Fields)),
		zap.String("output", t.dest.Path()))

	it, err := extract.Fetch(ctx, conn, t.dataset.Source.Path, t.dataset.Columns(), conn.Dialect(),
		o.cfg.Ingestion.BatchSize, extract.WithLogger(log))
	if err != nil {
		o.metrics.ObserveFailure(t.group, t.name, err)
		return 0, err
	}
	defer it.Close()

	res, err := o.write(ctx, t, it, metadata.KindRDBMS)
	if err != nil {
		return 0, err
	}

	log.Info("dataset complete",
		zap.String("path", res.Path),
		zap.Int64("rows", res.Rows),
		zap.Int("batches", res.Batches),
		zap.Duration("duration", res.Duration))
	return res.Rows, nil
}
