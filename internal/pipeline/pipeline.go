// Package pipeline runs metadata groups end to end. Every runner is a
// single-threaded pull loop: a producer yields batches, the columnar
// writer drains them into one file per dataset, and datasets run in
// declaration order.
//
// # Runners
//
//   - Orchestrator: relational groups. One connection serves every dataset.
//   - FileRunner: delimited flat files, one per dataset.
//   - StreamRunner: a Kafka topic, flushed to a new file per buffer.
//
// RunGroup picks the runner from the group's source kind.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/formats/columnar"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/metrics"
	"github.com/ajitpratap0/ingestor/pkg/models"
	"github.com/ajitpratap0/ingestor/pkg/observability"
	"github.com/ajitpratap0/ingestor/pkg/schema"
)

// Deps are the collaborators shared by every runner. Only Output is
// required.
type Deps struct {
	Config *config.Config
	// Output receives the columnar files.
	Output filesystem.Gateway
	// Input serves flat files. Nil means the local disk.
	Input   filesystem.Gateway
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Tracer  trace.Tracer
	// DialKafka joins a consumer group. Nil means stream.Dial.
	DialKafka func(config.KafkaConfig) (sarama.ConsumerGroup, error)
	// Now stamps streamed file names. Nil means time.Now.
	Now func() time.Time
}

// runner carries the resolved dependencies.
type runner struct {
	cfg     *config.Config
	out     filesystem.Gateway
	in      filesystem.Gateway
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

func newRunner(d Deps, name string) runner {
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	in := d.Input
	if in == nil {
		in = filesystem.NewLocal("")
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = (*observability.Provider)(nil).Tracer()
	}
	return runner{
		cfg:     cfg,
		out:     d.Output,
		in:      in,
		logger:  logger.OrNop(d.Logger).Named(name),
		metrics: d.Metrics,
		tracer:  tracer,
	}
}

// target is a dataset with its output resolved.
type target struct {
	group   string
	dataset metadata.Dataset
	name    string
	schema  *schema.Schema
	dest    columnar.Destination
}

// plan resolves the schema and destination of every dataset in g. It
// fails before any I/O when a dataset cannot be written.
func (r *runner) plan(g *metadata.Group) ([]target, error) {
	if r.out == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "output filesystem is required")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	kind := g.Kind()
	targets := make([]target, 0, len(g.Datasets))
	for _, ds := range g.Datasets {
		name := ds.Name(g.ID)

		format, err := columnar.ParseFormat(firstNonEmpty(ds.Destination.Format, r.cfg.Output.Format))
		if err != nil {
			return nil, errors.Annotate(err, "dataset "+name)
		}
		compression := ds.Destination.Compression
		if compression == "" && strings.EqualFold(string(format), r.cfg.Output.Format) {
			compression = r.cfg.Output.Compression
		}
		if compression, err = columnar.ResolveCompression(format, compression); err != nil {
			return nil, errors.Annotate(err, "dataset "+name)
		}

		sch := schema.Resolve(ds.Source.Features)
		if err := columnar.CheckSchema(format, sch); err != nil {
			return nil, errors.Annotate(err, "dataset "+name)
		}

		targets = append(targets, target{
			group:   g.ID,
			dataset: ds,
			name:    name,
			schema:  sch,
			dest: columnar.Destination{
				FS:          r.out,
				Dir:         ds.OutputDir(kind),
				Name:        name,
				Format:      format,
				Compression: compression,
			},
		})
	}
	return targets, nil
}

// write drains src into t's file and records the outcome.
func (r *runner) write(ctx context.Context, t target, src models.BatchSource, kind metadata.Kind) (*columnar.Result, error) {
	log := r.logger.With(zap.String("dataset", t.name))
	for _, f := range t.schema.Unmapped() {
		log.Warn("unknown dtype, storing as string", zap.String("feature", f.Name), zap.String("dtype", f.Logical))
	}

	ctx, span := observability.StartDataset(ctx, r.tracer, t.group, t.name, string(kind))
	res, err := columnar.Write(ctx, src, t.schema, t.dest,
		columnar.WithLogger(r.logger), columnar.WithDataset(t.name))

	var rows int64
	if res != nil {
		rows = res.Rows
		r.metrics.ObserveWrite(metrics.Write{
			Group:    t.group,
			Dataset:  t.name,
			Format:   string(t.dest.Format),
			Rows:     res.Rows,
			Batches:  res.Batches,
			Bytes:    res.Bytes,
			Duration: res.Duration,
		})
	}
	observability.End(span, err, attribute.Int64("ingest.rows", rows))
	if err != nil {
		r.metrics.ObserveFailure(t.group, t.name, err)
		return res, err
	}
	return res, nil
}

// RunGroup runs g with the runner for its source kind.
func RunGroup(ctx context.Context, g *metadata.Group, d Deps) error {
	switch kind := g.Kind(); kind {
	case metadata.KindRDBMS:
		return NewOrchestrator(d).Run(ctx, g)
	case metadata.KindFile:
		return NewFileRunner(d).Run(ctx, g)
	case metadata.KindStream:
		return NewStreamRunner(d).Run(ctx, g)
	default:
		return errors.Newf(errors.ErrorTypeConfig, "group %s: unknown source kind %q", g.ID, kind)
	}
}

// datasetError tags err with the dataset that produced it.
func datasetError(err error, dataset string) error {
	return errors.Annotate(err, "dataset "+dataset).WithDetail("dataset", dataset)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
