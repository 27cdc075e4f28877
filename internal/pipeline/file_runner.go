package pipeline

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/csvsource"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
)

// FileRunner ingests delimited flat files, one per dataset
type FileRunner struct {
	runner
}

// NewFileRunner creates a file runner
func NewFileRunner(d Deps) *FileRunner {
	return &FileRunner{runner: newRunner(d, "file_runner")}
}

// Run reads each dataset's source.path and writes its declared features.
// Malformed lines are logged and skipped; header columns that are not
// features are ignored and missing ones are null.
func (f *FileRunner) Run(ctx context.Context, g *metadata.Group) error {
	if kind := g.Kind(); kind != metadata.KindFile {
		return errors.Newf(errors.ErrorTypeConfig, "group %s has source kind %s, not file", g.ID, kind)
	}
	targets, err := f.plan(g)
	if err != nil {
		return err
	}

	for _, t := range targets {
		if err := f.runDataset(ctx, t); err != nil {
			return datasetError(err, t.name)
		}
	}
	f.logger.Info("group complete", zap.String("group", g.ID), zap.Int("datasets", len(targets)))
	return nil
}

func (f *FileRunner) runDataset(ctx context.Context, t target) error {
	delim, err := f.delimiter(t.dataset)
	if err != nil {
		return err
	}

	log := f.logger.With(zap.String("dataset", t.name))
	log.Info("reading file", zap.String("path", t.dataset.Source.Path))

	r, err := csvsource.Open(ctx, f.in, t.dataset.Source.Path, t.dataset.Columns(),
		csvsource.WithBatchSize(f.cfg.Ingestion.BatchSize),
		csvsource.WithDelimiter(delim),
		csvsource.WithLogger(log))
	if err != nil {
		f.metrics.ObserveFailure(t.group, t.name, err)
		return err
	}
	defer r.Close()

	res, err := f.write(ctx, t, r, metadata.KindFile)
	f.metrics.ObserveSkipped(t.group, t.name, "malformed", r.Skipped())
	if err != nil {
		return err
	}

	log.Info("dataset complete",
		zap.String("path", res.Path),
		zap.Int64("rows", res.Rows),
		zap.Int("skipped", r.Skipped()))
	return nil
}

// delimiter is the dataset's "delimiter" option, else the configured one.
func (f *FileRunner) delimiter(ds metadata.Dataset) (rune, error) {
	s := firstNonEmpty(ds.Source.Options["delimiter"], f.cfg.Ingestion.CSVDelimiter, ",")
	if s == `\t` {
		s = "\t"
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, errors.Newf(errors.ErrorTypeConfig, "delimiter must be a single character, got %q", s)
	}
	return r, nil
}
