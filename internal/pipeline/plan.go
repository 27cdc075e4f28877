package pipeline

import (
	"github.com/ajitpratap0/ingestor/pkg/extract"
	"github.com/ajitpratap0/ingestor/pkg/formats/columnar"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/schema"
	"github.com/ajitpratap0/ingestor/pkg/source"
)

// Step is what a run would do for one dataset.
type Step struct {
	Dataset string
	Kind    metadata.Kind
	// Input is the SELECT statement, the input file or the topic.
	Input       string
	Output      string
	Format      columnar.Format
	Compression string
	Schema      *schema.Schema
}

// Plan resolves g the way a run would, without connecting or touching
// any filesystem. Stream groups yield a single step.
func Plan(d Deps, g *metadata.Group) ([]Step, error) {
	r := newRunner(d, "plan")
	targets, err := r.plan(g)
	if err != nil {
		return nil, err
	}

	kind := g.Kind()
	var dialect *source.Dialect
	if kind == metadata.KindRDBMS {
		if dialect, err = source.Lookup(g.SourceConfig.DBType); err != nil {
			return nil, err
		}
	}
	if kind == metadata.KindStream {
		targets = targets[:1]
	}

	steps := make([]Step, 0, len(targets))
	for _, t := range targets {
		st := Step{
			Dataset:     t.name,
			Kind:        kind,
			Output:      t.dest.Path(),
			Format:      t.dest.Format,
			Compression: t.dest.Compression,
			Schema:      t.schema,
		}
		switch kind {
		case metadata.KindRDBMS:
			q, err := extract.BuildQuery(t.dataset.Source.Path, t.dataset.Columns(), dialect)
			if err != nil {
				return nil, datasetError(err, t.name)
			}
			st.Input = q
		case metadata.KindFile:
			st.Input = t.dataset.Source.Path
		case metadata.KindStream:
			st.Input = firstNonEmpty(t.dataset.Source.Topic, r.cfg.Kafka.Topic, g.ID)
			st.Output = t.dest.Dir
		}
		steps = append(steps, st)
	}
	return steps, nil
}
