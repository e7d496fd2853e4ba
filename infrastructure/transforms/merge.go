package transforms

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Merge concatenates several sources into one output in source order.
// The output carries the first source's schema; rows from sources with a
// different schema are mapped onto it.
type Merge struct {
	pipeline.Base
	sources []*domain.Port
	output  *domain.Port
	errPort *domain.Port
}

var _ pipeline.Node = (*Merge)(nil)

// NewMerge creates a merge over the given sources, which must not be
// empty.
func NewMerge(id string, sources []*domain.Port, opts ...Option) (*Merge, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("merge %s needs at least one source", id)
	}
	cfg := newConfig(opts...)
	m := &Merge{
		Base:    pipeline.NewBase(id, cfg.node...),
		sources: sources,
		output:  domain.NewPort(sources[0].Schema()),
		errPort: sources[0].ErrorPort(),
	}
	for i, src := range sources {
		m.AddInput(fmt.Sprint(i), src)
	}
	m.AddOutput("output", m.output)
	m.AddErrorOutput("error", m.errPort)
	return m, nil
}

// Output returns the concatenated output port.
func (m *Merge) Output() *domain.Port { return m.output }

// Execute drains every source into the output.
func (m *Merge) Execute(_ context.Context, rc pipeline.RunContext) error {
	result := domain.NewDataset()
	for _, src := range m.sources {
		ds, err := rc.Acquire(src)
		if err != nil {
			return err
		}
		for _, r := range ds.Records() {
			if src.Schema() != m.output.Schema() {
				r = r.Mapped(m.output.Schema())
			}
			result.Add(r)
			m.Count(rc, pipeline.CountAccepted, 1)
			m.Count(rc, pipeline.CountProcessed, 1)
		}
	}
	if err := rc.Save(m.output, result); err != nil {
		return err
	}
	return rc.Save(m.errPort, domain.NewDataset())
}
