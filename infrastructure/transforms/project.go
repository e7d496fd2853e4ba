package transforms

import (
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// NewProject creates a transform mapping every record onto the given
// output schema: shared fields are copied, fields only the output
// declares start nil, and everything else is dropped.
func NewProject(id string, input *domain.Port, output *domain.Schema, opts ...Option) *Through {
	compose := func(r *domain.Record, _ pipeline.RunContext) (*domain.Record, error) {
		return r.Mapped(output), nil
	}
	return newThrough(id, input, output, compose, newConfig(opts...))
}

// NewProjectFields creates a projection keeping only the named fields.
// The output preserves the input schema's declaration order, not the
// order the names are given in.
func NewProjectFields(id string, input *domain.Port, names []string, opts ...Option) (*Through, error) {
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		keep[name] = true
	}
	ordered := make([]string, 0, len(names))
	for _, name := range input.Schema().Names() {
		if keep[name] {
			ordered = append(ordered, name)
		}
	}
	output, err := input.Schema().Projected(ordered...)
	if err != nil {
		return nil, err
	}
	return NewProject(id, input, output, opts...), nil
}
