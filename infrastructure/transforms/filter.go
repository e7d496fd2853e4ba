package transforms

import (
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// NewFilter creates a row filter: records the predicate accepts pass
// through unchanged, the rest are rejected.
func NewFilter(id string, input *domain.Port, pred PredicateFunc, opts ...Option) *Through {
	compose := func(r *domain.Record, rc pipeline.RunContext) (*domain.Record, error) {
		keep, err := pred(r, rc)
		if err != nil {
			return nil, err
		}
		if !keep {
			return nil, nil
		}
		return r, nil
	}
	return NewThrough(id, input, compose, opts...)
}
