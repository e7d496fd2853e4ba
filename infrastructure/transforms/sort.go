package transforms

import (
	"context"
	"sort"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// KeyFunc extracts a sort key from a record. Keys are compared with
// domain.CompareKeys, so composite []any keys order component by
// component.
type KeyFunc func(r *domain.Record) any

// Sort orders a dataset by a key. The sort is stable: rows with equal
// keys keep their input order.
type Sort struct {
	pipeline.Base
	input      *domain.Port
	output     *domain.Port
	errPort    *domain.Port
	key        KeyFunc
	descending bool
}

var _ pipeline.Node = (*Sort)(nil)

// NewSort creates a sort on the named fields in their natural order.
func NewSort(id string, input *domain.Port, fields []string, opts ...Option) (*Sort, error) {
	keys, err := domain.NewKeys(input.Schema(), fields...)
	if err != nil {
		return nil, err
	}
	return NewSortFunc(id, input, keys.Get, opts...), nil
}

// NewSortFunc creates a sort with an explicit key extractor.
func NewSortFunc(id string, input *domain.Port, key KeyFunc, opts ...Option) *Sort {
	cfg := newConfig(opts...)
	s := &Sort{
		Base:       pipeline.NewBase(id, cfg.node...),
		input:      input,
		output:     domain.NewPort(input.Schema()),
		errPort:    input.ErrorPort(),
		key:        key,
		descending: cfg.descending,
	}
	s.AddInput("input", input)
	s.AddOutput("output", s.output)
	s.AddErrorOutput("error", s.errPort)
	return s
}

// Output returns the sorted output port.
func (s *Sort) Output() *domain.Port { return s.output }

// Execute sorts the input into a fresh dataset.
func (s *Sort) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(s.input)
	if err != nil {
		return err
	}
	rows := make([]*domain.Record, data.Len())
	copy(rows, data.Records())
	sort.SliceStable(rows, func(i, j int) bool {
		c := domain.CompareKeys(s.key(rows[i]), s.key(rows[j]))
		if s.descending {
			return c > 0
		}
		return c < 0
	})
	s.Count(rc, pipeline.CountProcessed, len(rows))
	return rc.Save(s.output, domain.NewDataset(rows...))
}
