package io

import (
	"context"
	"strconv"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// NullSink drains ports nothing else consumes: every record is counted
// and discarded. Wire it to placeholder outputs a run produces but does
// not care about.
type NullSink struct {
	pipeline.Base
}

var _ pipeline.Node = (*NullSink)(nil)

// NewNullSink creates a sink discarding the given ports.
func NewNullSink(id string, inputs ...*domain.Port) *NullSink {
	s := &NullSink{Base: pipeline.NewBase(id)}
	for i, p := range inputs {
		s.AddInput(strconv.Itoa(i), p)
	}
	return s
}

// Execute counts and discards every input dataset.
func (s *NullSink) Execute(_ context.Context, rc pipeline.RunContext) error {
	for name, p := range s.Inputs() {
		ds, err := rc.Acquire(p)
		if err != nil {
			return err
		}
		s.Logger().Debugw("discarding port", "input", name, "rows", ds.Len())
		s.Count(rc, pipeline.CountProcessed, ds.Len())
	}
	return nil
}
