package io

import (
	"context"
	"fmt"
	"strings"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// LogSink prints a dataset through the node logger: a header line, then
// one line per record up to the configured limit. Useful for inspecting
// a graph seam without writing files.
type LogSink struct {
	sink
	limit int
}

var _ pipeline.Node = (*LogSink)(nil)

// NewLogSink creates a sink logging the port's records.
func NewLogSink(id string, input *domain.Port, opts ...Option) *LogSink {
	cfg := newConfig(opts...)
	return &LogSink{sink: newSink(id, input, cfg), limit: cfg.limit}
}

// LogSinkFactory builds a pipeline.SinkFactory draining unconsumed
// ports through the log instead of files, for runs without an output
// directory.
func LogSinkFactory(opts ...Option) pipeline.SinkFactory {
	return func(id string, p *domain.Port, _ pipeline.RunContext) (pipeline.Node, error) {
		all := append([]Option{WithNodeOptions(pipeline.WithErrorsTolerated())}, opts...)
		return NewLogSink(id, p, all...), nil
	}
}

// Execute logs the dataset.
func (s *LogSink) Execute(_ context.Context, rc pipeline.RunContext) error {
	ds, err := rc.Acquire(s.input)
	if err != nil {
		return err
	}
	fields := s.fields(ds)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.DataKey()
	}
	s.Logger().Info(strings.Join(names, ", "))
	for i, r := range ds.Records() {
		if s.limit > 0 && i >= s.limit {
			s.Logger().Infof("... %d more", ds.Len()-s.limit)
			break
		}
		cells, err := s.row(r, fields)
		if err != nil {
			return fmt.Errorf("%s: %w", s.ID(), err)
		}
		s.Logger().Info(strings.Join(cells, ", "))
		s.Count(rc, pipeline.CountProcessed, 1)
	}
	return nil
}
