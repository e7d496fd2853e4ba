package io

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// sink carries the column machinery shared by the writing nodes: output
// order, external column names, and the reduced-field computation.
type sink struct {
	pipeline.Base
	input  *domain.Port
	reduce bool
}

func newSink(id string, input *domain.Port, cfg *config) sink {
	s := sink{
		Base:   pipeline.NewBase(id, cfg.node...),
		input:  input,
		reduce: cfg.reduce,
	}
	s.AddInput("input", input)
	return s
}

// fields returns the columns to write, in schema order. With reduction
// on, a column survives when it is export-flagged or some record holds a
// non-nil value for it; an empty dataset keeps every column.
func (s *sink) fields(ds *domain.Dataset) []domain.Field {
	all := s.input.Schema().Fields()
	if !s.reduce || ds.Len() == 0 {
		return all
	}
	seen := make(map[string]bool, len(all))
	for _, f := range all {
		if f.Export() {
			seen[f.Name()] = true
		}
	}
	for _, r := range ds.Records() {
		for k, v := range r.Data() {
			if v != nil {
				seen[k] = true
			}
		}
	}
	kept := make([]domain.Field, 0, len(all))
	for _, f := range all {
		if seen[f.Name()] {
			kept = append(kept, f)
		}
	}
	return kept
}

// row serializes a record into the given columns. With errors tolerated
// an unserializable value falls back to its raw print form; otherwise it
// fails the node.
func (s *sink) row(r *domain.Record, fields []domain.Field) ([]string, error) {
	cells := make([]string, len(fields))
	for i, f := range fields {
		v := r.Get(f.Name())
		text, err := f.Serialize(v)
		if err != nil {
			if s.NoErrors() {
				return nil, fmt.Errorf("line %d: %w", r.Line(), err)
			}
			s.Logger().Debugw("unserializable value", "field", f.Name(), "value", v, "line", r.Line())
			text = fmt.Sprint(v)
		}
		cells[i] = text
	}
	return cells, nil
}

// CSVSink writes a port to a delimiter-separated file, one column per
// schema field, headed by the fields' data keys.
type CSVSink struct {
	sink
	file      string
	work      bool
	delimiter rune
}

var _ pipeline.Node = (*CSVSink)(nil)

// NewCSVSink creates a sink writing the port to the named file in the
// output directory, or the work directory with WithWork.
func NewCSVSink(id string, input *domain.Port, file string, opts ...Option) *CSVSink {
	cfg := newConfig(opts...)
	return &CSVSink{
		sink:      newSink(id, input, cfg),
		file:      file,
		work:      cfg.work,
		delimiter: cfg.delimiter,
	}
}

// FileName returns the file the sink writes, relative to its directory.
func (s *CSVSink) FileName() string { return s.file }

// Execute writes the dataset to the sink's file.
func (s *CSVSink) Execute(_ context.Context, rc pipeline.RunContext) error {
	ds, err := rc.Acquire(s.input)
	if err != nil {
		return err
	}
	fields := s.fields(ds)

	path, err := rc.OutputFile(s.file, s.work)
	if err != nil {
		return fmt.Errorf("%s: %w", s.ID(), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", s.ID(), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = s.delimiter
	header := make([]string, len(fields))
	for i, fld := range fields {
		header[i] = fld.DataKey()
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("%s: %w", s.ID(), err)
	}
	for _, r := range ds.Records() {
		cells, err := s.row(r, fields)
		if err != nil {
			return fmt.Errorf("%s: %w", s.ID(), err)
		}
		if err := w.Write(cells); err != nil {
			return fmt.Errorf("%s: writing line %d: %w", s.ID(), r.Line(), err)
		}
		s.Count(rc, pipeline.CountAccepted, 1)
		s.Count(rc, pipeline.CountProcessed, 1)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%s: %w", s.ID(), err)
	}
	return nil
}

// CSVSinkFactory builds the pipeline.SinkFactory the engine uses to
// drain unconsumed ports and dump intermediates: each port gets a sink
// writing "<id>.csv" to the work directory. Generated sinks tolerate
// errors, a recovery sink must never halt the run it is cleaning up
// after.
func CSVSinkFactory(opts ...Option) pipeline.SinkFactory {
	return func(id string, p *domain.Port, _ pipeline.RunContext) (pipeline.Node, error) {
		all := append([]Option{WithWork(), WithNodeOptions(pipeline.WithErrorsTolerated())}, opts...)
		return NewCSVSink(id, p, id+".csv", all...), nil
	}
}
