package io

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// source carries the ports and row decoding shared by the tabular
// sources. Headers match a field's data key or name, case-insensitively;
// columns matching neither are ignored with a warning.
type source struct {
	pipeline.Base
	output    *domain.Port
	errPort   *domain.Port
	predicate PredicateFunc
	delimiter rune
	lazy      bool
}

func newSource(id string, schema *domain.Schema, cfg *config) source {
	output := domain.NewPort(schema)
	s := source{
		Base:      pipeline.NewBase(id, cfg.node...),
		output:    output,
		errPort:   output.ErrorPort(),
		predicate: cfg.predicate,
		delimiter: cfg.delimiter,
		lazy:      cfg.lazy,
	}
	s.AddOutput("output", s.output)
	s.AddErrorOutput("error", s.errPort)
	return s
}

// Output returns the port carrying the loaded records.
func (s *source) Output() *domain.Port { return s.output }

// Errors returns the error port.
func (s *source) Errors() *domain.Port { return s.errPort }

// decode reads delimiter-separated rows from in and saves them on the
// source's ports. The first row is the header; each following row is
// deserialized cell by cell, and a row with any failed cell becomes an
// error record carrying the failure messages. Lines count data rows from
// one, matching the numbering error reports use downstream.
func (s *source) decode(rc pipeline.RunContext, in io.Reader) error {
	result := domain.NewDataset()
	errDS := domain.NewDataset()

	schema := s.output.Schema()
	reader := csv.NewReader(in)
	reader.Comma = s.delimiter
	reader.LazyQuotes = s.lazy
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return s.save(rc, result, errDS)
	}
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", s.ID(), err)
	}

	// Data keys bind first so an external name always wins; internal
	// field names fill in for files written without them.
	byHeader := make(map[string]domain.Field, schema.Len()*2)
	for _, f := range schema.Fields() {
		byHeader[strings.ToLower(f.DataKey())] = f
	}
	for _, f := range schema.Fields() {
		if _, ok := byHeader[strings.ToLower(f.Name())]; !ok {
			byHeader[strings.ToLower(f.Name())] = f
		}
	}
	columns := make([]domain.Field, len(header))
	known := make([]bool, len(header))
	var unknown []string
	for i, h := range header {
		f, ok := byHeader[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			unknown = append(unknown, h)
			continue
		}
		columns[i] = f
		known[i] = true
	}
	if len(unknown) > 0 {
		s.Logger().Warnw("ignoring columns not in schema", "columns", unknown)
	}

	line := 1
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var msgs []string
		if err != nil {
			if !errors.Is(err, csv.ErrFieldCount) {
				return fmt.Errorf("%s: reading row %d: %w", s.ID(), line, err)
			}
			msgs = append(msgs, fmt.Sprintf("expected %d cells, got %d", len(header), len(cells)))
		}

		fields := make(map[string]any, schema.Len())
		for i, cell := range cells {
			if i >= len(columns) || !known[i] {
				continue
			}
			v, err := columns[i].Deserialize(cell)
			if err != nil {
				msgs = append(msgs, err.Error())
				continue
			}
			if v != nil {
				fields[columns[i].Name()] = v
			}
		}
		r := domain.NewRecord(line, fields)

		if len(msgs) > 0 {
			errDS.Add(domain.NewErrorRecord(r, msgs...))
			s.Count(rc, pipeline.CountErrors, 1)
			s.Count(rc, pipeline.CountProcessed, 1)
			line++
			continue
		}

		keep, perr := true, error(nil)
		if s.predicate != nil {
			keep, perr = s.predicate(r, rc)
		}
		switch {
		case perr != nil:
			if s.FailOnError() {
				return fmt.Errorf("%s: predicate at row %d: %w", s.ID(), line, perr)
			}
			errDS.Add(domain.NewErrorRecord(r, perr.Error()))
			s.Count(rc, pipeline.CountErrors, 1)
		case keep:
			result.Add(r)
			s.Count(rc, pipeline.CountAccepted, 1)
		default:
			s.Count(rc, pipeline.CountRejected, 1)
		}
		s.Count(rc, pipeline.CountProcessed, 1)
		line++
	}
	return s.save(rc, result, errDS)
}

func (s *source) save(rc pipeline.RunContext, result, errDS *domain.Dataset) error {
	if err := rc.Save(s.output, result); err != nil {
		return err
	}
	return rc.Save(s.errPort, errDS)
}

// CSVSource reads a delimiter-separated file into a dataset. The file
// name is resolved against the context search path when the node begins,
// so a missing file fails the run before anything executes.
type CSVSource struct {
	source
	file string
	path string
}

var _ pipeline.Node = (*CSVSource)(nil)

// NewCSVSource creates a source reading the named file as records of the
// given schema.
func NewCSVSource(id, file string, schema *domain.Schema, opts ...Option) *CSVSource {
	return &CSVSource{source: newSource(id, schema, newConfig(opts...)), file: file}
}

// Begin resolves the file against the context search path.
func (s *CSVSource) Begin(rc pipeline.RunContext) error {
	if err := s.source.Begin(rc); err != nil {
		return err
	}
	path, err := rc.InputFile(s.file)
	if err != nil {
		return fmt.Errorf("%s: %w", s.ID(), err)
	}
	s.path = path
	return nil
}

// FileName returns the file the source reads, as given at construction.
func (s *CSVSource) FileName() string { return s.file }

// Execute reads the file and saves its rows.
func (s *CSVSource) Execute(_ context.Context, rc pipeline.RunContext) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%s: %w", s.ID(), err)
	}
	defer f.Close()
	return s.decode(rc, f)
}
