package transforms

import (
	"context"
	"fmt"
	"strings"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// ExpandFunc splits a record into the string parts a denormaliser turns
// into rows. Nil or empty means nothing to split.
type ExpandFunc func(r *domain.Record) ([]string, error)

// Denormalise splits one row into many on a multi-valued field: each
// part becomes a copy of the row with the field replaced by the part and
// its position stamped under domain.IndexField. Rows with nothing to
// split are dropped, or passed through unchanged with WithIncludeEmpty.
type Denormalise struct {
	pipeline.Base
	input        *domain.Port
	output       *domain.Port
	errPort      *domain.Port
	field        string
	expand       ExpandFunc
	includeEmpty bool
}

var _ pipeline.Node = (*Denormalise)(nil)

// NewDenormalise creates a denormaliser splitting the named field on a
// delimiter.
func NewDenormalise(id string, input *domain.Port, field, delimiter string, opts ...Option) (*Denormalise, error) {
	expand := func(r *domain.Record) ([]string, error) {
		v := strings.TrimSpace(r.GetString(field))
		if v == "" {
			return nil, nil
		}
		return strings.Split(v, delimiter), nil
	}
	return NewDenormaliseFunc(id, input, field, expand, opts...)
}

// NewDenormaliseFunc creates a denormaliser with a custom expansion.
func NewDenormaliseFunc(id string, input *domain.Port, field string, expand ExpandFunc, opts ...Option) (*Denormalise, error) {
	if !input.Schema().Has(field) {
		return nil, fmt.Errorf("%w %q in input schema", domain.ErrUnknownField, field)
	}
	cfg := newConfig(opts...)
	d := &Denormalise{
		Base:         pipeline.NewBase(id, cfg.node...),
		input:        input,
		output:       domain.NewPort(input.Schema()),
		errPort:      input.ErrorPort(),
		field:        field,
		expand:       expand,
		includeEmpty: cfg.includeEmpty,
	}
	d.AddInput("input", input)
	d.AddOutput("output", d.output)
	d.AddErrorOutput("error", d.errPort)
	return d, nil
}

// Output returns the port carrying the split rows.
func (d *Denormalise) Output() *domain.Port { return d.output }

// Errors returns the error port.
func (d *Denormalise) Errors() *domain.Port { return d.errPort }

// Execute splits every input row. Parts are trimmed and empty parts are
// skipped; the index stamp counts only the parts actually emitted.
func (d *Denormalise) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(d.input)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	for _, r := range data.Records() {
		d.Count(rc, pipeline.CountProcessed, 1)
		values, err := d.expand(r)
		if err != nil {
			if d.FailOnError() {
				return fmt.Errorf("%s at line %d: %w", d.ID(), r.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			d.Count(rc, pipeline.CountErrors, 1)
			continue
		}
		if len(values) == 0 {
			if d.includeEmpty {
				result.Add(r)
			}
			continue
		}
		idx := 0
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			part := r.Copy()
			part.Set(d.field, v)
			part.Set(domain.IndexField, idx)
			result.Add(part)
			d.Count(rc, pipeline.CountAccepted, 1)
			idx++
		}
	}
	if err := rc.Save(d.output, result); err != nil {
		return err
	}
	return rc.Save(d.errPort, errDS)
}
