package transforms

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Through is the workhorse transform: one input port, one output port,
// an optional reject port, and a compose function applied to every
// record. Most operators in this package are a Through with a particular
// compose wired in.
type Through struct {
	pipeline.Base
	input   *domain.Port
	output  *domain.Port
	reject  *domain.Port
	errPort *domain.Port
	compose ComposeFunc
}

var _ pipeline.Node = (*Through)(nil)

// NewThrough creates a transform applying compose to every input record.
// The output carries the input schema; use WithRejects to capture the
// rows compose turns away.
func NewThrough(id string, input *domain.Port, compose ComposeFunc, opts ...Option) *Through {
	return newThrough(id, input, input.Schema(), compose, newConfig(opts...))
}

func newThrough(id string, input *domain.Port, out *domain.Schema, compose ComposeFunc, cfg *config) *Through {
	t := &Through{
		Base:    pipeline.NewBase(id, cfg.node...),
		input:   input,
		output:  domain.NewPort(out),
		errPort: input.ErrorPort(),
		compose: compose,
	}
	if cfg.rejects {
		t.reject = domain.NewPort(input.Schema())
	}
	t.AddInput("input", input)
	t.AddOutput("output", t.output)
	if t.reject != nil {
		t.AddOutput("reject", t.reject)
	}
	t.AddErrorOutput("error", t.errPort)
	return t
}

// Output returns the port carrying composed records.
func (t *Through) Output() *domain.Port { return t.output }

// Rejects returns the reject port, or nil when rejects are not recorded.
func (t *Through) Rejects() *domain.Port { return t.reject }

// Errors returns the error port.
func (t *Through) Errors() *domain.Port { return t.errPort }

// Execute composes every input record and saves the results.
func (t *Through) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(t.input)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	var rejected *domain.Dataset
	if t.reject != nil {
		rejected = domain.NewDataset()
	}
	for _, r := range data.Records() {
		out, err := t.compose(r, rc)
		switch {
		case err != nil:
			if t.FailOnError() {
				return fmt.Errorf("%s: compose at line %d: %w", t.ID(), r.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			t.Count(rc, pipeline.CountErrors, 1)
		case out != nil:
			result.Add(out)
			t.Count(rc, pipeline.CountAccepted, 1)
		default:
			if rejected != nil {
				rejected.Add(r)
				t.Count(rc, pipeline.CountRejected, 1)
			}
		}
		t.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(t.output, result); err != nil {
		return err
	}
	if err := rc.Save(t.errPort, errDS); err != nil {
		return err
	}
	if rejected != nil {
		if err := rc.Save(t.reject, rejected); err != nil {
			return err
		}
	}
	return nil
}

// Null passes its input through untouched: the output port re-publishes
// the input dataset. Useful as a graph seam where a step may later be
// inserted, or to rename a port a sink should drain.
type Null struct {
	pipeline.Base
	input  *domain.Port
	output *domain.Port
}

var _ pipeline.Node = (*Null)(nil)

// NewNull creates a pass-through node for the given input.
func NewNull(id string, input *domain.Port, opts ...Option) *Null {
	cfg := newConfig(opts...)
	n := &Null{
		Base:   pipeline.NewBase(id, cfg.node...),
		input:  input,
		output: domain.NewPort(input.Schema()),
	}
	n.AddInput("input", input)
	n.AddOutput("output", n.output)
	return n
}

// Output returns the pass-through port.
func (n *Null) Output() *domain.Port { return n.output }

// Execute re-saves the input dataset on the output port.
func (n *Null) Execute(_ context.Context, rc pipeline.RunContext) error {
	ds, err := rc.Acquire(n.input)
	if err != nil {
		return err
	}
	return rc.Save(n.output, ds)
}
