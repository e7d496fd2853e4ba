package orchestrate

import (
	"context"
	"sync"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// testNode is a configurable stage for scheduler tests: it copies its
// input (or seed rows) to its output, optionally emits error rows, and
// optionally fails.
type testNode struct {
	pipeline.Base
	in      *domain.Port
	out     *domain.Port
	errOut  *domain.Port
	seed    []*domain.Record
	errRows int
	failErr error
	onRun   func(id string)
}

func newTestSource(id string, schema *domain.Schema, rows []*domain.Record, opts ...pipeline.Option) *testNode {
	n := &testNode{Base: pipeline.NewBase(id, opts...), seed: rows}
	n.out = domain.NewPort(schema)
	n.errOut = n.out.ErrorPort()
	n.AddOutput("output", n.out)
	n.AddErrorOutput("error", n.errOut)
	return n
}

func newTestStage(id string, in *domain.Port, opts ...pipeline.Option) *testNode {
	n := &testNode{Base: pipeline.NewBase(id, opts...), in: in}
	n.out = domain.NewPort(in.Schema())
	n.errOut = n.out.ErrorPort()
	n.AddInput("input", in)
	n.AddOutput("output", n.out)
	n.AddErrorOutput("error", n.errOut)
	return n
}

func (n *testNode) Execute(_ context.Context, rc pipeline.RunContext) error {
	if n.onRun != nil {
		n.onRun(n.ID())
	}
	if n.failErr != nil {
		return n.failErr
	}
	rows := n.seed
	if n.in != nil {
		ds, err := rc.Acquire(n.in)
		if err != nil {
			return err
		}
		rows = ds.Records()
	}
	out := domain.NewDataset()
	for _, r := range rows {
		out.Add(r.Copy())
		n.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(n.out, out); err != nil {
		return err
	}
	errDS := domain.NewDataset()
	for i := 0; i < n.errRows; i++ {
		errDS.Add(domain.NewErrorRecord(domain.NewRecord(i+1, nil), "bad row"))
	}
	return rc.Save(n.errOut, errDS)
}

// drainRecorder is a sink factory that counts the rows drained per sink
// id, standing in for the CSV sink in scheduler tests.
type drainRecorder struct {
	mu      sync.Mutex
	drained map[string]int
}

func newDrainRecorder() *drainRecorder {
	return &drainRecorder{drained: make(map[string]int)}
}

func (d *drainRecorder) factory(id string, p *domain.Port, _ pipeline.RunContext) (pipeline.Node, error) {
	s := &drainSink{
		Base: pipeline.NewBase(id, pipeline.WithErrorsTolerated()),
		port: p,
		rec:  d,
	}
	s.AddInput("input", p)
	return s, nil
}

func (d *drainRecorder) rows(id string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.drained[id]
	return n, ok
}

type drainSink struct {
	pipeline.Base
	port *domain.Port
	rec  *drainRecorder
}

func (s *drainSink) Execute(_ context.Context, rc pipeline.RunContext) error {
	ds, err := rc.Acquire(s.port)
	if err != nil {
		return err
	}
	s.rec.mu.Lock()
	s.rec.drained[s.ID()] = ds.Len()
	s.rec.mu.Unlock()
	return nil
}

// runOrder collects node execution order across goroutines.
type runOrder struct {
	mu  sync.Mutex
	ids []string
}

func (r *runOrder) record(id string) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

func (r *runOrder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func testSchema() *domain.Schema {
	return domain.MustSchema(domain.StringField("taxonID"), domain.StringField("name"))
}

func testRows(n int) []*domain.Record {
	rows := make([]*domain.Record, n)
	for i := range rows {
		rows[i] = domain.NewRecord(i+1, map[string]any{"taxonID": string(rune('a' + i))})
	}
	return rows
}
