package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Orchestrator schedules a set of nodes to a fixpoint: every round it
// runs the nodes whose predecessors completed and whose inputs are
// available, until nothing more can run. It is itself a Node, so graphs
// nest; a Selector runs an Orchestrator per control row.
//
// Error rows halt the run when the emitting node demands it; whatever
// data is left on unconsumed ports drains through the context's sink
// factory so no diagnostics are lost.
type Orchestrator struct {
	pipeline.Base
	nodes       []pipeline.Node
	parallelism int
	tracer      trace.Tracer
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithParallelism bounds how many ready nodes run concurrently within a
// round. The default is 1: strictly sequential rounds.
func WithParallelism(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithNodeOptions forwards node options to the orchestrator's own Base,
// for when an orchestrator nests inside another graph.
func WithNodeOptions(opts ...pipeline.Option) OrchestratorOption {
	return func(o *Orchestrator) {
		for _, opt := range opts {
			opt(&o.Base)
		}
	}
}

// NewOrchestrator creates a scheduler over the given nodes.
func NewOrchestrator(id string, nodes []pipeline.Node, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		Base:        pipeline.NewBase(id),
		nodes:       nodes,
		parallelism: 1,
		tracer:      otel.Tracer("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Nodes returns the nodes under this orchestrator.
func (o *Orchestrator) Nodes() []pipeline.Node { return o.nodes }

// Begin validates the graph structure before anything runs: every input
// port must be produced by a node in the set or already be available in
// the context. Consuming a port nobody will ever fill is a wiring bug
// and fails fast.
func (o *Orchestrator) Begin(rc pipeline.RunContext) error {
	if err := o.Base.Begin(rc); err != nil {
		return err
	}
	produced := make(map[domain.PortID]bool)
	for _, n := range o.nodes {
		for _, p := range n.Outputs() {
			produced[p.ID()] = true
		}
		for _, p := range n.ErrorOutputs() {
			produced[p.ID()] = true
		}
	}
	var dangling []string
	for _, n := range o.nodes {
		for name, p := range n.Inputs() {
			if !produced[p.ID()] && !rc.Available(p) {
				dangling = append(dangling, fmt.Sprintf("%s.%s (%s)", n.ID(), name, p))
			}
		}
	}
	if len(dangling) > 0 {
		sort.Strings(dangling)
		return fmt.Errorf("%w: %s", pipeline.ErrDanglingInputs, strings.Join(dangling, ", "))
	}
	return nil
}

// Execute runs the fixpoint. A node whose Execute fails is rolled back
// and excluded from further rounds unless it demands FailOnError, which
// aborts the run. After a round, a node that forbids errors but emitted
// error rows halts scheduling; the halt is a normal return so callers
// can inspect the drained error files.
func (o *Orchestrator) Execute(ctx context.Context, rc pipeline.RunContext) error {
	pc, ok := rc.(*Context)
	if !ok {
		return fmt.Errorf("orchestrator %s requires an orchestrate.Context", o.ID())
	}

	var mu sync.Mutex
	failed := make(map[string]error)

	for {
		ready := o.readyNodes(pc, failed)
		if len(ready) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.parallelism)
		for _, n := range ready {
			n := n
			g.Go(func() error {
				runCtx, span := o.tracer.Start(gctx, "Orchestrator.RunNode",
					trace.WithAttributes(
						attribute.String("node.id", n.ID()),
						attribute.String("orchestrator.id", o.ID()),
					),
				)
				defer span.End()

				if err := Run(runCtx, pc, n); err != nil {
					span.RecordError(err)
					if n.FailOnError() {
						return err
					}
					o.Logger().Errorw("node failed", "node", n.ID(), "error", err)
					mu.Lock()
					failed[n.ID()] = err
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, n := range ready {
			if _, bad := failed[n.ID()]; bad {
				continue
			}
			if n.NoErrors() && pc.HasErrors(n) {
				o.Logger().Warnw("halting run: node reported errors", "node", n.ID())
				o.drainDangling(ctx, pc)
				return nil
			}
		}
	}

	o.drainDangling(ctx, pc)
	if pc.Dump() {
		o.dumpGraph(pc)
	}

	if incomplete := o.incompleteNodes(pc); len(incomplete) > 0 {
		ids := make([]string, len(incomplete))
		errs := make([]error, 0, len(incomplete))
		for i, n := range incomplete {
			ids[i] = n.ID()
			if err := failed[n.ID()]; err != nil {
				errs = append(errs, err)
			}
		}
		msg := strings.Join(ids, ", ")
		if cycle := findCycle(incomplete); len(cycle) > 0 {
			msg += fmt.Sprintf(" (dependency cycle: %s)", strings.Join(cycle, " -> "))
		}
		return errors.Join(fmt.Errorf("%w: %s", pipeline.ErrIncompleteRun, msg), errors.Join(errs...))
	}
	return nil
}

// readyNodes returns the nodes that can run now: not completed, not
// failed, predecessors done, inputs available.
func (o *Orchestrator) readyNodes(pc *Context, failed map[string]error) []pipeline.Node {
	var ready []pipeline.Node
	for _, n := range o.nodes {
		if pc.Completed(n.ID()) {
			continue
		}
		if _, bad := failed[n.ID()]; bad {
			continue
		}
		if n.Ready(pc) {
			ready = append(ready, n)
		}
	}
	return ready
}

// incompleteNodes returns the nodes that never completed, failures
// included.
func (o *Orchestrator) incompleteNodes(pc *Context) []pipeline.Node {
	var incomplete []pipeline.Node
	for _, n := range o.nodes {
		if !pc.Completed(n.ID()) {
			incomplete = append(incomplete, n)
		}
	}
	return incomplete
}

// drainDangling recovers data stranded on ports no node in the set
// consumes: each such port with data gets a generated sink named
// nodeID_portName. Generated sinks tolerate errors; they exist to
// preserve diagnostics, not to gate the run.
func (o *Orchestrator) drainDangling(ctx context.Context, pc *Context) {
	factory := pc.SinkFactory()
	if factory == nil {
		return
	}
	consumed := make(map[domain.PortID]bool)
	for _, n := range o.nodes {
		for _, p := range n.Inputs() {
			consumed[p.ID()] = true
		}
	}
	for _, n := range o.nodes {
		o.drainPorts(ctx, pc, factory, consumed, n.ID(), n.Outputs())
		o.drainPorts(ctx, pc, factory, consumed, n.ID(), n.ErrorOutputs())
	}
}

func (o *Orchestrator) drainPorts(
	ctx context.Context,
	pc *Context,
	factory pipeline.SinkFactory,
	consumed map[domain.PortID]bool,
	nodeID string,
	ports map[string]*domain.Port,
) {
	for name, p := range ports {
		if consumed[p.ID()] || !pc.HasData(p) {
			continue
		}
		id := nodeID + "_" + name
		sink, err := factory(id, p, pc)
		if err != nil {
			o.Logger().Warnw("dangling sink failed", "port", p.String(), "error", err)
			continue
		}
		if err := Run(ctx, pc, sink); err != nil {
			o.Logger().Warnw("dangling drain failed", "port", p.String(), "error", err)
		}
	}
}

// dumpGraph writes the topology to a DOT file in the work directory for
// inspection with graphviz.
func (o *Orchestrator) dumpGraph(pc *Context) {
	path, err := pc.OutputFile(o.ID()+".dot", true)
	if err != nil {
		o.Logger().Warnw("graph dump skipped", "error", err)
		return
	}
	if err := writeDOTFile(path, o.ID(), o.nodes); err != nil {
		o.Logger().Warnw("graph dump failed", "error", err)
	}
}

// findCycle looks for a dependency cycle among the given nodes and
// returns one as a node id path, empty when the nodes are acyclic.
// Uses the white/grey/black depth-first coloring; grey-on-grey is a
// back edge.
func findCycle(nodes []pipeline.Node) []string {
	producers := make(map[domain.PortID]string)
	byID := make(map[string]pipeline.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID()] = n
		for _, p := range n.Outputs() {
			producers[p.ID()] = n.ID()
		}
		for _, p := range n.ErrorOutputs() {
			producers[p.ID()] = n.ID()
		}
	}
	adjacent := make(map[string][]string)
	for _, n := range nodes {
		for _, p := range n.Inputs() {
			if from, ok := producers[p.ID()]; ok && from != n.ID() {
				adjacent[from] = append(adjacent[from], n.ID())
			}
		}
		for _, pred := range n.Predecessors() {
			if _, ok := byID[pred.ID()]; ok {
				adjacent[pred.ID()] = append(adjacent[pred.ID()], n.ID())
			}
		}
	}

	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range adjacent[id] {
			switch color[next] {
			case grey:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, stack[start:]...), next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		stack = stack[:len(stack)-1]
		return false
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID())
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// Compile-time verification that Orchestrator is a Node.
var _ pipeline.Node = (*Orchestrator)(nil)
