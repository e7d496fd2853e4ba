package orchestrate

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Run drives a node through its lifecycle in the given context:
// Begin, Execute, Commit, then completion; Rollback on an Execute or
// Commit failure. When the context's dump flag is set, every output
// port with data is also drained into the work directory through the
// sink factory.
func Run(ctx context.Context, pc *Context, n pipeline.Node) error {
	if err := n.Begin(pc); err != nil {
		return fmt.Errorf("begin %s: %w", n.ID(), err)
	}
	if err := n.Execute(ctx, pc); err != nil {
		n.Rollback(pc)
		return fmt.Errorf("execute %s: %w", n.ID(), err)
	}
	if err := n.Commit(pc); err != nil {
		n.Rollback(pc)
		return fmt.Errorf("commit %s: %w", n.ID(), err)
	}
	if pc.Dump() {
		dumpOutputs(ctx, pc, n)
	}
	pc.MarkCompleted(n.ID())
	return nil
}

// dumpOutputs writes each of the node's data ports to the work directory
// via the sink factory. Dump failures are logged, never fatal; dumping
// exists for inspection, not correctness.
func dumpOutputs(ctx context.Context, pc *Context, n pipeline.Node) {
	factory := pc.SinkFactory()
	if factory == nil {
		return
	}
	for name, p := range n.Outputs() {
		if !pc.HasData(p) {
			continue
		}
		sink, err := factory(n.ID()+"_"+name, p, pc)
		if err != nil {
			pc.Logger().Warnw("dump sink failed", "node", n.ID(), "port", name, "error", err)
			continue
		}
		if err := Run(ctx, pc, sink); err != nil {
			pc.Logger().Warnw("dump failed", "node", n.ID(), "port", name, "error", err)
		}
	}
}
