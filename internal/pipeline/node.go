// Package pipeline defines the contracts between the engine and its
// computation nodes: the Node lifecycle, the run context a node sees,
// sink factories, and the statistics observer port.
// Concrete nodes live under infrastructure; the scheduler lives in
// orchestrate.
package pipeline

import (
	"context"

	"github.com/taxonflow/taxonflow/internal/domain"
)

// Standard counter names reported by nodes. Operators add their own on
// top of these; the processed counter drives progress logging.
const (
	CountProcessed = "processed"
	CountAccepted  = "accepted"
	CountRejected  = "rejected"
	CountErrors    = "error"
	CountDuplicate = "duplicate"
	CountUnmatched = "unmatched"
	CountMapped    = "mapped"
	CountCleaned   = "cleaned"
	CountParents   = "parents"
)

// Node is a unit of computation in a processing graph. A node declares
// the ports it consumes and produces, and the engine drives it through
// Begin, Execute, and Commit, or Rollback when Execute fails.
//
// Nodes acquire their input datasets from the run context and save their
// outputs back to it; they never talk to each other directly.
type Node interface {
	// ID returns the node's identifier, unique within its graph.
	ID() string

	// Inputs returns the ports the node consumes, by local name.
	Inputs() map[string]*domain.Port

	// Outputs returns the data ports the node produces, by local name.
	Outputs() map[string]*domain.Port

	// ErrorOutputs returns the error ports the node produces, by local
	// name. Rows on these ports represent per-record failures.
	ErrorOutputs() map[string]*domain.Port

	// Predecessors returns nodes that must complete before this node may
	// run, beyond what its input ports already imply.
	Predecessors() []Node

	// Ready reports whether the node can execute: every predecessor has
	// completed and every input port is available in the context.
	Ready(rc RunContext) bool

	// NoErrors reports whether rows on the node's error ports should
	// halt the enclosing run. Defaults to true for data-cleaning
	// pipelines where errors mean the output cannot be trusted.
	NoErrors() bool

	// FailOnError reports whether an Execute failure aborts the whole
	// run instead of just marking this node failed.
	FailOnError() bool

	// Begin prepares the node for a run: counters reset, logger bound.
	Begin(rc RunContext) error

	// Execute performs the node's work. Implementations acquire inputs,
	// process every record, and save outputs before returning.
	Execute(ctx context.Context, rc RunContext) error

	// Commit finalizes a successful execution.
	Commit(rc RunContext) error

	// Rollback discards the effects of a failed execution.
	Rollback(rc RunContext)
}

// SinkFactory mints a sink node that drains the given port. The engine
// uses it to recover data left on unconsumed ports and to dump
// intermediate outputs when requested.
type SinkFactory func(id string, p *domain.Port, rc RunContext) (Node, error)
