package pipeline

import "errors"

// Engine-wide sentinel errors shared by the scheduler, contexts, and
// nodes.
var (
	// ErrPortUnavailable indicates that a node tried to acquire a port
	// nobody saved a dataset for.
	ErrPortUnavailable = errors.New("port not available")

	// ErrPortAlreadySaved indicates that two nodes saved the same port
	// in the same context.
	ErrPortAlreadySaved = errors.New("port already saved")

	// ErrDanglingInputs indicates that a graph consumes ports no node in
	// the graph produces and the context does not already hold.
	ErrDanglingInputs = errors.New("dangling inputs")

	// ErrIncompleteRun indicates that the scheduler reached a fixpoint
	// with nodes still waiting: a dependency cycle or a failed upstream.
	ErrIncompleteRun = errors.New("unable to complete nodes")

	// ErrNoInputFile indicates that a file was not found anywhere on the
	// context's input search path.
	ErrNoInputFile = errors.New("input file not found")

	// ErrNoDirectory indicates that a context operation needed a
	// directory the context was not configured with.
	ErrNoDirectory = errors.New("directory not configured")

	// ErrUnknownJob indicates that a selector control row named a job
	// missing from the registry.
	ErrUnknownJob = errors.New("unknown job")
)
