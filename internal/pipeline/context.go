package pipeline

import (
	"go.uber.org/zap"

	"github.com/taxonflow/taxonflow/internal/domain"
)

// RunContext is the node-facing view of a processing context: the
// dataset store, completion tracking, configuration defaults, and file
// location. Contexts nest; reads fall through to the parent, writes land
// in the context the node runs in.
type RunContext interface {
	// Logger returns the context logger. Nodes derive named loggers
	// from it in Begin.
	Logger() *zap.SugaredLogger

	// Save stores a port's dataset. Saving a port twice in the same
	// context is an error; shadowing a parent's port is not.
	Save(p *domain.Port, ds *domain.Dataset) error

	// Acquire returns the dataset for a port, consulting parents.
	// A port nobody saved is an error.
	Acquire(p *domain.Port) (*domain.Dataset, error)

	// Available reports whether a dataset exists for the port here or in
	// any parent.
	Available(p *domain.Port) bool

	// HasData reports whether the port is available and non-empty.
	HasData(p *domain.Port) bool

	// Completed reports whether the named node has finished in this
	// context or any parent.
	Completed(nodeID string) bool

	// GetDefault returns the configuration default for a key, consulting
	// parents. The second result is false when no context defines it.
	GetDefault(key string) (string, bool)

	// ReportEvery returns the progress reporting interval in rows.
	ReportEvery() int

	// InputFile resolves a file name against the context's input search
	// path: the input directory, then the configuration directories,
	// then the work directory.
	InputFile(name string) (string, error)

	// OutputFile resolves a file name to the work directory (work true)
	// or the output directory, creating directories as needed.
	OutputFile(name string, work bool) (string, error)

	// Observer returns the statistics observer for counter mirroring.
	Observer() StatsObserver
}
