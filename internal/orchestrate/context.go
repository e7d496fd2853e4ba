// Package orchestrate runs processing graphs: it provides the
// hierarchical run context nodes execute in, the dependency-driven
// scheduler, and the selector that fans a control table out into
// per-dataset sub-runs.
package orchestrate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// DefaultReportEvery is the progress reporting interval when a context
// doesn't configure one.
const DefaultReportEvery = 100000

// Context is the engine's run context: it stores datasets by port,
// tracks node completion, carries configuration defaults and the
// directory layout, and nests. Reads consult the parent chain; writes
// stay local until MergeUp.
//
// A Context is safe for concurrent use; scheduler rounds may run nodes
// in parallel.
type Context struct {
	id     string
	parent *Context

	logger   *zap.SugaredLogger
	observer pipeline.StatsObserver
	factory  pipeline.SinkFactory

	inputDir    string
	outputDir   string
	workDir     string
	configDirs  []string
	defaults    map[string]string
	dump        bool
	reportEvery int

	mu        sync.RWMutex
	datasets  map[domain.PortID]*domain.Dataset
	completed map[string]bool
}

// ContextOption configures a Context at construction.
type ContextOption func(*Context) error

// WithLogger sets the context logger nodes derive theirs from.
func WithLogger(l *zap.SugaredLogger) ContextOption {
	return func(c *Context) error { c.logger = l; return nil }
}

// WithObserver sets the statistics observer counters are mirrored to.
func WithObserver(o pipeline.StatsObserver) ContextOption {
	return func(c *Context) error { c.observer = o; return nil }
}

// WithSinkFactory sets the factory used to drain unconsumed ports and to
// dump intermediate outputs.
func WithSinkFactory(f pipeline.SinkFactory) ContextOption {
	return func(c *Context) error { c.factory = f; return nil }
}

// WithInputDir sets the directory input files are read from.
func WithInputDir(dir string) ContextOption {
	return func(c *Context) error { c.inputDir = dir; return nil }
}

// WithOutputDir sets the directory final outputs are written to.
func WithOutputDir(dir string) ContextOption {
	return func(c *Context) error { c.outputDir = dir; return nil }
}

// WithWorkDir sets the scratch directory for intermediate files.
func WithWorkDir(dir string) ContextOption {
	return func(c *Context) error { c.workDir = dir; return nil }
}

// WithClearWork empties the work directory when the context is built.
func WithClearWork() ContextOption {
	return func(c *Context) error {
		if c.workDir == "" {
			return fmt.Errorf("clear work: %w", pipeline.ErrNoDirectory)
		}
		if err := os.RemoveAll(c.workDir); err != nil {
			return fmt.Errorf("clear work dir %s: %w", c.workDir, err)
		}
		return os.MkdirAll(c.workDir, 0o755)
	}
}

// WithConfigDirs sets the configuration directories searched for input
// files after the input directory.
func WithConfigDirs(dirs ...string) ContextOption {
	return func(c *Context) error { c.configDirs = append(c.configDirs, dirs...); return nil }
}

// WithDefaults overlays configuration defaults onto the context.
func WithDefaults(defaults map[string]string) ContextOption {
	return func(c *Context) error {
		for k, v := range defaults {
			c.defaults[k] = v
		}
		return nil
	}
}

// WithDump makes every committed node dump its outputs through the sink
// factory into the work directory.
func WithDump() ContextOption {
	return func(c *Context) error { c.dump = true; return nil }
}

// WithReportEvery sets the progress reporting interval in rows.
func WithReportEvery(n int) ContextOption {
	return func(c *Context) error { c.reportEvery = n; return nil }
}

// NewContext builds a root context. Options apply in order, so
// WithClearWork belongs after WithWorkDir.
func NewContext(id string, opts ...ContextOption) (*Context, error) {
	c := &Context{
		id:          id,
		logger:      zap.NewNop().Sugar(),
		observer:    pipeline.NopObserver{},
		defaults:    make(map[string]string),
		reportEvery: DefaultReportEvery,
		datasets:    make(map[domain.PortID]*domain.Dataset),
		completed:   make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Subcontext derives a child context: it inherits the logger, observer,
// sink factory, directories, defaults lookup, and flags, with its own
// dataset and completion stores. Options overlay the inherited state.
func (c *Context) Subcontext(id string, opts ...ContextOption) (*Context, error) {
	sub := &Context{
		id:          id,
		parent:      c,
		logger:      c.logger.Named(id),
		observer:    c.observer,
		factory:     c.factory,
		inputDir:    c.inputDir,
		outputDir:   c.outputDir,
		workDir:     c.workDir,
		configDirs:  append([]string(nil), c.configDirs...),
		defaults:    make(map[string]string),
		dump:        c.dump,
		reportEvery: c.reportEvery,
		datasets:    make(map[domain.PortID]*domain.Dataset),
		completed:   make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt(sub); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// ID returns the context identifier.
func (c *Context) ID() string { return c.id }

// Parent returns the enclosing context, nil at the root.
func (c *Context) Parent() *Context { return c.parent }

// Logger implements pipeline.RunContext.
func (c *Context) Logger() *zap.SugaredLogger { return c.logger }

// Observer implements pipeline.RunContext.
func (c *Context) Observer() pipeline.StatsObserver { return c.observer }

// SinkFactory returns the sink factory, nil when none is configured.
func (c *Context) SinkFactory() pipeline.SinkFactory { return c.factory }

// Dump reports whether committed nodes dump their outputs.
func (c *Context) Dump() bool { return c.dump }

// ReportEvery implements pipeline.RunContext.
func (c *Context) ReportEvery() int { return c.reportEvery }

// Save stores a port's dataset in this context. A port saved twice in
// the same context is an error; a port saved in a parent is shadowed.
func (c *Context) Save(p *domain.Port, ds *domain.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.datasets[p.ID()]; ok {
		return fmt.Errorf("%w: %s in context %s", pipeline.ErrPortAlreadySaved, p, c.id)
	}
	c.datasets[p.ID()] = ds
	return nil
}

// Acquire returns the dataset for a port from this context or the
// nearest ancestor holding it.
func (c *Context) Acquire(p *domain.Port) (*domain.Dataset, error) {
	c.mu.RLock()
	ds, ok := c.datasets[p.ID()]
	c.mu.RUnlock()
	if ok {
		return ds, nil
	}
	if c.parent != nil {
		return c.parent.Acquire(p)
	}
	return nil, fmt.Errorf("%w: %s", pipeline.ErrPortUnavailable, p)
}

// Available implements pipeline.RunContext.
func (c *Context) Available(p *domain.Port) bool {
	c.mu.RLock()
	_, ok := c.datasets[p.ID()]
	c.mu.RUnlock()
	if ok {
		return true
	}
	return c.parent != nil && c.parent.Available(p)
}

// HasData implements pipeline.RunContext.
func (c *Context) HasData(p *domain.Port) bool {
	ds, err := c.Acquire(p)
	return err == nil && ds.Len() > 0
}

// HasErrors reports whether any of the node's error ports carries rows.
func (c *Context) HasErrors(n pipeline.Node) bool {
	for _, p := range n.ErrorOutputs() {
		if c.HasData(p) {
			return true
		}
	}
	return false
}

// Completed implements pipeline.RunContext.
func (c *Context) Completed(nodeID string) bool {
	c.mu.RLock()
	done := c.completed[nodeID]
	c.mu.RUnlock()
	if done {
		return true
	}
	return c.parent != nil && c.parent.Completed(nodeID)
}

// MarkCompleted records that a node finished in this context.
func (c *Context) MarkCompleted(nodeID string) {
	c.mu.Lock()
	c.completed[nodeID] = true
	c.mu.Unlock()
}

// GetDefault implements pipeline.RunContext.
func (c *Context) GetDefault(key string) (string, bool) {
	c.mu.RLock()
	v, ok := c.defaults[key]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if c.parent != nil {
		return c.parent.GetDefault(key)
	}
	return "", false
}

// MergeUp commits this context's datasets into the parent, overwriting
// what the parent already holds for the same ports. Completions stay
// behind: a job node run under one subcontext must stay runnable in its
// siblings. A root context merges nowhere.
func (c *Context) MergeUp() {
	if c.parent == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()
	for id, ds := range c.datasets {
		c.parent.datasets[id] = ds
	}
}

// InputFile implements pipeline.RunContext: the input directory, then the
// configuration directories, then the work directory, first hit wins.
func (c *Context) InputFile(name string) (string, error) {
	var searched []string
	candidates := make([]string, 0, len(c.configDirs)+2)
	if c.inputDir != "" {
		candidates = append(candidates, c.inputDir)
	}
	candidates = append(candidates, c.configDirs...)
	if c.workDir != "" {
		candidates = append(candidates, c.workDir)
	}
	for _, dir := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		searched = append(searched, dir)
	}
	return "", fmt.Errorf("%w: %q (searched %v)", pipeline.ErrNoInputFile, name, searched)
}

// OutputFile implements pipeline.RunContext: the work directory when work
// is set, the output directory otherwise, created on demand.
func (c *Context) OutputFile(name string, work bool) (string, error) {
	dir := c.outputDir
	if work {
		dir = c.workDir
	}
	if dir == "" {
		return "", fmt.Errorf("output file %q: %w", name, pipeline.ErrNoDirectory)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("output file %q: %w", name, err)
	}
	return path, nil
}

// InputDir returns the context's input directory.
func (c *Context) InputDir() string { return c.inputDir }

// OutputDir returns the context's output directory.
func (c *Context) OutputDir() string { return c.outputDir }

// WorkDir returns the context's work directory.
func (c *Context) WorkDir() string { return c.workDir }

// ConfigDirs returns the context's configuration directories.
func (c *Context) ConfigDirs() []string { return c.configDirs }

// Compile-time verification that Context implements the node contract.
var _ pipeline.RunContext = (*Context)(nil)
