package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taxonflow/taxonflow/internal/domain"
)

// Base carries the node state every implementation needs: identity,
// port maps, predecessors, run flags, counters, and the run logger.
// Concrete nodes embed Base and implement Execute; Base supplies the
// rest of the Node contract.
type Base struct {
	id          string
	inputs      map[string]*domain.Port
	outputs     map[string]*domain.Port
	errorPorts  map[string]*domain.Port
	preds       []Node
	noErrors    bool
	failOnError bool

	logger  *zap.SugaredLogger
	started time.Time

	mu     sync.Mutex
	counts map[string]int64
}

// Option configures a Base at construction.
type Option func(*Base)

// WithErrorsTolerated lets the enclosing run continue even when this
// node emits error records. Without it a node with error rows halts the
// run.
func WithErrorsTolerated() Option {
	return func(b *Base) { b.noErrors = false }
}

// WithFailOnError makes an Execute failure abort the whole run instead
// of marking just this node failed.
func WithFailOnError() Option {
	return func(b *Base) { b.failOnError = true }
}

// WithPredecessors adds ordering dependencies beyond what the node's
// input ports imply.
func WithPredecessors(nodes ...Node) Option {
	return func(b *Base) { b.preds = append(b.preds, nodes...) }
}

// NewBase creates the shared node state for the given id.
func NewBase(id string, opts ...Option) Base {
	b := Base{
		id:         id,
		inputs:     make(map[string]*domain.Port),
		outputs:    make(map[string]*domain.Port),
		errorPorts: make(map[string]*domain.Port),
		noErrors:   true,
		counts:     make(map[string]int64),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// ID returns the node identifier.
func (b *Base) ID() string { return b.id }

// AddInput registers an input port under a local name.
func (b *Base) AddInput(name string, p *domain.Port) { b.inputs[name] = p }

// AddOutput registers an output port under a local name.
func (b *Base) AddOutput(name string, p *domain.Port) { b.outputs[name] = p }

// AddErrorOutput registers an error port under a local name.
func (b *Base) AddErrorOutput(name string, p *domain.Port) { b.errorPorts[name] = p }

// AddPredecessors appends ordering dependencies.
func (b *Base) AddPredecessors(nodes ...Node) { b.preds = append(b.preds, nodes...) }

// Inputs returns the node's input ports by local name.
func (b *Base) Inputs() map[string]*domain.Port { return b.inputs }

// Outputs returns the node's output ports by local name.
func (b *Base) Outputs() map[string]*domain.Port { return b.outputs }

// ErrorOutputs returns the node's error ports by local name.
func (b *Base) ErrorOutputs() map[string]*domain.Port { return b.errorPorts }

// Predecessors returns the node's explicit ordering dependencies.
func (b *Base) Predecessors() []Node { return b.preds }

// NoErrors reports whether error rows from this node halt the run.
func (b *Base) NoErrors() bool { return b.noErrors }

// FailOnError reports whether an execution failure aborts the run.
func (b *Base) FailOnError() bool { return b.failOnError }

// Ready reports whether every predecessor has completed and every input
// port is available.
func (b *Base) Ready(rc RunContext) bool {
	for _, p := range b.preds {
		if !rc.Completed(p.ID()) {
			return false
		}
	}
	for _, in := range b.inputs {
		if !rc.Available(in) {
			return false
		}
	}
	return true
}

// Logger returns the node's run logger, bound in Begin. Safe to call
// before Begin; it falls back to a no-op logger.
func (b *Base) Logger() *zap.SugaredLogger {
	if b.logger == nil {
		return zap.NewNop().Sugar()
	}
	return b.logger
}

// Begin resets counters, starts the run clock, and derives the node's
// named logger from the context.
func (b *Base) Begin(rc RunContext) error {
	b.logger = rc.Logger().Named(b.id)
	b.started = time.Now()
	b.mu.Lock()
	b.counts = make(map[string]int64)
	b.mu.Unlock()
	b.logger.Debug("node starting")
	return nil
}

// Commit finalizes a successful run: the duration goes to the observer
// and the counter snapshot to the log.
func (b *Base) Commit(rc RunContext) error {
	elapsed := time.Since(b.started)
	rc.Observer().ObserveDuration(b.id, elapsed)
	b.Logger().Infow("node complete",
		"counts", b.Counts(),
		"elapsed", elapsed.Round(time.Millisecond))
	return nil
}

// Rollback discards a failed run. Counters are left for post-mortems.
func (b *Base) Rollback(rc RunContext) {
	b.Logger().Warnw("node rolled back", "counts", b.Counts())
}

// Count adds delta to the named counter and mirrors it to the observer.
// The processed counter logs a progress line with the running rate every
// ReportEvery rows.
func (b *Base) Count(rc RunContext, counter string, delta int) {
	b.mu.Lock()
	b.counts[counter] += int64(delta)
	total := b.counts[counter]
	b.mu.Unlock()

	rc.Observer().ObserveCount(b.id, counter, int64(delta))

	if counter != CountProcessed {
		return
	}
	every := rc.ReportEvery()
	if every <= 0 || total%int64(every) != 0 {
		return
	}
	elapsed := time.Since(b.started).Seconds()
	rate := float64(total)
	if elapsed > 0 {
		rate = float64(total) / elapsed
	}
	b.Logger().Infof("processed %d records, %.0f records/s", total, rate)
}

// Counter returns the current value of the named counter.
func (b *Base) Counter(name string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[name]
}

// Counts returns a snapshot of all counters.
func (b *Base) Counts() map[string]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := make(map[string]int64, len(b.counts))
	for k, v := range b.counts {
		snapshot[k] = v
	}
	return snapshot
}
