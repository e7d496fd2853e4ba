package pipeline

import "time"

// StatsObserver receives node statistics as they accumulate. The
// prometheus implementation lives in infrastructure/middleware; the
// engine itself only talks to this interface.
type StatsObserver interface {
	// ObserveCount records a counter increment for a node.
	ObserveCount(node, counter string, delta int64)

	// ObserveDuration records how long a node's run took.
	ObserveDuration(node string, d time.Duration)
}

// NopObserver discards all observations. It is the default when no
// metrics backend is wired in.
type NopObserver struct{}

// ObserveCount implements StatsObserver by doing nothing.
func (NopObserver) ObserveCount(string, string, int64) {}

// ObserveDuration implements StatsObserver by doing nothing.
func (NopObserver) ObserveDuration(string, time.Duration) {}
