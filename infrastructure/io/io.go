// Package io provides the boundary nodes of a conversion graph: sources
// that read external tabular data onto ports and sinks that write ports
// back out to files or the log.
//
// Sources deserialize cell by cell through their output schema, so a row
// that fails to parse becomes an error record instead of aborting the
// node. Sinks serialize through the same schema, which makes a sink and
// a source on the same schema round-trip values.
package io

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// PredicateFunc filters source rows on load. An error routes the row to
// the source's error port rather than failing the node.
type PredicateFunc func(r *domain.Record, rc pipeline.RunContext) (bool, error)

// Option configures a source or sink at construction. Options that do
// not apply to a particular node are ignored by it.
type Option func(*config)

type config struct {
	node      []pipeline.Option
	predicate PredicateFunc
	delimiter rune
	lazy      bool
	reduce    bool
	work      bool
	limit     int
	client    *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
}

func newConfig(opts ...Option) *config {
	cfg := &config{delimiter: ',', timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithNodeOptions forwards options to the node's embedded state, such as
// pipeline.WithErrorsTolerated or pipeline.WithPredecessors.
func WithNodeOptions(opts ...pipeline.Option) Option {
	return func(c *config) { c.node = append(c.node, opts...) }
}

// WithPredicate filters rows as a source reads them. Rows the predicate
// declines are counted as rejected and dropped.
func WithPredicate(pred PredicateFunc) Option {
	return func(c *config) { c.predicate = pred }
}

// WithDelimiter sets the column separator, for tab- or pipe-separated
// files. The default is a comma.
func WithDelimiter(r rune) Option {
	return func(c *config) { c.delimiter = r }
}

// WithLazyQuotes relaxes quote handling on read, for unquoted dialects
// where a stray quote character is data rather than structure.
func WithLazyQuotes() Option {
	return func(c *config) { c.lazy = true }
}

// WithReduced drops columns from a sink's output when they are not
// export-flagged and hold no value anywhere in the dataset.
func WithReduced() Option {
	return func(c *config) { c.reduce = true }
}

// WithWork places a sink's file in the work directory instead of the
// output directory.
func WithWork() Option {
	return func(c *config) { c.work = true }
}

// WithLimit caps the number of records a log sink prints. Zero means no
// cap.
func WithLimit(n int) Option {
	return func(c *config) { c.limit = n }
}

// WithClient sets the HTTP client a source fetches with. The default is
// a plain http.Client.
func WithClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// WithTimeout bounds a single HTTP fetch. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithRateLimit paces HTTP fetches with a token bucket shared by every
// node constructed with the same option value.
func WithRateLimit(limit rate.Limit, burst int) Option {
	limiter := rate.NewLimiter(limit, burst)
	return func(c *config) { c.limiter = limiter }
}
