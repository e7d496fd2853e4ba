// Package transforms provides the record-level operators a conversion
// graph is assembled from: filters, projections, joins, splitters,
// deduplication, sorting, and the other reshaping steps between sources
// and sinks.
//
// Every transform is a pipeline.Node built on the same pattern: acquire
// the input dataset, compose each record, and save the results. A
// composition outcome is always one of three things: an output record,
// a rejection, or an error record on the transform's error port. Nodes
// never abort a run for a single bad row unless constructed with
// pipeline.WithFailOnError.
package transforms

import (
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// ComposeFunc turns one record into another. Returning a nil record with
// a nil error rejects the row; a non-nil error routes an error record to
// the transform's error port.
type ComposeFunc func(r *domain.Record, rc pipeline.RunContext) (*domain.Record, error)

// PredicateFunc tests a record. An error routes the row to the error
// port rather than failing the node.
type PredicateFunc func(r *domain.Record, rc pipeline.RunContext) (bool, error)

// Option configures a transform at construction. Options that do not
// apply to a particular transform are ignored by it.
type Option func(*config)

// pick narrows and renames one side of a join: explicit renames win over
// includes, includes win over excludes, and a prefix renames whatever
// else survives.
type pick struct {
	rename  map[string]string
	include []string
	exclude []string
	prefix  string
	set     bool
}

type config struct {
	node            []pipeline.Option
	rejects         bool
	unmatched       bool
	rejectUnmatched bool
	overwrite       bool
	noMerge         bool
	indexType       domain.IndexType
	fold            bool
	includeEmpty    bool
	descending      bool
	allowDuplicates bool
	exclude         bool
	auto            bool
	annotate        func(variant string, r *domain.Record)
	predicate       PredicateFunc
	identifier      string
	parentField     string
	acceptedField   string
	inputPick       pick
	lookupPick      pick
}

func newConfig(opts ...Option) *config {
	cfg := &config{indexType: domain.UniqueIndex}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithNodeOptions forwards options to the transform's embedded node
// state, such as pipeline.WithErrorsTolerated or
// pipeline.WithPredecessors.
func WithNodeOptions(opts ...pipeline.Option) Option {
	return func(c *config) { c.node = append(c.node, opts...) }
}

// WithRejects adds a reject port carrying the rows the transform turned
// away. Without it rejected rows are silently dropped.
func WithRejects() Option {
	return func(c *config) { c.rejects = true }
}

// WithUnmatched adds an unmatched port to a lookup carrying the input
// rows that found no partner.
func WithUnmatched() Option {
	return func(c *config) { c.unmatched = true }
}

// WithRejectUnmatched drops unmatched input rows from a lookup's output
// instead of passing them through unjoined.
func WithRejectUnmatched() Option {
	return func(c *config) { c.rejectUnmatched = true }
}

// WithOverwrite makes lookup values win over input values for
// identically named fields. The default is the other way around.
func WithOverwrite() Option {
	return func(c *config) { c.overwrite = true }
}

// WithoutMerge keeps a lookup's output on the input schema: the join is
// used for matching only and contributes no fields.
func WithoutMerge() Option {
	return func(c *config) { c.noMerge = true }
}

// WithIndexType sets the index policy for a lookup table; the default is
// domain.UniqueIndex.
func WithIndexType(t domain.IndexType) Option {
	return func(c *config) { c.indexType = t }
}

// WithCaseInsensitive folds case when matching key values.
func WithCaseInsensitive() Option {
	return func(c *config) { c.fold = true }
}

// WithIncludeEmpty makes a denormaliser pass rows with nothing to split
// through unchanged instead of dropping them.
func WithIncludeEmpty() Option {
	return func(c *config) { c.includeEmpty = true }
}

// WithDescending reverses a sort.
func WithDescending() Option {
	return func(c *config) { c.descending = true }
}

// WithAllowDuplicates lets a variant generator emit values already
// present in the input; it also removes the reject port, since nothing
// gets rejected.
func WithAllowDuplicates() Option {
	return func(c *config) { c.allowDuplicates = true }
}

// WithExclude inverts an accept: rows matching the value set are turned
// away and everything else passes.
func WithExclude() Option {
	return func(c *config) { c.exclude = true }
}

// WithAuto maps identically named fields automatically, converting
// values whose field types differ.
func WithAuto() Option {
	return func(c *config) { c.auto = true }
}

// WithAnnotation installs a callback invoked on every generated variant
// record before its key is replaced.
func WithAnnotation(fn func(variant string, r *domain.Record)) Option {
	return func(c *config) { c.annotate = fn }
}

// WithPredicate attaches a keep-predicate to a trail: traced ancestors
// failing it are replaced by their nearest passing parent.
func WithPredicate(pred PredicateFunc) Option {
	return func(c *config) { c.predicate = pred }
}

// WithIdentifierField names the field holding each row's identifier,
// used by a cluster to remap references onto surviving rows.
func WithIdentifierField(name string) Option {
	return func(c *config) { c.identifier = name }
}

// WithParentField names the field referencing a row's parent identifier.
func WithParentField(name string) Option {
	return func(c *config) { c.parentField = name }
}

// WithAcceptedField names the field referencing a row's accepted
// identifier.
func WithAcceptedField(name string) Option {
	return func(c *config) { c.acceptedField = name }
}

// WithInputRename renames input-side fields in a lookup's output.
// Renamed fields are always kept.
func WithInputRename(m map[string]string) Option {
	return func(c *config) { c.inputPick.rename = m; c.inputPick.set = true }
}

// WithInputInclude keeps only the named input-side fields in a lookup's
// output.
func WithInputInclude(names ...string) Option {
	return func(c *config) { c.inputPick.include = names; c.inputPick.set = true }
}

// WithInputExclude drops the named input-side fields from a lookup's
// output.
func WithInputExclude(names ...string) Option {
	return func(c *config) { c.inputPick.exclude = names; c.inputPick.set = true }
}

// WithLookupRename renames lookup-side fields in a lookup's output.
func WithLookupRename(m map[string]string) Option {
	return func(c *config) { c.lookupPick.rename = m; c.lookupPick.set = true }
}

// WithLookupInclude keeps only the named lookup-side fields in a
// lookup's output.
func WithLookupInclude(names ...string) Option {
	return func(c *config) { c.lookupPick.include = names; c.lookupPick.set = true }
}

// WithLookupExclude drops the named lookup-side fields from a lookup's
// output.
func WithLookupExclude(names ...string) Option {
	return func(c *config) { c.lookupPick.exclude = names; c.lookupPick.set = true }
}

// WithLookupPrefix prefixes every kept lookup-side field name, keeping
// joined columns distinguishable from input columns.
func WithLookupPrefix(prefix string) Option {
	return func(c *config) { c.lookupPick.prefix = prefix; c.lookupPick.set = true }
}
