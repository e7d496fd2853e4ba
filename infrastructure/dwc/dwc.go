// Package dwc provides the taxonomy-aware nodes of a conversion graph:
// structural validation, reference cleaning, parent-chain repair,
// identifier relabeling, and alternative-identifier generation for
// Darwin-Core-shaped datasets.
//
// The nodes assume taxon-shaped rows: an identifier field, optional
// parent and accepted references into the same dataset, and rank and
// name fields. Field names default to the Darwin Core terms and can be
// overridden per node.
package dwc

import (
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// CountCreated tallies identifier rows minted by the generator nodes.
const CountCreated = "created"

// Option configures a dwc node at construction. Options that do not
// apply to a particular node are ignored by it.
type Option func(*config)

type config struct {
	node          []pipeline.Option
	nameCheck     bool
	keepAll       bool
	idField       string
	parentField   string
	acceptedField string
	rankField     string
	nameField     string
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		idField:       "taxonID",
		parentField:   "parentNameUsageID",
		acceptedField: "acceptedNameUsageID",
		rankField:     "taxonRank",
		nameField:     "scientificName",
	}
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

// WithNameCheck enables the lexical scientific-name check in a validate
// node.
func WithNameCheck() Option {
	return func(c *config) { c.nameCheck = true }
}

// WithKeepAll makes an identifier generator emit translations equal to
// the identifier they were derived from, instead of dropping them as
// no-ops.
func WithKeepAll() Option {
	return func(c *config) { c.keepAll = true }
}

// WithIdentifierField names the field holding each row's taxon
// identifier. The default is taxonID.
func WithIdentifierField(name string) Option {
	return func(c *config) { c.idField = name }
}

// WithParentField names the field referencing a row's parent identifier.
// The default is parentNameUsageID.
func WithParentField(name string) Option {
	return func(c *config) { c.parentField = name }
}

// WithAcceptedField names the field referencing a row's accepted
// identifier. The default is acceptedNameUsageID.
func WithAcceptedField(name string) Option {
	return func(c *config) { c.acceptedField = name }
}

// WithRankField names the field holding a row's rank. The default is
// taxonRank.
func WithRankField(name string) Option {
	return func(c *config) { c.rankField = name }
}

// WithNameField names the field holding a row's scientific name. The
// default is scientificName.
func WithNameField(name string) Option {
	return func(c *config) { c.nameField = name }
}
