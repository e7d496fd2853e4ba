package transforms

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// ParentLookup is a Lookup that climbs the input's own parent chain when
// a row has no direct match: the probe moves to the row's parent, then
// the grandparent, until a match is found or the chain runs out. Rows
// join against whatever ancestor matched; the parents counter records
// the hops taken.
type ParentLookup struct {
	*Lookup
	identifierKeys domain.Keys
	parentKeys     domain.Keys
}

var _ pipeline.Node = (*ParentLookup)(nil)

// NewParentLookup creates a parent-climbing lookup. The identifier and
// parent key fields describe the input dataset's own hierarchy; a row's
// parent is the input row whose identifier equals the row's parent key.
func NewParentLookup(
	id string,
	input, lookup *domain.Port,
	inputKeys, lookupKeys, identifierKeys, parentKeys []string,
	opts ...Option,
) (*ParentLookup, error) {
	base, err := newLookup(id, input, lookup, inputKeys, lookupKeys, newConfig(opts...))
	if err != nil {
		return nil, err
	}
	ik, err := domain.NewKeys(input.Schema(), identifierKeys...)
	if err != nil {
		return nil, err
	}
	pk, err := domain.NewKeys(input.Schema(), parentKeys...)
	if err != nil {
		return nil, err
	}
	return &ParentLookup{Lookup: base, identifierKeys: ik, parentKeys: pk}, nil
}

// Execute joins every input row, walking up the parent chain for rows
// without a direct match.
func (l *ParentLookup) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(l.input)
	if err != nil {
		return err
	}
	table, err := rc.Acquire(l.lookup)
	if err != nil {
		return err
	}
	ix, err := domain.NewIndex(table, l.lookupKeys, l.indexType)
	if err != nil {
		return err
	}
	parentIx, err := domain.NewIndex(data, l.identifierKeys, domain.UniqueIndex)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	var missing *domain.Dataset
	if l.unmatched != nil {
		missing = domain.NewDataset()
	}
	for _, r := range data.Records() {
		link, err := l.climb(r, ix, parentIx, rc)
		if err != nil {
			if l.FailOnError() {
				return fmt.Errorf("%s at line %d: %w", l.ID(), r.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			l.Count(rc, pipeline.CountErrors, 1)
			l.Count(rc, pipeline.CountProcessed, 1)
			continue
		}
		if link == nil {
			l.Count(rc, pipeline.CountUnmatched, 1)
			if missing != nil {
				missing.Add(r)
			}
		}
		if link != nil || !l.dropMiss {
			result.Add(l.composeRow(r, link))
			l.Count(rc, pipeline.CountAccepted, 1)
		}
		l.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(l.output, result); err != nil {
		return err
	}
	if err := rc.Save(l.errPort, errDS); err != nil {
		return err
	}
	if missing != nil {
		if err := rc.Save(l.unmatched, missing); err != nil {
			return err
		}
	}
	return nil
}

// climb probes the lookup index for the row and then for each of its
// ancestors in turn. A circular parent chain is a per-row error, not a
// hang or a node failure.
func (l *ParentLookup) climb(r *domain.Record, ix, parentIx *domain.Index, rc pipeline.RunContext) (*domain.Record, error) {
	seen := make(map[string]bool)
	actual := r
	for actual != nil {
		if link := ix.Find(actual, l.inputKeys); link != nil {
			return link, nil
		}
		id := domain.KeyHash(l.identifierKeys.Get(actual))
		if seen[id] {
			return nil, fmt.Errorf("circular parent chain at %v", l.identifierKeys.Get(actual))
		}
		seen[id] = true
		actual = parentIx.Find(actual, l.parentKeys)
		l.Count(rc, pipeline.CountParents, 1)
	}
	return nil, nil
}
