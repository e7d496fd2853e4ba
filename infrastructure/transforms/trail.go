package transforms

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Trail completes a partial selection against a reference dataset:
// every input row is resolved to its reference entry and all ancestors
// reachable through parent and accepted links are pulled in with it, so
// the output is closed under those links.
//
// A keep-predicate can thin the trail: ancestors failing it are replaced
// by their nearest passing parent, and links on kept rows are rewritten
// to skip over the removed ones. Rows the input asked for directly are
// always kept.
type Trail struct {
	pipeline.Base
	input     *domain.Port
	reference *domain.Port
	output    *domain.Port
	errPort   *domain.Port
	refKeys   domain.Keys
	parents   domain.Keys
	accepted  domain.Keys
	predicate PredicateFunc
}

var _ pipeline.Node = (*Trail)(nil)

// NewTrail creates a trail resolving input rows in the reference dataset
// by referenceKeys and following parentKeys upward. WithAcceptedField
// follows accepted links as well; WithPredicate installs the
// keep-predicate.
func NewTrail(id string, input, reference *domain.Port, referenceKeys, parentKeys []string, opts ...Option) (*Trail, error) {
	rk, err := domain.NewKeys(input.Schema(), referenceKeys...)
	if err != nil {
		return nil, err
	}
	pk, err := domain.NewKeys(input.Schema(), parentKeys...)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(opts...)
	t := &Trail{
		Base:      pipeline.NewBase(id, cfg.node...),
		input:     input,
		reference: reference,
		output:    domain.NewPort(reference.Schema()),
		errPort:   input.ErrorPort(),
		refKeys:   rk,
		parents:   pk,
		predicate: cfg.predicate,
	}
	if cfg.acceptedField != "" {
		if t.accepted, err = domain.NewKeys(input.Schema(), cfg.acceptedField); err != nil {
			return nil, err
		}
	}
	t.AddInput("input", input)
	t.AddInput("reference", reference)
	t.AddOutput("output", t.output)
	t.AddErrorOutput("error", t.errPort)
	return t, nil
}

// Output returns the port carrying the completed trail.
func (t *Trail) Output() *domain.Port { return t.output }

// Errors returns the error port.
func (t *Trail) Errors() *domain.Port { return t.errPort }

// Execute traces every input row through the reference dataset. An input
// row with no reference entry is an error record; ancestors are emitted
// before descendants and each reference entry at most once.
func (t *Trail) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(t.input)
	if err != nil {
		return err
	}
	reference, err := rc.Acquire(t.reference)
	if err != nil {
		return err
	}
	ix, err := domain.NewIndex(reference, t.refKeys, domain.UniqueIndex)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	seen := make(map[string]*domain.Record)
	for _, r := range data.Records() {
		actual := ix.Find(r, t.refKeys)
		if actual == nil {
			if t.FailOnError() {
				return fmt.Errorf("%s: missing reference entry at line %d", t.ID(), r.Line())
			}
			errDS.Add(domain.NewErrorRecord(r, "missing reference entry"))
			t.Count(rc, pipeline.CountErrors, 1)
		} else if _, err := t.trace(ix, actual, seen, result, rc, true); err != nil {
			if t.FailOnError() {
				return fmt.Errorf("%s at line %d: %w", t.ID(), r.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			t.Count(rc, pipeline.CountErrors, 1)
		}
		t.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(t.output, result); err != nil {
		return err
	}
	return rc.Save(t.errPort, errDS)
}

// trace resolves one reference record and, recursively, the records its
// parent and accepted links point at. The memo is seeded before the
// links are followed, so link cycles terminate instead of recursing
// forever; the record a key resolves to may be the record itself, a
// substituted ancestor, or nil when nothing on the chain passes the
// predicate.
func (t *Trail) trace(
	ix *domain.Index,
	rec *domain.Record,
	seen map[string]*domain.Record,
	result *domain.Dataset,
	rc pipeline.RunContext,
	required bool,
) (*domain.Record, error) {
	key := domain.KeyHash(t.refKeys.Get(rec))
	if sub, ok := seen[key]; ok {
		return sub, nil
	}
	out := rec.Copy()
	seen[key] = out

	var parent *domain.Record
	if link := ix.Find(rec, t.parents); link != nil {
		sub, err := t.trace(ix, link, seen, result, rc, false)
		if err != nil {
			return nil, err
		}
		parent = sub
	}
	if parent != nil {
		if err := t.parents.Set(out, t.refKeys.Get(parent)); err != nil {
			return nil, err
		}
	} else if err := t.parents.Set(out, nil); err != nil {
		return nil, err
	}

	if t.accepted.Len() > 0 {
		var accepted *domain.Record
		if link := ix.Find(rec, t.accepted); link != nil {
			sub, err := t.trace(ix, link, seen, result, rc, false)
			if err != nil {
				return nil, err
			}
			accepted = sub
		}
		if accepted != nil {
			if err := t.accepted.Set(out, t.refKeys.Get(accepted)); err != nil {
				return nil, err
			}
		} else if err := t.accepted.Set(out, nil); err != nil {
			return nil, err
		}
	}

	t.Count(rc, pipeline.CountAccepted, 1)
	keep := required || t.predicate == nil
	if !keep {
		ok, err := t.predicate(out, rc)
		if err != nil {
			return nil, err
		}
		keep = ok
	}
	if keep {
		result.Add(out)
		return out, nil
	}
	if parent != nil {
		ok, err := t.predicate(parent, rc)
		if err != nil {
			return nil, err
		}
		if ok {
			seen[key] = parent
			return parent, nil
		}
	}
	seen[key] = nil
	return nil, nil
}
