package dwc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taxonflow/taxonflow/infrastructure/schemas"
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// IdentityFunc computes a record's new identifier.
type IdentityFunc func(r *domain.Record) (string, error)

// Reidentify assigns every row a new identifier and rewrites parent and
// accepted references to match, in two passes. Pass one computes each
// row's identifier; an identifier already issued to another row is
// replaced by a fresh UUID under a warning, and every first-seen old
// identifier emits a term-to-mapping row on the mapping port. Pass two
// rewrites each row's own identifier plus its references through the
// mapping, falling back to the referenced row's old identifier, so the
// output graph's edges stay consistent with whatever pass one decided.
type Reidentify struct {
	pipeline.Base
	input   *domain.Port
	output  *domain.Port
	mapping *domain.Port
	errPort *domain.Port

	idKeys       domain.Keys
	parentKeys   domain.Keys
	acceptedKeys domain.Keys
	identify     IdentityFunc
}

var _ pipeline.Node = (*Reidentify)(nil)

// NewReidentify creates a relabeling node. The identifier, parent, and
// accepted key fields must exist in the input schema; identify supplies
// the new identifier for each row.
func NewReidentify(
	id string,
	input *domain.Port,
	identifierKeys, parentKeys, acceptedKeys []string,
	identify IdentityFunc,
	opts ...Option,
) (*Reidentify, error) {
	cfg := newConfig(opts...)
	ik, err := domain.NewKeys(input.Schema(), identifierKeys...)
	if err != nil {
		return nil, err
	}
	pk, err := domain.NewKeys(input.Schema(), parentKeys...)
	if err != nil {
		return nil, err
	}
	ak, err := domain.NewKeys(input.Schema(), acceptedKeys...)
	if err != nil {
		return nil, err
	}
	e := &Reidentify{
		Base:         pipeline.NewBase(id, cfg.node...),
		input:        input,
		output:       domain.NewPort(input.Schema()),
		mapping:      domain.NewPort(schemas.Mapping()),
		errPort:      input.ErrorPort(),
		idKeys:       ik,
		parentKeys:   pk,
		acceptedKeys: ak,
		identify:     identify,
	}
	e.AddInput("input", input)
	e.AddOutput("output", e.output)
	e.AddOutput("mapping", e.mapping)
	e.AddErrorOutput("error", e.errPort)
	return e, nil
}

// Output returns the port carrying relabeled rows.
func (e *Reidentify) Output() *domain.Port { return e.output }

// Mapping returns the port carrying old-to-new identifier rows.
func (e *Reidentify) Mapping() *domain.Port { return e.mapping }

// Errors returns the error port.
func (e *Reidentify) Errors() *domain.Port { return e.errPort }

// Execute relabels the dataset.
func (e *Reidentify) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(e.input)
	if err != nil {
		return err
	}
	index, err := domain.NewIndex(data, e.idKeys, domain.FirstIndex)
	if err != nil {
		return err
	}

	result := domain.NewDataset()
	mappingDS := domain.NewDataset()
	errDS := domain.NewDataset()

	// The identity function may be stateful, so it runs exactly once per
	// row and all rewrites go through the tables built here.
	lookup := make(map[string]string, data.Len())
	replace := make(map[int]string, data.Len())
	issued := make(map[string]bool, data.Len())
	for i, r := range data.Records() {
		original := e.idKeys.Get(r)
		id, err := e.identify(r)
		if err != nil {
			if e.FailOnError() {
				return fmt.Errorf("%s at line %d: %w", e.ID(), r.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			e.Count(rc, pipeline.CountErrors, 1)
			continue
		}
		if issued[id] {
			fresh := uuid.NewString()
			e.Logger().Warnw("duplicate identifier",
				"original", original, "identifier", id, "replacement", fresh)
			id = fresh
		}
		issued[id] = true
		hash := domain.KeyHash(original)
		if _, ok := lookup[hash]; !ok {
			lookup[hash] = id
			mappingDS.Add(domain.NewRecord(r.Line(), map[string]any{"term": original, "mapping": id}))
		}
		replace[i] = id
		e.Count(rc, pipeline.CountMapped, 1)
	}

	for i, r := range data.Records() {
		composed, err := e.relabel(r, replace[i], lookup, index)
		if err != nil {
			if e.FailOnError() {
				return fmt.Errorf("%s at line %d: %w", e.ID(), r.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			e.Count(rc, pipeline.CountErrors, 1)
		} else {
			result.Add(composed)
			e.Count(rc, pipeline.CountAccepted, 1)
		}
		e.Count(rc, pipeline.CountProcessed, 1)
	}

	if err := rc.Save(e.output, result); err != nil {
		return err
	}
	if err := rc.Save(e.mapping, mappingDS); err != nil {
		return err
	}
	return rc.Save(e.errPort, errDS)
}

// relabel copies the row and rewrites its identifier and references. An
// empty newID means pass one failed for this row; the row keeps its old
// identifier but its references are still rewritten.
func (e *Reidentify) relabel(r *domain.Record, newID string, lookup map[string]string, index *domain.Index) (*domain.Record, error) {
	composed := r.Copy()
	if newID != "" {
		if err := e.idKeys.Set(composed, newID); err != nil {
			return nil, err
		}
	}
	if err := e.rewrite(composed, r, e.parentKeys, lookup, index); err != nil {
		return nil, err
	}
	if err := e.rewrite(composed, r, e.acceptedKeys, lookup, index); err != nil {
		return nil, err
	}
	return composed, nil
}

// rewrite points a reference at the new identifier of the record it used
// to reference. A reference to a row that never got a new identifier
// keeps the referenced row's old one.
func (e *Reidentify) rewrite(composed, r *domain.Record, keys domain.Keys, lookup map[string]string, index *domain.Index) error {
	target := index.Find(r, keys)
	if target == nil {
		return nil
	}
	original := e.idKeys.Get(target)
	if mapped, ok := lookup[domain.KeyHash(original)]; ok {
		return keys.Set(composed, mapped)
	}
	return keys.Set(composed, original)
}
