package dwc

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// ParentResolve repairs parent links against a full reference table.
// Starting from each input row, the walk follows link keys through the
// full table until it reaches a record present in the input itself; the
// reached record becomes the row's parent. Rows whose chain ends
// unresolved fall back to the default root, and a link value seen twice
// on one walk is reported as a circular reference rather than walked
// again.
//
// The walk tracks link-key values, not record identities, so two records
// legitimately sharing a link value on one chain read as a cycle. Source
// data that triggers this is already suspect.
type ParentResolve struct {
	pipeline.Base
	input   *domain.Port
	full    *domain.Port
	output  *domain.Port
	errPort *domain.Port

	inputKeys domain.Keys
	linkKeys  domain.Keys
	rankKeys  domain.Keys
	nameKeys  domain.Keys
	rootRank  string
	rootName  string
}

var _ pipeline.Node = (*ParentResolve)(nil)

// NewParentResolve creates a parent resolver. Input rows are the working
// set parents must land in; full is the reference table the walk moves
// through. The input keys identify records in both ports, the link keys
// name the parent reference fields, and rows of rootRank anchor chains,
// with the row named rootName as the fallback root. The output schema is
// the input schema extended by the link key fields.
func NewParentResolve(
	id string,
	input, full *domain.Port,
	inputKeys, linkKeys []string,
	rootRank, rootName string,
	opts ...Option,
) (*ParentResolve, error) {
	cfg := newConfig(opts...)
	ik, err := domain.NewKeys(input.Schema(), inputKeys...)
	if err != nil {
		return nil, err
	}
	lk, err := domain.NewKeys(full.Schema(), linkKeys...)
	if err != nil {
		return nil, err
	}
	if ik.Len() != lk.Len() {
		return nil, fmt.Errorf("%w: %d input fields, %d link fields",
			domain.ErrKeyArity, ik.Len(), lk.Len())
	}
	rk, err := domain.NewKeys(input.Schema(), cfg.rankField)
	if err != nil {
		return nil, err
	}
	nk, err := domain.NewKeys(input.Schema(), cfg.nameField)
	if err != nil {
		return nil, err
	}
	p := &ParentResolve{
		Base:      pipeline.NewBase(id, cfg.node...),
		input:     input,
		full:      full,
		output:    domain.NewPort(input.Schema().With(lk.Fields()...)),
		errPort:   input.ErrorPort(),
		inputKeys: ik,
		linkKeys:  lk,
		rankKeys:  rk,
		nameKeys:  nk,
		rootRank:  rootRank,
		rootName:  rootName,
	}
	p.AddInput("input", input)
	p.AddInput("full", full)
	p.AddOutput("output", p.output)
	p.AddErrorOutput("error", p.errPort)
	return p, nil
}

// Output returns the port carrying rows with resolved parent links.
func (p *ParentResolve) Output() *domain.Port { return p.output }

// Errors returns the error port.
func (p *ParentResolve) Errors() *domain.Port { return p.errPort }

// Execute resolves every input row's parent chain.
func (p *ParentResolve) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(p.input)
	if err != nil {
		return err
	}
	table, err := rc.Acquire(p.full)
	if err != nil {
		return err
	}
	dataIx, err := domain.NewIndex(data, p.inputKeys, domain.UniqueIndex)
	if err != nil {
		return err
	}
	fullIx, err := domain.NewIndex(table, p.inputKeys, domain.UniqueIndex)
	if err != nil {
		return err
	}

	roots := make(map[*domain.Record]bool)
	var defaultRoot *domain.Record
	for _, r := range data.Records() {
		if rank, ok := p.rankKeys.Get(r).(string); ok && rank == p.rootRank {
			roots[r] = true
			if defaultRoot == nil {
				if name, ok := p.nameKeys.Get(r).(string); ok && name == p.rootName {
					defaultRoot = r
				}
			}
		}
	}
	var rootKey any
	if defaultRoot != nil {
		rootKey = p.inputKeys.Get(defaultRoot)
	}
	p.Logger().Infow("default root", "key", rootKey)

	result := domain.NewDataset()
	errDS := domain.NewDataset()
	for _, r := range data.Records() {
		parent := r
		trail := make(map[string]bool)
		for {
			kv := p.linkKeys.Get(parent)
			hash := domain.KeyHash(kv)
			if trail[hash] {
				p.Logger().Warnw("circular trail", "key", kv, "line", r.Line())
				errDS.Add(domain.NewErrorRecord(r, fmt.Sprintf("circular history reference at %v", kv)))
				p.Count(rc, pipeline.CountErrors, 1)
				parent = defaultRoot
				break
			}
			trail[hash] = true
			parent = fullIx.FindKey(kv)
			if parent == nil {
				if !roots[r] {
					p.Logger().Warnw("no parent found, defaulting to root",
						"key", p.inputKeys.Get(r), "line", r.Line())
					p.Count(rc, pipeline.CountErrors, 1)
					parent = defaultRoot
				}
				break
			}
			if dataIx.Find(parent, p.inputKeys) != nil {
				break
			}
		}
		composed, err := p.compose(r, parent)
		if err != nil {
			return fmt.Errorf("%s at line %d: %w", p.ID(), r.Line(), err)
		}
		result.Add(composed)
		p.Count(rc, pipeline.CountAccepted, 1)
		p.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(p.output, result); err != nil {
		return err
	}
	return rc.Save(p.errPort, errDS)
}

// compose extends the row with its resolved parent's identifier under
// the link key names. A nil parent clears the link fields.
func (p *ParentResolve) compose(r, parent *domain.Record) (*domain.Record, error) {
	linked, err := p.inputKeys.KeyMap(parent, p.linkKeys)
	if err != nil {
		return nil, err
	}
	data := make(map[string]any, len(r.Data())+len(linked))
	for k, v := range r.Data() {
		data[k] = v
	}
	for k, v := range linked {
		data[k] = v
	}
	return r.Derive(data), nil
}
