package dwc

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/infrastructure/schemas"
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// IdentifierGenerator mints alternative identifier rows for every input
// row by running its translators to a fixpoint: each derived identifier
// is fed back through every translator until nothing new appears.
// Translations equal to the identifier they came from are dropped as
// no-ops unless the node is built with WithKeepAll.
type IdentifierGenerator struct {
	pipeline.Base
	input   *domain.Port
	output  *domain.Port
	errPort *domain.Port

	taxonKeys   domain.Keys
	translators []*IdentifierTranslator
	keepAll     bool
}

var _ pipeline.Node = (*IdentifierGenerator)(nil)

// NewIdentifierGenerator creates a generator over the input port. The
// taxon key fields must exist in the input schema; the output port
// carries the identifier schema.
func NewIdentifierGenerator(
	id string,
	input *domain.Port,
	taxonKeys []string,
	translators []*IdentifierTranslator,
	opts ...Option,
) (*IdentifierGenerator, error) {
	cfg := newConfig(opts...)
	tk, err := domain.NewKeys(input.Schema(), taxonKeys...)
	if err != nil {
		return nil, err
	}
	g := &IdentifierGenerator{
		Base:        pipeline.NewBase(id, cfg.node...),
		input:       input,
		output:      domain.NewPort(schemas.Identifier()),
		errPort:     input.ErrorPort(),
		taxonKeys:   tk,
		translators: translators,
		keepAll:     cfg.keepAll,
	}
	g.AddInput("input", input)
	g.AddOutput("output", g.output)
	g.AddErrorOutput("error", g.errPort)
	return g, nil
}

// Output returns the port carrying generated identifier rows.
func (g *IdentifierGenerator) Output() *domain.Port { return g.output }

// Errors returns the error port.
func (g *IdentifierGenerator) Errors() *domain.Port { return g.errPort }

// Execute expands every row's identifier through the translators. Each
// round feeds the previous round's new identifiers back in; the seen set
// keeps expansion finite even when translations cycle.
func (g *IdentifierGenerator) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(g.input)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	for _, row := range data.Records() {
		key := g.taxonKeys.Get(row)
		if key == nil {
			errDS.Add(domain.NewErrorRecord(row, fmt.Sprintf("no identifier at line %d", row.Line())))
			g.Count(rc, pipeline.CountErrors, 1)
			g.Count(rc, pipeline.CountProcessed, 1)
			continue
		}
		if err := g.expand(rc, row, key, result); err != nil {
			if g.FailOnError() {
				return fmt.Errorf("%s at line %d: %w", g.ID(), row.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(row, err.Error()))
			g.Count(rc, pipeline.CountErrors, 1)
		}
		g.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(g.output, result); err != nil {
		return err
	}
	return rc.Save(g.errPort, errDS)
}

func (g *IdentifierGenerator) expand(rc pipeline.RunContext, row *domain.Record, key any, result *domain.Dataset) error {
	seen := make(map[string]bool)
	frontier := []string{fmt.Sprint(key)}
	for len(frontier) > 0 {
		var changes []string
		for _, id := range frontier {
			for _, tr := range g.translators {
				rec, ident, err := tr.Translate(rc, row, key, id)
				if err != nil {
					return err
				}
				if rec == nil || seen[ident] {
					continue
				}
				if !g.keepAll && ident == id {
					continue
				}
				result.Add(rec)
				seen[ident] = true
				changes = append(changes, ident)
				g.Count(rc, CountCreated, 1)
			}
		}
		frontier = changes
	}
	return nil
}

// AncestorIdentifiers emits one identifier row per ancestor of each
// input row, walking ancestor links through a full reference table. Used
// when a source provides its history as a chain of superseded records. A
// link value seen twice on one walk is reported as a circular reference.
type AncestorIdentifiers struct {
	pipeline.Base
	input   *domain.Port
	full    *domain.Port
	output  *domain.Port
	errPort *domain.Port

	taxonKeys    domain.Keys
	ancestorKeys domain.Keys
	translator   *IdentifierTranslator
}

var _ pipeline.Node = (*AncestorIdentifiers)(nil)

// NewAncestorIdentifiers creates an ancestor walker. The taxon keys
// identify records in both ports; the ancestor keys are resolved against
// the full table's schema. Every visited ancestor is translated into an
// identifier row belonging to the walked input row's taxon.
func NewAncestorIdentifiers(
	id string,
	input, full *domain.Port,
	taxonKeys, ancestorKeys []string,
	translator *IdentifierTranslator,
	opts ...Option,
) (*AncestorIdentifiers, error) {
	cfg := newConfig(opts...)
	tk, err := domain.NewKeys(input.Schema(), taxonKeys...)
	if err != nil {
		return nil, err
	}
	ak, err := domain.NewKeys(full.Schema(), ancestorKeys...)
	if err != nil {
		return nil, err
	}
	a := &AncestorIdentifiers{
		Base:         pipeline.NewBase(id, cfg.node...),
		input:        input,
		full:         full,
		output:       domain.NewPort(schemas.Identifier()),
		errPort:      input.ErrorPort(),
		taxonKeys:    tk,
		ancestorKeys: ak,
		translator:   translator,
	}
	a.AddInput("input", input)
	a.AddInput("full", full)
	a.AddOutput("output", a.output)
	a.AddErrorOutput("error", a.errPort)
	return a, nil
}

// Output returns the port carrying ancestor identifier rows.
func (a *AncestorIdentifiers) Output() *domain.Port { return a.output }

// Errors returns the error port.
func (a *AncestorIdentifiers) Errors() *domain.Port { return a.errPort }

// Execute walks every input row's ancestor chain through the full table.
func (a *AncestorIdentifiers) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(a.input)
	if err != nil {
		return err
	}
	table, err := rc.Acquire(a.full)
	if err != nil {
		return err
	}
	ix, err := domain.NewIndex(table, a.taxonKeys, domain.UniqueIndex)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	for _, r := range data.Records() {
		ancestor := r
		trail := make(map[string]bool)
		for {
			kv := a.ancestorKeys.Get(ancestor)
			if a.ancestorKeys.IsNil(kv) {
				break
			}
			hash := domain.KeyHash(kv)
			if trail[hash] {
				a.Logger().Warnw("circular trail", "key", kv, "line", r.Line())
				errDS.Add(domain.NewErrorRecord(r, fmt.Sprintf("circular history reference at %v", kv)))
				a.Count(rc, pipeline.CountErrors, 1)
				break
			}
			trail[hash] = true
			ancestor = ix.FindKey(kv)
			if ancestor == nil {
				break
			}
			composed, _, err := a.translator.Translate(rc, ancestor, a.taxonKeys.Get(r), fmt.Sprint(a.taxonKeys.Get(ancestor)))
			if err != nil {
				if a.FailOnError() {
					return fmt.Errorf("%s at line %d: %w", a.ID(), r.Line(), err)
				}
				errDS.Add(domain.NewErrorRecord(r, err.Error()))
				a.Count(rc, pipeline.CountErrors, 1)
				break
			}
			if composed != nil {
				result.Add(composed)
			}
			a.Count(rc, pipeline.CountAccepted, 1)
		}
		a.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(a.output, result); err != nil {
		return err
	}
	return rc.Save(a.errPort, errDS)
}
