package dwc

import (
	"context"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// TaxonClean nulls out references that cannot be followed: a parent
// identifier absent from the dataset, an accepted identifier absent from
// the dataset, or an accepted identifier pointing at the row itself.
// Used after a filter has removed rows other rows still point at. Every
// row passes through; touched rows are counted as cleaned.
type TaxonClean struct {
	pipeline.Base
	input   *domain.Port
	output  *domain.Port
	errPort *domain.Port

	idKeys       domain.Keys
	parentKeys   domain.Keys
	acceptedKeys domain.Keys
}

var _ pipeline.Node = (*TaxonClean)(nil)

// NewTaxonClean creates a reference cleaner for the input port. The
// identifier, parent, and accepted fields default to the Darwin Core
// terms and must exist in the input schema.
func NewTaxonClean(id string, input *domain.Port, opts ...Option) (*TaxonClean, error) {
	cfg := newConfig(opts...)
	ik, err := domain.NewKeys(input.Schema(), cfg.idField)
	if err != nil {
		return nil, err
	}
	pk, err := domain.NewKeys(input.Schema(), cfg.parentField)
	if err != nil {
		return nil, err
	}
	ak, err := domain.NewKeys(input.Schema(), cfg.acceptedField)
	if err != nil {
		return nil, err
	}
	c := &TaxonClean{
		Base:         pipeline.NewBase(id, cfg.node...),
		input:        input,
		output:       domain.NewPort(input.Schema()),
		errPort:      input.ErrorPort(),
		idKeys:       ik,
		parentKeys:   pk,
		acceptedKeys: ak,
	}
	c.AddInput("input", input)
	c.AddOutput("output", c.output)
	c.AddErrorOutput("error", c.errPort)
	return c, nil
}

// Output returns the port carrying the cleaned dataset.
func (c *TaxonClean) Output() *domain.Port { return c.output }

// Errors returns the error port.
func (c *TaxonClean) Errors() *domain.Port { return c.errPort }

// Execute clears unresolvable references on a copy of each affected row.
// Parent and accepted references are cleared independently, so a row can
// lose both in one pass.
func (c *TaxonClean) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(c.input)
	if err != nil {
		return err
	}
	present := make(map[string]bool, data.Len())
	for _, r := range data.Records() {
		if kv := c.idKeys.Get(r); kv != nil {
			present[domain.KeyHash(kv)] = true
		}
	}

	result := domain.NewDataset()
	for _, r := range data.Records() {
		var cleaned *domain.Record
		copyOnce := func() *domain.Record {
			if cleaned == nil {
				cleaned = r.Copy()
			}
			return cleaned
		}
		if parent := c.parentKeys.Get(r); parent != nil && !present[domain.KeyHash(parent)] {
			_ = c.parentKeys.Set(copyOnce(), nil)
		}
		if accepted := c.acceptedKeys.Get(r); accepted != nil {
			hash := domain.KeyHash(accepted)
			own := c.idKeys.Get(r)
			if !present[hash] || (own != nil && hash == domain.KeyHash(own)) {
				_ = c.acceptedKeys.Set(copyOnce(), nil)
			}
		}
		if cleaned != nil {
			c.Count(rc, pipeline.CountCleaned, 1)
			result.Add(cleaned)
		} else {
			result.Add(r)
		}
		c.Count(rc, pipeline.CountAccepted, 1)
		c.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(c.output, result); err != nil {
		return err
	}
	return rc.Save(c.errPort, domain.NewDataset())
}
