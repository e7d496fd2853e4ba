package transforms

import (
	"context"
	"fmt"
	"strings"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// VariantFunc derives an alternative key value from an existing one. The
// value arrives trimmed; the empty string means no variant. Funcs see
// the originating record for context but must not mutate it.
type VariantFunc func(value string, r *domain.Record, rc pipeline.RunContext) (string, error)

// Variant generates alternative forms of a key field: for every input
// row each variant func may contribute a copy of the row with the key
// replaced by the variant. Only the variants are emitted, never the
// originals. Variants colliding with any input value or an earlier
// variant are rejected unless WithAllowDuplicates is set.
type Variant struct {
	pipeline.Base
	input    *domain.Port
	output   *domain.Port
	reject   *domain.Port
	errPort  *domain.Port
	keys     domain.Keys
	fns      []VariantFunc
	annotate func(variant string, r *domain.Record)
}

var _ pipeline.Node = (*Variant)(nil)

// NewVariant creates a variant generator over the named key field.
func NewVariant(id string, input *domain.Port, keyField string, fns []VariantFunc, opts ...Option) (*Variant, error) {
	keys, err := domain.NewKeys(input.Schema(), keyField)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(opts...)
	v := &Variant{
		Base:     pipeline.NewBase(id, cfg.node...),
		input:    input,
		output:   domain.NewPort(input.Schema()),
		errPort:  input.ErrorPort(),
		keys:     keys,
		fns:      fns,
		annotate: cfg.annotate,
	}
	if !cfg.allowDuplicates {
		v.reject = domain.NewPort(input.Schema())
	}
	v.AddInput("input", input)
	v.AddOutput("output", v.output)
	if v.reject != nil {
		v.AddOutput("reject", v.reject)
	}
	v.AddErrorOutput("error", v.errPort)
	return v, nil
}

// Output returns the port carrying generated variants.
func (v *Variant) Output() *domain.Port { return v.output }

// Rejects returns the duplicate-variant port, nil when duplicates are
// allowed.
func (v *Variant) Rejects() *domain.Port { return v.reject }

// Errors returns the error port.
func (v *Variant) Errors() *domain.Port { return v.errPort }

// Execute generates variants for every input row. The duplicate check is
// seeded with every input key value, so a variant reproducing an
// existing value counts as a duplicate.
func (v *Variant) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(v.input)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	var rejected *domain.Dataset
	var seen map[string]bool
	if v.reject != nil {
		rejected = domain.NewDataset()
		seen = make(map[string]bool, data.Len())
		for _, r := range data.Records() {
			seen[domain.KeyHash(v.keys.Get(r))] = true
		}
	}
	for _, r := range data.Records() {
		v.Count(rc, pipeline.CountProcessed, 1)
		value, _ := v.keys.Get(r).(string)
		value = strings.TrimSpace(value)
		for _, fn := range v.fns {
			variant, err := fn(value, r, rc)
			if err != nil {
				if v.FailOnError() {
					return fmt.Errorf("%s at line %d: %w", v.ID(), r.Line(), err)
				}
				errDS.Add(domain.NewErrorRecord(r, err.Error()))
				v.Count(rc, pipeline.CountErrors, 1)
				continue
			}
			if variant == "" {
				continue
			}
			vr := r.Copy()
			if v.annotate != nil {
				v.annotate(variant, vr)
			}
			if err := v.keys.Set(vr, variant); err != nil {
				return err
			}
			if seen != nil && seen[domain.KeyHash(variant)] {
				rejected.Add(vr)
				v.Count(rc, pipeline.CountRejected, 1)
				continue
			}
			if seen != nil {
				seen[domain.KeyHash(variant)] = true
			}
			result.Add(vr)
			v.Count(rc, pipeline.CountAccepted, 1)
		}
	}
	if err := rc.Save(v.output, result); err != nil {
		return err
	}
	if err := rc.Save(v.errPort, errDS); err != nil {
		return err
	}
	if rejected != nil {
		if err := rc.Save(v.reject, rejected); err != nil {
			return err
		}
	}
	return nil
}
