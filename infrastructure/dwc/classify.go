package dwc

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// classificationFields maps a rank to the field carrying that rank's
// name in a Darwin-Core-shaped row.
var classificationFields = map[string]string{
	"kingdom":    "kingdom",
	"phylum":     "phylum",
	"subphylum":  "subphylum",
	"class":      "class_",
	"subclass":   "subclass",
	"order":      "order",
	"suborder":   "suborder",
	"infraorder": "infraorder",
	"family":     "family",
}

// ClassificationFill fills empty classification fields (kingdom through
// family) from a row's ancestry: the walk follows each record's accepted
// link, then its parent link, copying ancestor names into whichever rank
// fields the row has not set itself. Ranks whose field is absent from
// the input schema are skipped. A cycle in the ancestry yields one error
// record and a partially filled row.
type ClassificationFill struct {
	pipeline.Base
	input   *domain.Port
	output  *domain.Port
	errPort *domain.Port

	idKeys       domain.Keys
	parentKeys   domain.Keys
	acceptedKeys domain.Keys
	nameKeys     domain.Keys
	rankKeys     domain.Keys
}

var _ pipeline.Node = (*ClassificationFill)(nil)

// NewClassificationFill creates a classification filler for the input
// port. The identifier, parent, accepted, name, and rank fields default
// to the Darwin Core terms and must exist in the input schema.
func NewClassificationFill(id string, input *domain.Port, opts ...Option) (*ClassificationFill, error) {
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
	nk, err := domain.NewKeys(input.Schema(), cfg.nameField)
	if err != nil {
		return nil, err
	}
	rk, err := domain.NewKeys(input.Schema(), cfg.rankField)
	if err != nil {
		return nil, err
	}
	f := &ClassificationFill{
		Base:         pipeline.NewBase(id, cfg.node...),
		input:        input,
		output:       domain.NewPort(input.Schema()),
		errPort:      input.ErrorPort(),
		idKeys:       ik,
		parentKeys:   pk,
		acceptedKeys: ak,
		nameKeys:     nk,
		rankKeys:     rk,
	}
	f.AddInput("input", input)
	f.AddOutput("output", f.output)
	f.AddErrorOutput("error", f.errPort)
	return f, nil
}

// Output returns the port carrying filled rows.
func (f *ClassificationFill) Output() *domain.Port { return f.output }

// Errors returns the error port.
func (f *ClassificationFill) Errors() *domain.Port { return f.errPort }

// Execute fills every row's classification from its ancestry.
func (f *ClassificationFill) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(f.input)
	if err != nil {
		return err
	}
	ix, err := domain.NewIndex(data, f.idKeys, domain.FirstIndex)
	if err != nil {
		return err
	}
	schema := f.input.Schema()
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	for _, r := range data.Records() {
		fields := make(map[string]any, len(r.Data()))
		for k, v := range r.Data() {
			fields[k] = v
		}
		current := r
		seen := make(map[string]bool)
		for current != nil {
			if accepted := ix.Find(current, f.acceptedKeys); accepted != nil {
				current = accepted
			}
			hash := domain.KeyHash(f.idKeys.Get(current))
			if seen[hash] {
				f.Logger().Warnw("circular ancestry", "key", f.idKeys.Get(current), "line", r.Line())
				errDS.Add(domain.NewErrorRecord(r, fmt.Sprintf("circular ancestry at %v", f.idKeys.Get(current))))
				f.Count(rc, pipeline.CountErrors, 1)
				break
			}
			seen[hash] = true
			if rank, ok := f.rankKeys.Get(current).(string); ok {
				if field, ok := classificationFields[rank]; ok && schema.Has(field) && fields[field] == nil {
					fields[field] = f.nameKeys.Get(current)
				}
			}
			current = ix.Find(current, f.parentKeys)
		}
		result.Add(r.Derive(fields))
		f.Count(rc, pipeline.CountAccepted, 1)
		f.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(f.output, result); err != nil {
		return err
	}
	return rc.Save(f.errPort, errDS)
}
