package transforms

import (
	"context"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Accept filters rows by membership in a value set carried on a second
// port: a row passes when its key appears among the values. WithExclude
// inverts the test and WithCaseInsensitive folds case while matching.
type Accept struct {
	pipeline.Base
	input     *domain.Port
	values    *domain.Port
	output    *domain.Port
	reject    *domain.Port
	errPort   *domain.Port
	inputKeys domain.Keys
	valueKeys domain.Keys
	exclude   bool
	fold      bool
}

var _ pipeline.Node = (*Accept)(nil)

// NewAccept creates a membership filter matching the input keys against
// the value keys.
func NewAccept(id string, input, values *domain.Port, inputKeys, valueKeys []string, opts ...Option) (*Accept, error) {
	ik, err := domain.NewKeys(input.Schema(), inputKeys...)
	if err != nil {
		return nil, err
	}
	vk, err := domain.NewKeys(values.Schema(), valueKeys...)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(opts...)
	a := &Accept{
		Base:      pipeline.NewBase(id, cfg.node...),
		input:     input,
		values:    values,
		output:    domain.NewPort(input.Schema()),
		errPort:   input.ErrorPort(),
		inputKeys: ik,
		valueKeys: vk,
		exclude:   cfg.exclude,
		fold:      cfg.fold,
	}
	if cfg.rejects {
		a.reject = domain.NewPort(input.Schema())
	}
	a.AddInput("input", input)
	a.AddInput("values", values)
	a.AddOutput("output", a.output)
	if a.reject != nil {
		a.AddOutput("reject", a.reject)
	}
	a.AddErrorOutput("error", a.errPort)
	return a, nil
}

// Output returns the port carrying accepted rows.
func (a *Accept) Output() *domain.Port { return a.output }

// Rejects returns the reject port, or nil when rejects are not recorded.
func (a *Accept) Rejects() *domain.Port { return a.reject }

// Execute indexes the value set and tests every input row against it.
func (a *Accept) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(a.input)
	if err != nil {
		return err
	}
	values, err := rc.Acquire(a.values)
	if err != nil {
		return err
	}
	var ixOpts []domain.IndexOption
	if a.fold {
		ixOpts = append(ixOpts, domain.WithFold())
	}
	ix, err := domain.NewIndex(values, a.valueKeys, domain.FirstIndex, ixOpts...)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	var rejected *domain.Dataset
	if a.reject != nil {
		rejected = domain.NewDataset()
	}
	for _, r := range data.Records() {
		found := ix.Find(r, a.inputKeys) != nil
		if found != a.exclude {
			result.Add(r)
			a.Count(rc, pipeline.CountAccepted, 1)
		} else if rejected != nil {
			rejected.Add(r)
			a.Count(rc, pipeline.CountRejected, 1)
		}
		a.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(a.output, result); err != nil {
		return err
	}
	if err := rc.Save(a.errPort, domain.NewDataset()); err != nil {
		return err
	}
	if rejected != nil {
		if err := rc.Save(a.reject, rejected); err != nil {
			return err
		}
	}
	return nil
}
