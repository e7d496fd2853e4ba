package transforms

import (
	"context"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Deduplicate removes rows repeating an earlier row's key. The first row
// for each key wins; later ones land on the reject port with the
// duplicate counter ticking.
type Deduplicate struct {
	pipeline.Base
	input   *domain.Port
	output  *domain.Port
	reject  *domain.Port
	errPort *domain.Port
	keys    domain.Keys
}

var _ pipeline.Node = (*Deduplicate)(nil)

// NewDeduplicate creates a deduplicator on the named key fields.
func NewDeduplicate(id string, input *domain.Port, keyFields []string, opts ...Option) (*Deduplicate, error) {
	keys, err := domain.NewKeys(input.Schema(), keyFields...)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(opts...)
	d := &Deduplicate{
		Base:    pipeline.NewBase(id, cfg.node...),
		input:   input,
		output:  domain.NewPort(input.Schema()),
		reject:  domain.NewPort(input.Schema()),
		errPort: input.ErrorPort(),
		keys:    keys,
	}
	d.AddInput("input", input)
	d.AddOutput("output", d.output)
	d.AddOutput("reject", d.reject)
	d.AddErrorOutput("error", d.errPort)
	return d, nil
}

// Output returns the port carrying the first row per key.
func (d *Deduplicate) Output() *domain.Port { return d.output }

// Rejects returns the port carrying the later duplicates.
func (d *Deduplicate) Rejects() *domain.Port { return d.reject }

// Errors returns the error port.
func (d *Deduplicate) Errors() *domain.Port { return d.errPort }

// Execute partitions the input into first-seen rows and duplicates.
func (d *Deduplicate) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(d.input)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	duplicates := domain.NewDataset()
	seen := make(map[string]bool, data.Len())
	for _, r := range data.Records() {
		d.Count(rc, pipeline.CountProcessed, 1)
		key := domain.KeyHash(d.keys.Get(r))
		if seen[key] {
			duplicates.Add(r)
			d.Count(rc, pipeline.CountDuplicate, 1)
			continue
		}
		seen[key] = true
		result.Add(r)
		d.Count(rc, pipeline.CountAccepted, 1)
	}
	if err := rc.Save(d.output, result); err != nil {
		return err
	}
	if err := rc.Save(d.reject, duplicates); err != nil {
		return err
	}
	return rc.Save(d.errPort, domain.NewDataset())
}
