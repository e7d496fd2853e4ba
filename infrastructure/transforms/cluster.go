package transforms

import (
	"context"
	"fmt"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// SignatureFunc computes the grouping signature for a record. Records
// sharing a signature form one cluster.
type SignatureFunc func(r *domain.Record) (string, error)

// SelectFunc chooses the surviving members of a cluster. It must return
// at least one of the given records; returning fewer than it was given
// rejects the rest.
type SelectFunc func(signature string, cluster []*domain.Record) []*domain.Record

// Cluster groups rows by signature and keeps the members a selector
// picks. Rejected members land on the reject port stamped with their
// signature, and rows referencing a rejected member through parent or
// accepted fields are rewritten to reference the cluster's surviving
// representative.
type Cluster struct {
	pipeline.Base
	input     *domain.Port
	output    *domain.Port
	reject    *domain.Port
	errPort   *domain.Port
	signature SignatureFunc
	selector  SelectFunc
	idKeys    domain.Keys
	parents   domain.Keys
	accepted  domain.Keys
}

var _ pipeline.Node = (*Cluster)(nil)

// NewCluster creates a clusterer with the given signature and selector.
// WithIdentifierField enables reference remapping; WithParentField and
// WithAcceptedField name the reference fields to rewrite and require an
// identifier. WithRejects records rejected members and also requires an
// identifier.
func NewCluster(id string, input *domain.Port, sig SignatureFunc, sel SelectFunc, opts ...Option) (*Cluster, error) {
	cfg := newConfig(opts...)
	c := &Cluster{
		Base:      pipeline.NewBase(id, cfg.node...),
		input:     input,
		output:    domain.NewPort(input.Schema()),
		errPort:   input.ErrorPort(),
		signature: sig,
		selector:  sel,
	}
	var err error
	if cfg.identifier != "" {
		if c.idKeys, err = domain.NewKeys(input.Schema(), cfg.identifier); err != nil {
			return nil, err
		}
	}
	if cfg.parentField != "" {
		if c.parents, err = domain.NewKeys(input.Schema(), cfg.parentField); err != nil {
			return nil, err
		}
	}
	if cfg.acceptedField != "" {
		if c.accepted, err = domain.NewKeys(input.Schema(), cfg.acceptedField); err != nil {
			return nil, err
		}
	}
	if (cfg.rejects || cfg.parentField != "" || cfg.acceptedField != "") && cfg.identifier == "" {
		return nil, fmt.Errorf("cluster %s: rejects and reference rewriting need an identifier field", id)
	}
	if cfg.rejects {
		c.reject = domain.NewPort(input.Schema().With(domain.StringField(domain.SignatureField)))
	}
	c.AddInput("input", input)
	c.AddOutput("output", c.output)
	if c.reject != nil {
		c.AddOutput("reject", c.reject)
	}
	c.AddErrorOutput("error", c.errPort)
	return c, nil
}

// Output returns the port carrying surviving rows.
func (c *Cluster) Output() *domain.Port { return c.output }

// Rejects returns the rejected-member port, or nil when not recorded.
func (c *Cluster) Rejects() *domain.Port { return c.reject }

// Errors returns the error port.
func (c *Cluster) Errors() *domain.Port { return c.errPort }

// Execute clusters the input and emits the selected survivors. A
// survivor referencing an identifier missing from the remap table is a
// node failure: it means the graph lost track of a row it still points
// at.
func (c *Cluster) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(c.input)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	errDS := domain.NewDataset()
	var rejected *domain.Dataset
	if c.reject != nil {
		rejected = domain.NewDataset()
	}

	// Pass 1: group rows by signature, keeping first-seen order.
	order := make([]string, 0)
	clusters := make(map[string][]*domain.Record)
	for _, r := range data.Records() {
		sig, err := c.signature(r)
		if err != nil {
			if c.FailOnError() {
				return fmt.Errorf("%s at line %d: %w", c.ID(), r.Line(), err)
			}
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			c.Count(rc, pipeline.CountErrors, 1)
			c.Count(rc, pipeline.CountProcessed, 1)
			continue
		}
		if _, ok := clusters[sig]; !ok {
			order = append(order, sig)
		}
		clusters[sig] = append(clusters[sig], r)
		c.Count(rc, pipeline.CountProcessed, 1)
	}

	// Pass 2: select survivors and build the identifier remap.
	used := make([]*domain.Record, 0, data.Len())
	remap := make(map[string]any)
	for _, sig := range order {
		all := clusters[sig]
		cluster := all
		if c.selector != nil {
			cluster = c.selector(sig, all)
		}
		if len(cluster) == 0 {
			return fmt.Errorf("%s: selector kept nothing for signature %q", c.ID(), sig)
		}
		kept := make(map[*domain.Record]bool, len(cluster))
		for _, r := range cluster {
			kept[r] = true
			if c.idKeys.Len() > 0 {
				id := c.idKeys.Get(r)
				remap[domain.KeyHash(id)] = id
			}
			used = append(used, r)
			c.Count(rc, pipeline.CountAccepted, 1)
		}
		if rejected == nil || len(cluster) == len(all) {
			continue
		}
		winner := c.idKeys.Get(cluster[0])
		for _, r := range all {
			if kept[r] {
				continue
			}
			reject := r.Copy()
			reject.Set(domain.SignatureField, sig)
			remap[domain.KeyHash(c.idKeys.Get(r))] = winner
			rejected.Add(reject)
			c.Count(rc, pipeline.CountRejected, 1)
		}
	}

	// Pass 3: rewrite parent and accepted references onto survivors.
	for _, r := range used {
		if c.parents.Len() == 0 && c.accepted.Len() == 0 {
			result.Add(r)
			continue
		}
		out := r.Copy()
		if err := c.rewrite(out, c.parents, remap); err != nil {
			return fmt.Errorf("%s: %w", c.ID(), err)
		}
		if err := c.rewrite(out, c.accepted, remap); err != nil {
			return fmt.Errorf("%s: %w", c.ID(), err)
		}
		result.Add(out)
	}

	if err := rc.Save(c.output, result); err != nil {
		return err
	}
	if err := rc.Save(c.errPort, errDS); err != nil {
		return err
	}
	if rejected != nil {
		if err := rc.Save(c.reject, rejected); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cluster) rewrite(r *domain.Record, keys domain.Keys, remap map[string]any) error {
	if keys.Len() == 0 {
		return nil
	}
	ref := keys.Get(r)
	if keys.IsNil(ref) {
		return nil
	}
	mapped, ok := remap[domain.KeyHash(ref)]
	if !ok {
		return fmt.Errorf("reference %v not found in cluster remap", ref)
	}
	return keys.Set(r, mapped)
}
