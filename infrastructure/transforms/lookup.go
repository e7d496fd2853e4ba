package transforms

import (
	"context"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Lookup joins an input dataset against a lookup table on key fields.
//
// Matched rows merge the lookup record's fields under the input record's
// (WithOverwrite flips the precedence); unmatched rows pass through
// unjoined unless WithRejectUnmatched drops them, and WithUnmatched
// captures them on their own port. The field selection options narrow
// and rename what each side contributes to the output.
type Lookup struct {
	pipeline.Base
	input      *domain.Port
	lookup     *domain.Port
	output     *domain.Port
	unmatched  *domain.Port
	errPort    *domain.Port
	inputKeys  domain.Keys
	lookupKeys domain.Keys
	inputMap   map[string]string
	lookupMap  map[string]string
	indexType  domain.IndexType
	dropMiss   bool
	merge      bool
	overwrite  bool
}

var _ pipeline.Node = (*Lookup)(nil)

// NewLookup creates a lookup joining input rows to lookup rows where the
// input keys equal the lookup keys.
func NewLookup(id string, input, lookup *domain.Port, inputKeys, lookupKeys []string, opts ...Option) (*Lookup, error) {
	return newLookup(id, input, lookup, inputKeys, lookupKeys, newConfig(opts...))
}

func newLookup(id string, input, lookup *domain.Port, inputKeys, lookupKeys []string, cfg *config) (*Lookup, error) {
	inMap, inSchema, err := buildFieldMap(input.Schema(), cfg.inputPick)
	if err != nil {
		return nil, err
	}
	var lkMap map[string]string
	outSchema := inSchema
	if !cfg.noMerge {
		var lkSchema *domain.Schema
		lkMap, lkSchema, err = buildFieldMap(lookup.Schema(), cfg.lookupPick)
		if err != nil {
			return nil, err
		}
		outSchema = inSchema.Merged(lkSchema)
	}
	ik, err := domain.NewKeys(input.Schema(), inputKeys...)
	if err != nil {
		return nil, err
	}
	lk, err := domain.NewKeys(lookup.Schema(), lookupKeys...)
	if err != nil {
		return nil, err
	}
	l := &Lookup{
		Base:       pipeline.NewBase(id, cfg.node...),
		input:      input,
		lookup:     lookup,
		output:     domain.NewPort(outSchema),
		errPort:    input.ErrorPort(),
		inputKeys:  ik,
		lookupKeys: lk,
		inputMap:   inMap,
		lookupMap:  lkMap,
		indexType:  cfg.indexType,
		dropMiss:   cfg.rejectUnmatched,
		merge:      !cfg.noMerge,
		overwrite:  cfg.overwrite,
	}
	if cfg.unmatched {
		l.unmatched = domain.NewPort(inSchema)
	}
	l.AddInput("input", input)
	l.AddInput("lookup", lookup)
	l.AddOutput("output", l.output)
	if l.unmatched != nil {
		l.AddOutput("unmatched", l.unmatched)
	}
	l.AddErrorOutput("error", l.errPort)
	return l, nil
}

// buildFieldMap resolves a pick against a schema into a rename map and
// the schema of what survives. An empty pick means pass-through: a nil
// map and the original schema. Explicit renames win over includes,
// includes override excludes, and the prefix renames everything else.
func buildFieldMap(schema *domain.Schema, p pick) (map[string]string, *domain.Schema, error) {
	if !p.set {
		return nil, schema, nil
	}
	remap := func(name string) string { return p.prefix + name }
	mapping := make(map[string]string, schema.Len())
	if p.rename == nil && p.include == nil && p.exclude == nil {
		for _, name := range schema.Names() {
			mapping[name] = remap(name)
		}
	}
	if p.exclude != nil {
		drop := make(map[string]bool, len(p.exclude))
		for _, name := range p.exclude {
			drop[name] = true
		}
		for _, name := range schema.Names() {
			if !drop[name] {
				mapping[name] = remap(name)
			}
		}
	}
	for _, name := range p.include {
		mapping[name] = remap(name)
	}
	for name, to := range p.rename {
		mapping[name] = to
	}
	fields := make([]domain.Field, 0, len(mapping))
	for _, f := range schema.Fields() {
		if to, ok := mapping[f.Name()]; ok {
			fields = append(fields, f.WithRename(to))
		}
	}
	out, err := domain.NewSchema(fields...)
	if err != nil {
		return nil, nil, err
	}
	return mapping, out, nil
}

// remapFields renames and filters a record's fields through a rename
// map. A nil map passes every field through under its own name. Nil
// values are dropped either way so merges never shadow real values with
// empty ones.
func remapFields(data map[string]any, m map[string]string) map[string]any {
	out := make(map[string]any, len(data))
	if m == nil {
		for k, v := range data {
			if v != nil {
				out[k] = v
			}
		}
		return out
	}
	for k, v := range data {
		if to, ok := m[k]; ok && v != nil {
			out[to] = v
		}
	}
	return out
}

// Output returns the joined output port.
func (l *Lookup) Output() *domain.Port { return l.output }

// Unmatched returns the unmatched port, or nil when not recorded.
func (l *Lookup) Unmatched() *domain.Port { return l.unmatched }

// Errors returns the error port.
func (l *Lookup) Errors() *domain.Port { return l.errPort }

// Execute indexes the lookup table and joins every input row against it.
func (l *Lookup) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(l.input)
	if err != nil {
		return err
	}
	table, err := rc.Acquire(l.lookup)
	if err != nil {
		return err
	}
	ix, err := domain.NewIndex(table, l.lookupKeys, l.indexType)
	if err != nil {
		return err
	}
	result := domain.NewDataset()
	var missing *domain.Dataset
	if l.unmatched != nil {
		missing = domain.NewDataset()
	}
	for _, r := range data.Records() {
		link := ix.Find(r, l.inputKeys)
		if link == nil {
			l.Count(rc, pipeline.CountUnmatched, 1)
			if missing != nil {
				missing.Add(r)
			}
		}
		if link != nil || !l.dropMiss {
			result.Add(l.composeRow(r, link))
			l.Count(rc, pipeline.CountAccepted, 1)
		}
		l.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(l.output, result); err != nil {
		return err
	}
	if err := rc.Save(l.errPort, domain.NewDataset()); err != nil {
		return err
	}
	if missing != nil {
		if err := rc.Save(l.unmatched, missing); err != nil {
			return err
		}
	}
	return nil
}

// composeRow joins one input row with its lookup partner, which may be
// nil. Input values win over lookup values for shared names unless the
// lookup was built with WithOverwrite.
func (l *Lookup) composeRow(r, link *domain.Record) *domain.Record {
	if (link == nil || !l.merge) && l.inputMap == nil {
		return r
	}
	if link == nil {
		return r.Derive(remapFields(r.Data(), l.inputMap))
	}
	inputData := remapFields(r.Data(), l.inputMap)
	lookupData := remapFields(link.Data(), l.lookupMap)
	first, second := lookupData, inputData
	if l.overwrite {
		first, second = inputData, lookupData
	}
	data := make(map[string]any, len(first)+len(second))
	for k, v := range first {
		data[k] = v
	}
	for k, v := range second {
		data[k] = v
	}
	return r.Derive(data)
}
