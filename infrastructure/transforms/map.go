package transforms

import (
	"fmt"
	"sort"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// FieldFunc computes one output field value from a record. Returning nil
// leaves the field empty; an error routes the whole row to the error
// port.
type FieldFunc func(r *domain.Record, rc pipeline.RunContext) (any, error)

// NewMap creates a transform mapping records of one schema onto another.
//
// Each entry in fields produces one output field. A string value names
// an input field whose value is copied across, converting between the
// field types where they differ. Any other value must be a FieldFunc.
// With WithAuto, identically named fields map themselves and entries in
// fields override.
//
// A nil output schema derives one from the input and the mapping:
// mapped input fields keep their definition, unknown names become
// string fields.
//
// Every composed row is checked against the output schema; a violation
// becomes an error record, not a node failure.
func NewMap(id string, input *domain.Port, output *domain.Schema, fields map[string]any, opts ...Option) (*Through, error) {
	cfg := newConfig(opts...)
	if output == nil {
		output = buildMapSchema(input.Schema(), fields, cfg.auto)
	}
	resolved, err := resolveMappings(input.Schema(), output, fields, cfg.auto)
	if err != nil {
		return nil, err
	}
	compose := func(r *domain.Record, rc pipeline.RunContext) (*domain.Record, error) {
		data := make(map[string]any, len(resolved))
		for name, fn := range resolved {
			v, err := fn(r, rc)
			if err != nil {
				return nil, err
			}
			data[name] = v
		}
		if err := output.Validate(data); err != nil {
			return nil, err
		}
		return r.Derive(data), nil
	}
	return newThrough(id, input, output, compose, cfg), nil
}

func resolveMappings(input, output *domain.Schema, fields map[string]any, auto bool) (map[string]FieldFunc, error) {
	resolved := make(map[string]FieldFunc, len(fields))
	if auto {
		for _, of := range output.Fields() {
			inf, ok := input.Field(of.Name())
			if !ok {
				continue
			}
			if inf.Type() == of.Type() {
				resolved[of.Name()] = Value(of.Name())
			} else {
				resolved[of.Name()] = converted(inf, of, of.Name())
			}
		}
	}
	for name, mapping := range fields {
		of, ok := output.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w %q in output schema", domain.ErrUnknownField, name)
		}
		switch m := mapping.(type) {
		case string:
			inf, ok := input.Field(m)
			if !ok {
				return nil, fmt.Errorf("%w %q in input schema", domain.ErrUnknownField, m)
			}
			resolved[name] = converted(inf, of, m)
		case FieldFunc:
			resolved[name] = m
		case func(*domain.Record, pipeline.RunContext) (any, error):
			resolved[name] = m
		default:
			return nil, fmt.Errorf("mapping for %q must be a field name or FieldFunc, got %T", name, mapping)
		}
	}
	return resolved, nil
}

// converted copies the named field across a type boundary by
// serializing with the input field and deserializing with the output
// field. Same-typed fields copy directly.
func converted(in, out domain.Field, name string) FieldFunc {
	return func(r *domain.Record, _ pipeline.RunContext) (any, error) {
		v := r.Get(name)
		if v == nil {
			return nil, nil
		}
		if in.Type() == out.Type() {
			return v, nil
		}
		s, err := in.Serialize(v)
		if err != nil {
			return nil, err
		}
		return out.Deserialize(s)
	}
}

func buildMapSchema(input *domain.Schema, fields map[string]any, auto bool) *domain.Schema {
	out := make([]domain.Field, 0, input.Len()+len(fields))
	seen := make(map[string]bool, input.Len())
	if auto {
		for _, f := range input.Fields() {
			out = append(out, f)
			seen[f.Name()] = true
		}
	}
	extra := make([]string, 0, len(fields))
	for name := range fields {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		if f, ok := input.Field(name); ok {
			out = append(out, f)
		} else {
			out = append(out, domain.StringField(name))
		}
	}
	return domain.MustSchema(out...)
}
