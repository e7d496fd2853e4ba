package domain

import "fmt"

// Keys is an ordered subset of a schema's fields treated as a logical
// key. A single-field key reads and writes scalars; a composite key reads
// and writes []any with one component per field.
type Keys struct {
	schema *Schema
	fields []Field
}

// NewKeys resolves the named fields against the schema, in order.
// Every name must exist in the schema.
func NewKeys(schema *Schema, names ...string) (Keys, error) {
	if len(names) == 0 {
		return Keys{}, fmt.Errorf("%w: keys need at least one field", ErrUnknownField)
	}
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		f, ok := schema.Field(name)
		if !ok {
			return Keys{}, fmt.Errorf("%w %q in key", ErrUnknownField, name)
		}
		fields = append(fields, f)
	}
	return Keys{schema: schema, fields: fields}, nil
}

// MustKeys is NewKeys for statically known key fields; it panics when a
// field is missing from the schema.
func MustKeys(schema *Schema, names ...string) Keys {
	k, err := NewKeys(schema, names...)
	if err != nil {
		panic(err)
	}
	return k
}

// Fields returns the key's fields in order.
func (k Keys) Fields() []Field { return k.fields }

// Len returns the number of key fields.
func (k Keys) Len() int { return len(k.fields) }

// Get reads the key value from a record: the scalar field value for a
// single-field key, or a []any of components for a composite key.
// Missing fields read as nil components.
func (k Keys) Get(r *Record) any {
	if len(k.fields) == 1 {
		return r.Get(k.fields[0].Name())
	}
	parts := make([]any, len(k.fields))
	for i, f := range k.fields {
		parts[i] = r.Get(f.Name())
	}
	return parts
}

// Set writes a key value produced by Get back onto a record. Composite
// keys require a []any with one component per field; nil clears every
// key field.
func (k Keys) Set(r *Record, value any) error {
	if value == nil {
		for _, f := range k.fields {
			r.Set(f.Name(), nil)
		}
		return nil
	}
	if len(k.fields) == 1 {
		r.Set(k.fields[0].Name(), value)
		return nil
	}
	parts, ok := value.([]any)
	if !ok || len(parts) != len(k.fields) {
		return fmt.Errorf("%w: want %d components", ErrKeyArity, len(k.fields))
	}
	for i, f := range k.fields {
		r.Set(f.Name(), parts[i])
	}
	return nil
}

// IsNil reports whether a key value read by Get denotes a missing key:
// a nil scalar, or a composite whose components are all nil.
func (k Keys) IsNil(value any) bool {
	if value == nil {
		return true
	}
	parts, ok := value.([]any)
	if !ok {
		return false
	}
	for _, p := range parts {
		if p != nil {
			return false
		}
	}
	return true
}

// KeyMap aligns this key's values from a record to the target key's
// field names, producing a field→value map suitable for merging onto
// another record. The two keys must have the same arity. A nil record
// maps every target name to nil.
func (k Keys) KeyMap(r *Record, target Keys) (map[string]any, error) {
	if len(k.fields) != len(target.fields) {
		return nil, fmt.Errorf("%w: %d source fields, %d target fields",
			ErrKeyArity, len(k.fields), len(target.fields))
	}
	m := make(map[string]any, len(k.fields))
	for i, f := range k.fields {
		if r == nil {
			m[target.fields[i].Name()] = nil
			continue
		}
		m[target.fields[i].Name()] = r.Get(f.Name())
	}
	return m, nil
}
