// Package domain defines the data model for the conversion engine:
// records, schemas, keys, ports, datasets, and indexes.
// The package carries no engine behavior; nodes and schedulers build on
// top of these types.
package domain

import "strings"

// Reserved field names stamped onto records by the engine rather than
// read from source data.
const (
	// LineField carries the source line number on error records.
	LineField = "_line"

	// MessagesField carries the joined failure messages on error records.
	MessagesField = "_messages"

	// IndexField carries the part position stamped by denormalisation.
	IndexField = "_index"

	// SignatureField carries the cluster signature on rejected cluster
	// members.
	SignatureField = "_cluster_signature"
)

// Record is a single row of data flowing through the engine.
// Field values are dynamically typed; a missing field and a nil value are
// equivalent. Records remember the source line they were read from so
// errors can point back at the input.
type Record struct {
	line   int
	fields map[string]any
	issues []string
}

// NewRecord creates a record for the given source line with the supplied
// field values. The map is used directly, not copied; callers that reuse
// maps should pass a fresh one.
func NewRecord(line int, fields map[string]any) *Record {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Record{line: line, fields: fields}
}

// Line returns the source line number this record was read from.
func (r *Record) Line() int { return r.line }

// Get returns the value of the named field, or nil when the field is
// absent.
func (r *Record) Get(name string) any { return r.fields[name] }

// GetString returns the named field as a string. Non-string and nil
// values return the empty string.
func (r *Record) GetString(name string) string {
	if s, ok := r.fields[name].(string); ok {
		return s
	}
	return ""
}

// Has reports whether the named field holds a non-nil value.
func (r *Record) Has(name string) bool { return r.fields[name] != nil }

// Set stores a value under the named field. Setting nil marks the field
// missing.
func (r *Record) Set(name string, value any) { r.fields[name] = value }

// Data returns the live field map. Mutating it mutates the record;
// transforms that must not alter their input work on a Copy.
func (r *Record) Data() map[string]any { return r.fields }

// Copy returns a record with the same line, an independent copy of the
// field map, and the same issues.
func (r *Record) Copy() *Record {
	fields := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		fields[k] = v
	}
	return &Record{line: r.line, fields: fields, issues: append([]string(nil), r.issues...)}
}

// Derive builds a record carrying this record's line and issues but an
// entirely new field map. Transforms use it when composing reshaped rows.
// The map is used directly, not copied.
func (r *Record) Derive(fields map[string]any) *Record {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Record{line: r.line, fields: fields, issues: append([]string(nil), r.issues...)}
}

// Mapped projects the record onto another schema: same-named fields are
// copied, fields the schema adds are nil, fields it lacks are dropped.
func (r *Record) Mapped(s *Schema) *Record {
	fields := make(map[string]any, s.Len())
	for _, name := range s.Names() {
		fields[name] = r.fields[name]
	}
	return &Record{line: r.line, fields: fields, issues: append([]string(nil), r.issues...)}
}

// Issue annotates the record with an advisory message. Issues travel with
// the record but are not data fields and are never exported by sinks.
func (r *Record) Issue(msg string) { r.issues = append(r.issues, msg) }

// Issues returns the advisory messages attached to this record.
func (r *Record) Issues() []string { return r.issues }

// NewErrorRecord builds the error-port representation of a failed record:
// a copy of its fields plus the source line under LineField and the
// record's issues followed by the failure messages, joined with ", ",
// under MessagesField.
func NewErrorRecord(r *Record, messages ...string) *Record {
	e := r.Copy()
	e.Set(LineField, r.Line())
	all := append(append([]string(nil), r.issues...), messages...)
	e.Set(MessagesField, strings.Join(all, ", "))
	return e
}
