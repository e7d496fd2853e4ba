package domain

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Type enumerates the value types a schema field can carry.
type Type int

const (
	// StringType holds free text.
	StringType Type = iota
	// IntegerType holds whole numbers.
	IntegerType
	// FloatType holds floating point numbers.
	FloatType
	// BooleanType holds true/false flags.
	BooleanType
	// DateType holds calendar dates without a time component.
	DateType
	// DateTimeType holds timestamps.
	DateTimeType
	// URIType holds absolute or relative URIs.
	URIType
	// UUIDType holds RFC 4122 identifiers in their text form.
	UUIDType
)

// String returns the lowercase name of the type, matching the names used
// in schema catalog files.
func (t Type) String() string {
	switch t {
	case StringType:
		return "string"
	case IntegerType:
		return "integer"
	case FloatType:
		return "float"
	case BooleanType:
		return "boolean"
	case DateType:
		return "date"
	case DateTimeType:
		return "datetime"
	case URIType:
		return "uri"
	case UUIDType:
		return "uuid"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType resolves a type name from a schema catalog to its Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "string":
		return StringType, nil
	case "integer", "int":
		return IntegerType, nil
	case "float", "number":
		return FloatType, nil
	case "boolean", "bool":
		return BooleanType, nil
	case "date":
		return DateType, nil
	case "datetime":
		return DateTimeType, nil
	case "uri":
		return URIType, nil
	case "uuid":
		return UUIDType, nil
	default:
		return StringType, fmt.Errorf("unknown field type %q", name)
	}
}

// Field describes a single column of a schema: its name, value type, the
// external column name it maps to, whether it is required for export, and
// the term URI it documents.
// Fields are values; the With* modifiers return updated copies so fields
// can be assembled fluently at construction time.
type Field struct {
	name    string
	typ     Type
	dataKey string
	export  bool
	uri     string
}

// StringField returns a string-typed field with the given name.
func StringField(name string) Field { return Field{name: name, typ: StringType} }

// IntegerField returns an integer-typed field with the given name.
func IntegerField(name string) Field { return Field{name: name, typ: IntegerType} }

// FloatField returns a float-typed field with the given name.
func FloatField(name string) Field { return Field{name: name, typ: FloatType} }

// BooleanField returns a boolean-typed field with the given name.
func BooleanField(name string) Field { return Field{name: name, typ: BooleanType} }

// DateField returns a date-typed field with the given name.
func DateField(name string) Field { return Field{name: name, typ: DateType} }

// DateTimeField returns a timestamp-typed field with the given name.
func DateTimeField(name string) Field { return Field{name: name, typ: DateTimeType} }

// URIField returns a URI-typed field with the given name.
func URIField(name string) Field { return Field{name: name, typ: URIType} }

// UUIDField returns a UUID-typed field with the given name.
func UUIDField(name string) Field { return Field{name: name, typ: UUIDType} }

// NewField returns a field with an explicit type, used by catalog loaders.
func NewField(name string, typ Type) Field { return Field{name: name, typ: typ} }

// WithDataKey sets the external column name the field reads from and
// writes to. Source and sink headers use the data key; the field name is
// what records and keys use internally.
func (f Field) WithDataKey(key string) Field {
	f.dataKey = key
	return f
}

// WithExport marks the field as required for export: sinks always emit
// the column even when every value is nil.
func (f Field) WithExport() Field {
	f.export = true
	return f
}

// WithURI attaches the vocabulary term URI the field represents.
func (f Field) WithURI(uri string) Field {
	f.uri = uri
	return f
}

// WithRename returns the field under a new name, keeping everything else.
func (f Field) WithRename(name string) Field {
	f.name = name
	return f
}

// Name returns the internal field name.
func (f Field) Name() string { return f.name }

// Type returns the field's value type.
func (f Field) Type() Type { return f.typ }

// DataKey returns the external column name, falling back to the field
// name when none was set.
func (f Field) DataKey() string {
	if f.dataKey != "" {
		return f.dataKey
	}
	return f.name
}

// Export reports whether the field is required for export.
func (f Field) Export() bool { return f.export }

// URI returns the term URI attached to the field, if any.
func (f Field) URI() string { return f.uri }

// Date layouts accepted by Deserialize, tried in order.
var (
	dateLayouts     = []string{"2006-01-02", "2006-01-02Z07:00", "02/01/2006"}
	dateTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}
)

// Deserialize converts the external text form of a value to its typed
// representation. The empty string deserializes to nil for every type:
// absent cells are missing values, not zero values.
func (f Field) Deserialize(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	switch f.typ {
	case StringType:
		return s, nil
	case IntegerType:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, NewConversionError(f.name, s, err)
		}
		return n, nil
	case FloatType:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, NewConversionError(f.name, s, err)
		}
		return x, nil
	case BooleanType:
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
		return nil, NewConversionError(f.name, s, fmt.Errorf("not a boolean"))
	case DateType:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, NewConversionError(f.name, s, fmt.Errorf("not a date"))
	case DateTimeType:
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, NewConversionError(f.name, s, fmt.Errorf("not a timestamp"))
	case URIType:
		if _, err := url.Parse(s); err != nil {
			return nil, NewConversionError(f.name, s, err)
		}
		return s, nil
	case UUIDType:
		return s, nil
	default:
		return s, nil
	}
}

// Serialize converts a typed value to its external text form. Nil
// serializes to the empty string.
func (f Field) Serialize(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	switch f.typ {
	case StringType, URIType, UUIDType:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case IntegerType:
		switch n := v.(type) {
		case int:
			return strconv.Itoa(n), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		case float64:
			return strconv.Itoa(int(n)), nil
		}
		return "", NewConversionError(f.name, v, ErrTypeMismatch)
	case FloatType:
		switch x := v.(type) {
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		case int:
			return strconv.Itoa(x), nil
		}
		return "", NewConversionError(f.name, v, ErrTypeMismatch)
	case BooleanType:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}
		return "", NewConversionError(f.name, v, ErrTypeMismatch)
	case DateType:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02"), nil
		}
		return "", NewConversionError(f.name, v, ErrTypeMismatch)
	case DateTimeType:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339), nil
		}
		return "", NewConversionError(f.name, v, ErrTypeMismatch)
	default:
		return fmt.Sprint(v), nil
	}
}

// Check verifies that a value's dynamic type matches the field's type.
// Nil is valid for every field: absent values are not type errors.
func (f Field) Check(v any) error {
	if v == nil {
		return nil
	}
	ok := false
	switch f.typ {
	case StringType, URIType, UUIDType:
		_, ok = v.(string)
	case IntegerType:
		switch v.(type) {
		case int, int64:
			ok = true
		}
	case FloatType:
		_, ok = v.(float64)
	case BooleanType:
		_, ok = v.(bool)
	case DateType, DateTimeType:
		_, ok = v.(time.Time)
	default:
		ok = true
	}
	if !ok {
		return NewConversionError(f.name, v, ErrTypeMismatch)
	}
	return nil
}

// Schema is an ordered collection of uniquely named fields. It describes
// the shape of the records a port carries and drives serialization at
// sources and sinks.
type Schema struct {
	fields []Field
	byName map[string]int
}

// NewSchema builds a schema from the fields in order, failing on
// duplicate field names.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{fields: make([]Field, 0, len(fields)), byName: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, ok := s.byName[f.name]; ok {
			return nil, fmt.Errorf("%w %q", ErrDuplicateField, f.name)
		}
		s.byName[f.name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema for statically known field lists; it panics on
// duplicates and is intended for package-level schema construction.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the schema's fields in declaration order.
func (s *Schema) Fields() []Field { return s.fields }

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema declares the named field.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// Merged returns the left-biased union of two schemas: all of s's fields
// followed by the fields of other that s does not declare.
func (s *Schema) Merged(other *Schema) *Schema {
	fields := make([]Field, 0, len(s.fields)+other.Len())
	fields = append(fields, s.fields...)
	for _, f := range other.fields {
		if !s.Has(f.name) {
			fields = append(fields, f)
		}
	}
	return MustSchema(fields...)
}

// Projected returns a schema holding the named fields in the given order.
func (s *Schema) Projected(names ...string) (*Schema, error) {
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		f, ok := s.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownField, name)
		}
		fields = append(fields, f)
	}
	return NewSchema(fields...)
}

// With returns a schema extended by the given fields. Fields the schema
// already declares are left in place.
func (s *Schema) With(fields ...Field) *Schema {
	extended := make([]Field, 0, len(s.fields)+len(fields))
	extended = append(extended, s.fields...)
	for _, f := range fields {
		if !s.Has(f.name) {
			extended = append(extended, f)
		}
	}
	return MustSchema(extended...)
}

// WithErrorFields returns the error-port shape of the schema: the same
// fields plus the source line and messages stamped on error records.
func (s *Schema) WithErrorFields() *Schema {
	return s.With(IntegerField(LineField), StringField(MessagesField))
}

// Validate checks a field map against the schema: every key must name a
// declared field and every value must match its field's type. All
// violations are reported, not just the first.
func (s *Schema) Validate(data map[string]any) error {
	var errs []error
	for _, f := range s.fields {
		v, ok := data[f.name]
		if !ok {
			continue
		}
		if err := f.Check(v); err != nil {
			errs = append(errs, err)
		}
	}
	unknown := make([]string, 0)
	for name := range data {
		if !s.Has(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownField, name))
	}
	return errors.Join(errs...)
}
