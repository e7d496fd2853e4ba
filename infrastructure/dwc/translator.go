package dwc

import (
	"fmt"
	"regexp"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// TranslateFunc derives a new identifier from an existing one. Returning
// an empty string means the translation does not apply to this
// identifier.
type TranslateFunc func(rc pipeline.RunContext, r *domain.Record, identifier string) (string, error)

// ValueFunc supplies one column of a generated identifier row. The
// identifier argument is the freshly derived identifier.
type ValueFunc func(rc pipeline.RunContext, r *domain.Record, identifier string) (any, error)

// IdentifierTranslator turns a taxon identifier into an identifier row:
// the derived identifier plus status, datasetID, title, format, source,
// and provenance columns, each supplied by a ValueFunc.
type IdentifierTranslator struct {
	identifier TranslateFunc
	status     ValueFunc
	datasetID  ValueFunc
	title      ValueFunc
	format     ValueFunc
	source     ValueFunc
	provenance ValueFunc
}

// TranslatorOption sets one column of a translator. Column values accept
// nil to leave the column empty, a constant string, or a ValueFunc.
type TranslatorOption func(t *IdentifierTranslator) error

// WithStatus sets the status column. Defaults to "variant" for plain
// translators and "alternative" for regex translators.
func WithStatus(v any) TranslatorOption {
	return func(t *IdentifierTranslator) error { return setColumn(&t.status, "status", v) }
}

// WithDatasetID sets the datasetID column. The default reads the
// datasetID configuration default from the run context.
func WithDatasetID(v any) TranslatorOption {
	return func(t *IdentifierTranslator) error { return setColumn(&t.datasetID, "datasetID", v) }
}

// WithTitle sets the title column.
func WithTitle(v any) TranslatorOption {
	return func(t *IdentifierTranslator) error { return setColumn(&t.title, "title", v) }
}

// WithFormat sets the format column.
func WithFormat(v any) TranslatorOption {
	return func(t *IdentifierTranslator) error { return setColumn(&t.format, "format", v) }
}

// WithSource sets the source column.
func WithSource(v any) TranslatorOption {
	return func(t *IdentifierTranslator) error { return setColumn(&t.source, "source", v) }
}

// WithProvenance sets the provenance column.
func WithProvenance(v any) TranslatorOption {
	return func(t *IdentifierTranslator) error { return setColumn(&t.provenance, "provenance", v) }
}

func setColumn(slot *ValueFunc, name string, v any) error {
	fn, err := valueFn(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*slot = fn
	return nil
}

func valueFn(v any) (ValueFunc, error) {
	switch x := v.(type) {
	case nil:
		return nilValue, nil
	case string:
		return func(pipeline.RunContext, *domain.Record, string) (any, error) { return x, nil }, nil
	case ValueFunc:
		return x, nil
	case func(pipeline.RunContext, *domain.Record, string) (any, error):
		return x, nil
	default:
		return nil, fmt.Errorf("column must be nil, a string, or a ValueFunc, got %T", v)
	}
}

func nilValue(pipeline.RunContext, *domain.Record, string) (any, error) {
	return nil, nil
}

func defaultDatasetID(rc pipeline.RunContext, _ *domain.Record, _ string) (any, error) {
	if v, ok := rc.GetDefault("datasetID"); ok {
		return v, nil
	}
	return nil, nil
}

// NewIdentifierTranslator creates a translator around the given
// derivation. Status defaults to "variant" and datasetID to the run
// context's datasetID default; other columns default to empty.
func NewIdentifierTranslator(translate TranslateFunc, opts ...TranslatorOption) (*IdentifierTranslator, error) {
	t := &IdentifierTranslator{
		identifier: translate,
		status:     func(pipeline.RunContext, *domain.Record, string) (any, error) { return "variant", nil },
		datasetID:  defaultDatasetID,
		title:      nilValue,
		format:     nilValue,
		source:     nilValue,
		provenance: nilValue,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NewRegexTranslator creates a translator substituting a regular
// expression match in the identifier. An identifier the pattern does not
// match translates to itself, which generator nodes drop as a no-op
// unless built with WithKeepAll. Status defaults to "alternative".
func NewRegexTranslator(pattern, replace string, opts ...TranslatorOption) (*IdentifierTranslator, error) {
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	translate := func(_ pipeline.RunContext, _ *domain.Record, identifier string) (string, error) {
		return rx.ReplaceAllString(identifier, replace), nil
	}
	status := TranslatorOption(func(t *IdentifierTranslator) error {
		return setColumn(&t.status, "status", "alternative")
	})
	return NewIdentifierTranslator(translate, append([]TranslatorOption{status}, opts...)...)
}

// Translate derives an identifier row for the record. The key is the
// taxon identifier the row belongs to; the returned string is the
// derived identifier, empty when the translation does not apply.
func (t *IdentifierTranslator) Translate(rc pipeline.RunContext, r *domain.Record, key any, identifier string) (*domain.Record, string, error) {
	id, err := t.identifier(rc, r, identifier)
	if err != nil {
		return nil, "", err
	}
	if id == "" {
		return nil, "", nil
	}
	data := map[string]any{
		"taxonID":    fmt.Sprint(key),
		"identifier": id,
	}
	columns := []struct {
		name string
		fn   ValueFunc
	}{
		{"status", t.status},
		{"datasetID", t.datasetID},
		{"title", t.title},
		{"format", t.format},
		{"source", t.source},
		{"provenance", t.provenance},
	}
	for _, col := range columns {
		v, err := col.fn(rc, r, id)
		if err != nil {
			return nil, "", err
		}
		data[col.name] = v
	}
	return r.Derive(data), id, nil
}
