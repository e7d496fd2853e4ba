package transforms

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

var (
	hrefMarkup    = regexp.MustCompile(`^\s*<a [^>]*href\s*=\s*"([^"]*)"[^>]*>`)
	markupPattern = regexp.MustCompile(`<!--.*-->|<[^>]*>`)
	spacesPattern = regexp.MustCompile(`\s+`)
)

// Value copies the named field across unchanged.
func Value(name string) FieldFunc {
	return func(r *domain.Record, _ pipeline.RunContext) (any, error) {
		return r.Get(name), nil
	}
}

// Constant always produces the same value.
func Constant(v any) FieldFunc {
	return func(*domain.Record, pipeline.RunContext) (any, error) {
		return v, nil
	}
}

// UUID mints a fresh random identifier for every record.
func UUID() FieldFunc {
	return func(*domain.Record, pipeline.RunContext) (any, error) {
		return uuid.NewString(), nil
	}
}

// Lowercase produces the lowercase form of the named field, nil when the
// field is empty.
func Lowercase(name string) FieldFunc {
	return func(r *domain.Record, _ pipeline.RunContext) (any, error) {
		v := r.Get(name)
		if v == nil {
			return nil, nil
		}
		return strings.ToLower(fmt.Sprint(v)), nil
	}
}

// Capwords produces the named field with each whitespace-separated word
// title-cased, nil when the field is empty.
func Capwords(name string) FieldFunc {
	return func(r *domain.Record, _ pipeline.RunContext) (any, error) {
		v := r.Get(name)
		if v == nil {
			return nil, nil
		}
		words := strings.Fields(fmt.Sprint(v))
		if len(words) == 0 {
			return nil, nil
		}
		for i, w := range words {
			words[i] = cases.Title(language.Und).String(w)
		}
		return strings.Join(words, " "), nil
	}
}

// DefaultOf reads a configuration default from the run context, nil when
// no context on the chain defines it.
func DefaultOf(key string) FieldFunc {
	return func(_ *domain.Record, rc pipeline.RunContext) (any, error) {
		if v, ok := rc.GetDefault(key); ok {
			return v, nil
		}
		return nil, nil
	}
}

// OrDefault falls back to a configuration default when fn produces nil.
func OrDefault(fn FieldFunc, key string) FieldFunc {
	return func(r *domain.Record, rc pipeline.RunContext) (any, error) {
		v, err := fn(r, rc)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
		if d, ok := rc.GetDefault(key); ok {
			return d, nil
		}
		return nil, nil
	}
}

// ChooseOf produces the first non-nil value among the given functions,
// nil when none produce one.
func ChooseOf(fns ...FieldFunc) FieldFunc {
	return func(r *domain.Record, rc pipeline.RunContext) (any, error) {
		for _, fn := range fns {
			v, err := fn(r, rc)
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}
		}
		return nil, nil
	}
}

// DateParse parses the named string field with the given layouts, tried
// in order. Unparseable values map to nil rather than errors.
func DateParse(name string, layouts ...string) FieldFunc {
	return func(r *domain.Record, _ pipeline.RunContext) (any, error) {
		s, ok := r.Get(name).(string)
		if !ok {
			return nil, nil
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, nil
	}
}

// Choose returns the first value that is neither nil nor an empty
// string, or nil when there is none.
func Choose(values ...any) any {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return v
	}
	return nil
}

// GetOrDefault reads a record field, falling back to the context default
// under key when the field is empty.
func GetOrDefault(r *domain.Record, rc pipeline.RunContext, field, key string) any {
	if v := r.Get(field); v != nil {
		return v
	}
	if v, ok := rc.GetDefault(key); ok {
		return v
	}
	return nil
}

// NormalizeSpace trims a string and collapses internal whitespace runs
// to single spaces. Whitespace-only input collapses to the empty string.
func NormalizeSpace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return spacesPattern.ReplaceAllString(s, " ")
}

// StripMarkup removes HTML or XML markup from a string, unescapes the
// common entities, and normalizes whitespace.
func StripMarkup(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = markupPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return NormalizeSpace(s)
}

// ExtractHref pulls the href target out of a leading anchor tag,
// returning the input unchanged when there is none.
func ExtractHref(s string) string {
	if m := hrefMarkup.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// Similarity computes a normalized Levenshtein similarity between two
// strings: 1 for identical values, 0 for entirely different ones.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// FuzzySimilar builds a comparator reporting whether two strings reach
// the given similarity threshold. Cluster signatures use it to group
// near-identical names.
func FuzzySimilar(threshold float64) func(a, b string) bool {
	return func(a, b string) bool {
		return Similarity(a, b) >= threshold
	}
}
