package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// IndexType selects how an index treats records sharing a key.
type IndexType int

const (
	// UniqueIndex requires every key to occur at most once; a duplicate
	// is a construction error.
	UniqueIndex IndexType = iota

	// FirstIndex keeps the first record seen for each key and ignores
	// later ones.
	FirstIndex

	// MultiIndex keeps every record for each key in insertion order.
	MultiIndex
)

// String returns the name of the index type.
func (t IndexType) String() string {
	switch t {
	case UniqueIndex:
		return "unique"
	case FirstIndex:
		return "first"
	case MultiIndex:
		return "multi"
	default:
		return fmt.Sprintf("indextype(%d)", int(t))
	}
}

// IndexOption configures index construction.
type IndexOption func(*Index)

// WithFold makes key comparison case-insensitive by Unicode case folding
// every string component.
func WithFold() IndexOption {
	return func(ix *Index) { ix.fold = true }
}

// Index provides key-based access to a dataset's records. It is built
// once over a dataset and is read-only afterwards.
type Index struct {
	keys  Keys
	typ   IndexType
	fold  bool
	byKey map[string][]*Record
}

// NewIndex builds an index over the dataset using the given keys and
// policy. A record whose key is nil fails the build, as does a duplicate
// key under UniqueIndex.
func NewIndex(ds *Dataset, keys Keys, typ IndexType, opts ...IndexOption) (*Index, error) {
	ix := &Index{keys: keys, typ: typ, byKey: make(map[string][]*Record, ds.Len())}
	for _, opt := range opts {
		opt(ix)
	}
	for _, r := range ds.Records() {
		value := keys.Get(r)
		if value == nil {
			return nil, fmt.Errorf("%w for record at line %d", ErrNoKey, r.Line())
		}
		hash := ix.hash(value)
		existing := ix.byKey[hash]
		switch ix.typ {
		case UniqueIndex:
			if existing != nil {
				return nil, fmt.Errorf("%w %v at line %d", ErrDuplicateKey, value, r.Line())
			}
			ix.byKey[hash] = []*Record{r}
		case FirstIndex:
			if existing == nil {
				ix.byKey[hash] = []*Record{r}
			}
		case MultiIndex:
			ix.byKey[hash] = append(existing, r)
		}
	}
	return ix, nil
}

// Keys returns the keys the index was built over.
func (ix *Index) Keys() Keys { return ix.keys }

// Len returns the number of distinct keys in the index.
func (ix *Index) Len() int { return len(ix.byKey) }

// Find probes the index with another record's key, read through the
// given keys. A nil key is a miss, never an error. Under MultiIndex the
// first record for the key is returned.
func (ix *Index) Find(r *Record, keys Keys) *Record {
	return ix.FindKey(keys.Get(r))
}

// FindAll probes like Find but returns every record for the key, in
// insertion order.
func (ix *Index) FindAll(r *Record, keys Keys) []*Record {
	return ix.FindAllKey(keys.Get(r))
}

// FindKey looks up a key value produced by Keys.Get. Nil keys miss.
func (ix *Index) FindKey(value any) *Record {
	rs := ix.FindAllKey(value)
	if len(rs) == 0 {
		return nil
	}
	return rs[0]
}

// FindAllKey looks up every record for a key value, in insertion order.
func (ix *Index) FindAllKey(value any) []*Record {
	if value == nil {
		return nil
	}
	return ix.byKey[ix.hash(value)]
}

// Contains reports whether the key value is present in the index.
func (ix *Index) Contains(value any) bool {
	return len(ix.FindAllKey(value)) > 0
}

func (ix *Index) hash(value any) string {
	return hashKey(value, ix.fold)
}

// KeyHash canonicalizes a key value produced by Keys.Get into a string
// usable as a map key, without case folding. Seen-sets and remapping
// tables use it so composite keys hash the same way indexes hash them.
func KeyHash(value any) string {
	return hashKey(value, false)
}

// hashKey encodes a key value. Components keep their dynamic type in the
// encoding so 1 and "1" stay distinct keys.
func hashKey(value any, fold bool) string {
	if parts, ok := value.([]any); ok {
		encoded := make([]string, len(parts))
		for i, p := range parts {
			encoded[i] = hashScalar(p, fold)
		}
		return strings.Join(encoded, "\x1f")
	}
	return hashScalar(value, fold)
}

func hashScalar(v any, fold bool) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case string:
		if fold {
			x = cases.Fold().String(x)
		}
		return "s:" + x
	case int:
		return fmt.Sprintf("i:%d", x)
	case int64:
		return fmt.Sprintf("i:%d", x)
	case float64:
		return fmt.Sprintf("f:%g", x)
	case bool:
		return fmt.Sprintf("b:%t", x)
	case time.Time:
		return "t:" + x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
