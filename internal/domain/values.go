package domain

import (
	"fmt"
	"time"
)

// Compare orders two dynamically typed field values. Nil sorts first,
// then values compare within their kind (numbers, strings, booleans,
// times); mixed kinds fall back to their printed form so sorting is
// total and deterministic.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if x, okA := numeric(a); okA {
		if y, okB := numeric(b); okB {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	if x, okA := a.(string); okA {
		if y, okB := b.(string); okB {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	if x, okA := a.(bool); okA {
		if y, okB := b.(bool); okB {
			switch {
			case !x && y:
				return -1
			case x && !y:
				return 1
			default:
				return 0
			}
		}
	}
	if x, okA := a.(time.Time); okA {
		if y, okB := b.(time.Time); okB {
			return x.Compare(y)
		}
	}
	xs, ys := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case xs < ys:
		return -1
	case xs > ys:
		return 1
	default:
		return 0
	}
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// CompareKeys orders two key values produced by Keys.Get, comparing
// composite components left to right.
func CompareKeys(a, b any) int {
	pa, okA := a.([]any)
	pb, okB := b.([]any)
	if okA && okB {
		for i := 0; i < len(pa) && i < len(pb); i++ {
			if c := Compare(pa[i], pb[i]); c != 0 {
				return c
			}
		}
		return len(pa) - len(pb)
	}
	return Compare(a, b)
}
