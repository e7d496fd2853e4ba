package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	may := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	june := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{name: "nil sorts first", a: nil, b: "x", want: -1},
		{name: "nil equals nil", a: nil, b: nil, want: 0},
		{name: "ints", a: 1, b: 2, want: -1},
		{name: "int against float", a: 2, b: 1.5, want: 1},
		{name: "strings", a: "Acacia", b: "Banksia", want: -1},
		{name: "equal strings", a: "Acacia", b: "Acacia", want: 0},
		{name: "bools", a: false, b: true, want: -1},
		{name: "times", a: may, b: june, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestCompareKeys(t *testing.T) {
	assert.Equal(t, 0, CompareKeys([]any{"a", 1}, []any{"a", 1}))
	assert.Equal(t, -1, CompareKeys([]any{"a", 1}, []any{"a", 2}))
	assert.Equal(t, 1, CompareKeys([]any{"b"}, []any{"a"}))
	assert.Equal(t, -1, CompareKeys("a", "b"), "scalars compare directly")
}
