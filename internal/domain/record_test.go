package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCopyIsIndependent(t *testing.T) {
	original := NewRecord(7, map[string]any{"name": "Acacia", "rank": "genus"})
	clone := original.Copy()

	clone.Set("name", "Banksia")
	clone.Set("extra", 1)

	assert.Equal(t, "Acacia", original.Get("name"))
	assert.Nil(t, original.Get("extra"))
	assert.Equal(t, 7, clone.Line())
}

func TestRecordMissingFieldReadsNil(t *testing.T) {
	r := NewRecord(1, map[string]any{"name": "Acacia"})

	assert.Nil(t, r.Get("rank"))
	assert.False(t, r.Has("rank"))
	assert.Equal(t, "", r.GetString("rank"))

	r.Set("rank", nil)
	assert.False(t, r.Has("rank"), "explicit nil is a missing value")
}

func TestRecordIssues(t *testing.T) {
	r := NewRecord(3, map[string]any{"name": "Acacia"})
	r.Issue("duplicate of line 1")
	r.Issue("rank missing")

	assert.Equal(t, []string{"duplicate of line 1", "rank missing"}, r.Issues())

	clone := r.Copy()
	assert.Equal(t, r.Issues(), clone.Issues(), "issues travel with copies")
	clone.Issue("extra")
	assert.Len(t, r.Issues(), 2, "copies accumulate issues independently")
}

func TestRecordMapped(t *testing.T) {
	r := NewRecord(5, map[string]any{"taxonID": "t1", "name": "Acacia", "rank": "genus"})
	target := MustSchema(StringField("taxonID"), StringField("name"), StringField("status"))

	m := r.Mapped(target)
	assert.Equal(t, "t1", m.Get("taxonID"))
	assert.Equal(t, "Acacia", m.Get("name"))
	assert.Nil(t, m.Get("status"), "fields the schema adds are nil")
	assert.Nil(t, m.Get("rank"), "fields the schema lacks are dropped")
	assert.Equal(t, 5, m.Line())
}

func TestNewErrorRecord(t *testing.T) {
	tests := []struct {
		name         string
		messages     []string
		wantMessages string
	}{
		{name: "single message", messages: []string{"no taxonID"}, wantMessages: "no taxonID"},
		{
			name:         "messages joined with comma",
			messages:     []string{"no taxonID", "missing parent x"},
			wantMessages: "no taxonID, missing parent x",
		},
		{name: "no messages", messages: nil, wantMessages: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecord(42, map[string]any{"taxonID": "t1"})
			e := NewErrorRecord(r, tt.messages...)

			require.NotSame(t, r, e)
			assert.Equal(t, "t1", e.Get("taxonID"), "original fields carried over")
			assert.Equal(t, 42, e.Get(LineField))
			assert.Equal(t, tt.wantMessages, e.Get(MessagesField))
		})
	}
}

func TestNewErrorRecordIncludesIssues(t *testing.T) {
	r := NewRecord(9, map[string]any{"taxonID": "t1"})
	r.Issue("unresolved parent nulled")

	e := NewErrorRecord(r, "no accepted taxon")
	assert.Equal(t, "unresolved parent nulled, no accepted taxon", e.Get(MessagesField))
}
