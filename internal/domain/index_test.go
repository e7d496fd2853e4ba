package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexTestData() (*Schema, *Dataset) {
	s := MustSchema(StringField("taxonID"), StringField("scientificName"))
	ds := NewDataset(
		NewRecord(1, map[string]any{"taxonID": "t1", "scientificName": "Acacia"}),
		NewRecord(2, map[string]any{"taxonID": "t2", "scientificName": "Banksia"}),
		NewRecord(3, map[string]any{"taxonID": "t3", "scientificName": "Acacia"}),
	)
	return s, ds
}

func TestIndexPolicies(t *testing.T) {
	s, ds := indexTestData()
	byName := MustKeys(s, "scientificName")

	t.Run("unique rejects duplicates", func(t *testing.T) {
		_, err := NewIndex(ds, byName, UniqueIndex)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("unique over distinct keys", func(t *testing.T) {
		ix, err := NewIndex(ds, MustKeys(s, "taxonID"), UniqueIndex)
		require.NoError(t, err)
		assert.Equal(t, 3, ix.Len())
		assert.Equal(t, 2, ix.FindKey("t2").Line())
	})

	t.Run("first keeps the first occurrence", func(t *testing.T) {
		ix, err := NewIndex(ds, byName, FirstIndex)
		require.NoError(t, err)
		assert.Equal(t, 1, ix.FindKey("Acacia").Line())
	})

	t.Run("multi returns all in insertion order", func(t *testing.T) {
		ix, err := NewIndex(ds, byName, MultiIndex)
		require.NoError(t, err)
		rs := ix.FindAllKey("Acacia")
		require.Len(t, rs, 2)
		assert.Equal(t, 1, rs[0].Line())
		assert.Equal(t, 3, rs[1].Line())
	})
}

func TestIndexNilKeys(t *testing.T) {
	s := MustSchema(StringField("taxonID"))
	k := MustKeys(s, "taxonID")

	t.Run("nil key in data fails the build", func(t *testing.T) {
		ds := NewDataset(NewRecord(5, map[string]any{}))
		_, err := NewIndex(ds, k, FirstIndex)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoKey)
		assert.Contains(t, err.Error(), "line 5")
	})

	t.Run("nil probe is a miss", func(t *testing.T) {
		ds := NewDataset(NewRecord(1, map[string]any{"taxonID": "t1"}))
		ix, err := NewIndex(ds, k, FirstIndex)
		require.NoError(t, err)

		assert.Nil(t, ix.FindKey(nil))
		assert.Nil(t, ix.Find(NewRecord(0, nil), k))
		assert.False(t, ix.Contains(nil))
	})
}

func TestIndexCompositeKeys(t *testing.T) {
	s := MustSchema(StringField("name"), StringField("author"))
	ds := NewDataset(
		NewRecord(1, map[string]any{"name": "Acacia", "author": "Mill."}),
		NewRecord(2, map[string]any{"name": "Acacia", "author": "L."}),
	)
	k := MustKeys(s, "name", "author")

	ix, err := NewIndex(ds, k, UniqueIndex)
	require.NoError(t, err)

	probe := NewRecord(0, map[string]any{"name": "Acacia", "author": "L."})
	found := ix.Find(probe, k)
	require.NotNil(t, found)
	assert.Equal(t, 2, found.Line())
}

func TestIndexFold(t *testing.T) {
	s := MustSchema(StringField("name"))
	ds := NewDataset(NewRecord(1, map[string]any{"name": "Acacia Dealbata"}))
	k := MustKeys(s, "name")

	ix, err := NewIndex(ds, k, FirstIndex, WithFold())
	require.NoError(t, err)
	assert.True(t, ix.Contains("ACACIA DEALBATA"))
	assert.True(t, ix.Contains("acacia dealbata"))

	strict, err := NewIndex(ds, k, FirstIndex)
	require.NoError(t, err)
	assert.False(t, strict.Contains("acacia dealbata"))
}

func TestIndexKeyTypesStayDistinct(t *testing.T) {
	s := MustSchema(StringField("a"), IntegerField("b"))
	ds := NewDataset(
		NewRecord(1, map[string]any{"a": "1"}),
		NewRecord(2, map[string]any{"b": 1}),
	)

	ixA, err := NewIndex(ds, MustKeys(s, "a"), MultiIndex)
	require.Error(t, err, "record 2 has a nil key for field a")
	assert.Nil(t, ixA)

	one := NewDataset(
		NewRecord(1, map[string]any{"a": "1", "b": 1}),
	)
	ix, err := NewIndex(one, MustKeys(s, "a"), FirstIndex)
	require.NoError(t, err)
	assert.True(t, ix.Contains("1"))
	assert.False(t, ix.Contains(1), "string and integer keys are different keys")
}
