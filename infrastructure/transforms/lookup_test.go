package transforms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

func lookupInputSchema() *domain.Schema {
	return domain.MustSchema(
		domain.StringField("taxonID"),
		domain.StringField("scientificName"),
		domain.StringField("datasetID"),
	)
}

func datasetSchema() *domain.Schema {
	return domain.MustSchema(
		domain.StringField("datasetID"),
		domain.StringField("datasetName"),
	)
}

func TestLookupMergesMatchedRows(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(lookupInputSchema())
	table := domain.NewPort(datasetSchema())
	feed(t, rc, input,
		domain.NewRecord(1, map[string]any{"taxonID": "t1", "scientificName": "Acacia", "datasetID": "dr1"}),
		domain.NewRecord(2, map[string]any{"taxonID": "t2", "scientificName": "Banksia", "datasetID": "dr9"}),
	)
	feed(t, rc, table,
		domain.NewRecord(1, map[string]any{"datasetID": "dr1", "datasetName": "Census"}),
	)

	join, err := NewLookup("datasets", input, table, []string{"datasetID"}, []string{"datasetID"})
	require.NoError(t, err)
	runNode(t, join, rc)

	assert.Equal(t, []string{"taxonID", "scientificName", "datasetID", "datasetName"},
		join.Output().Schema().Names())

	out := acquire(t, rc, join.Output())
	require.Equal(t, 2, out.Len())
	matched, unjoined := out.Records()[0], out.Records()[1]
	assert.Equal(t, "Census", matched.GetString("datasetName"))
	// Unmatched rows pass through without the lookup's fields.
	assert.Nil(t, unjoined.Get("datasetName"))
	assert.Equal(t, "Banksia", unjoined.GetString("scientificName"))

	assert.Equal(t, int64(2), join.Counter(pipeline.CountProcessed))
	assert.Equal(t, int64(2), join.Counter(pipeline.CountAccepted))
	assert.Equal(t, int64(1), join.Counter(pipeline.CountUnmatched))
}

func TestLookupPrecedence(t *testing.T) {
	shared := domain.MustSchema(
		domain.StringField("taxonID"),
		domain.StringField("status"),
	)
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"input wins by default", nil, "fromInput"},
		{"overwrite prefers lookup", []Option{WithOverwrite()}, "fromLookup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := newRunContext(t)
			input := domain.NewPort(shared)
			table := domain.NewPort(shared)
			feed(t, rc, input, domain.NewRecord(1, map[string]any{"taxonID": "t1", "status": "fromInput"}))
			feed(t, rc, table, domain.NewRecord(1, map[string]any{"taxonID": "t1", "status": "fromLookup"}))

			join, err := NewLookup("status", input, table, []string{"taxonID"}, []string{"taxonID"}, tt.opts...)
			require.NoError(t, err)
			runNode(t, join, rc)

			out := acquire(t, rc, join.Output())
			require.Equal(t, 1, out.Len())
			assert.Equal(t, tt.want, out.Records()[0].GetString("status"))
		})
	}
}

func TestLookupUnmatchedPortAndReject(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(lookupInputSchema())
	table := domain.NewPort(datasetSchema())
	feed(t, rc, input,
		domain.NewRecord(1, map[string]any{"taxonID": "t1", "datasetID": "dr1"}),
		domain.NewRecord(2, map[string]any{"taxonID": "t2", "datasetID": "missing"}),
	)
	feed(t, rc, table,
		domain.NewRecord(1, map[string]any{"datasetID": "dr1", "datasetName": "Census"}),
	)

	join, err := NewLookup("strict", input, table,
		[]string{"datasetID"}, []string{"datasetID"},
		WithUnmatched(), WithRejectUnmatched())
	require.NoError(t, err)
	runNode(t, join, rc)

	out := acquire(t, rc, join.Output())
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "t1", out.Records()[0].GetString("taxonID"))

	missing := acquire(t, rc, join.Unmatched())
	require.Equal(t, 1, missing.Len())
	assert.Equal(t, "t2", missing.Records()[0].GetString("taxonID"))
	assert.Equal(t, int64(1), join.Counter(pipeline.CountUnmatched))
	assert.Equal(t, int64(1), join.Counter(pipeline.CountAccepted))
}

func TestLookupFieldSelection(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(lookupInputSchema())
	table := domain.NewPort(datasetSchema())
	feed(t, rc, input,
		domain.NewRecord(1, map[string]any{"taxonID": "t1", "scientificName": "Acacia", "datasetID": "dr1"}),
	)
	feed(t, rc, table,
		domain.NewRecord(1, map[string]any{"datasetID": "dr1", "datasetName": "Census"}),
	)

	join, err := NewLookup("prefixed", input, table,
		[]string{"datasetID"}, []string{"datasetID"},
		WithLookupPrefix("source_"))
	require.NoError(t, err)
	runNode(t, join, rc)

	assert.Equal(t,
		[]string{"taxonID", "scientificName", "datasetID", "source_datasetID", "source_datasetName"},
		join.Output().Schema().Names())
	r := acquire(t, rc, join.Output()).Records()[0]
	assert.Equal(t, "Census", r.GetString("source_datasetName"))
	assert.Equal(t, "dr1", r.GetString("datasetID"))
}

func TestLookupIncludeAndRename(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(lookupInputSchema())
	table := domain.NewPort(datasetSchema())
	feed(t, rc, input,
		domain.NewRecord(1, map[string]any{"taxonID": "t1", "scientificName": "Acacia", "datasetID": "dr1"}),
	)
	feed(t, rc, table,
		domain.NewRecord(1, map[string]any{"datasetID": "dr1", "datasetName": "Census"}),
	)

	join, err := NewLookup("renamed", input, table,
		[]string{"datasetID"}, []string{"datasetID"},
		WithLookupInclude("datasetName"),
		WithLookupRename(map[string]string{"datasetName": "collection"}))
	require.NoError(t, err)
	runNode(t, join, rc)

	assert.Equal(t,
		[]string{"taxonID", "scientificName", "datasetID", "collection"},
		join.Output().Schema().Names())
	r := acquire(t, rc, join.Output()).Records()[0]
	assert.Equal(t, "Census", r.GetString("collection"))
	assert.Nil(t, r.Get("datasetName"))
}

func TestLookupWithoutMergeKeepsInputSchema(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(lookupInputSchema())
	table := domain.NewPort(datasetSchema())
	feed(t, rc, input,
		domain.NewRecord(1, map[string]any{"taxonID": "t1", "datasetID": "dr1"}),
		domain.NewRecord(2, map[string]any{"taxonID": "t2", "datasetID": "dr2"}),
	)
	feed(t, rc, table,
		domain.NewRecord(1, map[string]any{"datasetID": "dr1", "datasetName": "Census"}),
	)

	semi, err := NewLookup("semi", input, table,
		[]string{"datasetID"}, []string{"datasetID"},
		WithoutMerge(), WithRejectUnmatched())
	require.NoError(t, err)
	runNode(t, semi, rc)

	assert.Same(t, input.Schema(), semi.Output().Schema())
	out := acquire(t, rc, semi.Output())
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "t1", out.Records()[0].GetString("taxonID"))
}

func TestLookupDuplicateKeyFailsUniqueIndex(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(lookupInputSchema())
	table := domain.NewPort(datasetSchema())
	feed(t, rc, input, domain.NewRecord(1, map[string]any{"taxonID": "t1", "datasetID": "dr1"}))
	feed(t, rc, table,
		domain.NewRecord(1, map[string]any{"datasetID": "dr1", "datasetName": "A"}),
		domain.NewRecord(2, map[string]any{"datasetID": "dr1", "datasetName": "B"}),
	)

	strict, err := NewLookup("strict", input, table, []string{"datasetID"}, []string{"datasetID"})
	require.NoError(t, err)
	require.NoError(t, strict.Begin(rc))
	assert.ErrorIs(t, strict.Execute(context.Background(), rc), domain.ErrDuplicateKey)

	relaxed, err := NewLookup("relaxed", input, table,
		[]string{"datasetID"}, []string{"datasetID"},
		WithIndexType(domain.FirstIndex))
	require.NoError(t, err)
	runNode(t, relaxed, rc)
	r := acquire(t, rc, relaxed.Output()).Records()[0]
	assert.Equal(t, "A", r.GetString("datasetName"))
}

func TestLookupUnknownKeyField(t *testing.T) {
	input := domain.NewPort(lookupInputSchema())
	table := domain.NewPort(datasetSchema())

	_, err := NewLookup("bad", input, table, []string{"noSuch"}, []string{"datasetID"})
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}
