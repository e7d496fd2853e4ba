package transforms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

func vernacularSchema() *domain.Schema {
	return domain.MustSchema(
		domain.StringField("taxonID"),
		domain.StringField("vernacularName"),
	)
}

func TestDenormaliseSplitsField(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(vernacularSchema())
	feed(t, rc, input,
		domain.NewRecord(1, map[string]any{
			"taxonID":        "t1",
			"vernacularName": "Silver Wattle | Blue Wattle |  | Mimosa ",
		}),
		domain.NewRecord(2, map[string]any{"taxonID": "t2", "vernacularName": nil}),
	)

	split, err := NewDenormalise("names", input, "vernacularName", "|")
	require.NoError(t, err)
	runNode(t, split, rc)

	out := acquire(t, rc, split.Output())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"Silver Wattle", "Blue Wattle", "Mimosa"}, names(out, "vernacularName"))
	for i, r := range out.Records() {
		assert.Equal(t, "t1", r.GetString("taxonID"))
		assert.Equal(t, i, r.Get(domain.IndexField))
		assert.Equal(t, 1, r.Line())
	}

	assert.Equal(t, int64(2), split.Counter(pipeline.CountProcessed))
	assert.Equal(t, int64(3), split.Counter(pipeline.CountAccepted))
}

func TestDenormaliseIncludeEmpty(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(vernacularSchema())
	empty := domain.NewRecord(2, map[string]any{"taxonID": "t2"})
	feed(t, rc, input, empty)

	split, err := NewDenormalise("names", input, "vernacularName", "|", WithIncludeEmpty())
	require.NoError(t, err)
	runNode(t, split, rc)

	out := acquire(t, rc, split.Output())
	require.Equal(t, 1, out.Len())
	// Rows with nothing to split pass through untouched, no index stamp.
	assert.Same(t, empty, out.Records()[0])
	assert.Nil(t, out.Records()[0].Get(domain.IndexField))
	assert.Equal(t, int64(0), split.Counter(pipeline.CountAccepted))
}

func TestDenormaliseExpanderError(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(vernacularSchema())
	feed(t, rc, input, domain.NewRecord(5, map[string]any{"taxonID": "t1", "vernacularName": "x"}))

	split, err := NewDenormaliseFunc("names", input, "vernacularName",
		func(*domain.Record) ([]string, error) {
			return nil, errors.New("bad encoding")
		})
	require.NoError(t, err)
	runNode(t, split, rc)

	errs := acquire(t, rc, split.Errors())
	require.Equal(t, 1, errs.Len())
	assert.Contains(t, errs.Records()[0].GetString(domain.MessagesField), "bad encoding")
	assert.Equal(t, 0, acquire(t, rc, split.Output()).Len())
}

func TestDenormaliseUnknownField(t *testing.T) {
	input := domain.NewPort(vernacularSchema())
	_, err := NewDenormalise("names", input, "noSuch", "|")
	assert.ErrorIs(t, err, domain.ErrUnknownField)
}
