package transforms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

func TestMapExplicitMappings(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(domain.MustSchema(
		domain.StringField("name"),
		domain.StringField("established"),
	))
	feed(t, rc, input, domain.NewRecord(1, map[string]any{
		"name":        "Acacia",
		"established": "1998-03-01",
	}))

	output := domain.MustSchema(
		domain.StringField("scientificName"),
		domain.DateField("dateEstablished"),
		domain.StringField("datasetID"),
	)
	mapped, err := NewMap("dwc", input, output, map[string]any{
		"scientificName":  "name",
		"dateEstablished": "established",
		"datasetID":       Constant("dr5393"),
	})
	require.NoError(t, err)
	runNode(t, mapped, rc)

	out := acquire(t, rc, mapped.Output())
	require.Equal(t, 1, out.Len())
	r := out.Records()[0]
	assert.Equal(t, "Acacia", r.GetString("scientificName"))
	assert.Equal(t, time.Date(1998, 3, 1, 0, 0, 0, 0, time.UTC), r.Get("dateEstablished"))
	assert.Equal(t, "dr5393", r.GetString("datasetID"))
}

func TestMapAutoCopiesMatchingFields(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(domain.MustSchema(
		domain.StringField("taxonID"),
		domain.StringField("count"),
	))
	feed(t, rc, input, domain.NewRecord(1, map[string]any{"taxonID": "t1", "count": "42"}))

	output := domain.MustSchema(
		domain.StringField("taxonID"),
		domain.IntegerField("count"),
	)
	mapped, err := NewMap("auto", input, output, map[string]any{}, WithAuto())
	require.NoError(t, err)
	runNode(t, mapped, rc)

	r := acquire(t, rc, mapped.Output()).Records()[0]
	assert.Equal(t, "t1", r.GetString("taxonID"))
	// Same name, differing type: the value converts through its text form.
	assert.Equal(t, 42, r.Get("count"))
}

func TestMapSchemaViolationBecomesErrorRecord(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(domain.MustSchema(domain.StringField("taxonID")))
	feed(t, rc, input, domain.NewRecord(3, map[string]any{"taxonID": "t1"}))

	output := domain.MustSchema(
		domain.StringField("taxonID"),
		domain.IntegerField("rank"),
	)
	mapped, err := NewMap("bad", input, output, map[string]any{
		"taxonID": "taxonID",
		"rank": func(*domain.Record, pipeline.RunContext) (any, error) {
			return "not a number", nil
		},
	})
	require.NoError(t, err)
	runNode(t, mapped, rc)

	assert.Equal(t, 0, acquire(t, rc, mapped.Output()).Len())
	errs := acquire(t, rc, mapped.Errors())
	require.Equal(t, 1, errs.Len())
	assert.Contains(t, errs.Records()[0].GetString(domain.MessagesField), "rank")
}

func TestMapDerivesSchemaWhenNil(t *testing.T) {
	input := domain.NewPort(domain.MustSchema(
		domain.StringField("name"),
		domain.IntegerField("rank"),
	))

	mapped, err := NewMap("derived", input, nil, map[string]any{
		"name":  "name",
		"extra": Constant("x"),
	}, WithAuto())
	require.NoError(t, err)

	schema := mapped.Output().Schema()
	assert.Equal(t, []string{"name", "rank", "extra"}, schema.Names())
	name, _ := schema.Field("name")
	assert.Equal(t, domain.StringType, name.Type())
	rank, _ := schema.Field("rank")
	assert.Equal(t, domain.IntegerType, rank.Type())
	extra, _ := schema.Field("extra")
	assert.Equal(t, domain.StringType, extra.Type())
}

func TestMapRejectsUnknownMappingTargets(t *testing.T) {
	input := domain.NewPort(domain.MustSchema(domain.StringField("name")))
	output := domain.MustSchema(domain.StringField("scientificName"))

	_, err := NewMap("bad", input, output, map[string]any{"noSuchField": "name"})
	require.ErrorIs(t, err, domain.ErrUnknownField)

	_, err = NewMap("bad", input, output, map[string]any{"scientificName": "noSuchSource"})
	require.ErrorIs(t, err, domain.ErrUnknownField)

	_, err = NewMap("bad", input, output, map[string]any{"scientificName": 42})
	require.Error(t, err)
}

func TestMapCarriesLineAndIssues(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(domain.MustSchema(domain.StringField("name")))
	r := domain.NewRecord(17, map[string]any{"name": "Acacia"})
	r.Issue("name normalized")
	feed(t, rc, input, r)

	mapped, err := NewMap("carry", input, domain.MustSchema(domain.StringField("name")), map[string]any{
		"name": "name",
	})
	require.NoError(t, err)
	runNode(t, mapped, rc)

	out := acquire(t, rc, mapped.Output()).Records()[0]
	assert.Equal(t, 17, out.Line())
	assert.Equal(t, []string{"name normalized"}, out.Issues())
}
