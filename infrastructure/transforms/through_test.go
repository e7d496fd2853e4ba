package transforms

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

func TestThroughRoutesOutcomes(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "", "", "Acacia dealbata", "accepted"),
		taxonRow(2, "t2", "", "", "", "accepted"),
		taxonRow(3, "t3", "", "", "Eucalyptus regnans", "accepted"),
		taxonRow(4, "t4", "", "", "broken", "accepted"),
	)

	upper := NewThrough("upper", input, func(r *domain.Record, _ pipeline.RunContext) (*domain.Record, error) {
		name := r.GetString("scientificName")
		switch {
		case name == "broken":
			return nil, errors.New("unparseable name")
		case name == "":
			return nil, nil
		}
		out := r.Copy()
		out.Set("scientificName", strings.ToUpper(name))
		return out, nil
	}, WithRejects())
	runNode(t, upper, rc)

	out := acquire(t, rc, upper.Output())
	assert.Equal(t, []string{"ACACIA DEALBATA", "EUCALYPTUS REGNANS"}, names(out, "scientificName"))

	rejects := acquire(t, rc, upper.Rejects())
	require.Equal(t, 1, rejects.Len())
	assert.Equal(t, "t2", rejects.Records()[0].GetString("taxonID"))

	errs := acquire(t, rc, upper.Errors())
	require.Equal(t, 1, errs.Len())
	assert.Equal(t, "unparseable name", errs.Records()[0].GetString(domain.MessagesField))
	assert.Equal(t, 4, errs.Records()[0].Get(domain.LineField))

	assert.Equal(t, int64(4), upper.Counter(pipeline.CountProcessed))
	assert.Equal(t, int64(2), upper.Counter(pipeline.CountAccepted))
	assert.Equal(t, int64(1), upper.Counter(pipeline.CountRejected))
	assert.Equal(t, int64(1), upper.Counter(pipeline.CountErrors))
}

func TestThroughWithoutRejectPortDropsRows(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "", "", "Acacia", "accepted"),
		taxonRow(2, "t2", "", "", "", "accepted"),
	)

	keep := NewThrough("keep", input, func(r *domain.Record, _ pipeline.RunContext) (*domain.Record, error) {
		if r.GetString("scientificName") == "" {
			return nil, nil
		}
		return r, nil
	})
	runNode(t, keep, rc)

	assert.Nil(t, keep.Rejects())
	out := acquire(t, rc, keep.Output())
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, int64(0), keep.Counter(pipeline.CountRejected))
}

func TestThroughFailOnErrorAbortsExecute(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input, taxonRow(7, "t1", "", "", "bad", "accepted"))

	strict := NewThrough("strict", input, func(*domain.Record, pipeline.RunContext) (*domain.Record, error) {
		return nil, errors.New("bad value")
	}, WithNodeOptions(pipeline.WithFailOnError()))
	require.NoError(t, strict.Begin(rc))

	err := strict.Execute(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 7")
	assert.Contains(t, err.Error(), "bad value")
}

func TestFilterSplitsOnPredicate(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "", "", "Acacia", "accepted"),
		taxonRow(2, "t2", "", "", "Acacia?", "inferredAccepted"),
		taxonRow(3, "t3", "", "", "Banksia", "accepted"),
	)

	accepted := NewFilter("accepted", input, func(r *domain.Record, _ pipeline.RunContext) (bool, error) {
		return r.GetString("taxonomicStatus") == "accepted", nil
	}, WithRejects())
	runNode(t, accepted, rc)

	assert.Equal(t, []string{"t1", "t3"}, names(acquire(t, rc, accepted.Output()), "taxonID"))
	assert.Equal(t, []string{"t2"}, names(acquire(t, rc, accepted.Rejects()), "taxonID"))
}

func TestFilterPredicateErrorBecomesErrorRecord(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input, taxonRow(1, "t1", "", "", "Acacia", "accepted"))

	broken := NewFilter("broken", input, func(*domain.Record, pipeline.RunContext) (bool, error) {
		return false, errors.New("no status table")
	})
	runNode(t, broken, rc)

	errs := acquire(t, rc, broken.Errors())
	require.Equal(t, 1, errs.Len())
	assert.Contains(t, errs.Records()[0].GetString(domain.MessagesField), "no status table")
	assert.Equal(t, 0, acquire(t, rc, broken.Output()).Len())
}

func TestNullRepublishesDataset(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input, taxonRow(1, "t1", "", "", "Acacia", "accepted"))

	hop := NewNull("hop", input)
	runNode(t, hop, rc)

	in := acquire(t, rc, input)
	out := acquire(t, rc, hop.Output())
	assert.Same(t, in, out)
}
