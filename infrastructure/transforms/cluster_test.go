package transforms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

func bySciName(r *domain.Record) (string, error) {
	return r.GetString("scientificName"), nil
}

// preferAccepted keeps the first accepted member of a cluster, falling
// back to the first member when none is accepted.
func preferAccepted(_ string, cluster []*domain.Record) []*domain.Record {
	for _, r := range cluster {
		if r.GetString("taxonomicStatus") == "accepted" {
			return []*domain.Record{r}
		}
	}
	return cluster[:1]
}

func TestClusterSelectsRepresentative(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "", "", "Acacia dealbata", "synonym"),
		taxonRow(2, "t2", "", "", "Acacia dealbata", "accepted"),
		taxonRow(3, "t3", "", "", "Banksia serrata", "accepted"),
	)

	cluster, err := NewCluster("names", input, bySciName, preferAccepted,
		WithIdentifierField("taxonID"), WithRejects())
	require.NoError(t, err)
	runNode(t, cluster, rc)

	out := acquire(t, rc, cluster.Output())
	assert.Equal(t, []string{"t2", "t3"}, names(out, "taxonID"))

	rejects := acquire(t, rc, cluster.Rejects())
	require.Equal(t, 1, rejects.Len())
	assert.Equal(t, "t1", rejects.Records()[0].GetString("taxonID"))
	assert.Equal(t, "Acacia dealbata", rejects.Records()[0].GetString(domain.SignatureField))

	assert.Equal(t, int64(3), cluster.Counter(pipeline.CountProcessed))
	assert.Equal(t, int64(2), cluster.Counter(pipeline.CountAccepted))
	assert.Equal(t, int64(1), cluster.Counter(pipeline.CountRejected))
}

func TestClusterGroupsInFirstSeenOrder(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "", "", "Acacia dealbata", "accepted"),
		taxonRow(2, "t2", "", "", "Banksia serrata", "accepted"),
		taxonRow(3, "t3", "", "", "Acacia dealbata", "synonym"),
	)

	cluster, err := NewCluster("names", input, bySciName, nil)
	require.NoError(t, err)
	runNode(t, cluster, rc)

	// Members of the first signature emit together, ahead of later ones.
	out := acquire(t, rc, cluster.Output())
	assert.Equal(t, []string{"t1", "t3", "t2"}, names(out, "taxonID"))
}

func TestClusterRewritesReferences(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "", "", "Acacia dealbata", "synonym"),
		taxonRow(2, "t2", "", "", "Acacia dealbata", "accepted"),
		taxonRow(3, "t3", "t1", "t1", "Acacia dealbata subsp. dealbata", "accepted"),
	)

	cluster, err := NewCluster("names", input, bySciName, preferAccepted,
		WithIdentifierField("taxonID"),
		WithParentField("parentNameUsageID"),
		WithAcceptedField("acceptedNameUsageID"),
		WithRejects())
	require.NoError(t, err)
	runNode(t, cluster, rc)

	out := acquire(t, rc, cluster.Output())
	require.Equal(t, 2, out.Len())
	child := out.Records()[1]
	assert.Equal(t, "t3", child.GetString("taxonID"))
	// t1 lost its cluster to t2, so references onto it move with it.
	assert.Equal(t, "t2", child.GetString("parentNameUsageID"))
	assert.Equal(t, "t2", child.GetString("acceptedNameUsageID"))
	// The input row itself is untouched.
	in := acquire(t, rc, input).Records()[2]
	assert.Equal(t, "t1", in.GetString("parentNameUsageID"))
}

func TestClusterDanglingReferenceFails(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "ghost", "", "Acacia dealbata", "accepted"),
	)

	cluster, err := NewCluster("names", input, bySciName, nil,
		WithIdentifierField("taxonID"),
		WithParentField("parentNameUsageID"))
	require.NoError(t, err)
	require.NoError(t, cluster.Begin(rc))
	err = cluster.Execute(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in cluster remap")
}

func TestClusterSelectorMustKeepSomething(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input, taxonRow(1, "t1", "", "", "Acacia dealbata", "accepted"))

	none := func(string, []*domain.Record) []*domain.Record { return nil }
	cluster, err := NewCluster("names", input, bySciName, none)
	require.NoError(t, err)
	require.NoError(t, cluster.Begin(rc))
	err = cluster.Execute(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selector kept nothing")
}

func TestClusterSignatureErrorBecomesErrorRecord(t *testing.T) {
	rc := newRunContext(t)
	input := domain.NewPort(taxonSchema())
	feed(t, rc, input,
		taxonRow(1, "t1", "", "", "Acacia dealbata", "accepted"),
		taxonRow(2, "t2", "", "", "", "accepted"),
	)

	sig := func(r *domain.Record) (string, error) {
		name := r.GetString("scientificName")
		if name == "" {
			return "", errors.New("unnameable taxon")
		}
		return name, nil
	}
	cluster, err := NewCluster("names", input, sig, nil)
	require.NoError(t, err)
	runNode(t, cluster, rc)

	assert.Equal(t, []string{"t1"}, names(acquire(t, rc, cluster.Output()), "taxonID"))
	errs := acquire(t, rc, cluster.Errors())
	require.Equal(t, 1, errs.Len())
	assert.Contains(t, errs.Records()[0].GetString(domain.MessagesField), "unnameable taxon")
	assert.Equal(t, int64(2), cluster.Counter(pipeline.CountProcessed))
	assert.Equal(t, int64(1), cluster.Counter(pipeline.CountErrors))
}

func TestClusterRejectsNeedAnIdentifier(t *testing.T) {
	input := domain.NewPort(taxonSchema())
	_, err := NewCluster("names", input, bySciName, nil, WithRejects())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identifier")
}
