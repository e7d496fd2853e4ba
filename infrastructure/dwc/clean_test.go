package dwc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

func TestTaxonCleanClearsUnresolvedParent(t *testing.T) {
	input := domain.NewPort(taxonSchema())
	c, err := NewTaxonClean("clean", input)
	require.NoError(t, err)

	rc := newRunContext(t)
	orphan := taxonRow(1, "t1", "zzz", "", "Acacia", "genus")
	child := taxonRow(2, "t2", "t1", "", "Acacia dealbata", "species")
	feed(t, rc, input, orphan, child)
	runNode(t, c, rc)

	out := acquire(t, rc, c.Output())
	require.Equal(t, 2, out.Len())
	assert.Nil(t, out.Records()[0].Get("parentNameUsageID"))
	assert.Equal(t, "zzz", orphan.GetString("parentNameUsageID"))
	assert.Same(t, child, out.Records()[1])
	assert.Equal(t, int64(1), c.Counter(pipeline.CountCleaned))
	assert.Equal(t, int64(2), c.Counter(pipeline.CountAccepted))
	assert.Equal(t, int64(2), c.Counter(pipeline.CountProcessed))
}

func TestTaxonCleanClearsSelfAccepted(t *testing.T) {
	input := domain.NewPort(taxonSchema())
	c, err := NewTaxonClean("clean", input)
	require.NoError(t, err)

	rc := newRunContext(t)
	feed(t, rc, input, taxonRow(1, "t1", "", "t1", "Acacia", "genus"))
	runNode(t, c, rc)

	out := acquire(t, rc, c.Output())
	require.Equal(t, 1, out.Len())
	assert.Nil(t, out.Records()[0].Get("acceptedNameUsageID"))
	assert.Equal(t, int64(1), c.Counter(pipeline.CountCleaned))
}

func TestTaxonCleanClearsBothReferencesOnOneRow(t *testing.T) {
	input := domain.NewPort(taxonSchema())
	c, err := NewTaxonClean("clean", input)
	require.NoError(t, err)

	rc := newRunContext(t)
	feed(t, rc, input, taxonRow(1, "t1", "gone", "lost", "Acacia", "genus"))
	runNode(t, c, rc)

	out := acquire(t, rc, c.Output())
	require.Equal(t, 1, out.Len())
	cleaned := out.Records()[0]
	assert.Nil(t, cleaned.Get("parentNameUsageID"))
	assert.Nil(t, cleaned.Get("acceptedNameUsageID"))
	assert.Equal(t, int64(1), c.Counter(pipeline.CountCleaned))
}

func TestTaxonCleanLeavesResolvableRowsAlone(t *testing.T) {
	input := domain.NewPort(taxonSchema())
	c, err := NewTaxonClean("clean", input)
	require.NoError(t, err)

	rc := newRunContext(t)
	parent := taxonRow(1, "t1", "", "", "Animalia", "kingdom")
	child := taxonRow(2, "t2", "t1", "", "Chordata", "phylum")
	synonym := taxonRow(3, "t3", "", "t2", "Vertebrata", "phylum")
	feed(t, rc, input, parent, child, synonym)
	runNode(t, c, rc)

	out := acquire(t, rc, c.Output())
	require.Equal(t, 3, out.Len())
	assert.Same(t, parent, out.Records()[0])
	assert.Same(t, child, out.Records()[1])
	assert.Same(t, synonym, out.Records()[2])
	assert.Equal(t, int64(0), c.Counter(pipeline.CountCleaned))
	assert.Equal(t, 0, acquire(t, rc, c.Errors()).Len())
}
