package dwc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/orchestrate"
	"github.com/taxonflow/taxonflow/internal/pipeline"
	"github.com/taxonflow/taxonflow/internal/testutils"
)

func taxonSchema() *domain.Schema {
	return domain.MustSchema(
		domain.StringField("taxonID"),
		domain.StringField("parentNameUsageID"),
		domain.StringField("acceptedNameUsageID"),
		domain.StringField("scientificName"),
		domain.StringField("taxonRank"),
	)
}

func taxonRow(line int, id, parent, accepted, name, rank string) *domain.Record {
	fields := map[string]any{"taxonID": id, "scientificName": name, "taxonRank": rank}
	if parent != "" {
		fields["parentNameUsageID"] = parent
	}
	if accepted != "" {
		fields["acceptedNameUsageID"] = accepted
	}
	return domain.NewRecord(line, fields)
}

func newRunContext(t *testing.T) *orchestrate.Context {
	t.Helper()
	return testutils.NewRunContext(t)
}

func runNode(t *testing.T, n pipeline.Node, rc pipeline.RunContext) {
	t.Helper()
	testutils.RunNode(t, n, rc)
}

func feed(t *testing.T, rc pipeline.RunContext, p *domain.Port, rows ...*domain.Record) {
	t.Helper()
	testutils.Feed(t, rc, p, rows...)
}

func names(ds *domain.Dataset, field string) []string {
	return testutils.FieldValues(ds, field)
}

func acquire(t *testing.T, rc pipeline.RunContext, p *domain.Port) *domain.Dataset {
	t.Helper()
	ds, err := rc.Acquire(p)
	require.NoError(t, err)
	return ds
}
