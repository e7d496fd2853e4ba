// Package testutils provides shared fixtures for the package test
// suites: run-context constructors, record and dataset builders, and a
// synthetic taxonomy generator. These helpers are for internal test use
// and are not part of the public API.
package testutils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/orchestrate"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// NewRunContext builds a root context for a test. The context carries
// the Nop logger, so a failing node cannot spam test output; directory
// options are passed through for tests that touch files.
func NewRunContext(tb testing.TB, opts ...orchestrate.ContextOption) *orchestrate.Context {
	tb.Helper()
	rc, err := orchestrate.NewContext("test", opts...)
	require.NoError(tb, err)
	return rc
}

// RunNode drives a node through its full lifecycle against the context.
func RunNode(tb testing.TB, n pipeline.Node, rc pipeline.RunContext) {
	tb.Helper()
	require.NoError(tb, n.Begin(rc))
	require.NoError(tb, n.Execute(context.Background(), rc))
	require.NoError(tb, n.Commit(rc))
}

// Feed saves the rows on a port so the node under test can acquire them
// without a real upstream node.
func Feed(tb testing.TB, rc pipeline.RunContext, p *domain.Port, rows ...*domain.Record) {
	tb.Helper()
	require.NoError(tb, rc.Save(p, domain.NewDataset(rows...)))
}

// Records builds records from field maps, numbering lines from one.
func Records(rows ...map[string]any) []*domain.Record {
	out := make([]*domain.Record, len(rows))
	for i, fields := range rows {
		out[i] = domain.NewRecord(i+1, fields)
	}
	return out
}

// DatasetOf builds a dataset from field maps, numbering lines from one.
func DatasetOf(rows ...map[string]any) *domain.Dataset {
	return domain.NewDataset(Records(rows...)...)
}

// FieldValues collects one field's string value from every record in
// order, for compact assertions over a dataset.
func FieldValues(ds *domain.Dataset, field string) []string {
	out := make([]string, 0, ds.Len())
	for _, r := range ds.Records() {
		out = append(out, r.GetString(field))
	}
	return out
}
