package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/orchestrate"
	"github.com/taxonflow/taxonflow/internal/pipeline"
	"github.com/taxonflow/taxonflow/internal/testutils"
)

func taxonSchema() *domain.Schema {
	return domain.MustSchema(
		domain.StringField("taxonID").WithExport(),
		domain.StringField("scientificName"),
		domain.StringField("class_").WithDataKey("class"),
		domain.IntegerField("rankSortOrder"),
	)
}

type testDirs struct {
	input  string
	output string
	work   string
}

func newRunContext(t *testing.T) (*orchestrate.Context, testDirs) {
	t.Helper()
	dirs := testDirs{input: t.TempDir(), output: t.TempDir(), work: t.TempDir()}
	rc := testutils.NewRunContext(t,
		orchestrate.WithInputDir(dirs.input),
		orchestrate.WithOutputDir(dirs.output),
		orchestrate.WithWorkDir(dirs.work),
	)
	return rc, dirs
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
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
