package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxonflow/taxonflow/infrastructure/io"
	"github.com/taxonflow/taxonflow/infrastructure/schemas"
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/orchestrate"
	"github.com/taxonflow/taxonflow/internal/testutils"
)

func TestJobsRegistry(t *testing.T) {
	registry := jobs()
	require.Len(t, registry, 3)

	align, ok := registry["align"].(*orchestrate.Orchestrator)
	require.True(t, ok)
	assert.Equal(t, "align", align.ID())
	assert.Len(t, align.Nodes(), 8)

	list, ok := registry["list"].(*orchestrate.Orchestrator)
	require.True(t, ok)
	assert.Equal(t, "list", list.ID())
	assert.Len(t, list.Nodes(), 10)

	assert.IsType(t, &io.NullSink{}, registry["dummy"])
}

func TestHasVernacular(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]any
		want bool
	}{
		{"real name", map[string]any{"vernacularName": "Common Wombat"}, true},
		{"placeholder dash", map[string]any{"vernacularName": "-"}, false},
		{"padded dash", map[string]any{"vernacularName": " - "}, false},
		{"blank", map[string]any{"vernacularName": "  "}, false},
		{"absent", map[string]any{"scientificName": "Vombatus ursinus"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hasVernacular(domain.NewRecord(1, tt.row), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeepOrMint(t *testing.T) {
	id, err := keepOrMint(domain.NewRecord(1, map[string]any{
		"taxonID": "urn:lsid:biodiversity.org.au:afd.taxon:1",
	}))
	require.NoError(t, err)
	assert.Equal(t, "urn:lsid:biodiversity.org.au:afd.taxon:1", id)

	minted, err := keepOrMint(domain.NewRecord(2, map[string]any{
		"scientificName": "Vombatus ursinus",
	}))
	require.NoError(t, err)
	_, err = uuid.Parse(minted)
	require.NoError(t, err, "rows without an identifier get a UUID")

	again, err := keepOrMint(domain.NewRecord(3, map[string]any{}))
	require.NoError(t, err)
	assert.NotEqual(t, minted, again)
}

// TestAlignRunEndToEnd drives the whole command path short of cobra: a
// generated sample on disk, the root graph from buildGraph, and a run
// context built the way runRoot builds one. The aligned checklist must
// come back complete, ordered parents before children, with the
// identifier mapping in the work directory.
func TestAlignRunEndToEnd(t *testing.T) {
	base := t.TempDir()
	taxa := testutils.GenerateTaxonomy(testutils.GeneratorConfig{
		Seed:             11,
		DatasetID:        "dr100",
		Phyla:            1,
		ClassesPerPhylum: 1,
		OrdersPerClass:   2,
		FamiliesPerOrder: 2,
		GeneraPerFamily:  2,
		SpeciesPerGenus:  3,
		SynonymFraction:  0.25,
	})
	writeSample(t, base, taxa)

	cfg := &orchestrate.RunConfig{BaseDir: base}
	cfg.Normalize()
	require.NoError(t, cfg.Validate())

	opts := append(cfg.ContextOptions(), orchestrate.WithSinkFactory(io.CSVSinkFactory()))
	pc, err := orchestrate.NewContext("all", opts...)
	require.NoError(t, err)

	graph, err := buildGraph(cfg)
	require.NoError(t, err)
	require.NoError(t, orchestrate.Run(context.Background(), pc, graph))

	rows := readCSV(t, filepath.Join(base, "output", "taxon.csv"))
	require.NotEmpty(t, rows)
	header, data := rows[0], rows[1:]
	assert.Len(t, data, taxa.Len(), "every aligned row reaches the output")

	id := column(t, header, "taxonID")
	parent := column(t, header, "parentNameUsageID")
	accepted := column(t, header, "acceptedNameUsageID")
	dataset := column(t, header, "datasetID")
	seen := make(map[string]bool, len(data))
	for _, row := range data {
		if p := row[parent]; p != "" {
			assert.True(t, seen[p], "parent %s written before its child %s", p, row[id])
		}
		if a := row[accepted]; a != "" {
			assert.True(t, seen[a], "accepted %s written before its synonym %s", a, row[id])
		}
		assert.Equal(t, "dr100", row[dataset])
		seen[row[id]] = true
	}

	mapping := readCSV(t, filepath.Join(base, "work", "identifier_map.csv"))
	require.NotEmpty(t, mapping)
	assert.Len(t, mapping[1:], taxa.Len(), "one mapping row per original identifier")
}

// writeSample lays a runnable sample out under dir: the generated taxa
// plus a one-row control table, written through the engine's own sinks.
func writeSample(t *testing.T, dir string, taxa *domain.Dataset) {
	t.Helper()
	pc := testutils.NewRunContext(t, orchestrate.WithOutputDir(dir))

	taxonPort := domain.NewPort(schemas.Taxon())
	require.NoError(t, pc.Save(taxonPort, taxa))
	testutils.RunNode(t, io.NewCSVSink("taxon", taxonPort, "taxon.csv", io.WithReduced()), pc)

	control := domain.NewPort(schemas.Sources())
	require.NoError(t, pc.Save(control, testutils.DatasetOf(map[string]any{
		"id":                "sample",
		"job":               "align",
		"datasetID":         "dr100",
		"nomenclaturalCode": "ICZN",
	})))
	testutils.RunNode(t, io.NewCSVSink("sources", control, "sources.csv", io.WithReduced()), pc)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func column(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %s not in header %v", name, header)
	return -1
}
