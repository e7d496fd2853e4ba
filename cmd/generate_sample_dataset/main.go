// Command generate_sample_dataset writes a synthetic sample a taxonflow
// run can convert out of the box: a sources.csv control table and the
// taxon.csv it names, sized and optionally damaged per the flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/taxonflow/taxonflow/infrastructure/io"
	"github.com/taxonflow/taxonflow/infrastructure/schemas"
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/orchestrate"
	"github.com/taxonflow/taxonflow/internal/testutils"
)

func main() {
	var (
		dir        = flag.String("dir", "sample", "Directory the sample is written to")
		size       = flag.Int("size", 500, "Approximate number of accepted species")
		seed       = flag.Int64("seed", 0, "Generator seed; 0 derives one from the clock")
		datasetID  = flag.String("dataset", "SAMPLE", "Dataset identifier stamped on every row")
		dangling   = flag.Int("dangling", 0, "Species rewired to parents that do not exist")
		cycles     = flag.Int("cycles", 0, "Genus pairs rewired into parent cycles")
		duplicates = flag.Int("duplicates", 0, "Species appended with duplicate identifiers")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	cfg := testutils.SampleConfig(*size, *seed)
	cfg.DatasetID = *datasetID
	cfg.Defects = testutils.DefectConfig{
		DanglingParents: *dangling,
		ParentCycles:    *cycles,
		DuplicateIDs:    *duplicates,
	}
	taxa := testutils.GenerateTaxonomy(cfg)

	if err := write(*dir, *datasetID, taxa); err != nil {
		log.Fatalf("Failed to write sample: %v", err)
	}

	s := testutils.Summarize(taxa)
	fmt.Printf("Generated sample dataset:\n")
	fmt.Printf("- Directory: %s\n", *dir)
	fmt.Printf("- Rows: %d\n", s.Total)
	fmt.Printf("- Species: %d (%d synonyms)\n", s.ByRank["species"], s.Synonyms)
	fmt.Printf("- Seed: %d\n", *seed)
	fmt.Printf("\nConvert it with: taxonflow -d %s\n", *dir)
}

// write lands taxon.csv and the sources.csv naming it through the same
// sink node the conversion jobs use, so the sample round-trips the
// engine's own serialization.
func write(dir, datasetID string, taxa *domain.Dataset) error {
	pc, err := orchestrate.NewContext("generate", orchestrate.WithOutputDir(dir))
	if err != nil {
		return err
	}

	taxonPort := domain.NewPort(schemas.Taxon())
	if err := pc.Save(taxonPort, taxa); err != nil {
		return err
	}
	sourcesPort := domain.NewPort(schemas.Sources())
	control := testutils.DatasetOf(map[string]any{
		"id":                "sample",
		"job":               "align",
		"datasetID":         datasetID,
		"nomenclaturalCode": "ICZN",
	})
	if err := pc.Save(sourcesPort, control); err != nil {
		return err
	}

	sinks := []*io.CSVSink{
		io.NewCSVSink("taxon", taxonPort, "taxon.csv", io.WithReduced()),
		io.NewCSVSink("sources", sourcesPort, "sources.csv", io.WithReduced()),
	}
	for _, sink := range sinks {
		if err := sink.Begin(pc); err != nil {
			return err
		}
		if err := sink.Execute(context.Background(), pc); err != nil {
			return err
		}
		if err := sink.Commit(pc); err != nil {
			return err
		}
	}
	return nil
}
