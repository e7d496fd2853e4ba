package main

import (
	"strings"

	"github.com/google/uuid"

	"github.com/taxonflow/taxonflow/infrastructure/dwc"
	"github.com/taxonflow/taxonflow/infrastructure/io"
	"github.com/taxonflow/taxonflow/infrastructure/schemas"
	"github.com/taxonflow/taxonflow/infrastructure/transforms"
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/orchestrate"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// jobs builds the registry of graphs a control row can name. Every entry
// is constructed once and reused: a job run leaves its results in the
// row's subcontext, never in the node, so one node serves many rows.
func jobs() map[string]pipeline.Node {
	return map[string]pipeline.Node{
		"align": alignJob(),
		"list":  listJob(),
		"dummy": io.NewNullSink("dummy"),
	}
}

// alignJob builds the taxonomy alignment graph: read a Darwin Core
// taxon file, validate and clean its structure, repair parent chains,
// relabel identifiers, close the result over its parent and accepted
// links, and write the aligned checklist. The old-to-new identifier
// mapping lands in the work directory for auditing.
//
// Nodes are listed in dependency order; scheduling rounds run them in
// that order.
func alignJob() pipeline.Node {
	source := io.NewCSVSource("taxon_source", "taxon.csv", schemas.Taxon())
	validate := must(dwc.NewTaxonValidate("taxon_validate", source.Output()))
	clean := must(dwc.NewTaxonClean("taxon_clean", validate.Output()))
	parents := must(dwc.NewParentResolve("taxon_parents", clean.Output(), clean.Output(),
		[]string{"taxonID"}, []string{"parentNameUsageID"},
		"kingdom", "Biota"))
	relabel := must(dwc.NewReidentify("taxon_reidentify", parents.Output(),
		[]string{"taxonID"}, []string{"parentNameUsageID"}, []string{"acceptedNameUsageID"},
		keepOrMint))
	trail := must(transforms.NewTrail("taxon_trail", relabel.Output(), relabel.Output(),
		[]string{"taxonID"}, []string{"parentNameUsageID"},
		transforms.WithAcceptedField("acceptedNameUsageID")))
	output := io.NewCSVSink("taxon_output", trail.Output(), "taxon.csv", io.WithReduced())
	mapping := io.NewCSVSink("taxon_identifier_map", relabel.Mapping(), "identifier_map.csv", io.WithWork())

	return orchestrate.NewOrchestrator("align", []pipeline.Node{
		source, validate, clean, parents, relabel, trail, output, mapping,
	})
}

// listJob builds the hosted-list graph: fetch a species list from the
// control row's sourceUrl, fill dataset-wide defaults into each row,
// and split it into a validated taxon file and a vernacular-name file.
// Multi-valued vernacular cells are denormalised into one row per name
// and each name gets a fresh identifier.
func listJob() pipeline.Node {
	list := io.NewHTTPSource("species_list", "", listSchema())
	defaults := must(transforms.NewMap("species_defaults", list.Output(), nil, map[string]any{
		"datasetID":       transforms.OrDefault(transforms.Value("datasetID"), "datasetID"),
		"taxonomicStatus": transforms.OrDefault(transforms.Value("taxonomicStatus"), "defaultAcceptedStatus"),
		"source":          transforms.Value("scientificNameLink"),
	}, transforms.WithAuto()))

	taxa := transforms.NewProject("taxon_list", defaults.Output(), schemas.Taxon())
	validate := must(dwc.NewTaxonValidate("species_validate", taxa.Output(), dwc.WithNameCheck()))
	taxonOut := io.NewCSVSink("taxon_output", validate.Output(), "taxon.csv", io.WithReduced())

	named := transforms.NewFilter("vernacular_list", defaults.Output(), hasVernacular)
	vernacular := must(transforms.NewMap("vernacular_names", named.Output(), schemas.Vernacular(), map[string]any{
		"vernacularName": transforms.Capwords("vernacularName"),
		"datasetID":      transforms.OrDefault(transforms.Value("datasetID"), "datasetID"),
		"status":         transforms.OrDefault(transforms.Value("status"), "defaultVernacularStatus"),
	}, transforms.WithAuto()))
	split := must(transforms.NewDenormalise("vernacular_split", vernacular.Output(), "vernacularName", ","))
	identified := must(transforms.NewMap("vernacular_identified", split.Output(), schemas.Vernacular(), map[string]any{
		"nameID": transforms.UUID(),
	}, transforms.WithAuto()))
	vernacularOut := io.NewCSVSink("vernacular_output", identified.Output(), "vernacularName.csv", io.WithReduced())

	return orchestrate.NewOrchestrator("list", []pipeline.Node{
		list, defaults,
		taxa, validate, taxonOut,
		named, vernacular, split, identified, vernacularOut,
	})
}

// listSchema describes the columns of a hosted species list: the name
// and classification fields plus the vernacular and status columns such
// lists usually carry.
func listSchema() *domain.Schema {
	return domain.MustSchema(
		domain.StringField("taxonID"),
		domain.StringField("scientificName"),
		domain.StringField("scientificNameAuthorship"),
		domain.StringField("taxonRank"),
		domain.StringField("taxonomicStatus"),
		domain.StringField("kingdom"),
		domain.StringField("phylum"),
		domain.StringField("class_").WithDataKey("class"),
		domain.StringField("order"),
		domain.StringField("family"),
		domain.StringField("genus"),
		domain.StringField("vernacularName"),
		domain.StringField("status"),
		domain.StringField("datasetID"),
		domain.StringField("scientificNameLink"),
		domain.StringField("source"),
	)
}

// hasVernacular keeps rows carrying a usable vernacular name; "-" is the
// conventional placeholder for none.
func hasVernacular(r *domain.Record, _ pipeline.RunContext) (bool, error) {
	name := strings.TrimSpace(r.GetString("vernacularName"))
	return name != "" && name != "-", nil
}

// keepOrMint keeps a row's existing taxon identifier and mints a UUID
// for rows without one.
func keepOrMint(r *domain.Record) (string, error) {
	if id := r.GetString("taxonID"); id != "" {
		return id, nil
	}
	return uuid.NewString(), nil
}

// must panics on a graph construction error. The built-in jobs wire
// fixed schemas; a failure here is a programming mistake, not input.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
