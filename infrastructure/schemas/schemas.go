// Package schemas carries the built-in Darwin-Core-style schemas the
// engine ships with and a YAML catalog loader for dataset-specific ones.
//
// The built-ins are shared instances: ports constructed from the same
// accessor compare equal by schema pointer, which lets pass-through
// optimizations in the transforms recognize them.
package schemas

import (
	"github.com/taxonflow/taxonflow/internal/domain"
)

// Term URIs attached to fields that do not live in the Darwin Core
// namespace.
const (
	alaTerms  = "http://ala.org.au/terms/1.0/"
	dcTerms   = "http://purl.org/dc/terms/"
	gbifTerms = "http://rs.gbif.org/terms/1.0/"
	dwcTerms  = "http://rs.tdwg.org/dwc/terms/"
)

var taxon = domain.MustSchema(
	domain.StringField("taxonID").WithExport(),
	domain.StringField("parentNameUsageID").WithExport(),
	domain.StringField("parentNameUsage"),
	domain.StringField("acceptedNameUsageID").WithExport(),
	domain.StringField("acceptedNameUsage"),
	domain.StringField("datasetID").WithExport(),
	domain.StringField("nomenclaturalCode").WithExport(),
	domain.StringField("scientificName").WithExport(),
	domain.StringField("scientificNameAuthorship").WithExport(),
	domain.StringField("taxonRank").WithExport(),
	domain.StringField("taxonConceptID"),
	domain.StringField("scientificNameID"),
	domain.StringField("taxonomicStatus").WithExport(),
	domain.StringField("nomenclaturalStatus"),
	domain.StringField("kingdom"),
	domain.StringField("phylum"),
	domain.StringField("subphylum").WithURI(alaTerms+"subphylum"),
	domain.StringField("class_").WithDataKey("class").WithURI(dwcTerms+"class"),
	domain.StringField("subclass").WithURI(alaTerms+"subclass"),
	domain.StringField("order"),
	domain.StringField("suborder").WithURI(alaTerms+"suborder"),
	domain.StringField("infraorder").WithURI(alaTerms+"infraorder"),
	domain.StringField("family"),
	domain.StringField("genus"),
	domain.StringField("subgenus"),
	domain.StringField("specificEpithet"),
	domain.StringField("infraspecificEpithet"),
	domain.StringField("establishmentMeans"),
	domain.StringField("nameAccordingToID"),
	domain.StringField("nameAccordingTo"),
	domain.StringField("namePublishedInID"),
	domain.StringField("namePublishedIn"),
	domain.StringField("namePublishedInYear"),
	domain.StringField("nameComplete").WithURI(alaTerms+"nameComplete"),
	domain.StringField("nameFormatted").WithURI(alaTerms+"nameFormatted"),
	domain.StringField("taxonRemarks"),
	domain.StringField("provenance").WithURI(dcTerms+"provenance"),
	domain.StringField("source").WithURI(dcTerms+"source"),
	domain.StringField("taxonomicFlags").WithURI(alaTerms+"taxonomicFlags"),
)

var vernacular = domain.MustSchema(
	domain.StringField("taxonID").WithExport(),
	domain.StringField("nameID").WithURI(alaTerms+"nameID"),
	domain.StringField("datasetID").WithExport(),
	domain.StringField("vernacularName").WithExport(),
	domain.StringField("status").WithURI(alaTerms+"status"),
	domain.StringField("language").WithURI(dcTerms+"language"),
	domain.StringField("temporal").WithURI(dcTerms+"temporal"),
	domain.StringField("locationID"),
	domain.StringField("locality"),
	domain.StringField("countryCode"),
	domain.StringField("sex"),
	domain.StringField("lifeStage"),
	domain.BooleanField("isPlural").WithURI(gbifTerms+"isPlural"),
	domain.BooleanField("isPreferredName").WithURI(gbifTerms+"isPreferredName"),
	domain.StringField("organismPart").WithURI(gbifTerms+"organismPart"),
	domain.StringField("labels").WithURI(alaTerms+"labels"),
	domain.StringField("nameAccordingTo"),
	domain.StringField("taxonRemarks"),
	domain.StringField("provenance").WithURI(dcTerms+"provenance"),
	domain.StringField("source").WithURI(dcTerms+"source"),
)

var identifier = domain.MustSchema(
	domain.StringField("taxonID").WithExport(),
	domain.StringField("identifier").WithURI(dcTerms+"identifier"),
	domain.StringField("datasetID"),
	domain.StringField("title").WithURI(dcTerms+"title"),
	domain.StringField("status").WithURI(alaTerms+"status"),
	domain.StringField("format").WithURI(dcTerms+"format"),
	domain.StringField("source").WithURI(dcTerms+"source"),
	domain.StringField("taxonRemarks"),
	domain.StringField("provenance").WithURI(dcTerms+"provenance"),
)

var mapping = domain.MustSchema(
	domain.StringField("term"),
	domain.StringField("mapping"),
)

var sources = domain.MustSchema(
	domain.StringField("id"),
	domain.StringField("job"),
	domain.StringField("dir"),
	domain.StringField("inputDir"),
	domain.StringField("configDir"),
	domain.StringField("datasetID"),
	domain.StringField("nomenclaturalCode"),
	domain.StringField("defaultOrganisation"),
	domain.StringField("geographicCoverage"),
	domain.StringField("taxonomicCoverage"),
	domain.StringField("sourceUrl"),
	domain.StringField("defaultVernacularStatus"),
	domain.StringField("defaultAcceptedStatus"),
	domain.StringField("defaultSynonymStatus"),
	domain.StringField("defaultLocationID"),
	domain.StringField("applyLocationToTaxonomicStatus"),
	domain.StringField("countryCode"),
	domain.StringField("language"),
)

// Taxon returns the Darwin Core taxon schema: the core name-usage row
// with its linkage fields and Linnaean classification columns. The
// `class_` field reads and writes the external column `class`.
func Taxon() *domain.Schema { return taxon }

// Vernacular returns the schema for vernacular (common) name rows.
func Vernacular() *domain.Schema { return vernacular }

// Identifier returns the schema for additional-identifier rows produced
// by the identifier generators.
func Identifier() *domain.Schema { return identifier }

// Mapping returns the term-to-mapping schema the reidentifier publishes
// so downstream datasets can follow an identifier relabeling.
func Mapping() *domain.Schema { return mapping }

// Sources returns the control-table schema the selector driver reads:
// one row per dataset naming its job, directories, and defaults.
func Sources() *domain.Schema { return sources }
