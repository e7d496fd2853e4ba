package testutils

import (
	"fmt"
	"math/rand"

	"github.com/taxonflow/taxonflow/internal/domain"
)

// DefectConfig asks the generator to damage the finished tree in
// controlled ways. Each defect trips a different failure path: error
// rows that halt a run, cyclic links the walks must terminate on, and
// duplicate keys that fail a node outright.
type DefectConfig struct {
	// DanglingParents rewires this many species to parents that do not
	// exist; validation reports each as an error row.
	DanglingParents int

	// ParentCycles rewires this many genus pairs into mutual parents.
	// A cycle between rows that are both in the working set resolves
	// one hop at a time rather than erroring, so the damaged rows flow
	// through; trail walks downstream have to terminate on them anyway.
	ParentCycles int

	// DuplicateIDs appends this many species reusing an existing
	// identifier. Duplicates pass validation but break any unique index
	// built over the identifier, failing the node that builds it.
	DuplicateIDs int
}

// GeneratorConfig sizes the synthetic taxonomy. Zero counts take the
// defaults, which produce roughly 480 accepted species under a single
// kingdom.
type GeneratorConfig struct {
	// Seed controls randomization; a fixed seed reproduces the dataset.
	Seed int64

	// DatasetID is stamped on every row and prefixes identifiers.
	// Defaults to "SAMPLE".
	DatasetID string

	Phyla            int
	ClassesPerPhylum int
	OrdersPerClass   int
	FamiliesPerOrder int
	GeneraPerFamily  int
	SpeciesPerGenus  int

	// SynonymFraction is the chance each accepted species also gains a
	// synonym row. Zero means no synonyms.
	SynonymFraction float64

	// Defects optionally damages the tree after it is built.
	Defects DefectConfig
}

// defaultSpeciesPerPhylum is the species yield of one phylum under the
// default per-level counts.
const defaultSpeciesPerPhylum = 2 * 2 * 3 * 4 * 5

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.DatasetID == "" {
		c.DatasetID = "SAMPLE"
	}
	if c.Phyla == 0 {
		c.Phyla = 2
	}
	if c.ClassesPerPhylum == 0 {
		c.ClassesPerPhylum = 2
	}
	if c.OrdersPerClass == 0 {
		c.OrdersPerClass = 2
	}
	if c.FamiliesPerOrder == 0 {
		c.FamiliesPerOrder = 3
	}
	if c.GeneraPerFamily == 0 {
		c.GeneraPerFamily = 4
	}
	if c.SpeciesPerGenus == 0 {
		c.SpeciesPerGenus = 5
	}
	return c
}

// SampleConfig returns a configuration sized to roughly the given
// number of accepted species, with a modest synonym fraction. The
// sample generator command uses it for its size knob.
func SampleConfig(species int, seed int64) GeneratorConfig {
	cfg := GeneratorConfig{Seed: seed, SynonymFraction: 0.15}
	cfg.Phyla = (species + defaultSpeciesPerPhylum - 1) / defaultSpeciesPerPhylum
	if cfg.Phyla < 1 {
		cfg.Phyla = 1
	}
	return cfg
}

// GenerateTaxonomy builds a synthetic Darwin Core taxon dataset: a
// classification tree rooted at a kingdom, with accepted species,
// optional synonyms, and the defects the configuration asks for. Rows
// use the field names of the built-in taxon schema. The same
// configuration always produces the same dataset.
func GenerateTaxonomy(cfg GeneratorConfig) *domain.Dataset {
	cfg = cfg.withDefaults()
	b := &treeBuilder{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		ds:  domain.NewDataset(),
	}
	root := b.emit("kingdom", kingdomName, "", lineage{"kingdom": kingdomName}, nil)
	for i := 0; i < cfg.Phyla; i++ {
		b.phylum(root, i)
	}
	b.injectDefects()
	return b.ds
}

// lineage carries the classification column values a row inherits from
// its ancestors, keyed by schema field name.
type lineage map[string]string

func (l lineage) extend(field, name string) lineage {
	next := make(lineage, len(l)+1)
	for k, v := range l {
		next[k] = v
	}
	next[field] = name
	return next
}

type treeBuilder struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	ds   *domain.Dataset
	seq  int
	line int

	// Defect targets collected while building.
	species []*domain.Record
	genera  []*domain.Record
}

func (b *treeBuilder) emit(rank, name, parent string, l lineage, extra map[string]any) *domain.Record {
	b.seq++
	b.line++
	fields := map[string]any{
		"taxonID":           fmt.Sprintf("%s-%06d", b.cfg.DatasetID, b.seq),
		"scientificName":    name,
		"taxonRank":         rank,
		"taxonomicStatus":   "accepted",
		"datasetID":         b.cfg.DatasetID,
		"nomenclaturalCode": "ICZN",
	}
	if parent != "" {
		fields["parentNameUsageID"] = parent
	}
	for k, v := range l {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	r := domain.NewRecord(b.line, fields)
	b.ds.Add(r)
	return r
}

func (b *treeBuilder) phylum(root *domain.Record, i int) {
	name := phylumNames[i%len(phylumNames)]
	l := lineage{"kingdom": kingdomName}.extend("phylum", name)
	p := b.emit("phylum", name, taxonID(root), l, nil)
	for j := 0; j < b.cfg.ClassesPerPhylum; j++ {
		b.class(p, l)
	}
}

func (b *treeBuilder) class(parent *domain.Record, l lineage) {
	name := classNames[b.rng.Intn(len(classNames))]
	l = l.extend("class_", name)
	c := b.emit("class", name, taxonID(parent), l, nil)
	for i := 0; i < b.cfg.OrdersPerClass; i++ {
		b.order(c, l)
	}
}

func (b *treeBuilder) order(parent *domain.Record, l lineage) {
	name := orderStems[b.rng.Intn(len(orderStems))] + orderSuffixes[b.rng.Intn(len(orderSuffixes))]
	l = l.extend("order", name)
	o := b.emit("order", name, taxonID(parent), l, nil)
	for i := 0; i < b.cfg.FamiliesPerOrder; i++ {
		b.family(o, l)
	}
}

func (b *treeBuilder) family(parent *domain.Record, l lineage) {
	name := familyStems[b.rng.Intn(len(familyStems))] + "idae"
	l = l.extend("family", name)
	f := b.emit("family", name, taxonID(parent), l, nil)
	for i := 0; i < b.cfg.GeneraPerFamily; i++ {
		b.genus(f, l)
	}
}

func (b *treeBuilder) genus(parent *domain.Record, l lineage) {
	name := genusStems[b.rng.Intn(len(genusStems))] + genusSuffixes[b.rng.Intn(len(genusSuffixes))]
	l = l.extend("genus", name)
	g := b.emit("genus", name, taxonID(parent), l, nil)
	b.genera = append(b.genera, g)

	perm := b.rng.Perm(len(specificEpithets))
	for i := 0; i < b.cfg.SpeciesPerGenus; i++ {
		epithet := specificEpithets[perm[i%len(perm)]]
		sp := b.emit("species", name+" "+epithet, taxonID(g), l, map[string]any{
			"specificEpithet":          epithet,
			"scientificNameAuthorship": b.authorship(),
		})
		b.species = append(b.species, sp)

		if b.rng.Float64() < b.cfg.SynonymFraction {
			b.synonym(sp, name, specificEpithets[perm[(i+7)%len(perm)]], l)
		}
	}
}

// synonym emits a species-rank row pointing at its accepted name. The
// row carries no parent: a row with both references is a validation
// defect, not a synonym.
func (b *treeBuilder) synonym(accepted *domain.Record, genusName, epithet string, l lineage) {
	b.seq++
	b.line++
	fields := map[string]any{
		"taxonID":                  fmt.Sprintf("%s-%06d", b.cfg.DatasetID, b.seq),
		"scientificName":           genusName + " " + epithet,
		"specificEpithet":          epithet,
		"scientificNameAuthorship": b.authorship(),
		"taxonRank":                "species",
		"taxonomicStatus":          "synonym",
		"acceptedNameUsageID":      taxonID(accepted),
		"datasetID":                b.cfg.DatasetID,
		"nomenclaturalCode":        "ICZN",
	}
	for k, v := range l {
		fields[k] = v
	}
	b.ds.Add(domain.NewRecord(b.line, fields))
}

func (b *treeBuilder) authorship() any {
	if b.rng.Float64() > 0.6 {
		return nil
	}
	author := fmt.Sprintf("%s, %d", authorNames[b.rng.Intn(len(authorNames))], 1788+b.rng.Intn(211))
	if b.rng.Float64() < 0.3 {
		return "(" + author + ")"
	}
	return author
}

func (b *treeBuilder) injectDefects() {
	d := b.cfg.Defects

	pool := append([]*domain.Record(nil), b.species...)
	var r *domain.Record
	for i := 0; i < d.DanglingParents && len(pool) > 0; i++ {
		r, pool = b.pick(pool)
		r.Set("parentNameUsageID", fmt.Sprintf("%s-missing-%02d", b.cfg.DatasetID, i+1))
	}

	for i := 0; i < d.DuplicateIDs && len(pool) > 0; i++ {
		r, pool = b.pick(pool)
		b.line++
		fields := make(map[string]any, len(r.Data()))
		for k, v := range r.Data() {
			fields[k] = v
		}
		epithet := specificEpithets[b.rng.Intn(len(specificEpithets))]
		fields["scientificName"] = r.GetString("genus") + " " + epithet
		fields["specificEpithet"] = epithet
		fields["scientificNameAuthorship"] = b.authorship()
		b.ds.Add(domain.NewRecord(b.line, fields))
	}

	genera := append([]*domain.Record(nil), b.genera...)
	var a, c *domain.Record
	for i := 0; i < d.ParentCycles && len(genera) >= 2; i++ {
		a, genera = b.pick(genera)
		c, genera = b.pick(genera)
		a.Set("parentNameUsageID", taxonID(c))
		c.Set("parentNameUsageID", taxonID(a))
	}
}

// pick removes and returns a random record from the pool, so repeated
// defects never land on the same row.
func (b *treeBuilder) pick(pool []*domain.Record) (*domain.Record, []*domain.Record) {
	i := b.rng.Intn(len(pool))
	r := pool[i]
	pool[i] = pool[len(pool)-1]
	return r, pool[:len(pool)-1]
}

func taxonID(r *domain.Record) string { return r.GetString("taxonID") }

// Summary tallies a generated dataset for reports and assertions.
type Summary struct {
	Total    int
	Synonyms int
	ByRank   map[string]int
}

// Summarize counts a dataset's rows by rank and status.
func Summarize(ds *domain.Dataset) Summary {
	s := Summary{ByRank: make(map[string]int)}
	for _, r := range ds.Records() {
		s.Total++
		s.ByRank[r.GetString("taxonRank")]++
		if r.GetString("taxonomicStatus") == "synonym" {
			s.Synonyms++
		}
	}
	return s
}
