package dwc

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// namePattern is a lightweight lexical check for scientific names: a
// capitalized uninomial, an optional parenthesised subgenus, and up to
// three lowercase epithets. It catches placeholder strings and inverted
// author text, not nomenclatural subtleties.
var namePattern = regexp.MustCompile(`^[A-Z][a-z'-]+( \([A-Z][a-z'-]+\))?( [a-z'×.-]+){0,3}$`)

// TaxonValidate checks a taxon-shaped dataset for structural defects: a
// missing identifier, a row declaring both a parent and an accepted
// reference, and parent or accepted references that do not resolve
// within the dataset. With WithNameCheck the scientific name must also
// pass a lexical pattern. A failing row lands on the error port carrying
// every violation found on it, not just the first.
type TaxonValidate struct {
	pipeline.Base
	input   *domain.Port
	output  *domain.Port
	errPort *domain.Port

	idKeys       domain.Keys
	parentKeys   domain.Keys
	acceptedKeys domain.Keys
	nameKeys     domain.Keys
	nameCheck    bool
}

var _ pipeline.Node = (*TaxonValidate)(nil)

// NewTaxonValidate creates a validator for the input port. The
// identifier, parent, and accepted fields default to the Darwin Core
// terms and must exist in the input schema.
func NewTaxonValidate(id string, input *domain.Port, opts ...Option) (*TaxonValidate, error) {
	cfg := newConfig(opts...)
	ik, err := domain.NewKeys(input.Schema(), cfg.idField)
	if err != nil {
		return nil, err
	}
	pk, err := domain.NewKeys(input.Schema(), cfg.parentField)
	if err != nil {
		return nil, err
	}
	ak, err := domain.NewKeys(input.Schema(), cfg.acceptedField)
	if err != nil {
		return nil, err
	}
	v := &TaxonValidate{
		Base:         pipeline.NewBase(id, cfg.node...),
		input:        input,
		output:       domain.NewPort(input.Schema()),
		errPort:      input.ErrorPort(),
		idKeys:       ik,
		parentKeys:   pk,
		acceptedKeys: ak,
		nameCheck:    cfg.nameCheck,
	}
	if cfg.nameCheck {
		nk, err := domain.NewKeys(input.Schema(), cfg.nameField)
		if err != nil {
			return nil, err
		}
		v.nameKeys = nk
	}
	v.AddInput("input", input)
	v.AddOutput("output", v.output)
	v.AddErrorOutput("error", v.errPort)
	return v, nil
}

// Output returns the port carrying rows that passed every check.
func (v *TaxonValidate) Output() *domain.Port { return v.output }

// Errors returns the error port.
func (v *TaxonValidate) Errors() *domain.Port { return v.errPort }

// Execute checks every row against the dataset's own identifiers.
func (v *TaxonValidate) Execute(_ context.Context, rc pipeline.RunContext) error {
	data, err := rc.Acquire(v.input)
	if err != nil {
		return err
	}

	// Resolution is checked against the set of identifiers actually
	// present, so rows with missing or duplicate identifiers still get
	// their own verdicts instead of poisoning the whole node.
	present := make(map[string]bool, data.Len())
	for _, r := range data.Records() {
		if kv := v.idKeys.Get(r); kv != nil {
			present[domain.KeyHash(kv)] = true
		}
	}

	result := domain.NewDataset()
	errDS := domain.NewDataset()
	for _, r := range data.Records() {
		problems := v.check(r, present)
		if len(problems) > 0 {
			errDS.Add(domain.NewErrorRecord(r, strings.Join(problems, ", ")))
			v.Count(rc, pipeline.CountErrors, 1)
		} else {
			result.Add(r)
			v.Count(rc, pipeline.CountAccepted, 1)
		}
		v.Count(rc, pipeline.CountProcessed, 1)
	}
	if err := rc.Save(v.output, result); err != nil {
		return err
	}
	return rc.Save(v.errPort, errDS)
}

func (v *TaxonValidate) check(r *domain.Record, present map[string]bool) []string {
	var problems []string
	idName := v.idKeys.Fields()[0].Name()
	id := v.idKeys.Get(r)
	label := fmt.Sprint(id)
	if id == nil {
		problems = append(problems, fmt.Sprintf("no %s at line %d", idName, r.Line()))
		label = "#" + strconv.Itoa(r.Line())
	}
	parent := v.parentKeys.Get(r)
	accepted := v.acceptedKeys.Get(r)
	if parent != nil && accepted != nil {
		problems = append(problems, fmt.Sprintf("record %s has both parent and accepted references", label))
	}
	if parent != nil && !present[domain.KeyHash(parent)] {
		problems = append(problems, fmt.Sprintf("record %s has missing parent %v", label, parent))
	}
	if accepted != nil && !present[domain.KeyHash(accepted)] {
		problems = append(problems, fmt.Sprintf("record %s has missing accepted %v", label, accepted))
	}
	if v.nameCheck {
		if name, ok := v.nameKeys.Get(r).(string); ok && name != "" && !namePattern.MatchString(name) {
			problems = append(problems, fmt.Sprintf("record %s has malformed name %q", label, name))
		}
	}
	return problems
}
