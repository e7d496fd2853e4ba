package orchestrate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// Selector fans a control table out into sub-runs: every control record
// names a job from the registry, and the job runs in a subcontext
// configured from that record. Row values become the subcontext's
// defaults, a directory field relocates the subcontext under the parent
// directories, and a config field extends the input search path.
//
// A control row that names a missing job, or whose job fails, becomes an
// error record; the remaining rows still run. One broken dataset must
// not take the batch down.
type Selector struct {
	pipeline.Base
	control   *domain.Port
	errPort   *domain.Port
	keyField  string
	jobs      map[string]pipeline.Node
	idField   string
	dirField  string
	confField string
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithIDField sets the control field naming each sub-run; defaults to
// "id", falling back to the job name when the field is empty.
func WithIDField(name string) SelectorOption {
	return func(s *Selector) { s.idField = name }
}

// WithDirField sets the control field holding the per-dataset directory;
// defaults to "dir".
func WithDirField(name string) SelectorOption {
	return func(s *Selector) { s.dirField = name }
}

// WithConfigField sets the control field holding the comma-separated
// extra configuration directories; defaults to "configDir".
func WithConfigField(name string) SelectorOption {
	return func(s *Selector) { s.confField = name }
}

// WithSelectorNodeOptions forwards node options to the selector's Base.
func WithSelectorNodeOptions(opts ...pipeline.Option) SelectorOption {
	return func(s *Selector) {
		for _, opt := range opts {
			opt(&s.Base)
		}
	}
}

// NewSelector creates a selector reading the control port and
// dispatching on keyField against the job registry.
func NewSelector(
	id string,
	control *domain.Port,
	keyField string,
	jobs map[string]pipeline.Node,
	opts ...SelectorOption,
) (*Selector, error) {
	if !control.Schema().Has(keyField) {
		return nil, fmt.Errorf("%w %q in control schema", domain.ErrUnknownField, keyField)
	}
	s := &Selector{
		Base:      pipeline.NewBase(id),
		control:   control,
		errPort:   control.ErrorPort(),
		keyField:  keyField,
		jobs:      jobs,
		idField:   "id",
		dirField:  "dir",
		confField: "configDir",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.AddInput("input", control)
	s.AddErrorOutput("error", s.errPort)
	return s, nil
}

// Errors returns the selector's error port.
func (s *Selector) Errors() *domain.Port { return s.errPort }

// Execute runs one sub-run per control record.
func (s *Selector) Execute(ctx context.Context, rc pipeline.RunContext) error {
	pc, ok := rc.(*Context)
	if !ok {
		return fmt.Errorf("selector %s requires an orchestrate.Context", s.ID())
	}
	ds, err := pc.Acquire(s.control)
	if err != nil {
		return err
	}

	errDS := domain.NewDataset()
	for _, r := range ds.Records() {
		s.Count(rc, pipeline.CountProcessed, 1)

		job := r.GetString(s.keyField)
		if job == "" {
			errDS.Add(domain.NewErrorRecord(r, fmt.Sprintf("no %s for control record", s.keyField)))
			s.Count(rc, pipeline.CountErrors, 1)
			continue
		}
		node, found := s.jobs[job]
		if !found {
			errDS.Add(domain.NewErrorRecord(r, fmt.Sprintf("%v %q", pipeline.ErrUnknownJob, job)))
			s.Count(rc, pipeline.CountErrors, 1)
			continue
		}

		sub, err := s.subcontextFor(pc, r, job)
		if err != nil {
			errDS.Add(domain.NewErrorRecord(r, err.Error()))
			s.Count(rc, pipeline.CountErrors, 1)
			continue
		}

		s.Logger().Infow("running job", "job", job, "context", sub.ID())
		if err := Run(ctx, sub, node); err != nil {
			errDS.Add(domain.NewErrorRecord(r, fmt.Sprintf("job %q: %v", job, err)))
			s.Count(rc, pipeline.CountErrors, 1)
			continue
		}
		sub.MergeUp()
		s.Count(rc, pipeline.CountAccepted, 1)
	}
	return pc.Save(s.errPort, errDS)
}

// subcontextFor builds the subcontext a control record's job runs in:
// row values become defaults, the directory field relocates input,
// output, and work under the parent directories, and the config field's
// comma-separated entries extend the search path.
func (s *Selector) subcontextFor(pc *Context, r *domain.Record, job string) (*Context, error) {
	defaults := make(map[string]string)
	for _, f := range s.control.Schema().Fields() {
		if !r.Has(f.Name()) {
			continue
		}
		v, err := f.Serialize(r.Get(f.Name()))
		if err != nil {
			return nil, fmt.Errorf("control field %s: %w", f.Name(), err)
		}
		defaults[f.Name()] = v
	}

	id := r.GetString(s.idField)
	if id == "" {
		id = job
	}

	opts := []ContextOption{WithDefaults(defaults)}
	if dir := r.GetString(s.dirField); dir != "" {
		if pc.InputDir() != "" {
			opts = append(opts, WithInputDir(filepath.Join(pc.InputDir(), dir)))
		}
		if pc.OutputDir() != "" {
			opts = append(opts, WithOutputDir(filepath.Join(pc.OutputDir(), dir)))
		}
		if pc.WorkDir() != "" {
			opts = append(opts, WithWorkDir(filepath.Join(pc.WorkDir(), dir)))
		}
	}
	if conf := r.GetString(s.confField); conf != "" {
		dirs := resolveConfigDirs(conf, pc)
		opts = append(opts, func(c *Context) error {
			c.configDirs = dirs
			return nil
		})
	}
	return pc.Subcontext(id, opts...)
}

// resolveConfigDirs expands a comma-separated config entry list against
// the parent context: relative entries join each parent config
// directory, or the parent input directory when there are none; the
// parent's own config directories stay on the path after them.
func resolveConfigDirs(conf string, pc *Context) []string {
	var resolved []string
	for _, entry := range strings.Split(conf, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if filepath.IsAbs(entry) {
			resolved = append(resolved, entry)
			continue
		}
		if len(pc.ConfigDirs()) == 0 {
			if pc.InputDir() != "" {
				resolved = append(resolved, filepath.Join(pc.InputDir(), entry))
			}
			continue
		}
		for _, parent := range pc.ConfigDirs() {
			resolved = append(resolved, filepath.Join(parent, entry))
		}
	}
	return append(resolved, pc.ConfigDirs()...)
}

// Compile-time verification that Selector is a Node.
var _ pipeline.Node = (*Selector)(nil)
