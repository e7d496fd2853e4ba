package orchestrate

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// RunConfig is the driver-facing configuration for a batch run: the
// directory layout, the control table, and the run flags. It decodes
// from viper (mapstructure tags) or YAML and validates with struct tags.
type RunConfig struct {
	// BaseDir anchors the derived directories when they are not set
	// explicitly.
	BaseDir string `mapstructure:"base" yaml:"base"`
	// InputDir is where source files are read from; defaults to BaseDir.
	InputDir string `mapstructure:"input" yaml:"input" validate:"omitempty,dir"`
	// OutputDir is where final outputs land; defaults to BaseDir/output.
	OutputDir string `mapstructure:"output" yaml:"output"`
	// WorkDir is the scratch space for intermediate and recovered files;
	// defaults to BaseDir/work.
	WorkDir string `mapstructure:"work" yaml:"work"`
	// ConfigDirs extends the input search path.
	ConfigDirs []string `mapstructure:"config_dirs" yaml:"config_dirs"`
	// Sources names the control table file, resolved on the input path.
	Sources string `mapstructure:"sources" yaml:"sources" validate:"required"`
	// Only restricts the run to the named control rows; empty runs all.
	Only []string `mapstructure:"only" yaml:"only"`
	// Defaults seeds the root context's configuration defaults.
	Defaults map[string]string `mapstructure:"defaults" yaml:"defaults"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	// LogJSON switches the log encoder from console to JSON.
	LogJSON bool `mapstructure:"log_json" yaml:"log_json"`
	// Dump writes every node's outputs into the work directory.
	Dump bool `mapstructure:"dump" yaml:"dump"`
	// ClearWork empties the work directory before the run.
	ClearWork bool `mapstructure:"clear_work" yaml:"clear_work"`
	// ReportEvery is the progress reporting interval in rows.
	ReportEvery int `mapstructure:"report_every" yaml:"report_every" validate:"omitempty,min=1"`
}

// Normalize fills the derived directory defaults from BaseDir. Call it
// before Validate.
func (c *RunConfig) Normalize() {
	if c.BaseDir != "" {
		if c.InputDir == "" {
			c.InputDir = c.BaseDir
		}
		if c.OutputDir == "" {
			c.OutputDir = filepath.Join(c.BaseDir, "output")
		}
		if c.WorkDir == "" {
			c.WorkDir = filepath.Join(c.BaseDir, "work")
		}
	}
	if c.Sources == "" {
		c.Sources = "sources.csv"
	}
	if c.ReportEvery == 0 {
		c.ReportEvery = DefaultReportEvery
	}
}

// Validate checks the configuration structurally.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("run configuration: %w", err)
	}
	return nil
}

// ContextOptions renders the configuration as context options for
// building the root context. Logger, observer, and sink factory are the
// caller's to add.
func (c *RunConfig) ContextOptions() []ContextOption {
	opts := []ContextOption{
		WithInputDir(c.InputDir),
		WithOutputDir(c.OutputDir),
		WithWorkDir(c.WorkDir),
		WithConfigDirs(c.ConfigDirs...),
		WithDefaults(c.Defaults),
		WithReportEvery(c.ReportEvery),
	}
	if c.Dump {
		opts = append(opts, WithDump())
	}
	if c.ClearWork {
		opts = append(opts, WithClearWork())
	}
	return opts
}
