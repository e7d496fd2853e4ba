package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/taxonflow/taxonflow/infrastructure/io"
	"github.com/taxonflow/taxonflow/infrastructure/middleware"
	"github.com/taxonflow/taxonflow/infrastructure/schemas"
	"github.com/taxonflow/taxonflow/internal/domain"
	"github.com/taxonflow/taxonflow/internal/orchestrate"
	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// configKeys maps configuration keys to the flags backing them; keys use
// underscores, flag names dashes.
var configKeys = map[string]string{
	"base":         "base",
	"input":        "input",
	"output":       "output",
	"work":         "work",
	"config_dirs":  "config-dirs",
	"sources":      "sources",
	"only":         "only",
	"verbose":      "verbose",
	"log_json":     "log-json",
	"dump":         "dump",
	"clear_work":   "clear-work",
	"report_every": "report-every",
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Verbose, cfg.LogJSON)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	metrics := middleware.NewNodeMetrics(registry)

	opts := append(cfg.ContextOptions(),
		orchestrate.WithLogger(logger),
		orchestrate.WithObserver(metrics),
		orchestrate.WithSinkFactory(io.CSVSinkFactory()),
	)
	pc, err := orchestrate.NewContext("all", opts...)
	if err != nil {
		return err
	}

	graph, err := buildGraph(cfg)
	if err != nil {
		return err
	}

	logger.Infow("starting run",
		"sources", cfg.Sources,
		"input", cfg.InputDir,
		"output", cfg.OutputDir,
		"work", cfg.WorkDir,
		"only", cfg.Only,
	)
	if err := orchestrate.Run(cmd.Context(), pc, graph); err != nil {
		return err
	}
	return pushMetrics(cmd, registry, logger)
}

// loadConfig resolves the run configuration in precedence order:
// explicit flags, then environment variables (TAXONFLOW_*), then the
// settings file, then flag defaults.
func loadConfig(cmd *cobra.Command) (*orchestrate.RunConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("TAXONFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, flag := range configKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	if settings, err := cmd.Flags().GetString("settings"); err == nil && settings != "" {
		v.SetConfigFile(settings)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
	}

	var cfg orchestrate.RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newLogger builds the run logger: console encoding for people, JSON for
// machines, debug level when verbose.
func newLogger(verbose, json bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// buildGraph assembles the root graph: the control table feeding a
// selector over the job registry. A control table that fails to load
// aborts the run; without it there is nothing to do.
func buildGraph(cfg *orchestrate.RunConfig) (pipeline.Node, error) {
	srcOpts := []io.Option{io.WithNodeOptions(pipeline.WithFailOnError())}
	if len(cfg.Only) > 0 {
		srcOpts = append(srcOpts, io.WithPredicate(onlyRows(cfg.Only)))
	}
	sources := io.NewCSVSource("sources", cfg.Sources, schemas.Sources(), srcOpts...)

	selector, err := orchestrate.NewSelector("selector", sources.Output(), "job", jobs())
	if err != nil {
		return nil, err
	}
	return orchestrate.NewOrchestrator("all", []pipeline.Node{sources, selector}), nil
}

// onlyRows keeps the control rows whose id is in the requested set; a
// row with the id "default" always runs.
func onlyRows(only []string) io.PredicateFunc {
	ids := make(map[string]bool, len(only))
	for _, id := range only {
		ids[strings.TrimSpace(id)] = true
	}
	return func(r *domain.Record, _ pipeline.RunContext) (bool, error) {
		id := r.GetString("id")
		return ids[id] || id == "default", nil
	}
}

// pushMetrics delivers the run's metrics to a Pushgateway when one is
// configured. A batch process is gone before any scrape; pushing is how
// the numbers survive it.
func pushMetrics(cmd *cobra.Command, g prometheus.Gatherer, logger *zap.SugaredLogger) error {
	gateway, err := cmd.Flags().GetString("metrics-push")
	if err != nil || gateway == "" {
		return err
	}
	if err := push.New(gateway, "taxonflow").Gatherer(g).Push(); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", gateway, err)
	}
	logger.Infow("metrics pushed", "gateway", gateway)
	return nil
}
