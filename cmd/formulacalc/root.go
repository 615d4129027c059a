package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/engine"
	"tabula-hq/formula/pkg/schema"
	"tabula-hq/formula/pkg/schema/source"
	"tabula-hq/formula/pkg/telemetry"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	logLevel     string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "formulacalc",
	Short: "Formulacalc - formula columns for tabular records",
	Long: `Formulacalc computes formula columns over tabular records.

A column schema declares data columns and formula columns such as
CONCAT(firstName, " ", lastName) or ROUND(budget * 1.2, 2). Formulacalc
validates the schema, orders the formula columns by their dependencies and
computes them for every record on a pool of workers.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// error: 2 for formula errors, 3 for configuration errors, 1 otherwise.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, csv)")
}

// loadConfig loads the process configuration and applies the global flag
// overrides to a private copy.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	c := *config.MustGetConfig()
	cfg := &c

	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// formatter returns the formatter selected by --output.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}

// app is the engine and its telemetry, as used by one command.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	eng    *engine.Engine
	logger *slog.Logger
}

// newApp builds telemetry and starts an engine from cfg.
func newApp(cfg *config.Config) (*app, error) {
	tel, err := telemetry.New(&cfg.Telemetry)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	logger := tel.Logger()
	slog.SetDefault(logger)

	collector := tel.Metrics()
	eng, err := engine.New(engine.FromConfig(cfg), logger,
		engine.WithMetrics(collector),
		engine.WithCacheMetrics(collector.Cache("calculation")),
	)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, cli.NewConfigError("engine", err.Error())
	}

	return &app{cfg: cfg, tel: tel, eng: eng, logger: logger}, nil
}

// setup loads the configuration and builds the app.
func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

// Close stops the engine and flushes telemetry.
func (a *app) Close() {
	a.eng.Terminate()
	if err := a.tel.Shutdown(context.Background()); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// schemaPath returns the flag value, falling back to the configured path.
func (a *app) schemaPath(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Schema.Path
}

// loadSchema reads the column schema at path and initializes the engine
// with it.
func (a *app) loadSchema(ctx context.Context, path string) ([]schema.Column, error) {
	columns, err := source.NewFileSource(path, a.logger).Load(ctx)
	if err != nil {
		return nil, cli.NewConfigError("schema.path", err.Error())
	}
	if err := a.eng.Initialize(ctx, columns); err != nil {
		return nil, err
	}
	return columns, nil
}

// printFormulaErrors writes one line per error of an error list.
func printFormulaErrors(w io.Writer, err error) {
	var errs interface{ Unwrap() []error }
	if !errors.As(err, &errs) {
		return
	}
	for _, e := range errs.Unwrap() {
		fmt.Fprintf(w, "  ✗ %v\n", e)
	}
}
