package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/records"
	"tabula-hq/formula/pkg/schema/source"
	"tabula-hq/formula/pkg/server"
	"tabula-hq/formula/pkg/telemetry/health"
)

var watchFlags struct {
	schemaPath string
	recordsCfg config.RecordsConfig
	outPath    string
	listen     string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute records whenever the column schema changes",
	Long: `Load the column schema, compute the configured records and keep running:
every change to the schema file reloads it and, if it is valid, recomputes the
records. An invalid schema is reported and the previous one stays active.

SIGHUP reloads the configuration file. A changed record source takes effect
immediately; the schema path and engine settings take effect on restart.

While running, Prometheus metrics, liveness (/health), readiness (/ready)
and version (/version) endpoints are served on the metrics listen address.

Examples:
  formulacalc watch --config config.yaml
  formulacalc watch --schema columns.yaml --records leads.json --out scored.json --listen :9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := cli.SetupSignalHandler()
		defer stop()

		return runWatch(ctx, a)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	f := watchCmd.Flags()
	f.StringVar(&watchFlags.schemaPath, "schema", "", "column schema file or directory (default from config)")
	f.StringVar(&watchFlags.recordsCfg.Path, "records", "", "record file or database (default from config)")
	f.StringVar(&watchFlags.recordsCfg.Backend, "backend", "", "record source: json or sqlite (default from config)")
	f.StringVar(&watchFlags.recordsCfg.Table, "table", "", "SQLite table (default from config)")
	f.StringVar(&watchFlags.recordsCfg.IDColumn, "id-column", "", "field holding the record id (default from config)")
	f.StringVar(&watchFlags.outPath, "out", "", "write computed records here after every reload")
	f.StringVar(&watchFlags.listen, "listen", "", "metrics and health listen address (default from config)")
}

// session is the state a reload works on. Reloads are serialized.
type session struct {
	a *app

	mu         sync.Mutex
	schemaPath string
	records    config.RecordsConfig
	outPath    string
}

func runWatch(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		a:          a,
		schemaPath: a.schemaPath(watchFlags.schemaPath),
		records:    a.recordsConfig(watchFlags.recordsCfg),
		outPath:    watchFlags.outPath,
	}

	if err := s.reload(ctx); err != nil {
		return err
	}

	srv := s.server(watchFlags.listen)
	if err := srv.Listen(); err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start(ctx) }()

	watcher, err := source.NewWatcher(s.schemaPath, a.cfg.Schema.DebounceInterval, a.logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Watch(ctx, func() error { return s.reload(ctx) })
	}()

	hup := cli.ReloadSignal()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return <-serveErr
		case err := <-serveErr:
			return err
		case err := <-watchErr:
			return err
		case <-hup:
			s.reloadConfig(ctx)
		}
	}
}

// reload loads the schema, initializes the engine and recomputes the
// records when a record source is configured.
func (s *session) reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.a.loadSchema(ctx, s.schemaPath); err != nil {
		printFormulaErrors(os.Stderr, err)
		return err
	}
	if s.records.Path == "" {
		return nil
	}

	batch, err := calculate(ctx, s.a, s.records, "", nil)
	if err != nil {
		return err
	}
	printSummary(os.Stderr, batch)

	if s.outPath == "" {
		return nil
	}
	file, err := os.Create(s.outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()
	return records.Encode(file, batch.Records, s.records.IDColumn)
}

// reloadConfig applies a changed record source from the configuration file
// and reloads.
func (s *session) reloadConfig(ctx context.Context) {
	if cfgFile == "" {
		s.a.logger.Warn("SIGHUP ignored: no configuration file")
		return
	}
	cfg, err := config.ReloadConfig(cfgFile)
	if err != nil {
		s.a.logger.Error("configuration reload failed", "error", err)
		return
	}

	s.mu.Lock()
	if watchFlags.recordsCfg.Path == "" {
		s.records = cfg.Records
	}
	s.mu.Unlock()

	s.a.logger.Info("configuration reloaded", "path", cfgFile)
	if err := s.reload(ctx); err != nil {
		s.a.logger.Error("reload after configuration change failed", "error", err)
	}
}

// server builds the operations server for the metrics and health
// endpoints.
func (s *session) server(addr string) *server.Server {
	cfg := s.a.cfg.Telemetry.Metrics
	srvCfg := server.DefaultConfig()
	srvCfg.ListenAddress = cfg.ListenAddress
	if addr != "" {
		srvCfg.ListenAddress = addr
	}

	checker := health.New(health.DefaultCheckTimeout)
	checker.Register("schema", health.SchemaCheck(s.a.eng))
	checker.Register("workers", health.WorkersCheck(s.a.eng))

	return server.New(srvCfg, server.Routes{
		Metrics:     s.a.tel.MetricsHandler(),
		MetricsPath: cfg.Path,
		Health:      checker,
		BuildInfo:   buildInfo(),
	}, s.a.logger)
}
