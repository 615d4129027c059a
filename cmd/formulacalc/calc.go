package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/cli"
	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/engine"
	"tabula-hq/formula/pkg/records"
)

var calcFlags struct {
	schemaPath string
	recordsCfg config.RecordsConfig
	outPath    string
	changed    string
	noProgress bool
	stats      bool
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute formula columns for a set of records",
	Long: `Compute every formula column of the schema for every record and write
the records, with the computed values under "custom", as JSON.

Records are read from a JSON array or a SQLite table. Calculations that fail
are reported on stderr and leave their value unset; the other records are
still written.

With --changed, only the columns that read the changed column, directly or
transitively, are recomputed.

Examples:
  formulacalc calc --schema columns.yaml --records leads.json --out scored.json
  formulacalc calc --records leads.db --backend sqlite --table leads --id-column lead_id
  formulacalc calc --records leads.json --changed budget --stats`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := cli.SetupSignalHandler()
		defer stop()
		cmd.SetContext(ctx)

		return runCalc(cmd, a)
	},
}

func init() {
	rootCmd.AddCommand(calcCmd)

	f := calcCmd.Flags()
	f.StringVar(&calcFlags.schemaPath, "schema", "", "column schema file or directory (default from config)")
	f.StringVar(&calcFlags.recordsCfg.Path, "records", "", "record file or database (default from config)")
	f.StringVar(&calcFlags.recordsCfg.Backend, "backend", "", "record source: json or sqlite (default from config)")
	f.StringVar(&calcFlags.recordsCfg.Table, "table", "", "SQLite table (default from config)")
	f.StringVar(&calcFlags.recordsCfg.IDColumn, "id-column", "", "field holding the record id (default from config)")
	f.StringVar(&calcFlags.outPath, "out", "", "write records here instead of stdout")
	f.StringVar(&calcFlags.changed, "changed", "", "recompute only the columns affected by this column")
	f.BoolVar(&calcFlags.noProgress, "no-progress", false, "do not print progress")
	f.BoolVar(&calcFlags.stats, "stats", false, "print engine performance metrics on stderr")
}

// recordsConfig merges the flag values over the configured record source.
func (a *app) recordsConfig(flags config.RecordsConfig) config.RecordsConfig {
	rc := a.cfg.Records
	if flags.Path != "" {
		rc.Path = flags.Path
	}
	if flags.Backend != "" {
		rc.Backend = flags.Backend
	}
	if flags.Table != "" {
		rc.Table = flags.Table
	}
	if flags.IDColumn != "" {
		rc.IDColumn = flags.IDColumn
	}
	return rc
}

func runCalc(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	if _, err := a.loadSchema(ctx, a.schemaPath(calcFlags.schemaPath)); err != nil {
		printFormulaErrors(stderr, err)
		return err
	}

	rc := a.recordsConfig(calcFlags.recordsCfg)
	if rc.Path == "" {
		return cli.NewConfigError("records.path", "no record source given (use --records)")
	}

	var progress cli.ProgressReporter
	if !calcFlags.noProgress {
		progress = cli.NewProgressReporter(stderr)
	}

	batch, err := calculate(ctx, a, rc, calcFlags.changed, progress)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if calcFlags.outPath != "" {
		file, err := os.Create(calcFlags.outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := records.Encode(out, batch.Records, rc.IDColumn); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	printSummary(stderr, batch)
	if calcFlags.stats {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(stderr, a.eng.GetPerformanceMetrics()); err != nil {
			return err
		}
	}
	return nil
}

// calculate loads the records of rc and runs a full batch, or only the
// columns affected by changed when it is not empty.
func calculate(ctx context.Context, a *app, rc config.RecordsConfig, changed string, progress cli.ProgressReporter) (*engine.Batch, error) {
	src, err := records.Open(rc, a.logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	recs, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	var onProgress engine.ProgressFunc
	if progress != nil {
		onProgress = cli.EngineProgress(progress)
	}

	var batch *engine.Batch
	if changed != "" {
		batch, err = a.eng.RecalculateAffected(ctx, changed, recs, nil, onProgress)
	} else {
		batch, err = a.eng.CalculateBatch(ctx, recs, nil, onProgress)
	}
	if progress != nil {
		if err != nil {
			progress.Error(err)
		} else {
			progress.Finish()
		}
	}
	return batch, err
}

const maxReportedFailures = 10

func printSummary(w io.Writer, batch *engine.Batch) {
	failed := batch.Failed()
	fmt.Fprintf(w, "✓ %d calculations over %d records in %s (%d failed)\n",
		len(batch.Results), len(batch.Records), batch.Duration().Round(time.Millisecond), len(failed))

	for i, r := range failed {
		if i == maxReportedFailures {
			fmt.Fprintf(w, "  ... and %d more\n", len(failed)-maxReportedFailures)
			break
		}
		fmt.Fprintf(w, "  ✗ record %s, column %s: %s\n", r.RecordID, r.ColumnID, r.Error)
	}
}
