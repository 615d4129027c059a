/*
Package cli provides the output formatters, progress reporting, error
classification and signal helpers used by the formulacalc command.

Output Formatting:

Results are printed as text, JSON or CSV. Tabular results use Table so that
the text and CSV formatters can lay them out as rows:

	table := &cli.Table{Headers: []string{"column", "depends on"}}
	table.Append("score", "budget, size")
	if err := cli.NewFormatter(cli.FormatCSV).FormatTo(os.Stdout, table); err != nil {
		return err
	}

Progress Reporting:

A batch reports progress after every chunk. EngineProgress adapts a
reporter to the engine's callback:

	progress := cli.NewProgressReporter(os.Stderr)
	batch, err := eng.CalculateBatch(ctx, records, nil, cli.EngineProgress(progress))
	progress.Finish()

Exit Codes:

ExitCode maps an error to the process exit status. Formula errors (syntax,
unknown function, circular schema) exit with 2, configuration errors with 3
and everything else with 1.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
