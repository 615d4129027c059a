package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"tabula-hq/formula/pkg/telemetry/health"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including Git commit and build date.`,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Formulacalc %s\n", Version)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// buildInfo is served on the version endpoint of the watch command.
func buildInfo() health.BuildInfo {
	return health.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		GoVersion: runtime.Version(),
	}
}
