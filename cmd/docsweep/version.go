package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/docsweep/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Display the version, build time, git commit and Go version of docsweep.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "docsweep - retention and cleanup engine for document uploads")
		fmt.Fprintf(out, "Version: %s\n", version.Version)
		fmt.Fprintf(out, "Build Time: %s\n", version.BuildTime)
		fmt.Fprintf(out, "Git Commit: %s\n", version.GitCommit)
		fmt.Fprintf(out, "Go Version: %s\n", version.GoVersion)
	},
}
