package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/logger"
)

var (
	cleanMode    string
	cleanDryRun  bool
	cleanVerbose bool
)

// cleanCmd runs one manual cleanup without starting the monitor loop.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run a one-shot cleanup",
	Long: `Run one manual cleanup in the given mode and print what was deleted.
Modes: routine, normal, emergency (alias disk_pressure), idle.
With --dry-run nothing is removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := cleanup.ParseMode(cleanMode)
		if err != nil {
			return err
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		log := logger.Nop()
		if cleanVerbose {
			log, err = logger.NewWithWriter(cmd.ErrOrStderr(), logger.Config{Level: "debug", Format: "text"})
			if err != nil {
				return err
			}
		}

		m := cleanup.NewManager(cleanup.NewPolicy(cfg), cleanup.Options{Logger: log})

		run := m.TriggerManualCleanup
		if cleanDryRun {
			run = m.Preview
		}
		res, err := run(cmd.Context(), mode)
		if err != nil {
			return err
		}

		printResult(cmd.OutOrStdout(), res)
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d files could not be deleted", len(res.Failed))
		}
		return nil
	},
}

func printResult(out io.Writer, res cleanup.Result) {
	verb := "deleted"
	if res.DryRun {
		verb = "would delete"
	}
	for _, d := range res.Deleted {
		fmt.Fprintf(out, "%-12s %-14s %10s  %s\n", verb, d.Reason, cleanup.FormatSize(d.Size), d.Path)
	}
	for _, f := range res.Failed {
		fmt.Fprintf(out, "%-12s %-14s %10s  %s: %v\n", "failed", f.Reason, "-", f.Path, f.Err)
	}
	fmt.Fprintf(out, "mode=%s files=%d failed=%d freed=%s dry_run=%t\n",
		res.Mode, len(res.Deleted), len(res.Failed), cleanup.FormatSize(res.BytesFreed), res.DryRun)
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanMode, "mode", "m", string(cleanup.ModeNormal), "Cleanup mode (routine, normal, emergency, idle)")
	cleanCmd.Flags().BoolVarP(&cleanDryRun, "dry-run", "n", false, "Report what would be deleted without deleting")
	cleanCmd.Flags().BoolVarP(&cleanVerbose, "verbose", "v", false, "Log every decision to stderr")
}
