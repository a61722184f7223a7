package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/config"
	"github.com/aatumaykin/docsweep/internal/cron"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect docsweep configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file, including cron schedule expressions, and report every error found.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration %s is invalid:\n", path)
			printErrors(cmd, []error{err})
			return err
		}

		var errs []error
		for i, s := range cfg.Schedules {
			if err := cron.ValidateSpec(s.Spec); err != nil {
				errs = append(errs, fmt.Errorf("schedules[%d].spec: %w", i, err))
			}
		}
		if len(errs) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration %s is invalid:\n", path)
			printErrors(cmd, errs)
			return fmt.Errorf("%d validation errors", len(errs))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid\n", path)
		return nil
	},
}

// configShowCmd prints the effective configuration after defaults are applied.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration as TOML after defaults, rule merging and environment expansion.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# source: %s\n", path)
		if err := toml.NewEncoder(out).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}

		fmt.Fprintln(out, "\n# resolved categories")
		for _, c := range cleanup.NewPolicy(cfg).Categories() {
			state := "enabled"
			if !c.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(out, "# %-18s %-8s keep %dd  %s\n", c.Name, state, c.RetentionDays, c.Dir)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
