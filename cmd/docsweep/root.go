package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/docsweep/internal/config"
	"github.com/aatumaykin/docsweep/internal/constants"
)

var (
	configPath string
	envPath    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docsweep",
	Short: "docsweep - retention and cleanup engine for document uploads",
	Long: `docsweep watches the working directories of a document-processing service
(uploads, OCR results, reports, temporary images, cache) and deletes files
according to per-category retention rules, disk pressure and idle time.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: first of ./config.toml, ./config.yaml, ./cleanup_config.json)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", constants.DefaultEnvPath, "Path to .env file (optional)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
}

// resolveConfigPath returns the --config flag or the first existing default location.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	for _, p := range constants.ConfigSearchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return constants.DefaultConfigPath
}

// loadConfig loads .env and the validated configuration file.
func loadConfig() (*config.Config, string, error) {
	if err := config.LoadEnvOptional(envPath); err != nil {
		return nil, "", err
	}

	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func printErrors(cmd *cobra.Command, errs []error) {
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
	}
}
