package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/docsweep/internal/app"
	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/version"
)

var serveLogLevel string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cleanup engine (main command)",
	Long: `Start the monitor loop, scheduled sweeps and the admin API.
On SIGINT or SIGTERM every registered session file is deleted before exit.`,
	RunE: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		if !logger.ValidLevel(serveLogLevel) {
			return fmt.Errorf("invalid --log-level: %s", serveLogLevel)
		}
		cfg.Logging.Level = serveLogLevel
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()
	logger.SetDefault(log)

	log.Info(version.FormatStartupMessage(),
		logger.Field{Key: "config", Value: path},
		logger.Field{Key: "base_dir", Value: cfg.AutoCleanup.BaseDir},
		logger.Field{Key: "monitoring", Value: cfg.AutoCleanup.Enabled},
		logger.Field{Key: "api", Value: cfg.API.Enabled})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, path, log).Run(ctx); err != nil {
		log.Error("docsweep stopped with error", err)
		return err
	}

	log.Info("docsweep stopped gracefully")
	return nil
}

func init() {
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
