package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/seocheck/internal/config"
	"github.com/nao1215/seocheck/internal/database"
	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/model"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getStringFlag retrieves a string flag defined on the command or the root.
func getStringFlag(cmd *cobra.Command, name string) (string, error) {
	if v, err := cmd.Flags().GetString(name); err == nil {
		return v, nil
	}
	return cmd.Root().PersistentFlags().GetString(name)
}

// newLogger creates the structured logger for cmd. Logs go to stderr so
// reports written to stdout stay machine readable.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return log.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
}

// loadConfig creates a Config from the global flags and the configuration file.
// An explicitly given configuration file must exist; a missing default
// file leaves the site overrides empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.LogFormat, err = getStringFlag(cmd, "log-format"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = getStringFlag(cmd, "config"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = getStringFlag(cmd, "db-dir"); err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	return cfg, nil
}

// addReportFlags adds the flags selecting report format and destination.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", config.DefaultReportFormat,
		"Report format: simple, json, markdown or csv")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-db", false,
		"Do not store the report in the history database")
}

// applyReportFlags copies the report flags into cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.ReportFormat, err = cmd.Flags().GetString("format"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noDB
	return nil
}

// openOutput returns the report destination: the report file when one is
// configured, otherwise the command's stdout. The returned close function
// must always be called.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may list private URLs, so only the owner can read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// openHistory opens the history database when cfg.SaveToDB is set.
// It returns nil when saving is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.HistoryDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// saveReport stores report and its crawl errors. A nil db is a no-op.
func saveReport(ctx context.Context, db *database.HistoryDB, report *model.Report, events []model.ErrorEvent, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	for _, ev := range events {
		if err := db.SaveErrorEvent(ctx, report.Site, ev); err != nil {
			return fmt.Errorf("failed to save error event: %w", err)
		}
	}

	logger.Info("report saved to database", "site", report.Site, "id", id, "errors", len(events))
	return nil
}
