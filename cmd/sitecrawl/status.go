package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/frontier"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// Number of history rows shown by status.
const (
	statusFailureLimit = 10
	statusRunLimit     = 5
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show crawl progress",
		Long: `Status reads the frontier file and prints how many URLs are known,
visited and pending, and which URL the next run starts with.

When the crawl database is available, recent failures, recent runs and
download counts are included.

Examples:
  sitecrawl status
  sitecrawl status --json
  sitecrawl status --markdown --report status.md`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().StringP("frontier", "f", config.DefaultFrontierFile,
		"Frontier file holding crawl progress")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write the status to this file instead of stdout")
	addDatabaseFlags(cmd.Flags())

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if asJSON && asMarkdown {
		return config.ErrConflictingReportFormats
	}
	reportFile, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg)

	status, err := buildStatus(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if reportFile != "" {
		if err := os.MkdirAll(filepath.Dir(reportFile), 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		f, err := os.Create(reportFile) //nolint:gosec // report path is chosen by the user
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	var w report.Writer
	switch {
	case asJSON:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case asMarkdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	if _, err := w.Write(status); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	if reportFile != "" {
		logger.Info("status written", "path", reportFile)
	}
	return nil
}

// buildStatus reads the frontier and, when present, the crawl database.
func buildStatus(ctx context.Context, cfg *config.Config) (*model.Status, error) {
	store, err := frontier.Load(cfg.FrontierPath)
	if err != nil {
		return nil, err
	}

	st := store.Stats()
	status := &model.Status{
		BaseURL:       store.BaseURL(),
		FrontierPath:  cfg.FrontierPath,
		Known:         st.Known,
		Visited:       st.Visited,
		Pending:       st.Pending,
		InternalLinks: st.InternalLinks,
		ExternalLinks: st.ExternalLinks,
		GeneratedAt:   time.Now(),
	}
	if next, ok := store.NextPending(); ok {
		status.NextPending = next
	}

	if !cfg.SaveToDB {
		return status, nil
	}
	if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		return status, nil
	}

	db, err := openDatabase(cfg, false)
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck

	if status.Failures, err = db.ListFailures(ctx, status.BaseURL, statusFailureLimit); err != nil {
		return nil, err
	}
	if status.Runs, err = db.ListRuns(ctx, status.BaseURL, statusRunLimit); err != nil {
		return nil, err
	}
	if status.Downloads, status.DownloadFailures, err = db.CountDownloads(ctx, status.BaseURL); err != nil {
		return nil, err
	}
	return status, nil
}
