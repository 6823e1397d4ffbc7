package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/artifact"
	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/frontier"
	"github.com/nao1215/sitecrawl/internal/harvest"
	"github.com/nao1215/sitecrawl/internal/model"
)

// NewHarvestCmd creates the harvest command.
func NewHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Download documents referenced by captured scripts",
		Long: `Harvest scans the scripts captured during crawling for document paths,
writes the list to <output-dir>/<host>/pdfs/pdfs.txt and downloads every
document into <output-dir>/<host>/pdfs/. Files are named 1.pdf, 2.pdf, ...
in completion order. A failed download is logged and does not stop the
others.

Crawl runs this step automatically unless --no-harvest is given.

Examples:
  # Harvest the site of urls.json
  sitecrawl harvest

  # Resolve relative paths against a CDN
  sitecrawl harvest --resource-base https://cdn.example.com/files

  # Collect Word documents instead of PDFs
  sitecrawl harvest --resource-pattern '[a-zA-Z0-9/_-]+\.docx'`,
		Args: cobra.NoArgs,
		RunE: runHarvestCmd,
	}

	addFrontierFlags(cmd.Flags())
	cmd.Flags().String("user-agent", "", "Download user agent")
	addHarvestFlags(cmd.Flags())
	addDatabaseFlags(cmd.Flags())

	return cmd
}

// runHarvestCmd executes the harvest command.
func runHarvestCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	store, err := frontier.Load(cfg.FrontierPath)
	if err != nil {
		return err
	}
	layout, err := artifact.NewLayout(cfg.OutputDir, cfg.LogDir, store.BaseURL())
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg, true)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
	}

	// A harvest run has no page counts; it is recorded so its downloads
	// are attributed to the site.
	run := &model.Run{RunID: uuid.NewString(), BaseURL: store.BaseURL(), StartedAt: time.Now()}
	saveRun(ctx, db, run, logger)

	base := cfg.ResourceBaseURL
	if base == "" {
		base = store.BaseURL()
	}
	_, err = runHarvest(ctx, cfg, layout, base, db, run.RunID, logger, cmd.OutOrStdout())

	run.FinishedAt = time.Now()
	run.Remaining = store.Stats().Pending
	saveRun(ctx, db, run, logger)
	return err
}

// runHarvest scans layout's scripts and downloads the matches.
func runHarvest(
	ctx context.Context,
	cfg *config.Config,
	layout *artifact.Layout,
	base string,
	db *database.CrawlDB,
	runID string,
	logger *slog.Logger,
	out io.Writer,
) (*harvest.Summary, error) {
	client, err := harvest.NewHTTPClient(harvest.ClientOptions{
		Timeout:      cfg.DownloadTimeout,
		ProxyAddress: cfg.DownloadProxy,
		UserAgent:    cfg.UserAgent,
		Headers:      cfg.DownloadHeaders,
	})
	if err != nil {
		return nil, err
	}

	scanner, err := harvest.NewScanner(cfg.ResourcePattern)
	if err != nil {
		return nil, err
	}

	opts := []harvest.DownloaderOption{
		harvest.WithConcurrency(cfg.DownloadConcurrency),
		harvest.WithRateLimit(cfg.DownloadRate, cfg.DownloadConcurrency),
		harvest.WithMaxBodySize(cfg.MaxDownloadSize),
		harvest.WithLogger(logger),
	}
	if db != nil {
		opts = append(opts, harvest.WithRecorder(db, runID))
	}

	summary, err := harvest.New(scanner, harvest.NewDownloader(client, opts...), logger).Run(ctx, layout, base)
	if summary != nil {
		fmt.Fprintln(out, "Harvest summary")
		fmt.Fprintf(out, "  found:    %d\n", summary.Found)
		fmt.Fprintf(out, "  saved:    %d\n", summary.Saved)
		fmt.Fprintf(out, "  failed:   %d\n", summary.Failed)
		fmt.Fprintf(out, "  manifest: %s\n", layout.ManifestPath())
	}
	return summary, err
}
