package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/artifact"
	"github.com/nao1215/sitecrawl/internal/browser"
	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/frontier"
	"github.com/nao1215/sitecrawl/internal/model"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl a website, resuming from the frontier file",
		Long: `Crawl visits every pending URL of the frontier file in a headless browser.

The seed URL is only needed for the first run. Once the frontier file
exists, crawl resumes from it and the seed is ignored. The frontier is
written after every page, so the crawl can be interrupted with Ctrl+C at
any time without losing more than the page in progress.

For each page, the following is stored under <output-dir>/<host>/pages/:
- screenshot.png, a full page screenshot
- page.html, the rendered HTML
- page.json, title, description, keywords, text blocks and links

Pages that fail are logged to <log-dir> and stay pending for the next run.
After the crawl, scripts captured from the site are scanned for document
paths, which are downloaded to <output-dir>/<host>/pdfs/.

Examples:
  # Start a new crawl
  sitecrawl crawl https://www.example.com

  # Resume it later
  sitecrawl crawl

  # Visit at most 50 pages, then stop
  sitecrawl crawl --max-pages 50

  # Crawl French pages and skip the download step
  sitecrawl crawl --language fr --no-harvest https://www.example.fr`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	addFrontierFlags(cmd.Flags())

	cmd.Flags().DurationP("timeout", "t", config.DefaultNavigationTimeout,
		"Navigation timeout for one page")
	cmd.Flags().Duration("settle", config.DefaultSettleDelay,
		"Wait after navigation before capturing the page")
	cmd.Flags().String("wait", config.DefaultWaitPolicy,
		"When navigation counts as done: networkidle, load or domcontentloaded")
	cmd.Flags().String("ready-selector", config.DefaultReadySelector,
		"CSS selector that must exist before capture")
	cmd.Flags().StringP("language", "l", config.DefaultLanguage,
		"Only process pages declaring this language")
	cmd.Flags().Bool("language-family", false,
		"Also accept regional variants of --language (en-US for en)")
	cmd.Flags().String("script-host", "",
		"Keep scripts from hosts ending in this value (default: the site's registrable domain)")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop after this many pages (0 means no limit)")

	cmd.Flags().Bool("headless", true, "Run the browser without a window")
	cmd.Flags().String("user-agent", "", "Browser and download user agent")
	cmd.Flags().String("browser-proxy", "", "Proxy server for the browser (e.g. socks5://127.0.0.1:1080)")
	cmd.Flags().String("chrome-path", "", "Chrome executable (default: auto-detect)")

	cmd.Flags().Bool("no-harvest", false, "Skip downloading documents after the crawl")
	addHarvestFlags(cmd.Flags())
	addDatabaseFlags(cmd.Flags())

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Seed = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// runCrawl loads or creates the frontier, crawls it and harvests resources.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	if cfg.Seed != "" {
		if _, err := os.Stat(cfg.FrontierPath); err == nil {
			logger.Info("frontier exists, ignoring seed", "frontier", cfg.FrontierPath, "seed", cfg.Seed)
		}
	}

	store, err := frontier.LoadOrInit(cfg.FrontierPath, cfg.Seed)
	if err != nil {
		if errors.Is(err, frontier.ErrNoSeed) {
			return fmt.Errorf("%w: pass a seed URL to start a new crawl", err)
		}
		return err
	}
	// Write the frontier right away so a new crawl is resumable even if
	// the first page never finishes.
	if err := store.Persist(cfg.FrontierPath); err != nil {
		return fmt.Errorf("%w: %w", crawler.ErrPersistFrontier, err)
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

	run := &model.Run{
		RunID:     uuid.NewString(),
		BaseURL:   store.BaseURL(),
		StartedAt: time.Now(),
	}
	saveRun(ctx, db, run, logger)

	b, err := browser.NewChromeLauncher(browser.ChromeOptions{
		Headless:    cfg.Headless,
		UserAgent:   cfg.UserAgent,
		ProxyServer: cfg.BrowserProxy,
		ExecPath:    cfg.ChromePath,
	}, browser.WithLogger(logger)).Launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close() //nolint:errcheck

	waitPolicy, err := browser.ParseWaitPolicy(cfg.WaitPolicy)
	if err != nil {
		return err
	}

	opts := []crawler.SpiderOption{
		crawler.WithLogger(logger),
		crawler.WithRunID(run.RunID),
	}
	if db != nil {
		opts = append(opts, crawler.WithRecorder(db))
	}

	spider := crawler.NewSpider(b, store, crawler.Config{
		FrontierPath:      cfg.FrontierPath,
		Layout:            layout,
		NavigationTimeout: cfg.NavigationTimeout,
		SettleDelay:       cfg.SettleDelay,
		WaitPolicy:        waitPolicy,
		ReadySelector:     cfg.ReadySelector,
		Language:          cfg.Language,
		LanguageFamily:    cfg.LanguageFamily,
		ScriptHost:        cfg.ScriptHost,
		MaxPages:          cfg.MaxPages,
	}, opts...)

	stats, runErr := spider.Run(ctx)

	run.FinishedAt = time.Now()
	run.Attempted = stats.Attempted
	run.Visited = stats.Visited
	run.Failed = stats.Failed
	run.Discovered = stats.Discovered
	run.Remaining = stats.Remaining
	saveRun(ctx, db, run, logger)
	printRunStats(out, stats, layout)

	interrupted := errors.Is(runErr, context.Canceled)
	if interrupted {
		fmt.Fprintf(out, "\nCrawl interrupted. Progress is saved in %s; run again to resume.\n", cfg.FrontierPath)
		return nil
	}
	if runErr != nil {
		logger.Error("crawl aborted", "error", runErr)
	}

	if cfg.Harvest {
		base := cfg.ResourceBaseURL
		if base == "" {
			base = store.BaseURL()
		}
		if _, err := runHarvest(ctx, cfg, layout, base, db, run.RunID, logger, out); err != nil {
			return errors.Join(wrapRunErr(runErr), err)
		}
	}
	return wrapRunErr(runErr)
}

func wrapRunErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("crawl aborted: %w", err)
}

// saveRun records run in db. A failure is logged and does not stop the crawl.
func saveRun(ctx context.Context, db *database.CrawlDB, run *model.Run, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record run", "run_id", run.RunID, "error", err)
	}
}

// printRunStats writes a short run summary.
func printRunStats(out io.Writer, stats *crawler.RunStats, layout *artifact.Layout) {
	fmt.Fprintln(out, "Crawl summary")
	fmt.Fprintf(out, "  run:        %s\n", stats.RunID)
	fmt.Fprintf(out, "  attempted:  %d\n", stats.Attempted)
	fmt.Fprintf(out, "  visited:    %d (%d skipped by language)\n", stats.Visited, stats.Skipped)
	fmt.Fprintf(out, "  failed:     %d\n", stats.Failed)
	fmt.Fprintf(out, "  discovered: %d\n", stats.Discovered)
	fmt.Fprintf(out, "  remaining:  %d\n", stats.Remaining)
	fmt.Fprintf(out, "  elapsed:    %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  artifacts:  %s\n", layout.SiteDir())
}
