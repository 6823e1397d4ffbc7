package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	sclog "github.com/nao1215/sitecrawl/internal/log"
)

// addFrontierFlags registers flags naming the frontier and artifact locations.
func addFrontierFlags(flags *pflag.FlagSet) {
	flags.StringP("frontier", "f", config.DefaultFrontierFile,
		"Frontier file holding crawl progress")
	flags.StringP("output-dir", "o", "",
		"Directory for page artifacts (default: $XDG_DATA_HOME/sitecrawl/sites)")
	flags.String("log-dir", "",
		"Directory for per-page error logs (default: $XDG_STATE_HOME/sitecrawl/logs)")
}

// addDatabaseFlags registers the crawl database flags.
func addDatabaseFlags(flags *pflag.FlagSet) {
	flags.Bool("no-db", false, "Do not use the crawl database")
	flags.String("db-dir", "", "Directory of the crawl database (default: $XDG_DATA_HOME/sitecrawl)")
}

// addHarvestFlags registers the resource download flags.
func addHarvestFlags(flags *pflag.FlagSet) {
	flags.String("resource-pattern", "",
		"Regular expression for resource paths in scripts (default: PDF paths)")
	flags.String("resource-base", "",
		"Base URL for relative resource paths (default: the site origin)")
	flags.Int("concurrency", config.DefaultDownloadConcurrency,
		"Number of parallel downloads")
	flags.Float64("rate", config.DefaultDownloadRate,
		"Download starts per second (0 disables the limit)")
	flags.Duration("download-timeout", config.DefaultDownloadTimeout,
		"Timeout for one download")
	flags.String("download-proxy", "",
		"SOCKS5 proxy for downloads (host:port)")
	flags.Int64("max-download-size", config.DefaultMaxDownloadSize,
		"Maximum decoded size of one download in bytes")
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags of cmd, in that order. Only flags set on the command line
// override file values.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly given file must exist; a missing default file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every changed flag into cfg. Flags a command does not
// define are never changed, so one function serves every command.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}

	str("frontier", &cfg.FrontierPath)
	str("output-dir", &cfg.OutputDir)
	str("log-dir", &cfg.LogDir)
	str("wait", &cfg.WaitPolicy)
	str("ready-selector", &cfg.ReadySelector)
	str("language", &cfg.Language)
	str("script-host", &cfg.ScriptHost)
	str("user-agent", &cfg.UserAgent)
	str("browser-proxy", &cfg.BrowserProxy)
	str("chrome-path", &cfg.ChromePath)
	str("resource-pattern", &cfg.ResourcePattern)
	str("resource-base", &cfg.ResourceBaseURL)
	str("download-proxy", &cfg.DownloadProxy)
	str("db-dir", &cfg.DBDir)
	boolean("headless", &cfg.Headless)
	boolean("language-family", &cfg.LanguageFamily)
	boolean("verbose", &cfg.Verbose)
	boolean("log-json", &cfg.LogJSON)
	integer("max-pages", &cfg.MaxPages)
	integer("concurrency", &cfg.DownloadConcurrency)

	if err == nil && flags.Changed("timeout") {
		cfg.NavigationTimeout, err = flags.GetDuration("timeout")
	}
	if err == nil && flags.Changed("settle") {
		cfg.SettleDelay, err = flags.GetDuration("settle")
	}
	if err == nil && flags.Changed("download-timeout") {
		cfg.DownloadTimeout, err = flags.GetDuration("download-timeout")
	}
	if err == nil && flags.Changed("rate") {
		cfg.DownloadRate, err = flags.GetFloat64("rate")
	}
	if err == nil && flags.Changed("max-download-size") {
		cfg.MaxDownloadSize, err = flags.GetInt64("max-download-size")
	}
	if err == nil && flags.Changed("no-harvest") {
		var skip bool
		skip, err = flags.GetBool("no-harvest")
		cfg.Harvest = !skip
	}
	if err == nil && flags.Changed("no-db") {
		var skip bool
		skip, err = flags.GetBool("no-db")
		cfg.SaveToDB = !skip
	}
	return err
}

// setupLogger creates the sanitizing logger and makes it the default.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	logger := sclog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// Cancellation aborts the page being rendered, which is left pending in
// the frontier for the next run.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, aborting the current page; it stays pending")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// openDatabase opens the crawl database when enabled. It returns nil
// without error when the database is disabled.
func openDatabase(cfg *config.Config, create bool) (*database.CrawlDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open crawl database: %w", err)
	}
	return db, nil
}
