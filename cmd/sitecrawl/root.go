package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawl",
		Short: "Resumable single-site crawler with a headless browser",
		Long: `sitecrawl crawls one website with a headless Chrome.

Every page is rendered, screenshotted and reduced to its text and links.
Same-site links are added to a JSON frontier file that is written after
every page, so a crawl can be stopped at any time and resumed later.
Scripts loaded by the site are kept and scanned for document links,
which are downloaded after the crawl.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sitecrawl in current or home directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHarvestCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
