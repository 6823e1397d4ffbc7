package harvest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitecrawl/internal/artifact"
	"github.com/nao1215/sitecrawl/internal/model"
)

// Summary is the outcome of one harvest.
type Summary struct {
	// Found is the number of pattern matches, duplicates included.
	Found int

	// Saved is the number of resources written.
	Saved int

	// Failed is the number of resources that could not be fetched or saved.
	Failed int

	// Results holds one entry per match, in match order.
	Results []model.Download
}

// Harvester scans the script store of a site and downloads the resources
// it references.
type Harvester struct {
	scanner    *Scanner
	downloader *Downloader
	logger     *slog.Logger
}

// New creates a Harvester.
func New(scanner *Scanner, downloader *Downloader, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		scanner:    scanner,
		downloader: downloader,
		logger:     logger,
	}
}

// Run scans the layout's script directory, writes the match list to the
// manifest and downloads every match, resolved against base, into the
// layout's resource directory.
func (h *Harvester) Run(ctx context.Context, layout *artifact.Layout, base string) (*Summary, error) {
	paths, err := h.scanner.Scan(layout.ScriptDir())
	if err != nil {
		return nil, err
	}
	if err := WriteManifest(layout.ManifestPath(), paths); err != nil {
		return nil, err
	}
	h.logger.Info("resource scan complete",
		"found", len(paths),
		"manifest", layout.ManifestPath(),
	)

	summary := &Summary{Found: len(paths)}
	if len(paths) == 0 {
		return summary, nil
	}

	results, err := h.downloader.Download(ctx, base, paths, layout.ResourceDir())
	summary.Results = results
	for i := range results {
		if results[i].OK() {
			summary.Saved++
		} else {
			summary.Failed++
		}
	}
	if err != nil {
		return summary, fmt.Errorf("harvest interrupted: %w", err)
	}
	return summary, nil
}
