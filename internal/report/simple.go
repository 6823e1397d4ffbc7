package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// SimpleWriter outputs a human-readable text status for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds the failure and run history sections.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the history sections.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the status as text.
func (w *SimpleWriter) Write(status *model.Status) (int, error) {
	var sb strings.Builder

	sb.WriteString("Crawl status\n")
	sb.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&sb, "Site:            %s\n", status.BaseURL)
	fmt.Fprintf(&sb, "Frontier:        %s\n", status.FrontierPath)
	fmt.Fprintf(&sb, "Known URLs:      %d\n", status.Known)
	fmt.Fprintf(&sb, "Visited:         %d (%.1f%%)\n", status.Visited, progress(status))
	fmt.Fprintf(&sb, "Pending:         %d\n", status.Pending)
	fmt.Fprintf(&sb, "Internal links:  %d\n", status.InternalLinks)
	fmt.Fprintf(&sb, "External links:  %d\n", status.ExternalLinks)
	fmt.Fprintf(&sb, "Downloads:       %d saved, %d failed\n", status.Downloads, status.DownloadFailures)

	if status.Complete() {
		sb.WriteString("\nCrawl complete.\n")
	} else {
		fmt.Fprintf(&sb, "\nNext: %s\n", status.NextPending)
	}

	if w.verbose || len(status.Failures) > 0 {
		w.writeFailures(&sb, status.Failures)
	}
	if w.verbose {
		w.writeRuns(&sb, status.Runs)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, failures []model.Failure) {
	sb.WriteString("\nRecent failures\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	if len(failures) == 0 {
		sb.WriteString("  none\n")
		return
	}
	for _, f := range failures {
		fmt.Fprintf(sb, "  [%s] %s\n", f.Kind, f.URL)
		if w.verbose && f.Message != "" {
			fmt.Fprintf(sb, "      %s\n", truncateString(f.Message, 120))
		}
	}
}

func (w *SimpleWriter) writeRuns(sb *strings.Builder, runs []model.Run) {
	sb.WriteString("\nRecent runs\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	if len(runs) == 0 {
		sb.WriteString("  none\n")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(sb, "  %s  %s  visited=%d failed=%d discovered=%d remaining=%d\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.RunID,
			r.Visited, r.Failed, r.Discovered, r.Remaining)
	}
}
