package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecrawl/internal/model"
)

// MarkdownWriter outputs the status as GitHub flavored Markdown.
//
// Design decision: The nao1215/markdown builder provides tables, alerts
// and mermaid charts without hand-written escaping.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the status in Markdown format.
func (w *MarkdownWriter) Write(status *model.Status) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, status)
	w.writeProgress(md, status)
	w.writeFailures(md, status)
	w.writeRuns(md, status)
	w.writeFooter(md, status)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, status *model.Status) {
	md.H1("Crawl Status")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + status.BaseURL + "`"},
			{"Frontier", "`" + status.FrontierPath + "`"},
			{"Known URLs", strconv.Itoa(status.Known)},
			{"Visited", fmt.Sprintf("%d (%.1f%%)", status.Visited, progress(status))},
			{"Pending", strconv.Itoa(status.Pending)},
			{"Internal Links", strconv.Itoa(status.InternalLinks)},
			{"External Links", strconv.Itoa(status.ExternalLinks)},
			{"Downloads", fmt.Sprintf("%d saved, %d failed", status.Downloads, status.DownloadFailures)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeProgress(md *markdown.Markdown, status *model.Status) {
	md.H2("Progress")
	md.PlainText("")

	if status.Known > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Frontier"),
			piechart.WithShowData(true),
		)
		if status.Visited > 0 {
			chart.LabelAndIntValue("Visited", uint64(status.Visited))
		}
		if status.Pending > 0 {
			chart.LabelAndIntValue("Pending", uint64(status.Pending))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if status.Complete() {
		md.Tip("Crawl complete. Every known URL has been visited.")
	} else {
		md.Note(fmt.Sprintf("%d URL(s) pending. The next run starts with `%s`.", status.Pending, status.NextPending))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, status *model.Status) {
	md.H2("Recent Failures")
	md.PlainText("")

	if len(status.Failures) == 0 {
		md.PlainText("No failures recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(status.Failures))
	for i, f := range status.Failures {
		rows[i] = []string{
			f.Timestamp.Format("2006-01-02 15:04:05"),
			string(f.Kind),
			truncateString(f.URL, 60),
			truncateString(f.Message, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Time", "Kind", "URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	md.Warningf("%d page(s) failed recently and stay pending for the next run.", len(status.Failures))
	md.PlainText("")
}

func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, status *model.Status) {
	if len(status.Runs) == 0 {
		return
	}

	md.H2("Recent Runs")
	md.PlainText("")

	rows := make([][]string, len(status.Runs))
	for i, r := range status.Runs {
		rows[i] = []string{
			r.StartedAt.Format("2006-01-02 15:04:05"),
			"`" + r.RunID + "`",
			strconv.Itoa(r.Attempted),
			strconv.Itoa(r.Visited),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Discovered),
			strconv.Itoa(r.Remaining),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Started", "Run", "Attempted", "Visited", "Failed", "Discovered", "Remaining"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, status *model.Status) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by sitecrawl at %s*", status.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
}
