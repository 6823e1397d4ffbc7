package report

import (
	"io"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Writer renders a crawl status.
//
// Design decision: An interface so the status command can choose the
// format and destination without knowing how either works.
type Writer interface {
	// Write renders status and returns the number of bytes written.
	Write(status *model.Status) (int, error)
}

// MultiWriter writes the same status to several Writers.
//
// Design decision: A separate type rather than io.MultiWriter because
// Writer renders a status, not raw bytes, and each target may use a
// different format.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders status with every Writer and stops on the first error.
func (m *MultiWriter) Write(status *model.Status) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(status)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// progress returns the visited share of known entries in percent.
func progress(status *model.Status) float64 {
	if status.Known == 0 {
		return 0
	}
	return float64(status.Visited) * 100 / float64(status.Known)
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
