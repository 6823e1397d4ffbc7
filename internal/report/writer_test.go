package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// createTestStatus creates a status with sample data for testing.
func createTestStatus() *model.Status {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.Status{
		BaseURL:          "https://example.com",
		FrontierPath:     "urls.json",
		Known:            4,
		Visited:          3,
		Pending:          1,
		InternalLinks:    7,
		ExternalLinks:    2,
		NextPending:      "https://example.com/contact",
		Downloads:        5,
		DownloadFailures: 1,
		GeneratedAt:      started.Add(time.Hour),
		Failures: []model.Failure{
			{
				URL:       "https://example.com/slow",
				Kind:      model.ErrorKindTimeout,
				Message:   "navigation timed out",
				RunID:     "run-1",
				Timestamp: started.Add(time.Minute),
			},
		},
		Runs: []model.Run{
			{RunID: "run-1", BaseURL: "https://example.com", StartedAt: started, FinishedAt: started.Add(5 * time.Minute), Attempted: 4, Visited: 3, Failed: 1, Discovered: 3, Remaining: 1},
		},
	}
}

func completeStatus() *model.Status {
	return &model.Status{
		BaseURL:      "https://example.com",
		FrontierPath: "urls.json",
		Known:        2,
		Visited:      2,
		GeneratedAt:  time.Now(),
	}
}

// TestSimpleWriter tests the human-readable writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes counts and next URL", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestStatus())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		output := buf.String()
		for _, want := range []string{
			"https://example.com",
			"Known URLs:      4",
			"Visited:         3 (75.0%)",
			"Pending:         1",
			"5 saved, 1 failed",
			"Next: https://example.com/contact",
			"[timeout] https://example.com/slow",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Recent runs") {
			t.Error("runs should only be shown in verbose mode")
		}
	})

	t.Run("complete crawl", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(completeStatus()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Crawl complete.") {
			t.Errorf("expected completion message:\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "Recent failures") {
			t.Error("empty failures should be hidden when not verbose")
		}
	})

	t.Run("verbose shows history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestStatus()); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		if !strings.Contains(output, "navigation timed out") {
			t.Error("expected failure message in verbose output")
		}
		if !strings.Contains(output, "run-1") || !strings.Contains(output, "visited=3 failed=1") {
			t.Errorf("expected run history:\n%s", output)
		}
	})
}

// TestJSONWriter tests the JSON writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output decodes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestStatus()); err != nil {
			t.Fatal(err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line, got %q", buf.String())
		}

		var got model.Status
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Known != 4 || got.NextPending != "https://example.com/contact" {
			t.Errorf("unexpected status %+v", got)
		}
		if len(got.Failures) != 1 || got.Failures[0].Kind != model.ErrorKindTimeout {
			t.Errorf("unexpected failures %+v", got.Failures)
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(completeStatus()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"baseUrl\": \"https://example.com\"") {
			t.Errorf("expected indented output:\n%s", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables chart and alerts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestStatus()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Crawl Status",
			"`https://example.com`",
			"## Progress",
			"pie",
			"## Recent Failures",
			"https://example.com/slow",
			"## Recent Runs",
			"[!WARNING]",
			"[!NOTE]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("complete crawl shows tip and no runs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(completeStatus()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Errorf("expected tip alert:\n%s", output)
		}
		if !strings.Contains(output, "No failures recorded.") {
			t.Error("expected empty failure text")
		}
		if strings.Contains(output, "## Recent Runs") {
			t.Error("runs section should be omitted without runs")
		}
	})
}

// failingWriter always fails.
type failingWriter struct{}

func (failingWriter) Write(*model.Status) (int, error) {
	return 0, errors.New("write failed")
}

// TestMultiWriter tests fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		n, err := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js)).Write(createTestStatus())
		if err != nil {
			t.Fatal(err)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected total %d, got %d", text.Len()+js.Len(), n)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewMultiWriter(failingWriter{}, NewSimpleWriter(&buf)).Write(createTestStatus())
		if err == nil {
			t.Error("expected error")
		}
		if buf.Len() != 0 {
			t.Error("writers after a failure should not run")
		}
	})
}

// TestTruncateString tests truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
