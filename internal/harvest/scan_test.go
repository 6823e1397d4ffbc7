package harvest

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// TestScanner tests resource path scanning.
func TestScanner(t *testing.T) {
	t.Parallel()

	t.Run("collects matches from js files in order with duplicates", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.js"), `var x = "/docs/report-2024.pdf"; var y = "/docs/report-2024.pdf";`)
		writeFile(t, filepath.Join(dir, "sub", "b.JS"), `load("https://cdn-host/files/guide.pdf")`)
		writeFile(t, filepath.Join(dir, "c.css"), `url(/docs/ignored.pdf)`)

		s, err := NewScanner("")
		if err != nil {
			t.Fatalf("NewScanner failed: %v", err)
		}
		got, err := s.Scan(dir)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}

		want := []string{"/docs/report-2024.pdf", "/docs/report-2024.pdf", "https://cdn-host/files/guide.pdf"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("empty directory yields no matches", func(t *testing.T) {
		t.Parallel()

		s, _ := NewScanner("")
		got, err := s.Scan(t.TempDir())
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty slice, got %v", got)
		}
	})

	t.Run("custom pattern", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.js"), `"/a.docx" "/b.pdf"`)

		s, err := NewScanner(`/[a-z]+\.docx`)
		if err != nil {
			t.Fatalf("NewScanner failed: %v", err)
		}
		got, err := s.Scan(dir)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, []string{"/a.docx"}) {
			t.Errorf("unexpected matches %v", got)
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		t.Parallel()

		if _, err := NewScanner("[unclosed"); err == nil {
			t.Error("expected error for invalid pattern")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		s, _ := NewScanner("")
		if _, err := s.Scan(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

// TestWriteManifest tests writing the match list.
func TestWriteManifest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pdfs", "pdfs.txt")
	if err := WriteManifest(path, []string{"/a.pdf", "/a.pdf", "/b.pdf"}); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got := strings.Split(strings.TrimSpace(string(data)), "\n"); !slices.Equal(got, []string{"/a.pdf", "/a.pdf", "/b.pdf"}) {
		t.Errorf("unexpected manifest %q", data)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
