package harvest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultPattern matches resource paths ending in ".pdf". It is tolerant
// on purpose: a few false positives are acceptable, missed documents are not.
const DefaultPattern = `[a-zA-Z\\:/0-9-]+\.pdf`

// Scanner finds resource paths in script files.
type Scanner struct {
	pattern *regexp.Regexp
}

// NewScanner compiles pattern. An empty pattern means DefaultPattern.
func NewScanner(pattern string) (*Scanner, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid resource pattern: %w", err)
	}
	return &Scanner{pattern: re}, nil
}

// Scan walks dir recursively and returns every pattern match of every
// ".js" file. Files are read in lexical path order and matches keep file
// order. Duplicates are kept.
func (s *Scanner) Scan(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".js") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk script directory: %w", err)
	}
	sort.Strings(files)

	matches := make([]string, 0)
	for _, f := range files {
		found, err := s.ScanFile(f)
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	return matches, nil
}

// ScanFile returns every pattern match in one file.
func (s *Scanner) ScanFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from walking the script store
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return s.pattern.FindAllString(string(data), -1), nil
}

// WriteManifest writes one path per line to path.
func WriteManifest(path string, paths []string) error {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
