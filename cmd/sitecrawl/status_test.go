package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/frontier"
	"github.com/nao1215/sitecrawl/internal/model"
)

// writeFrontier persists a frontier with the seed visited and one pending link.
func writeFrontier(t *testing.T, dir string) string {
	t.Helper()

	store, err := frontier.New("https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	store.MergeDiscovered([]string{"/about"}, store.BaseURL())
	if err := store.MarkVisited("https://example.com/",
		[]string{"https://example.com/about"},
		[]string{"https://other.example/"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "urls.json")
	if err := store.Persist(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildStatus(t *testing.T) {
	t.Parallel()

	t.Run("frontier only", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.FrontierPath = writeFrontier(t, t.TempDir())
		cfg.SaveToDB = false

		status, err := buildStatus(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.BaseURL != "https://example.com" {
			t.Errorf("BaseURL = %q", status.BaseURL)
		}
		if status.Known != 2 || status.Visited != 1 || status.Pending != 1 {
			t.Errorf("unexpected counts: %+v", status)
		}
		if status.InternalLinks != 1 || status.ExternalLinks != 1 {
			t.Errorf("unexpected link counts: %+v", status)
		}
		if status.NextPending != "https://example.com/about" {
			t.Errorf("NextPending = %q", status.NextPending)
		}
	})

	t.Run("missing database file is skipped", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.FrontierPath = writeFrontier(t, t.TempDir())
		cfg.DBDir = filepath.Join(t.TempDir(), "none")

		if _, err := buildStatus(context.Background(), cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(cfg.DBDir); !errors.Is(err, os.ErrNotExist) {
			t.Error("status must not create the database")
		}
	})

	t.Run("includes database history", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		cfg := config.NewConfig()
		cfg.FrontierPath = writeFrontier(t, t.TempDir())
		cfg.DBDir = t.TempDir()

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		now := time.Now()
		run := &model.Run{RunID: "run-1", BaseURL: "https://example.com", StartedAt: now, FinishedAt: now}
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		visit := &model.Visit{
			URL:       "https://example.com/broken",
			ErrorKind: model.ErrorKindTimeout,
			Err:       errors.New("navigation timed out"),
		}
		if err := db.RecordFailure(ctx, run.RunID, visit); err != nil {
			t.Fatal(err)
		}
		if err := db.Close(); err != nil {
			t.Fatal(err)
		}

		status, err := buildStatus(ctx, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(status.Runs) != 1 || status.Runs[0].RunID != "run-1" {
			t.Errorf("unexpected runs: %+v", status.Runs)
		}
		if len(status.Failures) != 1 || status.Failures[0].Kind != model.ErrorKindTimeout {
			t.Errorf("unexpected failures: %+v", status.Failures)
		}
	})

	t.Run("missing frontier", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.FrontierPath = filepath.Join(t.TempDir(), "missing.json")
		if _, err := buildStatus(context.Background(), cfg); err == nil {
			t.Error("expected error for missing frontier")
		}
	})
}

func TestRunStatusCmd(t *testing.T) {
	t.Parallel()

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		path := writeFrontier(t, t.TempDir())
		root := NewRootCmd()
		var buf bytes.Buffer
		root.SetOut(&buf)
		root.SetErr(io.Discard)
		root.SetArgs([]string{"status", "--config", emptyConfig(t), "-f", path, "--no-db", "--json"})

		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var status model.Status
		if err := json.Unmarshal(buf.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
		}
		if status.Known != 2 || status.NextPending != "https://example.com/about" {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("report file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := writeFrontier(t, dir)
		reportPath := filepath.Join(dir, "reports", "status.md")

		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs([]string{"status", "--config", emptyConfig(t), "-f", path, "--no-db", "-m", "-r", reportPath})

		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(content), "Crawl Status") {
			t.Errorf("unexpected report: %s", content)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs([]string{"status", "--config", emptyConfig(t), "--json", "--markdown"})

		if err := root.Execute(); !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}
