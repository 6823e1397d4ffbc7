package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestVisits tests visit recording.
func TestVisits(t *testing.T) {
	t.Parallel()

	t.Run("records and reads a visit", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		v := model.NewVisit("https://s.example/a")
		v.Document = &model.Document{Title: "A"}
		v.Followable = []string{"https://s.example/b", "https://s.example/c"}
		v.NotFollowable = []string{"/d"}
		v.Added = 2
		v.ScriptsCaptured = 1
		v.State = model.StateVisited
		v.FinishedAt = v.StartedAt.Add(1500 * time.Millisecond)

		if err := db.RecordVisit(ctx, "run-1", v); err != nil {
			t.Fatalf("RecordVisit failed: %v", err)
		}

		got, err := db.GetVisit(ctx, "https://s.example/a")
		if err != nil {
			t.Fatalf("GetVisit failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected a visit record")
		}
		if got.Title != "A" || got.InternalLinks != 2 || got.ExternalLinks != 1 || got.Added != 2 || got.Scripts != 1 {
			t.Errorf("unexpected record %+v", got)
		}
		if got.Skipped {
			t.Error("visit should not be skipped")
		}
		if got.Elapsed != 1500*time.Millisecond {
			t.Errorf("expected 1.5s elapsed, got %v", got.Elapsed)
		}
		if got.VisitedAt.IsZero() {
			t.Error("expected visited_at to be parsed")
		}
	})

	t.Run("revisit replaces the row", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		v := model.NewVisit("https://s.example/")
		if err := db.RecordVisit(ctx, "run-1", v); err != nil {
			t.Fatal(err)
		}
		v.Skipped = true
		if err := db.RecordVisit(ctx, "run-2", v); err != nil {
			t.Fatal(err)
		}

		got, err := db.GetVisit(ctx, "https://s.example/")
		if err != nil {
			t.Fatal(err)
		}
		if got.RunID != "run-2" || !got.Skipped {
			t.Errorf("expected the second visit, got %+v", got)
		}
	})

	t.Run("missing visit returns nil", func(t *testing.T) {
		t.Parallel()

		got, err := setupTestDB(t).GetVisit(context.Background(), "https://nope.example/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

// TestFailures tests failure recording.
func TestFailures(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, kind := range []model.ErrorKind{model.ErrorKindTimeout, model.ErrorKindUncategorized} {
		v := model.NewVisit("https://s.example/p")
		v.Fail(kind, errors.New("cause"))
		v.FinishedAt = base.Add(time.Duration(i) * time.Minute)
		if err := db.RecordFailure(ctx, "run-1", v); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	failures, err := db.ListFailures(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListFailures failed: %v", err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].Kind != model.ErrorKindUncategorized {
		t.Errorf("expected newest failure first, got %s", failures[0].Kind)
	}
	if failures[1].Message != "cause" || !failures[1].Timestamp.Equal(base) {
		t.Errorf("unexpected failure %+v", failures[1])
	}

	limited, err := db.ListFailures(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

// TestDownloads tests download recording and counting.
func TestDownloads(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	ok, failed, err := db.CountDownloads(ctx, "")
	if err != nil || ok != 0 || failed != 0 {
		t.Fatalf("expected empty counts, got %d/%d/%v", ok, failed, err)
	}

	downloads := []*model.Download{
		{Path: "/a.pdf", URL: "https://s.example/a.pdf", File: "1.pdf", Bytes: 10, Digest: "abc"},
		{Path: "/b.pdf", URL: "https://s.example/b.pdf", File: "2.pdf", Bytes: 20, Digest: "def"},
		{Path: "/c.pdf", URL: "https://s.example/c.pdf", Err: "status 404"},
	}
	for _, d := range downloads {
		if err := db.RecordDownload(ctx, "run-1", d); err != nil {
			t.Fatalf("RecordDownload failed: %v", err)
		}
	}

	ok, failed, err = db.CountDownloads(ctx, "")
	if err != nil {
		t.Fatalf("CountDownloads failed: %v", err)
	}
	if ok != 2 || failed != 1 {
		t.Errorf("expected 2 ok and 1 failed, got %d and %d", ok, failed)
	}
}

// TestRuns tests run summaries.
func TestRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	run := &model.Run{RunID: "r1", BaseURL: "https://s.example", StartedAt: start}
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	run.FinishedAt = start.Add(time.Minute)
	run.Visited = 3
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun update failed: %v", err)
	}
	if err := db.SaveRun(ctx, &model.Run{RunID: "r2", BaseURL: "https://s.example", StartedAt: start.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "r2" {
		t.Errorf("expected newest run first, got %s", runs[0].RunID)
	}
	if runs[1].Visited != 3 || !runs[1].FinishedAt.Equal(start.Add(time.Minute)) {
		t.Errorf("update was not applied: %+v", runs[1])
	}
	if !runs[0].FinishedAt.IsZero() {
		t.Errorf("unfinished run should have zero finish time, got %v", runs[0].FinishedAt)
	}
}

// TestSiteScope tests that history queries can be limited to one site.
func TestSiteScope(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, run := range []*model.Run{
		{RunID: "a1", BaseURL: "https://a.example", StartedAt: start},
		{RunID: "b1", BaseURL: "https://b.example", StartedAt: start.Add(time.Minute)},
	} {
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		v := model.NewVisit(run.BaseURL + "/broken")
		v.Fail(model.ErrorKindTimeout, errors.New("timeout"))
		if err := db.RecordFailure(ctx, run.RunID, v); err != nil {
			t.Fatal(err)
		}
		if err := db.RecordDownload(ctx, run.RunID, &model.Download{Path: "/x.pdf", File: "1.pdf"}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(ctx, "https://a.example", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != "a1" {
		t.Errorf("expected only run a1, got %+v", runs)
	}

	failures, err := db.ListFailures(ctx, "https://b.example", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].RunID != "b1" {
		t.Errorf("expected only the failure of b1, got %+v", failures)
	}

	ok, _, err := db.CountDownloads(ctx, "https://a.example")
	if err != nil {
		t.Fatal(err)
	}
	if ok != 1 {
		t.Errorf("expected 1 download for a.example, got %d", ok)
	}

	all, err := db.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 runs without a filter, got %d", len(all))
	}
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, s := range []string{formatTimestamp(want), "2024-01-02 03:04:05", "2024-01-02T03:04:05Z"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
	if got := parseTimestamp(""); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
	if formatTimestamp(time.Time{}) != "" {
		t.Error("zero time should format as empty string")
	}
}
