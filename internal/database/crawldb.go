package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "sitecrawl.db"

// CrawlDB provides SQLite-based storage for crawl history.
//
// Design decision: We use a single database file shared by all sites rather
// than one per frontier. Every row carries the run ID and URL, which is
// enough to tell sites apart, and status queries stay simple.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl or harvest run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		attempted INTEGER DEFAULT 0,
		visited INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		discovered INTEGER DEFAULT 0,
		remaining INTEGER DEFAULT 0
	);

	-- Pages marked visited, one row per URL
	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		internal_links INTEGER DEFAULT 0,
		external_links INTEGER DEFAULT 0,
		added INTEGER DEFAULT 0,
		scripts INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		elapsed_ms INTEGER DEFAULT 0,
		visited_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_visits_run ON visits(run_id);

	-- Per-page failures; a URL may fail in many runs
	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT,
		failed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_failures_url ON failures(url);
	CREATE INDEX IF NOT EXISTS idx_failures_time ON failures(failed_at);

	-- Harvested resources
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		url TEXT,
		file TEXT,
		bytes INTEGER DEFAULT 0,
		digest TEXT,
		error TEXT,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_digest ON downloads(digest);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun inserts or updates a run summary.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.Run) error {
	query := `
	INSERT INTO runs (run_id, base_url, started_at, finished_at, attempted, visited, failed, discovered, remaining)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		finished_at = excluded.finished_at,
		attempted = excluded.attempted,
		visited = excluded.visited,
		failed = excluded.failed,
		discovered = excluded.discovered,
		remaining = excluded.remaining
	`
	_, err := cdb.db.ExecContext(ctx, query,
		run.RunID,
		run.BaseURL,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Attempted,
		run.Visited,
		run.Failed,
		run.Discovered,
		run.Remaining,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// siteFilter restricts a query on a table with a run_id column to the runs
// of one site. It takes the base URL twice; an empty base URL matches all.
const siteFilter = `(? = '' OR run_id IN (SELECT run_id FROM runs WHERE base_url = ?))`

// ListRuns returns the most recent runs of baseURL, newest first.
// An empty baseURL lists the runs of every site.
func (cdb *CrawlDB) ListRuns(ctx context.Context, baseURL string, limit int) ([]model.Run, error) {
	query := `
	SELECT run_id, base_url, started_at, COALESCE(finished_at, ''), attempted, visited, failed, discovered, remaining
	FROM runs
	WHERE ` + siteFilter + `
	ORDER BY started_at DESC
	LIMIT ?
	`
	rows, err := cdb.db.QueryContext(ctx, query, baseURL, baseURL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var started, finished string
		if err := rows.Scan(&r.RunID, &r.BaseURL, &started, &finished,
			&r.Attempted, &r.Visited, &r.Failed, &r.Discovered, &r.Remaining); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// VisitRecord is a stored visit.
type VisitRecord struct {
	ID            int64
	RunID         string
	URL           string
	Title         string
	InternalLinks int
	ExternalLinks int
	Added         int
	Scripts       int
	Skipped       bool
	Elapsed       time.Duration
	VisitedAt     time.Time
}

// RecordVisit stores a successful visit. A URL visited again replaces the
// previous row.
func (cdb *CrawlDB) RecordVisit(ctx context.Context, runID string, visit *model.Visit) error {
	title := ""
	if visit.Document != nil {
		title = visit.Document.Title
	}
	finished := visit.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	query := `
	INSERT INTO visits (run_id, url, title, internal_links, external_links, added, scripts, skipped, elapsed_ms, visited_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		run_id = excluded.run_id,
		title = excluded.title,
		internal_links = excluded.internal_links,
		external_links = excluded.external_links,
		added = excluded.added,
		scripts = excluded.scripts,
		skipped = excluded.skipped,
		elapsed_ms = excluded.elapsed_ms,
		visited_at = excluded.visited_at
	`
	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		visit.URL,
		title,
		len(visit.Followable),
		len(visit.NotFollowable),
		visit.Added,
		visit.ScriptsCaptured,
		visit.Skipped,
		visit.Elapsed().Milliseconds(),
		formatTimestamp(finished),
	)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// GetVisit returns the stored visit of pageURL, or nil when there is none.
func (cdb *CrawlDB) GetVisit(ctx context.Context, pageURL string) (*VisitRecord, error) {
	query := `
	SELECT id, run_id, url, title, internal_links, external_links, added, scripts, skipped, elapsed_ms, visited_at
	FROM visits
	WHERE url = ?
	`
	var r VisitRecord
	var elapsedMS int64
	var visitedAt string
	err := cdb.db.QueryRowContext(ctx, query, pageURL).Scan(
		&r.ID, &r.RunID, &r.URL, &r.Title,
		&r.InternalLinks, &r.ExternalLinks, &r.Added, &r.Scripts,
		&r.Skipped, &elapsedMS, &visitedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	r.VisitedAt = parseTimestamp(visitedAt)
	return &r, nil
}

// RecordFailure stores a failed visit.
func (cdb *CrawlDB) RecordFailure(ctx context.Context, runID string, visit *model.Visit) error {
	msg := ""
	if visit.Err != nil {
		msg = visit.Err.Error()
	}
	at := visit.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}

	query := `
	INSERT INTO failures (run_id, url, kind, message, failed_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := cdb.db.ExecContext(ctx, query, runID, visit.URL, string(visit.ErrorKind), msg, formatTimestamp(at))
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

// ListFailures returns the most recent failures of baseURL's runs,
// newest first. An empty baseURL lists the failures of every site.
func (cdb *CrawlDB) ListFailures(ctx context.Context, baseURL string, limit int) ([]model.Failure, error) {
	query := `
	SELECT run_id, url, kind, COALESCE(message, ''), failed_at
	FROM failures
	WHERE ` + siteFilter + `
	ORDER BY failed_at DESC, id DESC
	LIMIT ?
	`
	rows, err := cdb.db.QueryContext(ctx, query, baseURL, baseURL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer rows.Close()

	var failures []model.Failure
	for rows.Next() {
		var f model.Failure
		var kind, at string
		if err := rows.Scan(&f.RunID, &f.URL, &kind, &f.Message, &at); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Kind = model.ErrorKind(kind)
		f.Timestamp = parseTimestamp(at)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// RecordDownload stores the outcome of one harvested resource.
func (cdb *CrawlDB) RecordDownload(ctx context.Context, runID string, d *model.Download) error {
	at := d.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}
	query := `
	INSERT INTO downloads (run_id, path, url, file, bytes, digest, error, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := cdb.db.ExecContext(ctx, query,
		runID, d.Path, d.URL, d.File, d.Bytes, d.Digest, d.Err, formatTimestamp(at))
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// CountDownloads returns how many downloads of baseURL's runs succeeded
// and failed. An empty baseURL counts every site.
func (cdb *CrawlDB) CountDownloads(ctx context.Context, baseURL string) (ok, failed int, err error) {
	query := `
	SELECT
		COALESCE(SUM(CASE WHEN COALESCE(error, '') = '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN COALESCE(error, '') = '' THEN 0 ELSE 1 END), 0)
	FROM downloads
	WHERE ` + siteFilter + `
	`
	if err := cdb.db.QueryRowContext(ctx, query, baseURL, baseURL).Scan(&ok, &failed); err != nil {
		return 0, 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return ok, failed, nil
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,           // Written by formatTimestamp
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// formatTimestamp stores times as UTC text. Zero times are stored as the
// empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
