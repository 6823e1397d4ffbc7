// Package database provides SQLite-based run history for sitecrawl.
//
// The frontier file remains the only source of truth for resuming a crawl.
// The database records what happened in each run:
//   - Runs with their summary counters
//   - Visited pages with link counts and timing
//   - Per-page failures with their error kind
//   - Harvested downloads with their SHA3-256 digest
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets `sitecrawl status` read while a crawl writes
package database
