// Package report renders the status of a crawl.
//
// Writers available:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured JSON for scripts
//   - MarkdownWriter: GitHub flavored Markdown for sharing
//
// All writers take a model.Status, built from the frontier file and,
// when available, the crawl database.
package report
