package crawler

import "errors"

// Per-page crawl errors.
// They are matched with errors.Is to decide how a failed visit is handled:
// a timeout or empty content leaves the URL pending for a future run, while
// frontier integrity errors stop the run.
var (
	// ErrNavigationTimeout is returned when the browser does not finish
	// loading a page within the navigation timeout.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrContentEmpty is returned when a rendered page has no content or
	// extraction yields no document.
	ErrContentEmpty = errors.New("content empty")

	// ErrUnsupportedLanguage is returned by the extractor when the page
	// declares a language other than the target. It is a soft skip, not a
	// failure.
	ErrUnsupportedLanguage = errors.New("unsupported page language")

	// ErrPersistFrontier is returned when the frontier cannot be written
	// back after a page merge. It stops the run.
	ErrPersistFrontier = errors.New("failed to persist frontier")
)
