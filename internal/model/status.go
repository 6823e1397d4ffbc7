package model

import "time"

// Status summarizes a frontier file and the crawl history recorded for it.
// It is the input of the report writers.
type Status struct {
	// BaseURL is the site origin of the frontier.
	BaseURL string `json:"baseUrl"`

	// FrontierPath is the file the frontier was loaded from.
	FrontierPath string `json:"frontierPath"`

	// Known is the number of frontier entries.
	Known int `json:"known"`

	// Visited is the number of entries marked scraped.
	Visited int `json:"visited"`

	// Pending is the number of entries not yet scraped.
	Pending int `json:"pending"`

	// InternalLinks is the total number of recorded internal links.
	InternalLinks int `json:"internalLinks"`

	// ExternalLinks is the total number of recorded external links.
	ExternalLinks int `json:"externalLinks"`

	// NextPending is the URL the next crawl run starts with. Empty when done.
	NextPending string `json:"nextPending,omitempty"`

	// Failures lists recent per-page failures from the crawl database.
	Failures []Failure `json:"failures,omitempty"`

	// Runs lists recent crawl runs from the crawl database, newest first.
	Runs []Run `json:"runs,omitempty"`

	// Downloads is the number of harvested resources recorded as saved.
	Downloads int `json:"downloads"`

	// DownloadFailures is the number of harvested resources that failed.
	DownloadFailures int `json:"downloadFailures"`

	// GeneratedAt is when the status was computed.
	GeneratedAt time.Time `json:"generatedAt"`
}

// Complete reports whether the frontier has no pending entries.
func (s *Status) Complete() bool {
	return s.Pending == 0
}

// Failure is one recorded per-page failure.
type Failure struct {
	// URL is the page that failed.
	URL string `json:"url"`

	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the stringified error.
	Message string `json:"message"`

	// RunID identifies the crawl run.
	RunID string `json:"runId"`

	// Timestamp is when the failure was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Run is the summary of one crawl run.
type Run struct {
	// RunID identifies the run.
	RunID string `json:"runId"`

	// BaseURL is the site origin crawled.
	BaseURL string `json:"baseUrl"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Attempted, Visited, Failed, Discovered and Remaining mirror the
	// crawler run statistics.
	Attempted  int `json:"attempted"`
	Visited    int `json:"visited"`
	Failed     int `json:"failed"`
	Discovered int `json:"discovered"`
	Remaining  int `json:"remaining"`
}
