package model

import "time"

// VisitState is the position of a URL in the per-page state machine.
//
//	Pending → Rendering → Extracting → Merging → Visited
//	                  ↘            ↘
//	                    Errored(kind)
type VisitState int

const (
	// StatePending means the URL has not been processed in this attempt yet.
	StatePending VisitState = iota

	// StateRendering means the browser is navigating to and capturing the page.
	StateRendering

	// StateExtracting means the rendered HTML is being mined.
	StateExtracting

	// StateMerging means discoveries are being merged into the frontier.
	StateMerging

	// StateVisited means the frontier entry has been marked visited and persisted.
	StateVisited

	// StateErrored is the absorbing failure state; the URL stays pending in the frontier.
	StateErrored
)

// String returns the state name used in logs.
func (s VisitState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRendering:
		return "rendering"
	case StateExtracting:
		return "extracting"
	case StateMerging:
		return "merging"
	case StateVisited:
		return "visited"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ErrorKind classifies why a visit ended in StateErrored.
type ErrorKind string

const (
	// ErrorKindNone is used while no error happened.
	ErrorKindNone ErrorKind = ""

	// ErrorKindTimeout means the browser reported a navigation timeout.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindContentEmpty means the page rendered or extracted to nothing.
	ErrorKindContentEmpty ErrorKind = "content_empty"

	// ErrorKindUncategorized covers any other per-page failure.
	ErrorKindUncategorized ErrorKind = "uncategorized"
)

// Visit is one attempt at processing a frontier URL.
// Pipeline steps read and fill it in order.
type Visit struct {
	// URL is the canonical frontier URL being processed.
	URL string

	// State is the current state machine position.
	State VisitState

	// ErrorKind is set when State is StateErrored.
	ErrorKind ErrorKind

	// Err is the error that moved the visit to StateErrored.
	Err error

	// HTML is the rendered page content.
	HTML string

	// Document is the extraction result. Nil until extraction succeeds.
	Document *Document

	// Skipped is true when extraction declined the page (unsupported language).
	Skipped bool

	// Followable holds canonical same-site links to merge into the frontier.
	Followable []string

	// NotFollowable holds raw hrefs recorded as external links.
	NotFollowable []string

	// Added is the number of new frontier entries created by this visit.
	Added int

	// ScriptsCaptured is the number of script responses flushed to disk.
	ScriptsCaptured int

	// Steps lists the pipeline steps completed so far.
	Steps []string

	// StartedAt is when processing began.
	StartedAt time.Time

	// FinishedAt is when processing ended, successfully or not.
	FinishedAt time.Time
}

// NewVisit creates a pending visit for the given URL.
func NewVisit(url string) *Visit {
	return &Visit{
		URL:       url,
		State:     StatePending,
		StartedAt: time.Now(),
	}
}

// Fail moves the visit to StateErrored with the given kind and cause.
func (v *Visit) Fail(kind ErrorKind, err error) {
	v.State = StateErrored
	v.ErrorKind = kind
	v.Err = err
	v.FinishedAt = time.Now()
}

// Elapsed returns how long the visit took, or has taken so far.
func (v *Visit) Elapsed() time.Duration {
	if v.FinishedAt.IsZero() {
		return time.Since(v.StartedAt)
	}
	return v.FinishedAt.Sub(v.StartedAt)
}
