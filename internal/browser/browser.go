package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by browser implementations.
var (
	// ErrTimeout is returned when navigation or a wait exceeds its deadline.
	ErrTimeout = errors.New("browser timeout")

	// ErrClosed is returned when a page or browser is used after Close.
	ErrClosed = errors.New("browser closed")
)

// WaitPolicy tells Goto when a navigation counts as loaded.
type WaitPolicy int

const (
	// WaitNetworkIdle waits for the load event and then until at most two
	// requests have been in flight for a quiet period.
	WaitNetworkIdle WaitPolicy = iota

	// WaitLoad waits for the load event.
	WaitLoad

	// WaitDOMContentLoaded waits until the document is parsed.
	WaitDOMContentLoaded
)

// String returns the policy name used in configuration.
func (w WaitPolicy) String() string {
	switch w {
	case WaitLoad:
		return "load"
	case WaitDOMContentLoaded:
		return "domcontentloaded"
	default:
		return "networkidle"
	}
}

// ParseWaitPolicy parses a configuration value into a WaitPolicy.
func ParseWaitPolicy(s string) (WaitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "networkidle":
		return WaitNetworkIdle, nil
	case "load":
		return WaitLoad, nil
	case "domcontentloaded":
		return WaitDOMContentLoaded, nil
	default:
		return WaitNetworkIdle, fmt.Errorf("unknown wait policy %q", s)
	}
}

// ResourceType is the kind of resource a network response carries.
// Values follow the DevTools protocol names.
type ResourceType string

// Resource types the crawler cares about.
const (
	ResourceDocument ResourceType = "Document"
	ResourceScript   ResourceType = "Script"
	ResourceOther    ResourceType = "Other"
)

// Response is a finished network response observed by a page.
type Response struct {
	// URL is the response URL.
	URL string

	// Type is the resource type of the request.
	Type ResourceType

	// Status is the HTTP status code.
	Status int

	// MIMEType is the response MIME type.
	MIMEType string

	// Body is the response body.
	Body []byte
}

// Launcher starts a browser.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser that opens pages.
type Browser interface {
	// NewPage opens a new tab.
	NewPage(ctx context.Context) (Page, error)

	// Close shuts the browser down.
	Close() error
}

// Page is one browser tab.
//
// Handlers registered with OnResponse may be called from other goroutines,
// in any order relative to Content, until Close returns. Close waits for
// pending handler calls, and no handler is called after it returns.
type Page interface {
	Goto(ctx context.Context, url string, wait WaitPolicy) error
	WaitForSelector(ctx context.Context, selector string) error
	Screenshot(ctx context.Context, path string) error
	Content(ctx context.Context) (string, error)
	OnResponse(handler func(Response))
	Close() error
}
