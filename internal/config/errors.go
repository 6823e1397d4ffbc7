package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: Package-level sentinels so callers can use errors.Is
// while users still get a readable message.
var (
	// ErrNoFrontierPath is returned when no frontier document path is set.
	ErrNoFrontierPath = errors.New("no frontier path specified: use --frontier")

	// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid navigation timeout: must be positive")

	// ErrInvalidSettleDelay is returned when the settle delay is negative.
	ErrInvalidSettleDelay = errors.New("invalid settle delay: must be non-negative")

	// ErrInvalidWaitPolicy is returned for an unknown wait policy.
	ErrInvalidWaitPolicy = errors.New("invalid wait policy: use networkidle, load or domcontentloaded")

	// ErrInvalidLanguage is returned when the language is not a BCP 47 tag.
	ErrInvalidLanguage = errors.New("invalid language: must be a BCP 47 language code")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidConcurrency is returned when download concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid download concurrency: must be positive")

	// ErrInvalidDownloadRate is returned when the download rate is negative.
	ErrInvalidDownloadRate = errors.New("invalid download rate: must be non-negative")

	// ErrInvalidDownloadTimeout is returned when the download timeout is not positive.
	ErrInvalidDownloadTimeout = errors.New("invalid download timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the download size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max download size: must be non-negative")

	// ErrInvalidResourcePattern is returned when the resource pattern does not compile.
	ErrInvalidResourcePattern = errors.New("invalid resource pattern: must be a valid regular expression")

	// ErrInvalidResourceBase is returned when the resource base is not an absolute URL.
	ErrInvalidResourceBase = errors.New("invalid resource base URL: must be absolute")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

// ErrConflictingReportFormats is returned when both --json and --markdown
// are specified.
var ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
