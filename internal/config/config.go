package config

import (
	"net/url"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/text/language"

	"github.com/nao1215/sitecrawl/internal/browser"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultFrontierFile is the frontier document in the working directory.
	DefaultFrontierFile = "urls.json"

	// DefaultNavigationTimeout bounds one page navigation.
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultSettleDelay is waited after navigation so late scripts can
	// populate the page before it is captured.
	DefaultSettleDelay = 2 * time.Second

	// DefaultWaitPolicy is the navigation completion policy.
	DefaultWaitPolicy = "networkidle"

	// DefaultReadySelector must be present before a page is captured.
	DefaultReadySelector = "body"

	// DefaultLanguage is the only page language that is processed.
	DefaultLanguage = "en"

	// DefaultDownloadConcurrency is the number of parallel resource downloads.
	DefaultDownloadConcurrency = 4

	// DefaultDownloadRate is the number of download starts per second.
	DefaultDownloadRate = 5.0

	// DefaultDownloadTimeout bounds one resource download, body included.
	DefaultDownloadTimeout = 60 * time.Second

	// DefaultMaxDownloadSize limits one decoded resource body.
	DefaultMaxDownloadSize = 100 * 1024 * 1024 // 100MB
)

// Config holds all options of one sitecrawl invocation.
//
// Design decision: A single flat struct, as the number of options is
// manageable. The YAML file groups the same options into sections and is
// folded into this struct by File.Apply.
type Config struct {
	// FrontierPath is the JSON frontier document. It is created from Seed
	// on the first run and resumed on every later run.
	FrontierPath string

	// Seed is the first URL of a new crawl. It is ignored when the
	// frontier document already exists.
	Seed string

	// OutputDir receives the per-site artifact tree.
	OutputDir string

	// LogDir receives one error log file per failed page.
	LogDir string

	// NavigationTimeout bounds one page navigation.
	NavigationTimeout time.Duration

	// SettleDelay is waited between navigation and capture.
	SettleDelay time.Duration

	// WaitPolicy is one of "networkidle", "load" or "domcontentloaded".
	WaitPolicy string

	// ReadySelector must match before the page is captured.
	ReadySelector string

	// Language is the BCP 47 code a page must declare to be processed.
	Language string

	// LanguageFamily also accepts regional variants of Language
	// ("en-US" for "en").
	LanguageFamily bool

	// ScriptHost limits captured scripts to hosts ending in this value.
	// Empty means the registrable domain of the frontier base URL.
	ScriptHost string

	// MaxPages stops a run after this many attempted pages. 0 is unlimited.
	MaxPages int

	// Headless runs the browser without a window.
	Headless bool

	// UserAgent overrides the browser and download user agent.
	UserAgent string

	// BrowserProxy is passed to the browser as its proxy server.
	BrowserProxy string

	// ChromePath is the browser executable. Empty means auto-detect.
	ChromePath string

	// Harvest runs the resource harvester after the crawl.
	Harvest bool

	// ResourcePattern is the regular expression that finds resource paths
	// in captured scripts. Empty means the PDF pattern.
	ResourcePattern string

	// ResourceBaseURL resolves relative resource paths. Empty means the
	// frontier base URL.
	ResourceBaseURL string

	// DownloadConcurrency is the number of parallel downloads.
	DownloadConcurrency int

	// DownloadRate limits download starts per second. 0 disables the limit.
	DownloadRate float64

	// DownloadTimeout bounds one download.
	DownloadTimeout time.Duration

	// DownloadProxy routes downloads through a SOCKS5 proxy ("host:port").
	DownloadProxy string

	// MaxDownloadSize limits one decoded resource body in bytes.
	MaxDownloadSize int64

	// DownloadHeaders are added to every download request.
	DownloadHeaders map[string]string

	// SaveToDB records runs, visits, failures and downloads in SQLite.
	SaveToDB bool

	// DBDir is the directory of the SQLite database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON selects the JSON log format.
	LogJSON bool

	// ConfigFilePath is the YAML file given with --config.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		FrontierPath:        DefaultFrontierFile,
		OutputDir:           filepath.Join(XDGDataDir(), "sites"),
		LogDir:              filepath.Join(XDGStateDir(), "logs"),
		NavigationTimeout:   DefaultNavigationTimeout,
		SettleDelay:         DefaultSettleDelay,
		WaitPolicy:          DefaultWaitPolicy,
		ReadySelector:       DefaultReadySelector,
		Language:            DefaultLanguage,
		Headless:            true,
		Harvest:             true,
		DownloadConcurrency: DefaultDownloadConcurrency,
		DownloadRate:        DefaultDownloadRate,
		DownloadTimeout:     DefaultDownloadTimeout,
		MaxDownloadSize:     DefaultMaxDownloadSize,
		SaveToDB:            true,
		DBDir:               XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGStateDir returns the XDG state directory for sitecrawl.
// On Linux: ~/.local/state/sitecrawl
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
// On Linux: ~/.config/sitecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.FrontierPath == "" {
		return ErrNoFrontierPath
	}

	if c.Seed != "" {
		u, err := url.Parse(c.Seed)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidSeed
		}
	}

	if c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}

	if _, err := browser.ParseWaitPolicy(c.WaitPolicy); err != nil {
		return ErrInvalidWaitPolicy
	}

	if _, err := language.Parse(c.Language); err != nil {
		return ErrInvalidLanguage
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.DownloadConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.DownloadRate < 0 {
		return ErrInvalidDownloadRate
	}

	if c.DownloadTimeout <= 0 {
		return ErrInvalidDownloadTimeout
	}

	if c.MaxDownloadSize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ResourcePattern != "" {
		if _, err := regexp.Compile(c.ResourcePattern); err != nil {
			return ErrInvalidResourcePattern
		}
	}

	if c.ResourceBaseURL != "" {
		u, err := url.Parse(c.ResourceBaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return ErrInvalidResourceBase
		}
	}

	return nil
}
