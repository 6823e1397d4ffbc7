package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/sitecrawl/internal/artifact"
	"github.com/nao1215/sitecrawl/internal/browser"
	"github.com/nao1215/sitecrawl/internal/frontier"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/pipeline"
)

// Defaults for Config fields left zero.
const (
	DefaultNavigationTimeout = 60 * time.Second
	DefaultReadySelector     = "body"
)

// Config holds everything a Spider needs besides its collaborators.
// There is no package-level configuration.
type Config struct {
	// FrontierPath is the file the frontier is persisted to after every page.
	FrontierPath string

	// Layout resolves artifact paths for the crawled site.
	Layout *artifact.Layout

	// NavigationTimeout bounds navigation and the wait for ReadySelector.
	NavigationTimeout time.Duration

	// SettleDelay is slept after navigation so late scripts can run.
	SettleDelay time.Duration

	// WaitPolicy tells the browser when a navigation counts as loaded.
	WaitPolicy browser.WaitPolicy

	// ReadySelector is waited for before capturing the page.
	ReadySelector string

	// Language is the accepted page language.
	Language string

	// LanguageFamily also accepts regional variants of Language.
	LanguageFamily bool

	// ScriptHost is the host suffix of script responses worth keeping.
	// Empty means the registrable domain of the frontier base URL.
	ScriptHost string

	// MaxPages caps the pages attempted in one run. 0 means no cap.
	MaxPages int
}

// Recorder receives the outcome of every visit. The crawl database
// implements it.
type Recorder interface {
	RecordVisit(ctx context.Context, runID string, visit *model.Visit) error
	RecordFailure(ctx context.Context, runID string, visit *model.Visit) error
}

// RunStats summarizes one crawl run.
type RunStats struct {
	// RunID identifies the run in logs and in the crawl database.
	RunID string

	// Attempted is the number of pages taken from the frontier.
	Attempted int

	// Visited is the number of pages marked visited, skipped ones included.
	Visited int

	// Skipped is the number of pages declined by the language gate.
	Skipped int

	// Failed is the number of pages left pending after an error.
	Failed int

	// Discovered is the number of frontier entries added.
	Discovered int

	// Remaining is the number of pending entries after the run.
	Remaining int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Spider crawls one site from a frontier, one page at a time.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	browser   browser.Browser
	store     *frontier.Store
	extractor *Extractor
	cfg       Config

	logger   *slog.Logger
	recorder Recorder
	runID    string

	// scriptHost is the resolved host suffix for script capture.
	scriptHost string

	// now is the clock used for error log names. Replaced in tests.
	now func() time.Time
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithRecorder records every visit and failure.
func WithRecorder(r Recorder) SpiderOption {
	return func(s *Spider) {
		s.recorder = r
	}
}

// WithRunID sets the run identifier passed to the recorder.
func WithRunID(id string) SpiderOption {
	return func(s *Spider) {
		s.runID = id
	}
}

// WithMaxPages caps the pages attempted in one run. 0 means no cap.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		if n >= 0 {
			s.cfg.MaxPages = n
		}
	}
}

// NewSpider creates a Spider that renders pages with b and grows store.
func NewSpider(b browser.Browser, store *frontier.Store, cfg Config, opts ...SpiderOption) *Spider {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.ReadySelector == "" {
		cfg.ReadySelector = DefaultReadySelector
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	extractorOpts := []ExtractorOption{WithLanguage(cfg.Language)}
	if cfg.LanguageFamily {
		extractorOpts = append(extractorOpts, WithBaseLanguageMatch())
	}

	s := &Spider{
		browser:   b,
		store:     store,
		extractor: NewExtractor(extractorOpts...),
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.scriptHost = cfg.ScriptHost
	if s.scriptHost == "" {
		s.scriptHost = registrableDomain(store.BaseURL())
	}
	return s
}

// Run crawls pending frontier entries until none is left, MaxPages is
// reached, ctx is cancelled, or a frontier integrity error occurs.
//
// A page that fails stays pending in the frontier and is not retried in
// the same run. The returned error is nil unless the run was aborted.
func (s *Spider) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{RunID: s.runID}
	finish := func() *RunStats {
		stats.Remaining = s.store.Stats().Pending
		stats.Duration = time.Since(start)
		return stats
	}

	s.logger.Info("starting crawl",
		"base_url", s.store.BaseURL(),
		"pending", s.store.Stats().Pending,
		"run_id", s.runID,
	)

	cursor := 0
	for {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		if s.cfg.MaxPages > 0 && stats.Attempted >= s.cfg.MaxPages {
			s.logger.Info("page limit reached", "max_pages", s.cfg.MaxPages)
			break
		}

		pageURL, next, ok := s.store.PendingAfter(cursor)
		if !ok {
			break
		}
		cursor = next
		stats.Attempted++

		visit, err := s.Visit(ctx, pageURL)
		if err != nil {
			return finish(), err
		}

		switch visit.State {
		case model.StateVisited:
			stats.Visited++
			stats.Discovered += visit.Added
			if visit.Skipped {
				stats.Skipped++
			}
		default:
			stats.Failed++
		}
	}

	finish()
	s.logger.Info("crawl finished",
		"attempted", stats.Attempted,
		"visited", stats.Visited,
		"failed", stats.Failed,
		"remaining", stats.Remaining,
		"elapsed", stats.Duration.String(),
	)
	return stats, nil
}

// Visit processes one frontier URL.
//
// The returned error is non-nil only when the run must stop: a frontier
// integrity error, a failed persist, or cancellation of ctx. Per-page
// failures are reported through the visit state and do not return an error.
func (s *Spider) Visit(ctx context.Context, pageURL string) (*model.Visit, error) {
	visit := model.NewVisit(pageURL)

	p := pipeline.New(pipeline.WithLogger(s.logger))
	p.AddSteps(
		&renderStep{spider: s},
		&extractStep{spider: s},
		&mergeStep{spider: s},
	)

	s.logger.Info("crawling page", "url", pageURL)

	err := s.execute(ctx, p, visit)
	if err == nil {
		visit.FinishedAt = time.Now()
		s.logger.Info("page visited",
			"url", pageURL,
			"internal_links", len(visit.Followable),
			"external_links", len(visit.NotFollowable),
			"added", visit.Added,
			"scripts", visit.ScriptsCaptured,
			"skipped", visit.Skipped,
			"elapsed", visit.Elapsed().String(),
		)
		s.record(ctx, visit)
		return visit, nil
	}

	failedIn := visit.State
	switch {
	case ctx.Err() != nil:
		visit.Fail(model.ErrorKindUncategorized, err)
		return visit, ctx.Err()

	case frontier.IsIntegrityError(err) || errors.Is(err, ErrPersistFrontier):
		visit.Fail(model.ErrorKindUncategorized, err)
		s.logger.Error("frontier integrity error, stopping crawl", "url", pageURL, "error", err)
		return visit, err

	case errors.Is(err, ErrNavigationTimeout):
		visit.Fail(model.ErrorKindTimeout, err)
		s.logger.Warn("navigation timed out, page stays pending", "url", pageURL, "error", err)

	case errors.Is(err, ErrContentEmpty):
		visit.Fail(model.ErrorKindContentEmpty, err)
		s.logger.Warn("page has no content, page stays pending", "url", pageURL, "state", failedIn.String())

	default:
		visit.Fail(model.ErrorKindUncategorized, err)
		path, logErr := s.cfg.Layout.WriteErrorLog(pageURL, err, s.now())
		if logErr != nil {
			s.logger.Error("failed to write error log", "url", pageURL, "error", logErr)
		}
		s.logger.Error("page failed, page stays pending",
			"url", pageURL,
			"state", failedIn.String(),
			"error", err,
			"log", path,
		)
	}

	s.recordFailure(ctx, visit)
	return visit, nil
}

// execute runs the pipeline and turns a panic into an error.
func (s *Spider) execute(ctx context.Context, p *pipeline.Pipeline, visit *model.Visit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", visit.URL, r)
		}
	}()
	return p.Execute(ctx, visit)
}

func (s *Spider) record(ctx context.Context, visit *model.Visit) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordVisit(ctx, s.runID, visit); err != nil {
		s.logger.Warn("failed to record visit", "url", visit.URL, "error", err)
	}
}

func (s *Spider) recordFailure(ctx context.Context, visit *model.Visit) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordFailure(ctx, s.runID, visit); err != nil {
		s.logger.Warn("failed to record failure", "url", visit.URL, "error", err)
	}
}

// registrableDomain returns the eTLD+1 of a URL's host, e.g. "example.co.uk"
// for https://www.example.co.uk. Hosts without one (IP addresses,
// localhost) are returned as they are.
func registrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}

// hostMatches reports whether rawURL's host is suffix or a subdomain of it.
func hostMatches(rawURL, suffix string) bool {
	if suffix == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	suffix = strings.ToLower(suffix)
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
