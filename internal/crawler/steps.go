package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/sitecrawl/internal/artifact"
	"github.com/nao1215/sitecrawl/internal/browser"
	"github.com/nao1215/sitecrawl/internal/model"
)

// renderStep loads the page in the browser and captures its artifacts.
type renderStep struct {
	spider *Spider
}

// Name returns the step name.
func (s *renderStep) Name() string { return "render" }

// State returns the state entered by the step.
func (s *renderStep) State() model.VisitState { return model.StateRendering }

// Do opens a tab, navigates, waits, screenshots and reads the DOM.
// Script responses of the site are buffered while the tab is open and
// written to the script store after it is closed.
func (s *renderStep) Do(ctx context.Context, visit *model.Visit) error {
	sp := s.spider

	page, err := sp.browser.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	capture := newScriptCapture(sp.scriptHost)
	page.OnResponse(capture.handle)
	defer func() {
		if err := page.Close(); err != nil {
			sp.logger.Warn("failed to close page", "url", visit.URL, "error", err)
		}
		n, err := capture.flush(sp.cfg.Layout.Scripts())
		visit.ScriptsCaptured = n
		if err != nil {
			sp.logger.Warn("failed to save captured scripts", "url", visit.URL, "error", err)
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, sp.cfg.NavigationTimeout)
	defer cancel()

	if err := page.Goto(navCtx, visit.URL, sp.cfg.WaitPolicy); err != nil {
		return navigationError(ctx, visit.URL, err)
	}

	if sp.cfg.SettleDelay > 0 {
		timer := time.NewTimer(sp.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := page.WaitForSelector(navCtx, sp.cfg.ReadySelector); err != nil {
		return navigationError(ctx, visit.URL, err)
	}

	shot, err := sp.cfg.Layout.ScreenshotPath(visit.URL)
	if err != nil {
		return err
	}
	if err := page.Screenshot(ctx, shot); err != nil {
		return err
	}

	html, err := page.Content(ctx)
	if err != nil {
		return err
	}
	if err := sp.cfg.Layout.WriteHTML(visit.URL, html); err != nil {
		return err
	}
	if strings.TrimSpace(html) == "" {
		return fmt.Errorf("%w: %s rendered no HTML", ErrContentEmpty, visit.URL)
	}

	visit.HTML = html
	return nil
}

// navigationError maps browser timeouts to ErrNavigationTimeout.
// Cancellation of the parent context is passed through unchanged.
func navigationError(parent context.Context, pageURL string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, browser.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, pageURL, err)
	}
	return err
}

// extractStep mines the rendered HTML.
type extractStep struct {
	spider *Spider
}

// Name returns the step name.
func (s *extractStep) Name() string { return "extract" }

// State returns the state entered by the step.
func (s *extractStep) State() model.VisitState { return model.StateExtracting }

// Do extracts the document. A page in another language is marked as
// skipped instead of failing.
func (s *extractStep) Do(_ context.Context, visit *model.Visit) error {
	doc, err := s.spider.extractor.Extract(visit.HTML)
	if errors.Is(err, ErrUnsupportedLanguage) {
		s.spider.logger.Info("skipping page in unsupported language", "url", visit.URL, "reason", err)
		visit.Skipped = true
		return nil
	}
	if err != nil {
		return err
	}
	doc.URL = visit.URL
	visit.Document = doc
	return nil
}

// mergeStep merges discoveries into the frontier and persists it.
type mergeStep struct {
	spider *Spider
}

// Name returns the step name.
func (s *mergeStep) Name() string { return "merge" }

// State returns the state entered by the step.
func (s *mergeStep) State() model.VisitState { return model.StateMerging }

// Do classifies links, merges followable ones as new entries, marks the
// page visited and persists the frontier once.
//
// New entries are merged before the page is marked visited, so the stored
// internal links always have entries of their own.
func (s *mergeStep) Do(_ context.Context, visit *model.Visit) error {
	sp := s.spider
	store := sp.store

	if !visit.Skipped {
		base := store.BaseURL()
		visit.Followable, visit.NotFollowable = Partition(visit.Document.Links, base)
		visit.Added = store.MergeDiscovered(visit.Followable, base)
	}

	if err := store.MarkVisited(visit.URL, visit.Followable, visit.NotFollowable); err != nil {
		return err
	}
	if err := store.Persist(sp.cfg.FrontierPath); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFrontier, err)
	}
	visit.State = model.StateVisited

	if visit.Document != nil {
		if err := sp.cfg.Layout.WriteDocument(visit.URL, visit.Document); err != nil {
			sp.logger.Warn("failed to write page document", "url", visit.URL, "error", err)
		}
	}
	return nil
}

// capturedScript is a script response kept for the script store.
type capturedScript struct {
	url  string
	body []byte
}

// scriptCapture buffers script responses of one page.
// handle may be called from browser goroutines.
type scriptCapture struct {
	host string

	mu      sync.Mutex
	scripts []capturedScript
}

func newScriptCapture(host string) *scriptCapture {
	return &scriptCapture{host: host}
}

func (c *scriptCapture) handle(resp browser.Response) {
	if resp.Type != browser.ResourceScript || len(resp.Body) == 0 {
		return
	}
	if !hostMatches(resp.URL, c.host) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, capturedScript{url: resp.URL, body: resp.Body})
}

// flush writes buffered scripts and returns how many were saved.
func (c *scriptCapture) flush(store *artifact.ScriptStore) (int, error) {
	c.mu.Lock()
	scripts := c.scripts
	c.scripts = nil
	c.mu.Unlock()

	saved := 0
	var errs []error
	for _, sc := range scripts {
		if _, err := store.Save(sc.url, sc.body); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	return saved, errors.Join(errs...)
}
