package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Network idle thresholds used by WaitNetworkIdle.
const (
	// idleMaxInflight is the number of requests still allowed in flight.
	idleMaxInflight = 2

	// idleQuietPeriod is how long the in-flight count must stay low.
	idleQuietPeriod = 500 * time.Millisecond

	// pollInterval is how often ready state and idleness are checked.
	pollInterval = 100 * time.Millisecond

	// closeGrace bounds how long Close waits for response bodies.
	closeGrace = 5 * time.Second
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// ChromeOptions configures the Chrome process.
type ChromeOptions struct {
	// Headless runs Chrome without a window.
	Headless bool

	// UserAgent overrides the browser user agent.
	UserAgent string

	// ProxyServer routes browser traffic through a proxy (e.g. socks5://127.0.0.1:1080).
	ProxyServer string

	// ExecPath is the Chrome binary. Empty means auto-detect.
	ExecPath string

	// WindowWidth and WindowHeight set the viewport used for screenshots.
	WindowWidth  int
	WindowHeight int
}

// ChromeLauncher starts Chrome through chromedp.
type ChromeLauncher struct {
	opts   ChromeOptions
	logger *slog.Logger
}

// ChromeOption configures a ChromeLauncher.
type ChromeOption func(*ChromeLauncher)

// WithLogger sets the logger used by the launcher and its pages.
func WithLogger(logger *slog.Logger) ChromeOption {
	return func(l *ChromeLauncher) {
		l.logger = logger
	}
}

// NewChromeLauncher creates a launcher for the given options.
func NewChromeLauncher(opts ChromeOptions, options ...ChromeOption) *ChromeLauncher {
	if opts.WindowWidth <= 0 {
		opts.WindowWidth = 1920
	}
	if opts.WindowHeight <= 0 {
		opts.WindowHeight = 1080
	}
	l := &ChromeLauncher{
		opts:   opts,
		logger: slog.Default(),
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// Launch starts Chrome and returns a Browser bound to ctx.
// Cancelling ctx kills the browser process.
func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
	)

	ua := strings.TrimSpace(l.opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	execOpts = append(execOpts, chromedp.UserAgent(ua))

	if proxy := strings.TrimSpace(l.opts.ProxyServer); proxy != "" {
		execOpts = append(execOpts, chromedp.ProxyServer(proxy))
	}
	if l.opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(l.opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Running with no actions starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	l.logger.Debug("browser started", "headless", l.opts.Headless)
	return &chromeBrowser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		logger:      l.logger,
	}, nil
}

// chromeBrowser is a running Chrome process.
type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPage opens a new tab with network events enabled.
func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	tabCtx, cancel := chromedp.NewContext(b.ctx)
	p := &chromePage{
		ctx:      tabCtx,
		cancel:   cancel,
		logger:   b.logger,
		inflight: make(map[network.RequestID]struct{}),
		meta:     make(map[network.RequestID]Response),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	// The first Run allocates the tab and must use the tab context itself,
	// otherwise the tab would be bound to the lifetime of ctx.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	if err := p.run(ctx, network.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return p, nil
}

// Close kills the browser.
func (b *chromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.cancel()
	b.allocCancel()
	return nil
}

// chromePage is one Chrome tab.
type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu           sync.Mutex
	handlers     []func(Response)
	inflight     map[network.RequestID]struct{}
	meta         map[network.RequestID]Response
	lastActivity time.Time

	// bodies tracks GetResponseBody calls still running.
	bodies bodyGate

	closeOnce sync.Once
}

// OnResponse registers a handler for finished responses.
func (p *chromePage) OnResponse(handler func(Response)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

// Goto navigates and waits according to policy.
func (p *chromePage) Goto(ctx context.Context, url string, wait WaitPolicy) error {
	actions := []chromedp.Action{chromedp.Navigate(url)}
	switch wait {
	case WaitDOMContentLoaded:
		actions = append(actions, waitReadyState("interactive", "complete"))
	case WaitLoad:
		actions = append(actions, waitReadyState("complete"))
	default:
		actions = append(actions, waitReadyState("complete"), p.waitNetworkIdle())
	}
	if err := p.run(ctx, actions...); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForSelector waits until an element matching selector is ready.
func (p *chromePage) WaitForSelector(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// Screenshot writes a full-page PNG to path.
func (p *chromePage) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	// Quality 100 selects PNG.
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

// Content returns the serialized DOM of the page.
func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// Close stops reading new response bodies, waits for the ones already
// being read and closes the tab. No handler is called after Close returns.
func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		if !p.bodies.drain(closeGrace) {
			p.logger.Warn("timed out waiting for response bodies, late ones are dropped")
		}
		p.cancel()
	})
	return nil
}

// run executes actions on the tab, bounded by the deadline and
// cancellation of ctx. Cancelling the derived context aborts the actions
// without closing the tab.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := p.ctx.Err(); err != nil {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// onEvent tracks in-flight requests and dispatches finished responses.
// It runs on the chromedp event loop and must not block.
func (p *chromePage) onEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		p.mu.Lock()
		p.inflight[e.RequestID] = struct{}{}
		p.lastActivity = time.Now()
		p.mu.Unlock()

	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		p.mu.Lock()
		p.meta[e.RequestID] = Response{
			URL:      e.Response.URL,
			Type:     ResourceType(e.Type),
			Status:   int(e.Response.Status),
			MIMEType: e.Response.MimeType,
		}
		p.mu.Unlock()

	case *network.EventLoadingFailed:
		p.mu.Lock()
		delete(p.inflight, e.RequestID)
		delete(p.meta, e.RequestID)
		p.lastActivity = time.Now()
		p.mu.Unlock()

	case *network.EventLoadingFinished:
		p.mu.Lock()
		delete(p.inflight, e.RequestID)
		p.lastActivity = time.Now()
		resp, ok := p.meta[e.RequestID]
		delete(p.meta, e.RequestID)
		handlers := append([]func(Response){}, p.handlers...)
		p.mu.Unlock()

		if !ok || len(handlers) == 0 {
			return
		}
		if !p.bodies.start() {
			p.logger.Debug("page closing, response body skipped", "url", resp.URL)
			return
		}
		go p.fetchBody(e.RequestID, resp, handlers)
	}
}

// fetchBody reads a response body and hands it to the handlers.
// Body requests must run outside the event loop.
func (p *chromePage) fetchBody(id network.RequestID, resp Response, handlers []func(Response)) {
	defer p.bodies.done()

	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return
	}
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(p.ctx, c.Target))
	if err != nil {
		p.logger.Debug("failed to read response body", "url", resp.URL, "error", err)
		return
	}
	resp.Body = body
	delivered := p.bodies.deliver(func() {
		for _, h := range handlers {
			h(resp)
		}
	})
	if !delivered {
		p.logger.Warn("response body arrived after page close", "url", resp.URL)
	}
}

// waitNetworkIdle waits until few requests have been in flight for a quiet period.
func (p *chromePage) waitNetworkIdle() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			p.mu.Lock()
			idle := len(p.inflight) <= idleMaxInflight && time.Since(p.lastActivity) >= idleQuietPeriod
			p.mu.Unlock()
			if idle {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// waitReadyState polls document.readyState until it is one of states.
func waitReadyState(states ...string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				return err
			}
			for _, s := range states {
				if readyState == s {
					return nil
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
