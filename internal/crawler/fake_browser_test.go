package crawler

import (
	"context"
	"os"
	"sync"

	"github.com/nao1215/sitecrawl/internal/browser"
)

// fakeSite describes how the fake browser answers one URL.
type fakeSite struct {
	html    string
	gotoErr error
	panics  bool
	scripts []browser.Response

	// lateScripts finish loading after Content, while the page closes.
	lateScripts []browser.Response
}

// fakeBrowser serves canned pages without starting Chrome.
type fakeBrowser struct {
	mu      sync.Mutex
	sites   map[string]fakeSite
	visited []string
	closed  int
}

func newFakeBrowser(sites map[string]fakeSite) *fakeBrowser {
	return &fakeBrowser{sites: sites}
}

func (b *fakeBrowser) NewPage(context.Context) (browser.Page, error) {
	return &fakePage{browser: b}, nil
}

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) gotoCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.visited...)
}

// fakePage is one tab of fakeBrowser.
type fakePage struct {
	browser  *fakeBrowser
	url      string
	handlers []func(browser.Response)
}

func (p *fakePage) Goto(_ context.Context, url string, _ browser.WaitPolicy) error {
	p.browser.mu.Lock()
	p.browser.visited = append(p.browser.visited, url)
	site := p.browser.sites[url]
	p.browser.mu.Unlock()

	if site.panics {
		panic("renderer crashed")
	}
	if site.gotoErr != nil {
		return site.gotoErr
	}
	p.url = url
	for _, resp := range site.scripts {
		for _, h := range p.handlers {
			h(resp)
		}
	}
	return nil
}

func (p *fakePage) WaitForSelector(context.Context, string) error { return nil }

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	return os.WriteFile(path, []byte("png"), 0600)
}

func (p *fakePage) Content(context.Context) (string, error) {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	return p.browser.sites[p.url].html, nil
}

func (p *fakePage) OnResponse(h func(browser.Response)) {
	p.handlers = append(p.handlers, h)
}

func (p *fakePage) Close() error {
	p.browser.mu.Lock()
	p.browser.closed++
	site := p.browser.sites[p.url]
	p.browser.mu.Unlock()

	for _, resp := range site.lateScripts {
		for _, h := range p.handlers {
			h(resp)
		}
	}
	return nil
}
