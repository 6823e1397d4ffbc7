package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Selectors of the two text mining passes.
const (
	// contentSelector is mined first, in document order.
	contentSelector = "p, h3, h4, h5, h6, a, li, td, th"

	// headingSelector is mined second, in document order.
	headingSelector = "h1, h2"
)

// DefaultLanguage is the page language accepted when none is configured.
const DefaultLanguage = "en"

// Extractor mines structured content from rendered HTML.
//
// Design decision: We parse with golang.org/x/net/html and query the tree
// with goquery rather than walking nodes by hand because:
//  1. CSS selector groups keep the mining passes declarative
//  2. The HTML5 parser tolerates the malformed markup rendered pages contain
//  3. Selection.Text gives the same descendant text a browser DOM would
//
// An Extractor holds no per-page state and can be reused across pages.
type Extractor struct {
	// targetCode is the accepted lang attribute, compared ignoring case.
	targetCode string

	// target is the base language of targetCode.
	target language.Base

	// matchBase accepts any lang attribute with the target base language.
	matchBase bool

	// now returns the extraction timestamp. Replaced in tests.
	now func() time.Time
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLanguage sets the accepted page language (e.g. "en", "ja").
// Pages whose lang attribute is not this code are rejected with
// ErrUnsupportedLanguage. Pages without a lang attribute are always accepted.
func WithLanguage(code string) ExtractorOption {
	return func(e *Extractor) {
		code = strings.TrimSpace(code)
		if code == "" {
			return
		}
		e.targetCode = code
		e.target = baseLanguage(code)
	}
}

// WithBaseLanguageMatch also accepts regional variants of the target, so
// "en-US" and "en-GB" pass when the target is "en".
func WithBaseLanguageMatch() ExtractorOption {
	return func(e *Extractor) {
		e.matchBase = true
	}
}

// NewExtractor creates an Extractor accepting DefaultLanguage unless
// WithLanguage says otherwise.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		targetCode: DefaultLanguage,
		target:     baseLanguage(DefaultLanguage),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses rendered HTML into a Document.
//
// The document content is mined in a fixed order: the content pass
// (p, h3-h6, a, li, td, th), then the heading pass (h1, h2), then one link
// record per anchor. Within a pass, elements appear in document order.
// Empty text fragments are dropped; link records are kept even when their
// text is empty, and an anchor without href gets model.NoLinkSentinel.
func (e *Extractor) Extract(renderedHTML string) (*model.Document, error) {
	if strings.TrimSpace(renderedHTML) == "" {
		return nil, ErrContentEmpty
	}

	root, err := html.Parse(strings.NewReader(renderedHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentEmpty, err)
	}
	dom := goquery.NewDocumentFromNode(root)

	htmlElem := dom.Find("html").First()
	if htmlElem.Length() == 0 {
		return nil, ErrContentEmpty
	}

	lang := strings.TrimSpace(htmlElem.AttrOr("lang", ""))
	if lang != "" && !e.accepts(lang) {
		return nil, fmt.Errorf("%w: %q (want %q)", ErrUnsupportedLanguage, lang, e.targetCode)
	}

	doc := &model.Document{
		Title:       strings.TrimSpace(dom.Find("title").First().Text()),
		Description: metaContent(dom, "description"),
		Keywords:    metaContent(dom, "keywords"),
		Language:    lang,
		Doc:         make([]model.Block, 0),
		Links:       make([]model.Link, 0),
	}
	if doc.Title == "" {
		doc.Title = model.DefaultTitle
	}

	for _, selector := range []string{contentSelector, headingSelector} {
		dom.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				doc.AddText(text)
			}
		})
	}

	dom.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			href = model.NoLinkSentinel
		}
		doc.AddLink(model.Link{
			Text: strings.TrimSpace(s.Text()),
			Href: href,
		})
	})

	doc.ExtractedAt = e.now()
	return doc, nil
}

// accepts reports whether a declared lang attribute is the target code.
// With base matching, any tag of the target base language is accepted too.
func (e *Extractor) accepts(lang string) bool {
	if strings.EqualFold(lang, e.targetCode) {
		return true
	}
	if !e.matchBase {
		return false
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base == e.target
}

// baseLanguage returns the base language of code, or the zero Base when
// code is not a valid tag.
func baseLanguage(code string) language.Base {
	tag, err := language.Parse(code)
	if err != nil {
		return language.Base{}
	}
	base, _ := tag.Base()
	return base
}

// metaContent returns the content attribute of <meta name="...">.
func metaContent(dom *goquery.Document, name string) string {
	var content string
	dom.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), name) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return content
}
