package frontier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one known URL of the frontier.
type Entry struct {
	// URL is the canonical absolute URL and the unique key of the entry.
	URL string `json:"url"`

	// Scraped is false at creation and set to true exactly once.
	Scraped bool `json:"scraped"`

	// InternalLinks are the canonical same-site URLs found on the page.
	InternalLinks []string `json:"internalLinks"`

	// ExternalLinks are the raw not-followable hrefs found on the page.
	ExternalLinks []string `json:"externalLinks"`
}

// Document is the persisted form of the frontier.
type Document struct {
	// BaseURL is the site origin used to resolve relative discoveries.
	BaseURL string `json:"baseUrl"`

	// URLs holds the entries in insertion order.
	URLs []Entry `json:"urls"`
}

// Stats summarizes the frontier.
type Stats struct {
	Known         int
	Visited       int
	Pending       int
	InternalLinks int
	ExternalLinks int
}

// Store is the in-memory frontier backed by a JSON document.
//
// Entries are indexed by their canonical form with a "www." variant of the
// base host folded into the base host, so equivalent spellings of a URL
// share one entry. The stored URL of an entry is never rewritten.
type Store struct {
	doc Document

	// base is the parsed BaseURL with a lower-cased host.
	base *url.URL

	// index maps the index key of every entry to its position in doc.URLs.
	index map[string]int
}

// New creates a frontier with a single pending entry for seed.
// The base URL is the seed's origin.
func New(seed string) (*Store, error) {
	canonical, err := Canonicalize(seed, "")
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	origin, err := Origin(canonical)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	s := &Store{
		doc:   Document{BaseURL: origin, URLs: make([]Entry, 0, 1)},
		index: make(map[string]int),
	}
	s.base, _ = parseBase(origin)
	s.insert(canonical)
	return s, nil
}

// Load reads a frontier file.
// Any decoding or validation problem is reported as a *CorruptStoreError.
// Internal links of scraped entries that have no entry of their own are
// added as pending entries, restoring the closure invariant.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path) //nolint:gosec // frontier path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read frontier: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptStoreError{Path: path, Reason: "invalid JSON", Err: err}
	}

	if doc.BaseURL == "" {
		return nil, &CorruptStoreError{Path: path, Reason: "missing baseUrl"}
	}
	base, err := parseBase(doc.BaseURL)
	if err != nil {
		return nil, &CorruptStoreError{Path: path, Reason: fmt.Sprintf("baseUrl %q is not absolute", doc.BaseURL)}
	}

	s := &Store{
		doc:   Document{BaseURL: doc.BaseURL, URLs: make([]Entry, 0, len(doc.URLs))},
		base:  base,
		index: make(map[string]int, len(doc.URLs)),
	}

	for i, e := range doc.URLs {
		if e.URL == "" {
			return nil, &CorruptStoreError{Path: path, Reason: fmt.Sprintf("entry %d has no url", i)}
		}
		if u, err := url.Parse(e.URL); err != nil || !u.IsAbs() {
			return nil, &CorruptStoreError{Path: path, Reason: fmt.Sprintf("entry %d url %q is not absolute", i, e.URL)}
		}
		key, err := s.key(e.URL, "")
		if err != nil {
			key = e.URL
		}
		if j, dup := s.index[key]; dup {
			if s.doc.URLs[j].URL == e.URL {
				return nil, &CorruptStoreError{Path: path, Reason: fmt.Sprintf("duplicate url %q", e.URL)}
			}
			return nil, &CorruptStoreError{Path: path, Reason: fmt.Sprintf("url %q is the same page as %q", e.URL, s.doc.URLs[j].URL)}
		}
		if e.InternalLinks == nil {
			e.InternalLinks = []string{}
		}
		if e.ExternalLinks == nil {
			e.ExternalLinks = []string{}
		}
		s.index[key] = len(s.doc.URLs)
		s.doc.URLs = append(s.doc.URLs, e)
	}

	if err := s.repairClosure(); err != nil {
		return nil, &CorruptStoreError{Path: path, Reason: "unusable internal link", Err: err}
	}
	return s, nil
}

// LoadOrInit loads the frontier at path, or creates one from seed when the
// file does not exist yet. The new frontier is not written until Persist.
func LoadOrInit(path, seed string) (*Store, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return Load(path)
	case errors.Is(err, os.ErrNotExist):
		if seed == "" {
			return nil, ErrNoSeed
		}
		return New(seed)
	default:
		return nil, fmt.Errorf("failed to check frontier path: %w", err)
	}
}

// repairClosure inserts pending entries for dangling internal links and
// rewrites every internal link to the stored URL of its entry.
func (s *Store) repairClosure() error {
	// Entries appended here are pending and carry no links, so ranging over
	// the original length is enough.
	n := len(s.doc.URLs)
	for i := 0; i < n; i++ {
		links := s.doc.URLs[i].InternalLinks
		for k, link := range links {
			j, ok := s.lookup(link)
			if !ok {
				key, err := s.key(link, "")
				if err != nil {
					return fmt.Errorf("internal link %q of %q: %w", link, s.doc.URLs[i].URL, err)
				}
				j = s.insert(key)
			}
			links[k] = s.doc.URLs[j].URL
		}
		s.doc.URLs[i].InternalLinks = unique(links)
	}
	return nil
}

// insert appends a pending entry stored and indexed as key, and returns
// its position. The caller guarantees key is an unused index key.
func (s *Store) insert(key string) int {
	pos := len(s.doc.URLs)
	s.index[key] = pos
	s.doc.URLs = append(s.doc.URLs, Entry{
		URL:           key,
		Scraped:       false,
		InternalLinks: []string{},
		ExternalLinks: []string{},
	})
	return pos
}

// key returns the index key of raw, resolved against base (the frontier
// base URL when empty): its canonical form, with a "www." variant of the
// base host replaced by the base host.
func (s *Store) key(raw, base string) (string, error) {
	if base == "" {
		base = s.doc.BaseURL
	}
	canonical, err := Canonicalize(raw, base)
	if err != nil {
		return "", err
	}
	if s.base == nil {
		return canonical, nil
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return canonical, nil
	}
	if u.Host != s.base.Host && u.Port() == s.base.Port() && SameSite(u.Hostname(), s.base.Hostname()) {
		u.Host = s.base.Host
		return u.String(), nil
	}
	return canonical, nil
}

// lookup returns the position of the entry that raw names.
func (s *Store) lookup(raw string) (int, bool) {
	key, err := s.key(raw, "")
	if err != nil {
		key = strings.TrimSpace(raw)
	}
	i, ok := s.index[key]
	return i, ok
}

// parseBase parses an absolute base URL and lower-cases its host.
func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: base %q is not absolute", ErrInvalidURL, raw)
	}
	u.Host = strings.ToLower(u.Host)
	return u, nil
}

// BaseURL returns the site origin of the frontier.
func (s *Store) BaseURL() string {
	return s.doc.BaseURL
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.doc.URLs)
}

// MergeDiscovered adds a pending entry for every link that does not name
// a known entry. Links are resolved against baseURL; links that cannot be
// canonicalized are ignored. It returns the number of entries added.
// Merging the same links again is a no-op.
func (s *Store) MergeDiscovered(links []string, baseURL string) int {
	added := 0
	for _, link := range links {
		key, err := s.key(link, baseURL)
		if err != nil {
			continue
		}
		if _, ok := s.index[key]; ok {
			continue
		}
		s.insert(key)
		added++
	}
	return added
}

// MarkVisited sets the entry for pageURL as scraped and records its links.
// Internal links are recorded as the stored URLs of their entries.
// Duplicate links are dropped, keeping first-seen order. Every internal
// link must already be an entry, so MergeDiscovered has to run first.
func (s *Store) MarkVisited(pageURL string, internalLinks, externalLinks []string) error {
	i, ok := s.lookup(pageURL)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownURL, pageURL)
	}
	if s.doc.URLs[i].Scraped {
		return fmt.Errorf("%w: %s", ErrAlreadyVisited, pageURL)
	}

	internal := make([]string, 0, len(internalLinks))
	for _, link := range internalLinks {
		j, ok := s.lookup(link)
		if !ok {
			return fmt.Errorf("%w: %s (found on %s)", ErrDanglingLink, link, pageURL)
		}
		internal = append(internal, s.doc.URLs[j].URL)
	}
	internal = unique(internal)

	s.doc.URLs[i].Scraped = true
	s.doc.URLs[i].InternalLinks = internal
	s.doc.URLs[i].ExternalLinks = unique(externalLinks)
	return nil
}

// NextPending returns the first unscraped entry in insertion order.
// ok is false when the crawl is complete.
func (s *Store) NextPending() (pageURL string, ok bool) {
	pageURL, _, ok = s.PendingAfter(0)
	return pageURL, ok
}

// PendingAfter returns the first unscraped entry at or after position
// cursor, and the cursor to continue from. A run uses it to move past URLs
// that failed during that run while leaving them pending for the next one.
func (s *Store) PendingAfter(cursor int) (pageURL string, next int, ok bool) {
	if cursor < 0 {
		cursor = 0
	}
	for i := cursor; i < len(s.doc.URLs); i++ {
		if !s.doc.URLs[i].Scraped {
			return s.doc.URLs[i].URL, i + 1, true
		}
	}
	return "", len(s.doc.URLs), false
}

// Lookup returns a copy of the entry that pageURL names, in any of its
// equivalent spellings.
func (s *Store) Lookup(pageURL string) (Entry, bool) {
	i, ok := s.lookup(pageURL)
	if !ok {
		return Entry{}, false
	}
	return copyEntry(s.doc.URLs[i]), true
}

// Entries returns a copy of all entries in insertion order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.doc.URLs))
	for i, e := range s.doc.URLs {
		out[i] = copyEntry(e)
	}
	return out
}

// Stats returns entry and link counts.
func (s *Store) Stats() Stats {
	var st Stats
	st.Known = len(s.doc.URLs)
	for _, e := range s.doc.URLs {
		if e.Scraped {
			st.Visited++
		} else {
			st.Pending++
		}
		st.InternalLinks += len(e.InternalLinks)
		st.ExternalLinks += len(e.ExternalLinks)
	}
	return st
}

// Persist writes the whole frontier to path.
// The document is written to a temporary file in the same directory,
// synced, and renamed over path, so a reader sees either the old or the
// new document and never a partial one.
func (s *Store) Persist(path string) error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode frontier: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create frontier directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary frontier file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write frontier: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync frontier: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close frontier: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace frontier: %w", err)
	}
	return nil
}

// unique returns values without duplicates, keeping first-seen order.
func unique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func copyEntry(e Entry) Entry {
	e.InternalLinks = append([]string{}, e.InternalLinks...)
	e.ExternalLinks = append([]string{}, e.ExternalLinks...)
	return e
}
