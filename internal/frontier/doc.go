// Package frontier implements the persisted crawl frontier of sitecrawl.
//
// The frontier is a single JSON document holding the site origin (baseUrl)
// and an insertion-ordered list of entries, one per known URL, each with a
// scraped flag and the internal/external links discovered on that page:
//
//	{
//	  "baseUrl": "https://example.com",
//	  "urls": [
//	    {"url": "https://example.com", "scraped": true,
//	     "internalLinks": ["https://example.com/a"], "externalLinks": ["/b"]},
//	    {"url": "https://example.com/a", "scraped": false,
//	     "internalLinks": [], "externalLinks": []}
//	  ]
//	}
//
// Design decision: The store doubles as the work queue and the dedupe set.
// This avoids a second in-memory structure and gives resumability for free:
// a crawl killed mid-run restarts by reloading the same file and continuing
// from the first unscraped entry.
//
// # Invariants
//
//   - Entry URLs are canonical and unique; entries are never removed.
//   - scraped goes from false to true exactly once.
//   - Every URL in any internalLinks list exists as its own entry.
//
// # Concurrency
//
// Store is not safe for concurrent use. The crawler processes one page at a
// time, so the store never observes two writers.
package frontier
