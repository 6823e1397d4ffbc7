// Package crawler implements the page-processing core of sitecrawl.
//
// # Architecture
//
// The package is built around the Spider type, which drives one frontier
// URL at a time through a pipeline of steps:
//
//	Pending → Rendering → Extracting → Merging → Visited
//
// with an Errored state reachable from Rendering and Extracting.
//
// Design decision: We crawl strictly sequentially. The next pending URL is
// only taken after the previous merge has been persisted, so the frontier
// never sees two writers and needs no locking. The headless browser is the
// only blocking boundary in the loop.
//
// # Components
//
//   - Classify: Pure link classification (Followable, NotFollowable, Unusable)
//   - Extractor: Mines title, metadata, text blocks and links from rendered HTML
//   - Spider: The orchestrator that renders, extracts, classifies and merges
//
// # Link buckets
//
// Only scheme-qualified links pointing at the crawled site are followable
// and become new frontier entries. Relative and schemeless hrefs are kept
// verbatim as external links of the page but are not queued.
//
// # Usage
//
//	spider := crawler.NewSpider(b, store, layout, cfg, crawler.WithLogger(logger))
//	stats, err := spider.Run(ctx)
package crawler
