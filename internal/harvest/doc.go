// Package harvest finds document resources referenced from captured
// scripts and downloads them.
//
// Harvesting runs over artifacts already on disk, after the crawl loop:
//
//  1. Scan walks every .js file of the script store and collects all
//     matches of a tolerant path pattern (by default anything ending in .pdf)
//  2. The match list is written to pdfs.txt next to the downloads
//  3. Download resolves every match against the resource base URL and
//     fetches it in a bounded worker pool
//
// Design decision: Every path is an independent task with its own result.
// A failed download is logged and recorded but never stops the others, and
// successes are numbered from a shared counter (1.pdf, 2.pdf, ...) so names
// never collide whatever order the tasks finish in.
package harvest
