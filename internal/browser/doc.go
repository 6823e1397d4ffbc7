// Package browser defines the headless browser collaborator of the crawler
// and its chromedp implementation.
//
// The crawler depends only on the Launcher, Browser and Page interfaces, so
// tests drive it with in-memory fakes and never start Chrome.
//
// Design decision: Network responses are exposed as a subscription
// (Page.OnResponse) rather than as a list collected by the page. The caller
// decides what to keep and when to write it, and the page stays free of
// any file system concerns.
package browser
