// Package artifact lays out everything a crawl writes besides the frontier.
//
// For a site https://www.example.com the layout below the output directory is:
//
//	example.com/
//	  pages/<page-slug>/screenshot.png
//	  pages/<page-slug>/page.html
//	  pages/<page-slug>/page.json
//	  jsFiles/<script>.js
//	  pdfs/pdfs.txt
//	  pdfs/1.pdf, 2.pdf, ...
//
// Per-page error logs are written to a separate log directory as
// <unixMillis>-<page-slug>.log.
package artifact
