// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl renders every page of one website in a headless browser,
// stores text, links, screenshots and scripts per page, and keeps its
// progress in a JSON frontier file so an interrupted crawl resumes where
// it stopped.
//
// Usage:
//
//	sitecrawl crawl https://www.example.com
//	sitecrawl status
//	sitecrawl harvest
//
// See --help for all available options.
package main

import (
	_ "github.com/joho/godotenv/autoload" // load .env before flags and config are read
)

func main() {
	Execute()
}
