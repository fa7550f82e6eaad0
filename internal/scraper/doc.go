// Package scraper defines the core types shared by the fetch, extract and
// catalog layers of the explorer service: scraped records, fetch requests,
// the classified fetch error taxonomy, and the bounded retry loop.
package scraper
