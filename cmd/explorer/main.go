// Command explorer serves the bookstore scrape API.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the catalog, search, health and cache endpoints behind
//     request ID, logging, recovery, metrics and CORS middleware. Errors are rendered by internal/apierror.
//   - Catalog: internal/catalog consults the in-memory cache, fetches the upstream page on a miss,
//     extracts records with goquery selector tables and substitutes synthetic data when nothing matches.
//   - Fetch pipeline: a single-attempt Colly fetcher wrapped by a bounded retry loop that retries only
//     transient failures, optionally paced per host by a token bucket.
//   - Cache: a FIFO-bounded TTL store with lazy expiry plus a sweeper goroutine owned by internal/server.
//
// Quick checklist:
//   - Configure env vars: EXPLORER_SERVER_PORT or PORT, EXPLORER_SERVER_ALLOWED_ORIGINS or CORS_ORIGINS,
//     EXPLORER_ENVIRONMENT=development for verbose error details, EXPLORER_CACHE_MAX_ENTRIES.
//   - Run locally: go run ./cmd/explorer serve --config config.yaml (or rely solely on env overrides).
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
