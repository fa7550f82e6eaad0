package scraper

import "context"

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Limiter blocks until an outbound request to rawURL may proceed.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}
