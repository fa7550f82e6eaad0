// Package collyfetcher implements scraper.Fetcher using gocolly. Each call is a
// single attempt; retries are layered on by scraper.RetryingFetcher.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/product-data-explorer/internal/metrics"
	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

// Browser-like defaults sent with every upstream request.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.5"
	DefaultTimeout        = 10 * time.Second
)

// ErrRedirectNotAllowed is returned when upstream redirects to a host outside
// Config.AllowedHosts.
var ErrRedirectNotAllowed = errors.New("redirect target not allowed")

const maxRedirects = 10

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Transport http.RoundTripper
	// AllowedHosts restricts redirect targets. Empty allows any host.
	AllowedHosts []string
}

// Fetcher implements scraper.Fetcher using the Colly collector.
type Fetcher struct {
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector()
	// Upstream pages are re-fetched whenever the cache misses.
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.UserAgent = cfg.UserAgent
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.SetRequestTimeout(timeout)

	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	c.WithTransport(transport)
	c.SetRedirectHandler(redirectPolicy(cfg.AllowedHosts))

	return &Fetcher{baseCollector: c}
}

func redirectPolicy(hosts []string) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if len(hosts) == 0 {
			return nil
		}
		if err := scraper.CheckHost(req.URL.String(), hosts); err != nil {
			return fmt.Errorf("%w: %w", ErrRedirectNotAllowed, err)
		}
		return nil
	}
}

// Fetch executes a single HTTP GET. Any failure is returned as a
// *scraper.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request scraper.FetchRequest) (scraper.FetchResponse, error) {
	var (
		result   scraper.FetchResponse
		status   int
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	configureCollectorHooks(collector, request, time.Now(), &result, &status, &fetchErr)

	if err := runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return scraper.FetchResponse{}, scraper.ClassifyError(request.URL, status, err)
	}
	metrics.ObserveFetchBytes(request.URL, len(result.Body))
	return result, nil
}

func configureCollectorHooks(
	hooks collectorHooks,
	request scraper.FetchRequest,
	start time.Time,
	result *scraper.FetchResponse,
	status *int,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		setHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*status = r.StatusCode
		*result = scraper.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			*status = r.StatusCode
		}
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func setHeaders(request scraper.FetchRequest, r *colly.Request) {
	r.Headers.Set("Accept", DefaultAccept)
	r.Headers.Set("Accept-Language", DefaultAcceptLanguage)
	for key, values := range request.Headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
