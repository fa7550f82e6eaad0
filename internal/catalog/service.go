// Package catalog serves the bookstore resources. Each resource consults the
// cache, fetches and extracts the upstream page on a miss, substitutes
// synthetic data when extraction is empty, and stores the result with its TTL.
package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-data-explorer/internal/extract"
	"github.com/JakeFAU/product-data-explorer/internal/metrics"
	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

// Resource TTLs.
const (
	HeadingsTTL   = 10 * time.Minute
	CategoriesTTL = 8 * time.Minute
	ProductsTTL   = 5 * time.Minute
	ProductTTL    = 5 * time.Minute
	SearchTTL     = 5 * time.Minute
)

// Upstream retry budgets.
const (
	navigationRetries = 3
	listingRetries    = 2
	// Search candidates are tried once each; the candidate list is the retry.
	searchRetries = 0
)

const (
	maxHeadings   = 8
	maxCategories = 8
	maxListings   = 20
)

// DefaultOrigin is the bookstore the catalog scrapes.
const DefaultOrigin = "https://www.wob.com"

// Cache is the subset of the cache store used by the catalog.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// Config controls Service behavior.
type Config struct {
	Origin       string
	AllowedHosts []string
	// Random returns values in [0, 1) for synthetic prices and ratings.
	Random func() float64
	Logger *zap.Logger
}

// Service implements the resource handlers.
type Service struct {
	cache     Cache
	fetcher   scraper.Fetcher
	extractor *extract.Extractor
	origin    string
	hosts     []string
	random    func() float64
	logger    *zap.Logger
}

// New builds a Service.
func New(cache Cache, fetcher scraper.Fetcher, cfg Config) *Service {
	origin := strings.TrimRight(cfg.Origin, "/")
	if origin == "" {
		origin = DefaultOrigin
	}
	hosts := cfg.AllowedHosts
	if len(hosts) == 0 {
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			hosts = []string{u.Hostname()}
		}
	}
	if cfg.Random == nil {
		cfg.Random = rand.Float64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		cache:     cache,
		fetcher:   fetcher,
		extractor: extract.New(origin),
		origin:    origin,
		hosts:     hosts,
		random:    cfg.Random,
		logger:    cfg.Logger,
	}
}

// Headings returns the site's top-level navigation headings.
func (s *Service) Headings(ctx context.Context) ([]scraper.Heading, error) {
	return cached(s, "headings", "headings", HeadingsTTL, func() ([]scraper.Heading, error) {
		body, err := s.fetch(ctx, s.origin+"/", navigationRetries)
		if err != nil {
			return nil, err
		}
		links, err := s.extractor.Links(body, headingLinks)
		if err != nil {
			return nil, fmt.Errorf("extract headings: %w", err)
		}

		headings := make([]scraper.Heading, 0, maxHeadings)
		seen := make(map[string]struct{}, len(links))
		for _, l := range links {
			id := scraper.GenerateID(l.Text)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			headings = append(headings, scraper.Heading{ID: id, Name: l.Text, URL: l.Href})
			if len(headings) == maxHeadings {
				break
			}
		}
		if len(headings) == 0 {
			s.fellBack("headings")
			headings = s.fallbackHeadings()
		}
		return headings, nil
	})
}

// Categories returns the subdivisions listed under heading.
func (s *Service) Categories(ctx context.Context, heading string) ([]scraper.Category, error) {
	key := "categories-" + heading
	return cached(s, "categories", key, CategoriesTTL, func() ([]scraper.Category, error) {
		body, err := s.fetch(ctx, s.origin+"/", navigationRetries)
		if err != nil {
			return nil, err
		}
		links, err := s.extractor.Links(body, categoryLinks)
		if err != nil {
			return nil, fmt.Errorf("extract categories: %w", err)
		}

		categories := make([]scraper.Category, 0, min(len(links), maxCategories))
		for _, l := range links[:min(len(links), maxCategories)] {
			categories = append(categories, scraper.Category{
				ID:      scraper.GenerateID(l.Text),
				Name:    l.Text,
				URL:     l.Href,
				Heading: heading,
			})
		}
		if len(categories) == 0 {
			s.fellBack("categories")
			categories = s.fallbackCategories(heading)
		}
		return categories, nil
	})
}

// Products returns one page of listings for category.
func (s *Service) Products(ctx context.Context, category string, page int) ([]scraper.Product, error) {
	page = normalizePage(page)
	key := fmt.Sprintf("products-%s-%d", category, page)
	return cached(s, "products", key, ProductsTTL, func() ([]scraper.Product, error) {
		target := fmt.Sprintf("%s/search?q=%s&page=%d", s.origin, url.QueryEscape(category), page)
		body, err := s.fetch(ctx, target, listingRetries)
		if err != nil {
			return nil, err
		}
		listings, err := s.extractor.Listings(body, productListing)
		if err != nil {
			return nil, fmt.Errorf("extract products: %w", err)
		}

		products := make([]scraper.Product, 0, min(len(listings), maxListings))
		for _, l := range listings[:min(len(listings), maxListings)] {
			products = append(products, scraper.Product{
				ID:       strconv.Itoa(l.Index) + "-" + scraper.Slug(l.Title),
				Title:    l.Title,
				Author:   l.Author,
				Price:    l.Price,
				Image:    l.Image,
				Link:     l.Link,
				Category: category,
			})
		}
		if len(products) == 0 {
			s.fellBack("products")
			products = s.sampleProducts(category)
		}
		return products, nil
	})
}

// Product returns the detail record for id. An empty or "#" pageURL yields a
// sample record; any other value must point at an allowed host.
func (s *Service) Product(ctx context.Context, id, pageURL string) (scraper.ProductDetail, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL != "" && pageURL != "#" {
		if err := scraper.CheckHost(pageURL, s.hosts); err != nil {
			return scraper.ProductDetail{}, scraper.NewValidationError("url", "Invalid product url: "+err.Error())
		}
	}
	return cached(s, "product", "product-"+id, ProductTTL, func() (scraper.ProductDetail, error) {
		if pageURL == "" || pageURL == "#" {
			s.fellBack("product")
			return s.sampleDetail(id), nil
		}
		body, err := s.fetch(ctx, pageURL, listingRetries)
		if err != nil {
			return scraper.ProductDetail{}, err
		}
		fields, err := s.extractor.Document(body, productFields)
		if err != nil {
			return scraper.ProductDetail{}, fmt.Errorf("extract product: %w", err)
		}
		return scraper.ProductDetail{
			ID:              id,
			Title:           fields[fieldTitle],
			Author:          fields[fieldAuthor],
			Price:           fields[fieldPrice],
			Description:     fields[fieldDescription],
			Condition:       fields[fieldCondition],
			ISBN:            fields[fieldISBN],
			Publisher:       fields[fieldPublisher],
			PublicationDate: fields[fieldPublicationDate],
			Image:           s.productImage(fields[fieldImage]),
			Availability:    fields[fieldAvailability],
		}, nil
	})
}

// Search tries each candidate search page until one yields results, then
// falls back to the curated topic table.
func (s *Service) Search(ctx context.Context, query string, page int) ([]scraper.SearchResult, error) {
	if query == "" {
		return nil, scraper.NewValidationError("q", "Search query is required")
	}
	page = normalizePage(page)
	key := fmt.Sprintf("search-%s-%d", query, page)
	return cached(s, "search", key, SearchTTL, func() ([]scraper.SearchResult, error) {
		for _, target := range s.searchURLs(query, page) {
			body, err := s.fetch(ctx, target, searchRetries)
			if err != nil {
				s.logger.Info("search candidate failed", zap.String("url", target), zap.Error(err))
				continue
			}
			listings, err := s.extractor.Listings(body, searchListing)
			if err != nil {
				s.logger.Info("search candidate unparsable", zap.String("url", target), zap.Error(err))
				continue
			}
			if len(listings) == 0 {
				continue
			}
			results := make([]scraper.SearchResult, 0, min(len(listings), maxListings))
			for _, l := range listings[:min(len(listings), maxListings)] {
				results = append(results, scraper.SearchResult{
					ID:     fmt.Sprintf("search-%d-%s", l.Index, scraper.Slug(l.Title)),
					Title:  l.Title,
					Author: l.Author,
					Price:  l.Price,
					Image:  l.Image,
					Link:   l.Link,
					Rating: s.rating(1, 5),
				})
			}
			s.logger.Debug("search results scraped", zap.String("url", target), zap.Int("count", len(results)))
			return results, nil
		}
		s.fellBack("search")
		return s.fallbackSearch(query), nil
	})
}

func (s *Service) searchURLs(query string, page int) []string {
	q := url.QueryEscape(query)
	return []string{
		fmt.Sprintf("%s/en-gb/search?query=%s&page=%d", s.origin, q, page),
		fmt.Sprintf("%s/search?q=%s&page=%d", s.origin, q, page),
		fmt.Sprintf("%s/en-gb/books?search=%s", s.origin, q),
	}
}

// productImage keeps absolute images, roots "/" paths at the origin and
// replaces anything else with the placeholder.
func (s *Service) productImage(raw string) string {
	switch {
	case raw == "":
		return productPlaceholder
	case strings.HasPrefix(raw, "http"):
		return raw
	case strings.HasPrefix(raw, "/"):
		return s.origin + raw
	default:
		return productPlaceholder
	}
}

// fetch runs the upstream request detached from the caller's cancellation.
// Each attempt remains bounded by the fetcher timeout.
func (s *Service) fetch(ctx context.Context, target string, retries int) ([]byte, error) {
	resp, err := s.fetcher.Fetch(context.WithoutCancel(ctx), scraper.FetchRequest{
		URL:        target,
		MaxRetries: retries,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch upstream page: %w", err)
	}
	return resp.Body, nil
}

func (s *Service) fellBack(resource string) {
	s.logger.Info("extraction empty, serving fallback data", zap.String("resource", resource))
	metrics.ObserveFallback(resource)
}

func cached[T any](s *Service, resource, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			metrics.ObserveCacheLookup(resource, true)
			s.logger.Debug("cache hit", zap.String("key", key))
			return typed, nil
		}
	}
	metrics.ObserveCacheLookup(resource, false)
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	s.cache.Set(key, v, ttl)
	return v, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
