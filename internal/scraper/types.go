package scraper

import (
	"net/http"
	"time"
)

// Heading is a top-level navigation entry of the source site.
type Heading struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Category is a subdivision listed under a heading.
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Heading string `json:"heading"`
}

// Product is a listing row scraped from a category page.
type Product struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	Link     string `json:"link"`
	Category string `json:"category"`
}

// ProductDetail is the full record scraped from a single product page.
type ProductDetail struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Price           string `json:"price"`
	Description     string `json:"description"`
	Condition       string `json:"condition"`
	ISBN            string `json:"isbn"`
	Publisher       string `json:"publisher"`
	PublicationDate string `json:"publicationDate"`
	Image           string `json:"image"`
	Availability    string `json:"availability"`
}

// SearchResult is a product-shaped search hit with a star rating.
type SearchResult struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Price  string `json:"price"`
	Image  string `json:"image"`
	Link   string `json:"link"`
	Rating int    `json:"rating"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL        string
	MaxRetries int
	Headers    http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// FetchAttempt describes one cycle of the retry loop. It is never persisted.
type FetchAttempt struct {
	Attempt int
	Delay   time.Duration
	Err     error
}
