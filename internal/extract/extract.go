// Package extract turns raw HTML into structured records using ordered
// selector tables. Layouts are plain data so the catalog can describe each
// upstream page without code.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

// Defaults applied to listing fields that no strategy could fill.
const (
	DefaultAuthor = "Unknown Author"
	DefaultPrice  = "Price not available"
	DefaultImage  = "/abstract-book-cover.png"
	DefaultLink   = "#"
)

// minTitleLen is the exclusive lower bound on a valid listing title.
const minTitleLen = 2

// Strategy reads one value from a selection. An empty Attr reads trimmed text.
type Strategy struct {
	Selector string
	Attr     string
}

// Text builds a text strategy for selector.
func Text(selector string) Strategy {
	return Strategy{Selector: selector}
}

// Attr builds an attribute strategy for selector.
func Attr(selector, attr string) Strategy {
	return Strategy{Selector: selector, Attr: attr}
}

// ListingLayout describes a repeated-item page. Containers are tried in order;
// per field the first strategy with a non-empty value wins.
type ListingLayout struct {
	Containers []string
	Title      []Strategy
	Author     []Strategy
	Price      []Strategy
	Image      []Strategy
	Link       []Strategy
}

// Listing is one record read from a container element. Index is the
// position of the container among those matched by its selector.
type Listing struct {
	Index  int
	Title  string
	Author string
	Price  string
	Image  string
	Link   string
}

// LinkLayout describes a set of navigation anchors.
type LinkLayout struct {
	Selector string
	// MinTextLen is the exclusive lower bound on anchor text length.
	MinTextLen int
	// Exclude drops anchors whose lowercased text contains any of these words.
	Exclude []string
}

// Link is an anchor with its text and absolute href.
type Link struct {
	Text string
	Href string
}

// Field describes one value of a single-record page.
type Field struct {
	Name       string
	Strategies []Strategy
	Default    string
}

// Extractor runs layouts against HTML and resolves relative URLs against origin.
type Extractor struct {
	origin string
}

// New creates an Extractor for pages served from origin.
func New(origin string) *Extractor {
	return &Extractor{origin: strings.TrimRight(origin, "/")}
}

// Listings extracts records using the first container selector that yields at
// least one valid record. No match is an empty result, not an error.
func (e *Extractor) Listings(html []byte, layout ListingLayout) ([]Listing, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	for _, container := range layout.Containers {
		var out []Listing
		doc.Find(container).Each(func(i int, item *goquery.Selection) {
			title := firstValue(item, layout.Title)
			if utf8.RuneCountInString(title) <= minTitleLen {
				return
			}
			out = append(out, Listing{
				Index:  i,
				Title:  title,
				Author: orDefault(firstValue(item, layout.Author), DefaultAuthor),
				Price:  orDefault(firstValue(item, layout.Price), DefaultPrice),
				Image:  e.absoluteOr(firstValue(item, layout.Image), DefaultImage),
				Link:   e.absoluteOr(firstValue(item, layout.Link), DefaultLink),
			})
		})
		if len(out) > 0 {
			return out, nil
		}
	}
	return []Listing{}, nil
}

// Links extracts anchors matching layout.Selector in document order.
func (e *Extractor) Links(html []byte, layout LinkLayout) ([]Link, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	out := []Link{}
	doc.Find(layout.Selector).Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || utf8.RuneCountInString(text) <= layout.MinTextLen || excluded(text, layout.Exclude) {
			return
		}
		out = append(out, Link{Text: text, Href: scraper.MakeAbsoluteURL(href, e.origin)})
	})
	return out, nil
}

// Document extracts one value per field, falling back to the field default.
// Values are returned as found; URL handling is left to the caller.
func (e *Extractor) Document(html []byte, fields []Field) (map[string]string, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = orDefault(firstValue(doc.Selection, f.Strategies), f.Default)
	}
	return out, nil
}

func parse(html []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func firstValue(sel *goquery.Selection, strategies []Strategy) string {
	for _, s := range strategies {
		match := sel.Find(s.Selector).First()
		if match.Length() == 0 {
			continue
		}
		var v string
		if s.Attr == "" {
			v = match.Text()
		} else {
			v, _ = match.Attr(s.Attr)
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (e *Extractor) absoluteOr(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	return scraper.MakeAbsoluteURL(raw, e.origin)
}

func excluded(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
