package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const maxIDLength = 50

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slug lowercases text, joins words with dashes and strips everything that is
// not a lowercase letter, digit or dash.
func Slug(text string) string {
	s := strings.ToLower(text)
	s = whitespaceRun.ReplaceAllString(s, "-")
	return nonSlugChars.ReplaceAllString(s, "")
}

// GenerateID derives a stable identifier from display text, capped at 50 bytes.
func GenerateID(text string) string {
	id := Slug(text)
	if len(id) > maxIDLength {
		id = id[:maxIDLength]
	}
	return id
}

// MakeAbsoluteURL resolves raw against origin. Absolute URLs are returned
// unchanged and protocol-relative ones are promoted to https. An empty raw
// yields an empty string.
func MakeAbsoluteURL(raw, origin string) string {
	raw = strings.TrimSpace(raw)
	origin = strings.TrimRight(origin, "/")
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return origin + raw
	default:
		return origin + "/" + raw
	}
}

// CheckHost returns an error unless rawURL is an http(s) URL whose host is in hosts.
func CheckHost(rawURL string, hosts []string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not allowed", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		if strings.EqualFold(host, h) {
			return nil
		}
	}
	return fmt.Errorf("host %q is not allowed", host)
}
