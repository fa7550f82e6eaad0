package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies why an outbound fetch failed.
type ErrorKind string

// Fetch failure kinds.
const (
	KindTimeout             ErrorKind = "timeout"
	KindConnectionRefused   ErrorKind = "connection_refused"
	KindDNSFailure          ErrorKind = "dns_failure"
	KindUpstreamServerError ErrorKind = "upstream_server_error"
	KindUpstreamClientError ErrorKind = "upstream_client_error"
	KindUnknown             ErrorKind = "unknown"
)

// FetchError is returned by fetchers once a request has failed for good.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth another attempt.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindConnectionRefused, KindDNSFailure, KindUpstreamServerError:
		return true
	default:
		return false
	}
}

// ClassifyError maps a transport error and/or upstream status into a FetchError.
// A nil err with a 2xx status returns nil.
func ClassifyError(rawURL string, status int, err error) *FetchError {
	if err == nil && status > 0 && status < 400 {
		return nil
	}
	fe := &FetchError{URL: rawURL, StatusCode: status, Err: err}
	switch {
	case status >= 500:
		fe.Kind = KindUpstreamServerError
	case status >= 400:
		fe.Kind = KindUpstreamClientError
	default:
		fe.StatusCode = 0
		fe.Kind = classifyTransport(err)
	}
	return fe
}

func classifyTransport(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNSFailure
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}

// ValidationError reports a bad inbound request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
