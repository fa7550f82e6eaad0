// Package apierror is the single renderer of error responses. Every failure
// that escapes a handler is mapped to a stable {error, details, code} body.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

// Error codes.
const (
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeEndpointNotFound   = "ENDPOINT_NOT_FOUND"
)

// Body is the JSON error shape.
type Body struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

// Normalize maps err to a status and body. Internal details are exposed only
// when development is set.
func Normalize(err error, development bool) (int, Body) {
	var ve *scraper.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, Body{Error: ve.Message, Details: ve.Message, Code: CodeValidation}
	}

	var fe *scraper.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case scraper.KindConnectionRefused, scraper.KindDNSFailure:
			return http.StatusServiceUnavailable, Body{
				Error:   "Service temporarily unavailable",
				Details: "Unable to connect to external service",
				Code:    CodeServiceUnavailable,
			}
		case scraper.KindUpstreamServerError:
			return http.StatusBadGateway, Body{
				Error:   "External service error",
				Details: "The external service returned an error",
				Code:    CodeExternalService,
			}
		case scraper.KindUpstreamClientError:
			switch fe.StatusCode {
			case http.StatusNotFound:
				return http.StatusNotFound, Body{
					Error:   "Resource not found",
					Details: "The requested resource could not be found",
					Code:    CodeNotFound,
				}
			case http.StatusForbidden:
				return http.StatusForbidden, Body{
					Error:   "Access forbidden",
					Details: "Access to the requested resource is forbidden",
					Code:    CodeForbidden,
				}
			}
		}
	}

	details := "Something went wrong"
	if development && err != nil {
		details = err.Error()
	}
	return http.StatusInternalServerError, Body{Error: "Internal server error", Details: details, Code: CodeInternal}
}

// EndpointNotFound builds the body for an unmatched route.
func EndpointNotFound(method, path string) Body {
	return Body{
		Error:   "Endpoint not found",
		Details: fmt.Sprintf("The endpoint %s %s does not exist", method, path),
		Code:    CodeEndpointNotFound,
	}
}

// Writer renders errors as JSON responses.
type Writer struct {
	development bool
	logger      *zap.Logger
}

// NewWriter builds a Writer.
func NewWriter(development bool, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{development: development, logger: logger}
}

// Error normalizes err and writes it.
func (w *Writer) Error(rw http.ResponseWriter, r *http.Request, err error) {
	status, body := Normalize(err, w.development)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", body.Code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		w.logger.Error("request failed", fields...)
	} else {
		w.logger.Info("request rejected", fields...)
	}
	Write(rw, status, body)
}

// NotFound writes the unmatched-route response.
func (w *Writer) NotFound(rw http.ResponseWriter, r *http.Request) {
	Write(rw, http.StatusNotFound, EndpointNotFound(r.Method, r.URL.Path))
}

// Write encodes body with status.
func Write(rw http.ResponseWriter, status int, body Body) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(body)
}
