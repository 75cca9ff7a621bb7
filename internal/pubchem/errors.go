package pubchem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidCID is returned when a compound identifier is not positive.
	ErrInvalidCID = errors.New("compound identifier must be a positive integer")

	// ErrMalformedRecord is wrapped by TransportError when the primary
	// response body is not a PUG View JSON document.
	ErrMalformedRecord = errors.New("malformed PUG View record")
)

// TransportError reports a failed fetch: a network error, a non-2xx
// primary response, a malformed primary body, or a network error on a
// secondary page.
type TransportError struct {
	// CID is the compound being extracted.
	CID int

	// URL is the address that failed.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Fault is the PUG View fault message from the error body, if any.
	Fault string

	// Err is the underlying error, if any.
	Err error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to fetch CID %d from %s", e.CID, e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Fault != "" {
		fmt.Fprintf(&b, ": %s", e.Fault)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFound reports whether PubChem answered 404.
func (e *TransportError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Retryable reports whether repeating the request may succeed:
// rate limiting, server errors and network failures, including a
// per-request timeout. Cancellation is never retryable; the caller's
// deadline is checked separately by FetchRecord.
func (e *TransportError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode != 0:
		return false
	case errors.Is(e.Err, ErrMalformedRecord):
		return false
	case errors.Is(e.Err, context.Canceled):
		return false
	default:
		return e.Err != nil
	}
}

// SchemaError reports that a required top-level section is absent.
type SchemaError struct {
	CID     int
	Missing string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("CID %d: record has no %q section", e.CID, e.Missing)
}

// ExtractionError reports that a required field could not be read.
// Path is the section path that was attempted.
type ExtractionError struct {
	CID   int
	Field string
	Path  []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("CID %d: cannot extract %s from %s", e.CID, e.Field, strings.Join(e.Path, " > "))
}
