package wdqs

import (
	"errors"
	"fmt"
)

// Transport construction errors.
var (
	// ErrNoUserAgent is returned when a client is constructed without a
	// User-Agent. Identification is required by the Wikimedia policy on
	// every request, so the client refuses to exist without one.
	ErrNoUserAgent = errors.New("user agent is required for query service requests")

	// ErrNoEndpoint is returned when a client is constructed without an
	// endpoint URL.
	ErrNoEndpoint = errors.New("query endpoint URL cannot be empty")
)

// ErrorKind classifies a failed request attempt.
type ErrorKind int

const (
	// KindNetwork indicates a connection-level failure (DNS, TCP, TLS).
	KindNetwork ErrorKind = iota
	// KindTimeout indicates the per-attempt timeout elapsed.
	KindTimeout
	// KindRateLimited indicates an HTTP 429 response.
	KindRateLimited
	// KindServer indicates a non-2xx response other than 429.
	KindServer
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate-limited"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// RequestError describes a failed query request after all retries were
// exhausted. It carries the classification of the last attempt, the HTTP
// status (zero for connection-level failures), and the attempt count.
type RequestError struct {
	// Kind classifies the last failed attempt.
	Kind ErrorKind

	// Status is the HTTP status of the last response, zero if the
	// failure happened below the HTTP layer.
	Status int

	// Attempts is the number of attempts made before giving up.
	Attempts int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("query request failed (%s", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(", status %d", e.Status)
	}
	msg += fmt.Sprintf(", %d attempts)", e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *RequestError) Unwrap() error {
	return e.Err
}
