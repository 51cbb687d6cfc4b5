package bolagsverket

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the registry has no record for an
	// organisation number.
	ErrNotFound = errors.New("organisation not found")

	// ErrUnreadableArchive is returned when a downloaded document has a
	// ZIP signature but the archive cannot be opened.
	ErrUnreadableArchive = errors.New("document archive unreadable")
)

// UpstreamError is a non-2xx response from the registry API. The status
// code and response body are preserved for callers that branch on them.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("bolagsverket: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// TransportError is a network-level failure reaching the registry API.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bolagsverket: %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
