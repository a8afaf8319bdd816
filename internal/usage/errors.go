package usage

import (
	"errors"
	"fmt"
)

// Sentinel kinds for fetch failures. Match them with errors.Is.
var (
	ErrNetwork    = errors.New("usage: network failure")
	ErrHTTPStatus = errors.New("usage: unexpected http status")
	ErrDecode     = errors.New("usage: decode failure")
)

// FetchError is the single failure type returned by Client. Kind is one of
// ErrNetwork, ErrHTTPStatus or ErrDecode; Err carries the underlying cause.
type FetchError struct {
	Endpoint   string
	Kind       error
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Kind)
	}
}

// Unwrap exposes the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the failure kind of e.
func (e *FetchError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func networkError(endpoint string, err error) *FetchError {
	return &FetchError{Endpoint: endpoint, Kind: ErrNetwork, Err: err}
}

func statusError(endpoint string, code int) *FetchError {
	return &FetchError{Endpoint: endpoint, Kind: ErrHTTPStatus, StatusCode: code}
}

func decodeError(endpoint string, err error) *FetchError {
	return &FetchError{Endpoint: endpoint, Kind: ErrDecode, Err: err}
}
