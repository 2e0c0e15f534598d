package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Engine is the interface both fetch strategies implement. Which engine a
// merchant uses is a static configuration choice, never a runtime decision.
type Engine interface {
	// Name returns the engine identifier ("http" or "browser").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the output of a successful fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

const (
	// ErrKindNetwork covers DNS, dial, and transport failures.
	ErrKindNetwork FetchErrorKind = "network"
	// ErrKindTimeout means the request exceeded its deadline.
	ErrKindTimeout FetchErrorKind = "timeout"
	// ErrKindHTTPStatus means the server answered with a non-2xx status.
	ErrKindHTTPStatus FetchErrorKind = "http_status"
	// ErrKindRenderTimeout means the browser did not reach a content-ready
	// state within the bounded wait.
	ErrKindRenderTimeout FetchErrorKind = "render_timeout"
	// ErrKindRenderCrash covers browser navigation failures and crashes.
	ErrKindRenderCrash FetchErrorKind = "render_crash"
)

// FetchError is the typed failure returned by every engine.
type FetchError struct {
	Kind   FetchErrorKind
	Status int // set for ErrKindHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == ErrKindHTTPStatus {
		return fmt.Sprintf("fetch: http status %d", e.Status)
	}
	return fmt.Sprintf("fetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError extracts a *FetchError from an error chain, or nil.
func AsFetchError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}
