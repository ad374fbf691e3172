package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrLockHeld    = errors.New("lock already held")
	ErrSyncRunning = errors.New("a sync run is already in progress")
)

// APIError is a failure originating at the builder feed boundary. The feed
// client constructs it from the HTTP response, so downstream code can switch
// on Status instead of sniffing error shapes at runtime.
type APIError struct {
	Status  int    // HTTP status code, 0 when unknown
	Message string // human-readable description
	Body    string // serialized response body, may be empty
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("builder api: HTTP %d: %s", e.Status, e.Message)
	}
	return "builder api: " + e.Message
}

// AuthError is a terminal authentication failure from the builder feed.
// It carries the correlation ID generated for the failing run and, when the
// measurement succeeded, the local/remote clock skew in seconds.
type AuthError struct {
	Status           int
	Message          string
	CorrelationID    string
	ClockSkewSeconds *int64
}

func (e *AuthError) Error() string { return e.Message }

// statusPattern matches a 4xx/5xx status code embedded in an error message.
// This is the fallback for failures that did not originate at the feed
// boundary and therefore carry no structured status.
var statusPattern = regexp.MustCompile(`\b(4\d\d|5\d\d)\b`)

// ErrorStatus extracts an HTTP-like status code from err. It prefers the
// structured status of an APIError or AuthError and falls back to sniffing
// the message text. The second return value reports whether a status was
// found.
func ErrorStatus(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status > 0 {
		return apiErr.Status, true
	}
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Status > 0 {
		return authErr.Status, true
	}
	if m := statusPattern.FindString(err.Error()); m != "" {
		n, convErr := strconv.Atoi(m)
		if convErr == nil {
			return n, true
		}
	}
	return 0, false
}

// ErrorMessage returns a human-readable description of err, falling back to
// a generic string for nil errors.
func ErrorMessage(err error) string {
	if err == nil {
		return "unknown builder request error"
	}
	return err.Error()
}

// ErrorBody returns the serialized response body attached to a feed error,
// or "" when none is available. It never panics on malformed input.
func ErrorBody(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}

var (
	invalidKeyPattern = regexp.MustCompile(`(?i)invalid api key`)
	builderKeyPattern = regexp.MustCompile(`(?i)builder key auth failed`)
)

// IsAuthFailure reports whether err is an authentication failure: HTTP 401,
// or a message matching the builder key rejection phrases. Auth failures are
// terminal and must not be retried.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	if status, ok := ErrorStatus(err); ok && status == 401 {
		return true
	}
	msg := err.Error()
	return invalidKeyPattern.MatchString(msg) || builderKeyPattern.MatchString(msg)
}

// retryableStatuses is the set of HTTP statuses worth retrying with backoff.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsRetryable reports whether err is a transient failure. Failures with an
// unextractable status are treated as transient, matching the behavior of
// network-level errors that carry no status at all.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	status, ok := ErrorStatus(err)
	if !ok {
		return true
	}
	return retryableStatuses[status]
}
