package domain

import (
	"errors"
	"fmt"
)

// Fetch-level sentinels. Both are retryable by the scheduler; after retries
// are exhausted the affected fragment is dropped, never the whole job.
var (
	ErrNotFound          = errors.New("profile not found")
	ErrRateLimited       = errors.New("source rate limited")
	ErrSourceUnavailable = errors.New("source unavailable")
)

// TransientFetchError wraps a temporary failure (timeout, connection reset)
// from one source so the scheduler can retry it with backoff.
type TransientFetchError struct {
	Source Source
	Err    error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: transient fetch failure: %v", e.Source, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Retryable reports whether a fetch error is worth another attempt.
// ErrNotFound is a definitive answer and is not retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var tf *TransientFetchError
	if errors.As(err, &tf) {
		return true
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrSourceUnavailable)
}

// InsufficientDataError marks a candidate whose six categories were all
// built on unresolved fields. The candidate is excluded from ranking; the
// job continues.
type InsufficientDataError struct {
	Identity string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("candidate %s: no resolvable fields to score", e.Identity)
}

// JobParseError is fatal to the one job whose requirement failed to parse.
type JobParseError struct {
	Reason string
}

func (e *JobParseError) Error() string {
	return "job requirement parse: " + e.Reason
}
