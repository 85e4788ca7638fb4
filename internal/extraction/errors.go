package extraction

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when no record matches.
var ErrNotFound = errors.New("not found")

// ErrStopped is returned when a run observes its stop flag at a checkpoint.
var ErrStopped = errors.New("extraction stopped")

// ValidationError rejects a malformed URL before any fetch happens.
// Fatal for that URL only.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.URL, e.Reason)
}

// FetchError reports a fetch that exhausted its retries.
// Fatal for that URL only.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s failed after %d attempts", e.URL, e.Attempts)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProcessingError wraps an uncaught failure inside one URL's pipeline.
type ProcessingError struct {
	URL string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s: %v", e.URL, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// ErrorKind classifies an error for failure reports.
func ErrorKind(err error) string {
	var ve *ValidationError
	var fe *FetchError
	var pe *ProcessingError
	switch {
	case errors.As(err, &ve):
		return "ValidationError"
	case errors.Is(err, ErrStopped):
		return "Stopped"
	case errors.As(err, &fe):
		return "FetchError"
	case errors.As(err, &pe):
		return "ProcessingError"
	default:
		return "ProcessingError"
	}
}
