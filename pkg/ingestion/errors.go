package ingestion

import (
	"errors"
	"fmt"
)

// ErrMissingID is returned when a 2xx submission response carries no identifier.
var ErrMissingID = errors.New("ingestion: response has no id")

// SubmissionError wraps any failed backend call: transport errors, non-2xx
// responses and unreadable bodies.
type SubmissionError struct {
	Op         string
	StatusCode int
	Body       string
	Wrapped    error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Wrapped != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Wrapped)
	case e.Wrapped != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Wrapped)
	default:
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// StatusCode returns the HTTP status behind err, or 0.
func StatusCode(err error) int {
	var se *SubmissionError
	if errors.As(err, &se) && se != nil {
		return se.StatusCode
	}
	return 0
}
