package timeline

import "fmt"

// WriteError classifies a persistence failure. Transient errors are retried
// with backoff and eventually spilled; permanent errors (the sink rejected
// the record itself) are dead-lettered immediately.
type WriteError struct {
	Transient bool
	Err       error
}

func (e *WriteError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s write error: %v", kind, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// TransientError wraps err as a retryable write failure.
func TransientError(err error) *WriteError {
	return &WriteError{Transient: true, Err: err}
}

// PermanentError wraps err as a non-retryable write failure.
func PermanentError(err error) *WriteError {
	return &WriteError{Transient: false, Err: err}
}
