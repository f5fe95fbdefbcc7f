package translate

import "fmt"

// EnrichmentError reports a failed or unusable response from the
// translation service. Callers must treat it as "nothing changed":
// the adapter never partially applies a bad response.
type EnrichmentError struct {
	Op  string // which adapter operation failed
	Err error  // original cause
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("translate: %s: %v", e.Op, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

func enrichErr(op string, err error) error {
	return &EnrichmentError{Op: op, Err: err}
}

func enrichErrf(op, format string, args ...interface{}) error {
	return &EnrichmentError{Op: op, Err: fmt.Errorf(format, args...)}
}
