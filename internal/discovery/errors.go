package discovery

import "fmt"

// AccessError indicates a directory could not be listed. Callers log
// it and skip the affected directory; it never aborts a whole run.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot list %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
