package trace

import "fmt"

// SchemaError indicates an expected column is missing from a trace
// file's header. The file is unusable for the requested operation but
// the condition is scoped to that file only.
type SchemaError struct {
	Path   string
	Field  string
	Header []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column %q not found in %s (header: %v)", e.Field, e.Path, e.Header)
}
