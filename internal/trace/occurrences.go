package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// CountOccurrences streams the trace file once and counts rows whose
// field value contains marker (case-sensitive substring match). Rows
// where the field is empty or absent never match.
//
// Returns a *SchemaError if the field is missing from the file header.
func CountOccurrences(fsys afero.Fs, path, field, marker string) (int, error) {
	r, err := Open(fsys, path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if !r.HasField(field) {
		return 0, &SchemaError{Path: path, Field: field, Header: r.Header()}
	}

	count := 0
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		if strings.Contains(row.Field(field), marker) {
			count++
		}
	}
	return count, nil
}
