package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// WindowStart returns the zero-based marker occurrence index at which
// the output window begins for a file with total marker occurrences.
// Callers must treat total == 0 as "skip the file" and not open a
// window scanner for it.
func WindowStart(total int) int {
	return total / 2
}

// WindowScanner yields trace rows from the row carrying the
// startOccurrence-th (zero-based) marker occurrence, inclusive, through
// end of file. Rows are emitted in original file order and unmodified.
//
// The scanner performs its own pass from the start of the file; it
// shares no state with a prior counting pass over the same file.
// Usage follows bufio.Scanner: Scan, Row, then Err after Scan returns
// false.
type WindowScanner struct {
	r               *Reader
	field           string
	marker          string
	startOccurrence int

	occurrence int
	started    bool
	row        Row
	err        error
}

// ScanFromOccurrence opens path and prepares a window scan anchored at
// the startOccurrence-th occurrence of marker in the named field.
// Returns a *SchemaError if the field is missing from the file header.
func ScanFromOccurrence(fsys afero.Fs, path, field, marker string, startOccurrence int) (*WindowScanner, error) {
	r, err := Open(fsys, path)
	if err != nil {
		return nil, err
	}

	if !r.HasField(field) {
		r.Close()
		return nil, &SchemaError{Path: path, Field: field, Header: r.Header()}
	}

	return &WindowScanner{
		r:               r,
		field:           field,
		marker:          marker,
		startOccurrence: startOccurrence,
	}, nil
}

// Scan advances to the next row inside the window. It returns false at
// end of file or on a read error; Err distinguishes the two.
func (s *WindowScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for {
		row, err := s.r.Next()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = fmt.Errorf("reading %s: %w", s.r.Path(), err)
			return false
		}

		if strings.Contains(row.Field(s.field), s.marker) {
			if s.occurrence == s.startOccurrence {
				s.started = true
			}
			s.occurrence++
		}

		if s.started {
			s.row = row
			return true
		}
	}
}

// Row returns the row produced by the last successful Scan.
func (s *WindowScanner) Row() Row {
	return s.row
}

// Err returns the first read error encountered, if any.
func (s *WindowScanner) Err() error {
	return s.err
}

// Close closes the underlying file.
func (s *WindowScanner) Close() error {
	return s.r.Close()
}
