// Package trace streams profiler kernel-trace CSV files and derives
// per-dispatch occupancy metrics. Files are read in forward-only passes
// without buffering rows, so arbitrarily large traces stay cheap.
package trace

import (
	"encoding/csv"
	"io"

	"github.com/spf13/afero"
)

// Field names produced by the profiler's kernel trace output.
const (
	FieldDispatchID     = "Dispatch_Id"
	FieldKernelID       = "Kernel_Id"
	FieldKernelName     = "Kernel_Name"
	FieldStartTimestamp = "Start_Timestamp"
	FieldEndTimestamp   = "End_Timestamp"
	FieldWorkgroupSizeX = "Workgroup_Size_X"
	FieldWorkgroupSizeY = "Workgroup_Size_Y"
	FieldWorkgroupSizeZ = "Workgroup_Size_Z"
	FieldGridSizeX      = "Grid_Size_X"
	FieldGridSizeY      = "Grid_Size_Y"
	FieldGridSizeZ      = "Grid_Size_Z"
)

// Row is a single trace event. Field values are kept exactly as read;
// nothing is parsed or normalized until metric derivation.
type Row struct {
	index  map[string]int
	record []string
}

// Field returns the row's value for the named column, or the empty
// string if the column is absent from the header or from this record.
func (r Row) Field(name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

// Reader streams one trace file. It reads the header row on open and
// resolves fields by name so column order does not matter.
type Reader struct {
	f      afero.File
	cr     *csv.Reader
	path   string
	header []string
	index  map[string]int
}

// Open opens the trace file at path and consumes its header row.
func Open(fsys afero.Fs, path string) (*Reader, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(f)
	// Trace rows can be ragged; missing trailing fields read as empty.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil && err != io.EOF {
		f.Close()
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	return &Reader{f: f, cr: cr, path: path, header: header, index: index}, nil
}

// Path returns the path the reader was opened with.
func (r *Reader) Path() string {
	return r.path
}

// HasField reports whether the file's header contains the named column.
func (r *Reader) HasField(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Header returns the column names read from the file.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next data row, or io.EOF at end of file.
func (r *Reader) Next() (Row, error) {
	record, err := r.cr.Read()
	if err != nil {
		return Row{}, err
	}
	return Row{index: r.index, record: record}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
