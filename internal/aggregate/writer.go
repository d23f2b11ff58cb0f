// Package aggregate writes one normalized metrics CSV per trace file
// group, combining variant identity, pass-through trace fields and
// derived metrics.
package aggregate

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/tracelens/tracelens/internal/discovery"
	"github.com/tracelens/tracelens/internal/logging"
	"github.com/tracelens/tracelens/internal/trace"
)

// outputHeader is the fixed column order of every aggregate CSV.
var outputHeader = []string{
	"variant_dir",
	"p",
	"ub",
	"b",
	"csv_path",
	trace.FieldDispatchID,
	trace.FieldKernelID,
	trace.FieldKernelName,
	trace.FieldStartTimestamp,
	trace.FieldEndTimestamp,
	"time_us",
	trace.FieldWorkgroupSizeX,
	trace.FieldWorkgroupSizeY,
	trace.FieldWorkgroupSizeZ,
	trace.FieldGridSizeX,
	trace.FieldGridSizeY,
	trace.FieldGridSizeZ,
	"Total_Workgroups",
	"CU_Utilization_pct",
}

// GroupStats summarizes one group's output file.
type GroupStats struct {
	OutputPath     string
	FilesProcessed int
	FilesSkipped   int
	RowsWritten    int
}

// Processor turns trace file groups into aggregate CSVs. It owns no
// state across groups; each call to WriteGroup opens, fully writes and
// closes one output file.
type Processor struct {
	fs          afero.Fs
	numCUs      int
	markerField string
	marker      string
}

// NewProcessor creates a Processor for the given compute unit count
// and marker kernel configuration.
func NewProcessor(fsys afero.Fs, numCUs int, markerField, marker string) *Processor {
	return &Processor{
		fs:          fsys,
		numCUs:      numCUs,
		markerField: markerField,
		marker:      marker,
	}
}

// WriteGroup writes <group dir>/<variant name>.csv for one trace file
// group, overwriting any previous output. Trace files are processed in
// group order; a file that cannot be counted or read is logged and
// skipped, and a file without marker occurrences is skipped with a
// warning. Only a failure to open or flush the output file itself
// fails the group.
func (p *Processor) WriteGroup(ctx context.Context, v discovery.Variant, g discovery.Group) (GroupStats, error) {
	outPath := filepath.Join(g.Dir, v.Name+".csv")
	stats := GroupStats{OutputPath: outPath}

	out, err := p.fs.Create(outPath)
	if err != nil {
		return stats, fmt.Errorf("creating output file %s: %w", outPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(outputHeader); err != nil {
		return stats, fmt.Errorf("writing header to %s: %w", outPath, err)
	}

	for _, path := range g.Files {
		fileCtx := logging.WithTraceFile(ctx, path)

		rows, skipped, err := p.appendFile(fileCtx, w, v, path)
		stats.RowsWritten += rows
		if err != nil {
			logging.Error(fileCtx, "failed to process trace file", "error", err)
			continue
		}
		if skipped {
			stats.FilesSkipped++
			continue
		}
		stats.FilesProcessed++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return stats, fmt.Errorf("writing %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("closing %s: %w", outPath, err)
	}
	return stats, nil
}

// appendFile streams one trace file's half-window into the open CSV
// writer. It returns the number of data rows written, and whether the
// file was skipped for having no marker occurrences.
func (p *Processor) appendFile(ctx context.Context, w *csv.Writer, v discovery.Variant, path string) (int, bool, error) {
	total, err := trace.CountOccurrences(p.fs, path, p.markerField, p.marker)
	if err != nil {
		return 0, false, fmt.Errorf("counting marker occurrences: %w", err)
	}

	if total == 0 {
		logging.Warn(ctx, "no marker occurrences in trace file; skipping",
			"marker", p.marker)
		return 0, true, nil
	}

	s, err := trace.ScanFromOccurrence(p.fs, path, p.markerField, p.marker, trace.WindowStart(total))
	if err != nil {
		return 0, false, err
	}
	defer s.Close()

	rows := 0
	for s.Scan() {
		row := s.Row()
		m := trace.Derive(row, p.numCUs)

		record := []string{
			v.Path,
			strconv.Itoa(v.P),
			strconv.Itoa(v.UB),
			strconv.Itoa(v.B),
			path,
			row.Field(trace.FieldDispatchID),
			row.Field(trace.FieldKernelID),
			row.Field(trace.FieldKernelName),
			row.Field(trace.FieldStartTimestamp),
			row.Field(trace.FieldEndTimestamp),
			fmt.Sprintf("%.3f", m.TimeUS),
			row.Field(trace.FieldWorkgroupSizeX),
			row.Field(trace.FieldWorkgroupSizeY),
			row.Field(trace.FieldWorkgroupSizeZ),
			row.Field(trace.FieldGridSizeX),
			row.Field(trace.FieldGridSizeY),
			row.Field(trace.FieldGridSizeZ),
			fmt.Sprintf("%.6f", m.TotalWorkgroups),
			fmt.Sprintf("%.2f", m.CUUtilizationPct),
		}

		if err := w.Write(record); err != nil {
			return rows, false, err
		}
		rows++
	}
	if err := s.Err(); err != nil {
		return rows, false, err
	}
	return rows, false, nil
}
