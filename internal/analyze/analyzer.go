// Package analyze orchestrates a full trace analysis run: variant
// discovery, per-group aggregation and best-effort error containment.
// A run always attempts every discoverable variant, group and file and
// produces a partial result rather than failing fast.
package analyze

import (
	"context"

	"github.com/spf13/afero"

	"github.com/tracelens/tracelens/internal/aggregate"
	"github.com/tracelens/tracelens/internal/discovery"
	"github.com/tracelens/tracelens/internal/logging"
)

// OutputRecord describes one aggregate CSV produced during a run.
type OutputRecord struct {
	Variant      discovery.Variant
	OutputPath   string
	SourceFiles  int
	SkippedFiles int
	RowsWritten  int
}

// Recorder persists output records for a run. Implementations must
// tolerate being called once per output file, in production order.
type Recorder interface {
	RecordOutput(ctx context.Context, rec OutputRecord) error
}

// Summary aggregates counts across a whole run.
type Summary struct {
	Variants       int
	Groups         int
	OutputFiles    int
	FilesProcessed int
	FilesSkipped   int
	RowsWritten    int
}

// Analyzer runs the analysis pipeline over one root directory.
type Analyzer struct {
	fs        afero.Fs
	processor *aggregate.Processor
	recorder  Recorder
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRecorder attaches a run ledger recorder. Recorder failures are
// logged and never abort the analysis.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		a.recorder = r
	}
}

// New creates an Analyzer.
func New(fsys afero.Fs, numCUs int, markerField, marker string, opts ...Option) *Analyzer {
	a := &Analyzer{
		fs:        fsys,
		processor: aggregate.NewProcessor(fsys, numCUs, markerField, marker),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run processes every variant directory under root. Failures scoped to
// a file or group are logged and skipped; only an unlistable root ends
// the run early, and then with a diagnostic rather than a partial
// panic. The returned Summary reflects whatever was produced.
func (a *Analyzer) Run(ctx context.Context, root string) (Summary, error) {
	var summary Summary

	variants, err := discovery.Variants(a.fs, root)
	if err != nil {
		logging.Error(ctx, "cannot enumerate root directory", "root", root, "error", err)
		return summary, err
	}

	for _, v := range variants {
		summary.Variants++
		vctx := logging.WithVariant(ctx, v.Name)

		groups, err := discovery.TraceFileGroups(a.fs, v)
		if err != nil {
			logging.Error(vctx, "cannot list variant directory", "error", err)
			continue
		}
		if len(groups) == 0 {
			logging.Warn(vctx, "no kernel trace files under variant directory", "path", v.Path)
			continue
		}

		for _, g := range groups {
			summary.Groups++

			stats, err := a.processor.WriteGroup(vctx, v, g)
			if err != nil {
				logging.Error(vctx, "failed to write group output", "dir", g.Dir, "error", err)
				continue
			}

			summary.OutputFiles++
			summary.FilesProcessed += stats.FilesProcessed
			summary.FilesSkipped += stats.FilesSkipped
			summary.RowsWritten += stats.RowsWritten

			logging.Info(vctx, "wrote aggregate CSV",
				"output", stats.OutputPath,
				"files", stats.FilesProcessed,
				"skipped", stats.FilesSkipped,
				"rows", stats.RowsWritten)

			a.record(vctx, OutputRecord{
				Variant:      v,
				OutputPath:   stats.OutputPath,
				SourceFiles:  stats.FilesProcessed,
				SkippedFiles: stats.FilesSkipped,
				RowsWritten:  stats.RowsWritten,
			})
		}
	}

	return summary, nil
}

func (a *Analyzer) record(ctx context.Context, rec OutputRecord) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordOutput(ctx, rec); err != nil {
		logging.Warn(ctx, "failed to record output in ledger",
			"output", rec.OutputPath, "error", err)
	}
}
