package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tracelens/tracelens/internal/analyze"
	"github.com/tracelens/tracelens/internal/logging"
	"github.com/tracelens/tracelens/internal/storage"
)

var (
	analyzeCUs         int
	analyzeRoot        string
	analyzeMarker      string
	analyzeMarkerField string
	analyzeLedger      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze kernel trace CSVs under a profiling directory",
	Long: `Discover variant directories (p<P>_ub<UB>_b<B>) under the root,
locate *_kernel_trace.csv files one level below each variant, and for
every trace file compute occupancy metrics from the halfway point of
the marker kernel's occurrences onward. One aggregate CSV is written
per trace file group, next to its source files.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVarP(&analyzeCUs, "cus", "c", 0, "Number of compute units in the system")
	analyzeCmd.Flags().StringVarP(&analyzeRoot, "root", "r", "", "Root folder with p*_ub*_b* subfolders")
	analyzeCmd.Flags().StringVar(&analyzeMarker, "match-substring", "", "Substring in the kernel name identifying the marker kernel")
	analyzeCmd.Flags().StringVar(&analyzeMarkerField, "marker-field", "", "Trace column inspected for the marker substring")
	analyzeCmd.Flags().StringVar(&analyzeLedger, "ledger", "", "Path to a sqlite run ledger (optional)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("cus") {
		cfg.Analyze.NumCUs = analyzeCUs
	}
	if cmd.Flags().Changed("root") {
		cfg.Analyze.Root = analyzeRoot
	}
	if cmd.Flags().Changed("match-substring") {
		cfg.Analyze.MarkerSubstring = analyzeMarker
	}
	if cmd.Flags().Changed("marker-field") {
		cfg.Analyze.MarkerField = analyzeMarkerField
	}
	if cmd.Flags().Changed("ledger") {
		cfg.Ledger.Path = analyzeLedger
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Analyze.Root == "" {
		return fmt.Errorf("a root directory is required (--root or TRACELENS_ROOT)")
	}

	runID := uuid.NewString()
	ctx := logging.WithRunID(cmd.Context(), runID)

	logging.Info(ctx, "starting analysis",
		"root", cfg.Analyze.Root,
		"cus", cfg.Analyze.NumCUs,
		"marker", cfg.Analyze.MarkerSubstring)

	var opts []analyze.Option
	var store *storage.RunStore
	run := &storage.Run{
		ID:              runID,
		Root:            cfg.Analyze.Root,
		NumCUs:          cfg.Analyze.NumCUs,
		MarkerField:     cfg.Analyze.MarkerField,
		MarkerSubstring: cfg.Analyze.MarkerSubstring,
		StartedAt:       time.Now().UTC(),
	}

	if cfg.Ledger.Path != "" {
		db, err := storage.New(cfg.Ledger.Path)
		if err != nil {
			logging.Warn(ctx, "cannot open run ledger; continuing without it", "error", err)
		} else {
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				logging.Warn(ctx, "cannot migrate run ledger; continuing without it", "error", err)
			} else {
				store = storage.NewRunStore(db)
				if err := store.CreateRun(ctx, run); err != nil {
					logging.Warn(ctx, "cannot record run in ledger", "error", err)
					store = nil
				} else {
					opts = append(opts, analyze.WithRecorder(&ledgerRecorder{store: store, runID: runID}))
				}
			}
		}
	}

	analyzer := analyze.New(afero.NewOsFs(),
		cfg.Analyze.NumCUs, cfg.Analyze.MarkerField, cfg.Analyze.MarkerSubstring, opts...)

	summary, err := analyzer.Run(ctx, cfg.Analyze.Root)
	if err != nil {
		return err
	}

	logging.Info(ctx, "analysis complete",
		"variants", summary.Variants,
		"output_files", summary.OutputFiles,
		"files_processed", summary.FilesProcessed,
		"files_skipped", summary.FilesSkipped,
		"rows_written", summary.RowsWritten)

	if store != nil {
		run.CompletedAt = time.Now().UTC()
		run.Variants = summary.Variants
		run.OutputFiles = summary.OutputFiles
		run.FilesProcessed = summary.FilesProcessed
		run.FilesSkipped = summary.FilesSkipped
		run.RowsWritten = summary.RowsWritten
		if err := store.CompleteRun(ctx, run); err != nil {
			logging.Warn(ctx, "cannot mark run complete in ledger", "error", err)
		}
	}
	return nil
}

// ledgerRecorder adapts the run ledger store to the analyzer's
// Recorder interface.
type ledgerRecorder struct {
	store *storage.RunStore
	runID string
}

func (l *ledgerRecorder) RecordOutput(ctx context.Context, rec analyze.OutputRecord) error {
	return l.store.RecordOutput(ctx, &storage.Output{
		RunID:        l.runID,
		Variant:      rec.Variant.Name,
		P:            rec.Variant.P,
		UB:           rec.Variant.UB,
		B:            rec.Variant.B,
		OutputPath:   rec.OutputPath,
		SourceFiles:  rec.SourceFiles,
		SkippedFiles: rec.SkippedFiles,
		RowsWritten:  rec.RowsWritten,
		CreatedAt:    time.Now().UTC(),
	})
}
