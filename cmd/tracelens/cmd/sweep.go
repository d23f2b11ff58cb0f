package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tracelens/tracelens/internal/sweep"
)

var (
	sweepBaseDir     string
	sweepBinary      string
	sweepModel       string
	sweepProfiler    string
	sweepPromptSizes []int
	sweepBatchSizes  []int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the profiler across benchmark parameter combinations",
	Long: `Invoke the profiler once per (p, ub, b) combination, writing each
combination's traces to <base-dir>/<run-timestamp>/p<P>_ub<UB>_b<B>
and teeing the bench output to log.txt in the same directory. The
resulting tree is what the analyze command consumes.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepBaseDir, "base-dir", "", "Directory receiving per-run output trees")
	sweepCmd.Flags().StringVar(&sweepBinary, "bin", "", "Path to the bench binary")
	sweepCmd.Flags().StringVar(&sweepModel, "model", "", "Path to the model file")
	sweepCmd.Flags().StringVar(&sweepProfiler, "profiler", "", "Profiler executable to invoke")
	sweepCmd.Flags().IntSliceVar(&sweepPromptSizes, "prompt-sizes", nil, "Prompt sizes to sweep")
	sweepCmd.Flags().IntSliceVar(&sweepBatchSizes, "batch-sizes", nil, "Batch sizes to sweep")
}

func runSweep(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("base-dir") {
		cfg.Sweep.BaseDir = sweepBaseDir
	}
	if cmd.Flags().Changed("bin") {
		cfg.Sweep.Binary = sweepBinary
	}
	if cmd.Flags().Changed("model") {
		cfg.Sweep.Model = sweepModel
	}
	if cmd.Flags().Changed("profiler") {
		cfg.Sweep.Profiler = sweepProfiler
	}
	if cmd.Flags().Changed("prompt-sizes") {
		cfg.Sweep.PromptSizes = sweepPromptSizes
	}
	if cmd.Flags().Changed("batch-sizes") {
		cfg.Sweep.BatchSizes = sweepBatchSizes
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	runner := sweep.NewRunner(cfg.Sweep)
	return runner.Run(cmd.Context())
}
