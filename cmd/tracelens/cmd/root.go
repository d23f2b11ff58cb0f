package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tracelens/tracelens/internal/config"
	"github.com/tracelens/tracelens/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tracelens",
	Short: "tracelens - GPU kernel trace occupancy analysis",
	Long: `tracelens post-processes GPU kernel execution traces produced by
rocprofv3 and computes per-kernel occupancy metrics for the second
half of each workload's execution.

This CLI tool allows you to:
- Analyze kernel trace CSVs under a profiling directory (analyze)
- Run the profiler across benchmark parameter combinations (sweep)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}

		logging.Setup(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}
