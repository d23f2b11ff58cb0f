package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Analyze AnalyzeConfig `mapstructure:"analyze"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AnalyzeConfig holds trace analysis configuration
type AnalyzeConfig struct {
	NumCUs          int    `mapstructure:"num_cus" validate:"gte=0"`
	Root            string `mapstructure:"root"`
	MarkerField     string `mapstructure:"marker_field" validate:"required"`
	MarkerSubstring string `mapstructure:"marker_substring" validate:"required"`
}

// SweepConfig holds profiling sweep configuration
type SweepConfig struct {
	BaseDir     string `mapstructure:"base_dir" validate:"required"`
	Binary      string `mapstructure:"binary" validate:"required"`
	Model       string `mapstructure:"model" validate:"required"`
	Profiler    string `mapstructure:"profiler" validate:"required"`
	PromptSizes []int  `mapstructure:"prompt_sizes" validate:"min=1,dive,gt=0"`
	BatchSizes  []int  `mapstructure:"batch_sizes" validate:"min=1,dive,gt=0"`
}

// LedgerConfig holds run ledger configuration. An empty path disables
// the ledger.
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Read from environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Analysis defaults
	v.SetDefault("analyze.num_cus", 0)
	v.SetDefault("analyze.root", "")
	v.SetDefault("analyze.marker_field", "Kernel_Name")
	v.SetDefault("analyze.marker_substring", "rms_norm_f32")

	// Sweep defaults mirror the expected repo layout of the
	// benchmark under test
	v.SetDefault("sweep.base_dir", "./prof_dir")
	v.SetDefault("sweep.binary", "./build/bin/llama-bench")
	v.SetDefault("sweep.model", "./models/Llama-3.1-8B-Instruct-BF16.gguf")
	v.SetDefault("sweep.profiler", "rocprofv3")
	v.SetDefault("sweep.prompt_sizes", []int{2048, 4096, 8192})
	v.SetDefault("sweep.batch_sizes", []int{2048, 4096, 8192})

	// Ledger disabled unless a path is given
	v.SetDefault("ledger.path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func bindEnvVars(v *viper.Viper) {
	// Helper to bind and log errors (BindEnv errors are non-fatal but should be logged)
	bindEnv := func(key string, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	bindEnv("analyze.num_cus", "TRACELENS_NUM_CUS")
	bindEnv("analyze.root", "TRACELENS_ROOT")
	bindEnv("analyze.marker_field", "TRACELENS_MARKER_FIELD")
	bindEnv("analyze.marker_substring", "TRACELENS_MARKER_SUBSTRING")

	bindEnv("sweep.base_dir", "TRACELENS_SWEEP_BASE_DIR")
	bindEnv("sweep.binary", "TRACELENS_SWEEP_BINARY")
	bindEnv("sweep.model", "TRACELENS_SWEEP_MODEL")
	bindEnv("sweep.profiler", "TRACELENS_SWEEP_PROFILER")

	bindEnv("ledger.path", "TRACELENS_LEDGER_PATH")

	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
