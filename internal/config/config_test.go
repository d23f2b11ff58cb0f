package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("TRACELENS_NUM_CUS")
	os.Unsetenv("TRACELENS_ROOT")
	os.Unsetenv("TRACELENS_MARKER_SUBSTRING")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Analyze.NumCUs)
	assert.Equal(t, "", cfg.Analyze.Root)
	assert.Equal(t, "Kernel_Name", cfg.Analyze.MarkerField)
	assert.Equal(t, "rms_norm_f32", cfg.Analyze.MarkerSubstring)

	assert.Equal(t, "./prof_dir", cfg.Sweep.BaseDir)
	assert.Equal(t, "rocprofv3", cfg.Sweep.Profiler)
	assert.Equal(t, []int{2048, 4096, 8192}, cfg.Sweep.PromptSizes)

	assert.Equal(t, "", cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_WithEnvVars(t *testing.T) {
	os.Setenv("TRACELENS_NUM_CUS", "136")
	os.Setenv("TRACELENS_ROOT", "/data/prof_dir/20251001_150115")
	os.Setenv("TRACELENS_MARKER_SUBSTRING", "softmax_f32")
	os.Setenv("TRACELENS_LEDGER_PATH", "/data/ledger.db")
	defer func() {
		os.Unsetenv("TRACELENS_NUM_CUS")
		os.Unsetenv("TRACELENS_ROOT")
		os.Unsetenv("TRACELENS_MARKER_SUBSTRING")
		os.Unsetenv("TRACELENS_LEDGER_PATH")
	}()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 136, cfg.Analyze.NumCUs)
	assert.Equal(t, "/data/prof_dir/20251001_150115", cfg.Analyze.Root)
	assert.Equal(t, "softmax_f32", cfg.Analyze.MarkerSubstring)
	assert.Equal(t, "/data/ledger.db", cfg.Ledger.Path)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	content := []byte(`
analyze:
  num_cus: 64
  root: /traces
sweep:
  prompt_sizes: [1024]
  batch_sizes: [1024]
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Analyze.NumCUs)
	assert.Equal(t, "/traces", cfg.Analyze.Root)
	assert.Equal(t, []int{1024}, cfg.Sweep.PromptSizes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "rms_norm_f32", cfg.Analyze.MarkerSubstring)
}

func TestValidate_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NegativeCUs(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Analyze.NumCUs = -1
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "NumCUs")
}

func TestValidate_MissingMarker(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Analyze.MarkerSubstring = ""
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MarkerSubstring")
}

func TestValidate_BadSweepSizes(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Sweep.BatchSizes = []int{0}
	err = cfg.Validate()
	assert.Error(t, err)
}
