// Package sweep drives the profiler across benchmark parameter
// combinations, producing the variant directory tree the analyzer
// later consumes.
package sweep

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/tracelens/tracelens/internal/config"
	"github.com/tracelens/tracelens/internal/logging"
)

// Combo is one (p, ub, b) parameter combination to profile.
type Combo struct {
	P  int
	UB int
	B  int
}

// DirName returns the variant directory name for the combination,
// matching what discovery later expects.
func (c Combo) DirName() string {
	return fmt.Sprintf("p%d_ub%d_b%d", c.P, c.UB, c.B)
}

// Runner executes one profiling sweep.
type Runner struct {
	cfg config.SweepConfig

	// lookPath and runCommand are swappable for tests.
	lookPath   func(string) (string, error)
	runCommand func(ctx context.Context, combo Combo, outDir string) error
}

// NewRunner creates a sweep runner from configuration.
func NewRunner(cfg config.SweepConfig) *Runner {
	r := &Runner{cfg: cfg, lookPath: exec.LookPath}
	r.runCommand = r.profileCombo
	return r
}

// Combinations returns the parameter combinations to run. The bench
// under test only supports uniform sizing, so a prompt size is kept
// only when it also appears among the batch sizes, and ub and b are
// pinned to p.
func (r *Runner) Combinations() []Combo {
	var combos []Combo
	for _, p := range r.cfg.PromptSizes {
		if !slices.Contains(r.cfg.BatchSizes, p) {
			continue
		}
		combos = append(combos, Combo{P: p, UB: p, B: p})
	}
	return combos
}

// Preflight verifies the bench binary, the model file and the profiler
// are all present before any combination runs.
func (r *Runner) Preflight() error {
	if _, err := os.Stat(r.cfg.Binary); err != nil {
		return fmt.Errorf("bench binary not found at %s: %w", r.cfg.Binary, err)
	}
	if _, err := os.Stat(r.cfg.Model); err != nil {
		return fmt.Errorf("model file not found at %s: %w", r.cfg.Model, err)
	}
	if _, err := r.lookPath(r.cfg.Profiler); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", r.cfg.Profiler, err)
	}
	return nil
}

// Run executes every combination sequentially. A failed combination is
// logged and the sweep continues; only preflight failures stop the
// sweep before it starts.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Preflight(); err != nil {
		return err
	}

	runDir := filepath.Join(r.cfg.BaseDir, time.Now().Format("20060102_150405"))

	for _, combo := range r.Combinations() {
		outDir := filepath.Join(runDir, combo.DirName())
		if err := os.MkdirAll(outDir, 0755); err != nil {
			logging.Warn(ctx, "cannot create output directory; skipping combination",
				"dir", outDir, "error", err)
			continue
		}

		logging.Info(ctx, "profiling combination",
			"p", combo.P, "ub", combo.UB, "b", combo.B, "out_dir", outDir)

		if err := r.runCommand(ctx, combo, outDir); err != nil {
			logging.Warn(ctx, "combination failed",
				"p", combo.P, "ub", combo.UB, "b", combo.B, "error", err)
		}
	}
	return nil
}

// profileCombo invokes the profiler for one combination, teeing the
// bench output to stdout and <outDir>/log.txt.
func (r *Runner) profileCombo(ctx context.Context, combo Combo, outDir string) error {
	logPath := filepath.Join(outDir, "log.txt")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", logPath, err)
	}
	defer logFile.Close()

	args := []string{
		"--output-format", "csv",
		"--sys-trace",
		"-d", outDir,
		"--",
		r.cfg.Binary,
		"-m", r.cfg.Model,
		"-r", "1",
		"-n", "0",
		"-p", strconv.Itoa(combo.P),
		"-ub", strconv.Itoa(combo.UB),
		"-b", strconv.Itoa(combo.B),
	}

	cmd := exec.CommandContext(ctx, r.cfg.Profiler, args...)
	out := io.MultiWriter(os.Stdout, logFile)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%s exited with code %d", r.cfg.Profiler, exitErr.ExitCode())
		}
		return fmt.Errorf("running %s: %w", r.cfg.Profiler, err)
	}
	return nil
}
