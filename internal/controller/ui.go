// Package controller renders fuzzing progress and results.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeFuzz StartMode = iota
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode   StartMode
	trials int
	cancel context.CancelFunc
}

// WithFuzzMode sets the UI to show progress over the given number of trials.
func WithFuzzMode(trials int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeFuzz
		c.trials = trials
	}
}

// WithViewMode sets the UI to only render stored results.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// WithCancel gives the UI a way to stop the run when the user quits.
func WithCancel(cancel context.CancelFunc) StartOption {
	return func(c *StartConfig) {
		c.cancel = cancel
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeView}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// RunInfo summarises a run before it starts.
type RunInfo struct {
	Seeds      []string
	Config     m.RunConfig
	ErrorLimit int
	RandSeed   int64
	Mutators   []m.MutatorInfo
}

// UI is the progress sink and result renderer used by the workflows.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	DisplayRunInfo(ctx context.Context, info RunInfo)
	DisplayCandidate(ctx context.Context, hit m.Hit)
	DisplayTrialProgress(ctx context.Context, done, total, candidates int)
	DisplayReport(ctx context.Context, report m.Report, path m.Path) error
	DisplayReports(ctx context.Context, reports []m.Report) error
	DisplayMutators(ctx context.Context, mutators []m.MutatorInfo) error
}

// NewUI returns a TUI when attached to a terminal and a SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
