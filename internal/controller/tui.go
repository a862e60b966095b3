package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

const (
	recentCandidates = 5
	barPadding       = 4
	maxBarWidth      = 80
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	candidateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	faintStyle     = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI with a Bubble Tea progress view while fuzzing. Tables are
// rendered like SimpleUI once the program has exited.
type TUI struct {
	*SimpleUI

	out     io.Writer
	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI writing to the command's output.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{
		SimpleUI: NewSimpleUI(cmd),
		out:      cmd.OutOrStdout(),
	}
}

// Start launches the progress program in fuzz mode; other modes render
// statically.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options)
	if cfg.mode != ModeFuzz {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return fmt.Errorf("ui already started")
	}

	t.program = tea.NewProgram(newProgressModel(cfg.trials, cfg.cancel), tea.WithOutput(t.out))
	t.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := program.Run(); err != nil {
			slog.Error("Progress UI stopped", "error", err)
		}
	}(t.program, t.done)

	return nil
}

// Close stops the progress program and waits for it to restore the terminal.
func (t *TUI) Close(_ context.Context) {
	t.mu.Lock()
	program, done := t.program, t.done
	t.program, t.done = nil, nil
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Send(finishMsg{})
	<-done
}

// DisplayRunInfo prints the run summary above the progress view.
func (t *TUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	if program := t.current(); program != nil {
		program.Println(titleStyle.Render("textfuzz"))
		program.Println(strings.TrimRight(renderRunInfo(info), "\n"))

		return
	}

	t.SimpleUI.DisplayRunInfo(ctx, info)
}

// DisplayCandidate adds a candidate to the progress view.
func (t *TUI) DisplayCandidate(ctx context.Context, hit m.Hit) {
	if err := ctx.Err(); err != nil {
		return
	}

	if program := t.current(); program != nil {
		program.Send(candidateMsg{input: hit.Input})
		return
	}

	t.SimpleUI.DisplayCandidate(ctx, hit)
}

// DisplayTrialProgress advances the progress bar.
func (t *TUI) DisplayTrialProgress(ctx context.Context, done, total, candidates int) {
	if err := ctx.Err(); err != nil {
		return
	}

	if program := t.current(); program != nil {
		program.Send(trialMsg{done: done, total: total, candidates: candidates})
		return
	}

	t.SimpleUI.DisplayTrialProgress(ctx, done, total, candidates)
}

func (t *TUI) current() *tea.Program {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program
}

type trialMsg struct {
	done, total, candidates int
}

type candidateMsg struct {
	input string
}

type finishMsg struct{}

// progressModel is the Bubble Tea model of a running fuzzing session.
type progressModel struct {
	bar        progress.Model
	done       int
	total      int
	candidates int
	recent     []string
	cancel     context.CancelFunc
	quitting   bool
}

func newProgressModel(total int, cancel context.CancelFunc) progressModel {
	return progressModel{
		bar:    progress.New(progress.WithDefaultGradient()),
		total:  total,
		cancel: cancel,
	}
}

func (pm progressModel) Init() tea.Cmd {
	return nil
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.bar.Width = min(max(msg.Width-barPadding*2, 10), maxBarWidth)
		return pm, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			pm.quitting = true
			if pm.cancel != nil {
				pm.cancel()
			}

			return pm, tea.Quit
		}

		return pm, nil

	case trialMsg:
		pm.done = msg.done
		pm.total = msg.total
		pm.candidates = msg.candidates

		return pm, nil

	case candidateMsg:
		pm.recent = append(pm.recent, msg.input)
		if len(pm.recent) > recentCandidates {
			pm.recent = pm.recent[len(pm.recent)-recentCandidates:]
		}

		return pm, nil

	case finishMsg:
		return pm, tea.Quit
	}

	return pm, nil
}

func (pm progressModel) percent() float64 {
	if pm.total <= 0 {
		return 0
	}

	return float64(pm.done) / float64(pm.total)
}

func (pm progressModel) View() string {
	var b strings.Builder

	pad := strings.Repeat(" ", barPadding)

	b.WriteString("\n" + pad + pm.bar.ViewAs(pm.percent()) + "\n\n")
	b.WriteString(pad + statusStyle.Render(fmt.Sprintf("trial %d/%d", pm.done, pm.total)))
	b.WriteString(faintStyle.Render(fmt.Sprintf("  %d candidate(s)", pm.candidates)) + "\n")

	for _, c := range pm.recent {
		b.WriteString(pad + candidateStyle.Render(strconv.Quote(c)) + "\n")
	}

	if pm.quitting {
		b.WriteString(pad + faintStyle.Render("stopping...") + "\n")
	} else {
		b.WriteString(pad + faintStyle.Render("q: stop") + "\n")
	}

	return b.String()
}
