package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

func newTestSimpleUI() (*SimpleUI, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	return NewSimpleUI(cmd), out
}

func testReport() m.Report {
	return m.Report{
		ID:        "0190d1a2-run",
		StartedAt: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
		Duration:  2 * time.Second,
		Seeds:     []string{"password"},
		Config:    m.DefaultRunConfig(),
		TotalHits: 5,
		Candidates: []m.CandidateReport{
			{Input: "p4ssword", Seed: "password", FirstTrial: 0, FirstGeneration: 1, Hits: 3},
			{Input: "pa#sword", Seed: "password", FirstTrial: 2, FirstGeneration: 4, Hits: 2},
		},
	}
}

func TestSimpleUI_DisplayCandidate(t *testing.T) {
	ui, out := newTestSimpleUI()

	ui.DisplayCandidate(context.Background(), m.Hit{Trial: 0, Generation: 2, Seed: "password", Input: "p4ssword"})

	assert.Equal(t, "candidate \"p4ssword\" (seed \"password\", trial 1, generation 2)\n", out.String())
}

func TestSimpleUI_DisplayTrialProgress(t *testing.T) {
	t.Run("every tenth of the run", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		for done := 1; done <= 100; done++ {
			ui.DisplayTrialProgress(context.Background(), done, 100, 3)
		}

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 10)
		assert.Equal(t, "Trial 10/100, 3 candidate(s)", lines[0])
		assert.Equal(t, "Trial 100/100, 3 candidate(s)", lines[9])
	})

	t.Run("short runs print every trial", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		for done := 1; done <= 3; done++ {
			ui.DisplayTrialProgress(context.Background(), done, 3, 0)
		}

		assert.Equal(t, 3, strings.Count(out.String(), "Trial "))
	})
}

func TestSimpleUI_CancelledContext(t *testing.T) {
	ui, out := newTestSimpleUI()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui.DisplayCandidate(ctx, m.Hit{Input: "x"})
	ui.DisplayTrialProgress(ctx, 1, 1, 1)
	require.Error(t, ui.DisplayReport(ctx, testReport(), ""))
	require.Error(t, ui.Start(ctx))

	assert.Empty(t, out.String())
}

func TestSimpleUI_DisplayRunInfo(t *testing.T) {
	ui, out := newTestSimpleUI()

	ui.DisplayRunInfo(context.Background(), RunInfo{
		Seeds:      []string{"password", "admin"},
		Config:     m.DefaultRunConfig(),
		ErrorLimit: 100,
		RandSeed:   7,
		Mutators:   []m.MutatorInfo{{Name: "leet"}, {Name: "special"}},
	})

	assert.Contains(t, out.String(), "Fuzzing 2 seed(s): 100 trial(s) x 10 generation(s)")
	assert.Contains(t, out.String(), "random seed 7")
	assert.Contains(t, out.String(), "[leet special]")
}

func TestSimpleUI_DisplayReport(t *testing.T) {
	t.Run("candidates", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		require.NoError(t, ui.DisplayReport(context.Background(), testReport(), "reports/run.yaml"))

		text := out.String()
		assert.Contains(t, text, "Run 0190d1a2-run")
		assert.Contains(t, text, "FIRST SEEN")
		assert.Contains(t, text, `"p4ssword"`)
		assert.Contains(t, text, "1:a→4")
		assert.Contains(t, text, "2:s→#")
		assert.Contains(t, text, "trial 3 gen 4")
		assert.Contains(t, text, "TOTAL 2")
		assert.Contains(t, text, "Report saved to reports/run.yaml")
	})

	t.Run("no candidates", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		report := testReport()
		report.Candidates = nil
		report.Cancelled = true

		require.NoError(t, ui.DisplayReport(context.Background(), report, ""))
		assert.Contains(t, out.String(), "No candidates found")
		assert.Contains(t, out.String(), "results are partial")
		assert.NotContains(t, out.String(), "Report saved")
	})

	t.Run("dropped candidates", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		report := testReport()
		report.Dropped = 4

		require.NoError(t, ui.DisplayReport(context.Background(), report, ""))
		assert.Contains(t, strings.ToLower(out.String()), "4 dropped")
	})
}

func TestSimpleUI_DisplayReports(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		require.NoError(t, ui.DisplayReports(context.Background(), nil))
		assert.Equal(t, "No reports found\n", out.String())
	})

	t.Run("overview and details", func(t *testing.T) {
		ui, out := newTestSimpleUI()

		second := testReport()
		second.ID = "0190d1a3-run"

		require.NoError(t, ui.DisplayReports(context.Background(), []m.Report{testReport(), second}))

		text := out.String()
		assert.Contains(t, text, "CANDIDATES")
		assert.Equal(t, 2, strings.Count(text, "Run 0190d1a2-run")+strings.Count(text, "Run 0190d1a3-run"))
	})
}

func TestSimpleUI_DisplayMutators(t *testing.T) {
	ui, out := newTestSimpleUI()

	require.NoError(t, ui.DisplayMutators(context.Background(), []m.MutatorInfo{
		{Name: "leet", Kind: m.MutatorBuiltin, Keys: 20},
		{Name: "special", Kind: m.MutatorBuiltin},
		{Name: "cyrillic", Kind: m.MutatorTable, Keys: 12},
	}))

	text := out.String()
	assert.Contains(t, text, "MUTATOR")
	assert.Contains(t, text, "cyrillic")
	assert.Contains(t, text, "table")
	assert.Contains(t, text, "20")
	assert.Contains(t, text, "TOTAL 3")
}
