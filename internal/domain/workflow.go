package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gooze.dev/pkg/textfuzz/internal/adapter"
	"gooze.dev/pkg/textfuzz/internal/controller"
	m "gooze.dev/pkg/textfuzz/internal/model"
	pkg "gooze.dev/pkg/textfuzz/pkg"
)

// FuzzArgs contains the arguments for a fuzzing run.
type FuzzArgs struct {
	Seeds      []string
	SeedsFile  m.Path
	Tables     []m.Path
	Tester     Tester
	Config     m.RunConfig
	ErrorLimit int   // 0 keeps the engine default
	RandSeed   int64 // 0 derives the seed from the clock
	Reports    m.Path
	JournalDir string
}

// ListArgs contains the arguments for listing mutators.
type ListArgs struct {
	Tables []m.Path
}

// ViewArgs contains the arguments for viewing stored reports.
type ViewArgs struct {
	Reports m.Path
}

// Workflow defines the use cases behind the command line.
type Workflow interface {
	Fuzz(ctx context.Context, args FuzzArgs) error
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.ReportStore
	adapter.SeedSource
	adapter.TableLoader
	controller.UI
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	reportStore adapter.ReportStore,
	seedSource adapter.SeedSource,
	tableLoader adapter.TableLoader,
	ui controller.UI,
) Workflow {
	return &workflow{
		ReportStore: reportStore,
		SeedSource:  seedSource,
		TableLoader: tableLoader,
		UI:          ui,
	}
}

// Fuzz runs the engine and stores a report of the candidates. A cancelled
// context still produces a (partial) report.
func (w *workflow) Fuzz(ctx context.Context, args FuzzArgs) error {
	if err := ValidateRunConfig(args.Config); err != nil {
		return err
	}

	seeds, err := w.collectSeeds(ctx, args)
	if err != nil {
		return err
	}

	journal, err := pkg.NewFileSpill[m.Hit](args.JournalDir)
	if err != nil {
		return fmt.Errorf("open hit journal: %w", err)
	}

	slog.Debug("Journaling hits", "path", journal.Path())

	defer func() {
		if err := journal.Close(); err != nil {
			slog.Error("Failed to close hit journal", "error", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	observer := &journalObserver{journal: journal, ui: w.UI}

	opts := []Option{WithObserver(observer)}
	if args.RandSeed != 0 {
		opts = append(opts, WithRandSeed(args.RandSeed))
	}

	engine := NewEngine(opts...)

	if err := w.configureEngine(ctx, engine, args); err != nil {
		return err
	}

	if err := w.Start(runCtx, controller.WithFuzzMode(args.Config.Trials), controller.WithCancel(cancel)); err != nil {
		slog.Error("Failed to start UI", "error", err)
		return err
	}

	w.DisplayRunInfo(runCtx, controller.RunInfo{
		Seeds:      seeds,
		Config:     args.Config,
		ErrorLimit: engine.ErrorLimit(),
		RandSeed:   engine.RandSeed(),
		Mutators:   engine.Mutators(),
	})

	startedAt := time.Now()
	runErr := engine.Run(runCtx, seeds, args.Tester, args.Config)
	duration := time.Since(startedAt)

	w.Close(ctx)

	cancelled := runErr != nil && errors.Is(runErr, context.Canceled)
	if runErr != nil && !cancelled {
		return fmt.Errorf("fuzz: %w", runErr)
	}

	if err := observer.Err(); err != nil {
		return fmt.Errorf("journal hits: %w", err)
	}

	report, err := buildReport(engine, journal, seeds, args.Config)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	report.StartedAt = startedAt
	report.Duration = duration
	report.Cancelled = cancelled

	// The run context may be cancelled by the user; the report is still saved.
	path, err := w.SaveReport(context.WithoutCancel(ctx), args.Reports, report)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	return w.DisplayReport(context.WithoutCancel(ctx), report, path)
}

func (w *workflow) collectSeeds(ctx context.Context, args FuzzArgs) ([]string, error) {
	seeds := append([]string(nil), args.Seeds...)

	if args.SeedsFile != "" {
		fromFile, err := w.ReadSeeds(ctx, args.SeedsFile)
		if err != nil {
			return nil, fmt.Errorf("read seeds: %w", err)
		}

		seeds = append(seeds, fromFile...)
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrEmptySeeds)
	}

	return seeds, nil
}

func (w *workflow) configureEngine(ctx context.Context, engine *Engine, args FuzzArgs) error {
	if args.ErrorLimit != 0 {
		if err := engine.SetErrorLimit(args.ErrorLimit); err != nil {
			return err
		}
	}

	return w.registerTables(ctx, engine, args.Tables)
}

func (w *workflow) registerTables(ctx context.Context, engine *Engine, paths []m.Path) error {
	for _, path := range paths {
		file, err := w.LoadTable(ctx, path)
		if err != nil {
			return fmt.Errorf("load table: %w", err)
		}

		table, err := NewTable(file.Substitutions)
		if err != nil {
			return fmt.Errorf("table %s: %w", path, err)
		}

		if err := engine.RegisterTable(file.Name, table); err != nil {
			return err
		}
	}

	return nil
}

// List shows the mutators a run with the same tables would draw from.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	engine := NewEngine()

	if err := w.registerTables(ctx, engine, args.Tables); err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		return err
	}
	defer w.Close(ctx)

	return w.DisplayMutators(ctx, engine.Mutators())
}

// View renders every report stored in the reports directory.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	reports, err := w.LoadReports(ctx, args.Reports)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		return err
	}
	defer w.Close(ctx)

	return w.DisplayReports(ctx, reports)
}

// journalObserver appends every hit to the journal and forwards progress to
// the UI. Only the first journal error is kept.
type journalObserver struct {
	journal    pkg.FileSpill[m.Hit]
	ui         controller.UI
	candidates atomic.Int64

	mu  sync.Mutex
	err error
}

func (o *journalObserver) OnHit(ctx context.Context, hit m.Hit, first bool) {
	if err := o.journal.Append(hit); err != nil {
		o.mu.Lock()
		if o.err == nil {
			o.err = err
		}
		o.mu.Unlock()
	}

	if first {
		o.candidates.Add(1)
		o.ui.DisplayCandidate(ctx, hit)
	}
}

func (o *journalObserver) OnTrialDone(ctx context.Context, done, total int) {
	o.ui.DisplayTrialProgress(ctx, done, total, int(o.candidates.Load()))
}

func (o *journalObserver) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.err
}

// buildReport aggregates the journal per candidate, in the order the engine
// first recorded them.
func buildReport(engine *Engine, journal pkg.FileSpill[m.Hit], seeds []string, cfg m.RunConfig) (m.Report, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return m.Report{}, fmt.Errorf("generate report id: %w", err)
	}

	candidates := engine.Candidates()
	byInput := make(map[string]*m.CandidateReport, len(candidates))
	reports := make([]m.CandidateReport, len(candidates))

	for i, c := range candidates {
		reports[i] = m.CandidateReport{Input: c}
		byInput[c] = &reports[i]
	}

	err = journal.Range(func(_ uint64, hit m.Hit) error {
		cr, ok := byInput[hit.Input]
		if !ok {
			// Refused by a full candidate store.
			return nil
		}

		if cr.Hits == 0 || hit.Trial < cr.FirstTrial ||
			(hit.Trial == cr.FirstTrial && hit.Generation < cr.FirstGeneration) {
			cr.Seed = hit.Seed
			cr.FirstTrial = hit.Trial
			cr.FirstGeneration = hit.Generation
			cr.Reason = hit.Reason
		}

		cr.Hits++

		return nil
	})
	if err != nil {
		return m.Report{}, err
	}

	return m.Report{
		ID:         id.String(),
		Seeds:      seeds,
		Config:     cfg,
		RandSeed:   engine.RandSeed(),
		ErrorLimit: engine.ErrorLimit(),
		Mutators:   engine.Mutators(),
		TotalHits:  journal.Len(),
		Dropped:    engine.Dropped(),
		Candidates: reports,
	}, nil
}
