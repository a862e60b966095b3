// Package domain contains the fuzzing engine and the workflows built on it.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

var (
	// ErrInvalidConfig is wrapped by every configuration error returned before a run starts.
	ErrInvalidConfig = errors.New("invalid run configuration")
	// ErrEmptySeeds is returned when a run is started without seeds.
	ErrEmptySeeds = errors.New("no seeds given")
	// ErrNilTester is returned when a run is started without a tester.
	ErrNilTester = errors.New("tester is nil")
)

// Observer receives progress from a running engine. With parallel trials the
// methods are called from several goroutines.
type Observer interface {
	OnHit(ctx context.Context, hit m.Hit, first bool)
	OnTrialDone(ctx context.Context, done, total int)
}

type nopObserver struct{}

func (nopObserver) OnHit(context.Context, m.Hit, bool)    {}
func (nopObserver) OnTrialDone(context.Context, int, int) {}

// Option configures an Engine.
type Option func(*Engine)

// WithRandSeed makes the engine reproducible: two engines with the same seed,
// mutators and configuration find the same candidates.
func WithRandSeed(seed int64) Option {
	return func(e *Engine) {
		e.randSeed = seed
	}
}

// WithObserver sets the progress sink.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// Engine mutates seed strings and collects the variants the tester flags.
type Engine struct {
	mutators *MutatorSet
	limit    *ErrorLimit
	store    *CandidateStore
	observer Observer
	randSeed int64

	mu     sync.Mutex
	master *rand.Rand
}

// NewEngine creates an engine with the default mutators, the default error
// limit and an empty candidate store.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		limit:    NewErrorLimit(m.DefaultErrorLimit),
		store:    NewCandidateStore(0),
		observer: nopObserver{},
		randSeed: time.Now().UnixNano(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.mutators = newDefaultMutatorSet(e.limit)
	e.master = rand.New(rand.NewSource(e.randSeed)) //nolint:gosec // fuzzing does not need crypto randomness

	return e
}

// RegisterMutator appends a caller supplied mutator to the set.
func (e *Engine) RegisterMutator(name string, mutator Mutator) error {
	info := m.MutatorInfo{Name: name, Kind: m.MutatorCustom}
	if sm, ok := mutator.(*SubstitutionMutator); ok && sm != nil {
		info.Kind = m.MutatorTable
		info.Keys = len(sm.Table)
	}

	if err := e.mutators.Register(info, mutator); err != nil {
		return fmt.Errorf("register mutator: %w", err)
	}

	slog.Debug("Registered mutator", "name", name, "kind", info.Kind)

	return nil
}

// RegisterTable registers a table-backed mutator that shares the engine's
// error limit.
func (e *Engine) RegisterTable(name string, table Table) error {
	return e.RegisterMutator(name, NewSubstitutionMutator(table, e.limit))
}

// SetErrorLimit sets how many positions a table-backed mutator inspects before
// giving up on a string.
func (e *Engine) SetErrorLimit(limit int) error {
	return e.limit.Set(limit)
}

// ErrorLimit returns the current retry bound.
func (e *Engine) ErrorLimit() int {
	return e.limit.Get()
}

// RandSeed returns the seed of the engine's random source.
func (e *Engine) RandSeed() int64 {
	return e.randSeed
}

// Mutators lists the registered mutators in draw order.
func (e *Engine) Mutators() []m.MutatorInfo {
	return e.mutators.Infos()
}

// Candidates returns every distinct input that produced a hit so far.
func (e *Engine) Candidates() []string {
	return e.store.All()
}

// Dropped returns how many distinct candidates were refused by a full store.
func (e *Engine) Dropped() uint64 {
	return e.store.Dropped()
}

// ValidateRunConfig checks cfg without running anything.
func ValidateRunConfig(cfg m.RunConfig) error {
	switch {
	case cfg.Trials < 1:
		return fmt.Errorf("%w: trials must be at least 1, got %d", ErrInvalidConfig, cfg.Trials)
	case cfg.MutationDepth < 1:
		return fmt.Errorf("%w: mutation depth must be at least 1, got %d", ErrInvalidConfig, cfg.MutationDepth)
	case cfg.MutationChance < 0 || cfg.MutationChance > 1:
		return fmt.Errorf("%w: mutation chance must be within [0,1], got %v", ErrInvalidConfig, cfg.MutationChance)
	case cfg.SpecialChance < 0 || cfg.SpecialChance > 1:
		return fmt.Errorf("%w: special chance must be within [0,1], got %v", ErrInvalidConfig, cfg.SpecialChance)
	case cfg.Parallel < 1:
		return fmt.Errorf("%w: parallel must be at least 1, got %d", ErrInvalidConfig, cfg.Parallel)
	case cfg.MaxCandidates < 0:
		return fmt.Errorf("%w: max candidates must not be negative, got %d", ErrInvalidConfig, cfg.MaxCandidates)
	}

	return nil
}

// RunSeed is Run for a single seed.
func (e *Engine) RunSeed(ctx context.Context, seed string, tester Tester, cfg m.RunConfig) error {
	return e.Run(ctx, []string{seed}, tester, cfg)
}

// Run executes cfg.Trials independent trials. Each trial restarts from seeds
// and runs cfg.MutationDepth generations: every string of the population is
// tested, hits are recorded, then each string is mutated with probability
// cfg.MutationChance. Tester failures are recorded, never returned. Run only
// returns configuration errors (before any work) and context errors. Results
// of tester calls that return after the context was cancelled are discarded.
func (e *Engine) Run(ctx context.Context, seeds []string, tester Tester, cfg m.RunConfig) error {
	if err := ValidateRunConfig(cfg); err != nil {
		return err
	}

	if len(seeds) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrEmptySeeds)
	}

	if tester == nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrNilTester)
	}

	e.store.SetCapacity(cfg.MaxCandidates)

	run := &trialRunner{
		engine:  e,
		seeds:   slices.Clone(seeds),
		tester:  tester,
		cfg:     cfg,
		entries: e.mutators.snapshot(),
	}
	trialSeeds := e.trialSeeds(cfg.Trials)

	slog.Info("Starting fuzzing run",
		"seeds", len(seeds), "trials", cfg.Trials, "depth", cfg.MutationDepth,
		"mutationChance", cfg.MutationChance, "parallel", cfg.Parallel, "mutators", len(run.entries))

	var err error
	if cfg.Parallel > 1 {
		err = run.parallel(ctx, trialSeeds)
	} else {
		err = run.sequential(ctx, trialSeeds)
	}

	if err != nil {
		slog.Warn("Fuzzing run stopped", "error", err, "candidates", e.store.Len())
		return err
	}

	slog.Info("Fuzzing run finished", "candidates", e.store.Len(), "dropped", e.store.Dropped())

	return nil
}

// trialSeeds draws one seed per trial from the master source so each trial
// gets an independent random source regardless of scheduling.
func (e *Engine) trialSeeds(trials int) []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	seeds := make([]int64, trials)
	for i := range seeds {
		seeds[i] = e.master.Int63()
	}

	return seeds
}

type trialRunner struct {
	engine  *Engine
	seeds   []string
	tester  Tester
	cfg     m.RunConfig
	entries []mutatorEntry
	done    atomic.Int64
}

func (r *trialRunner) sequential(ctx context.Context, trialSeeds []int64) error {
	for trial, seed := range trialSeeds {
		if err := r.trial(ctx, trial, seed); err != nil {
			return err
		}
	}

	return nil
}

func (r *trialRunner) parallel(ctx context.Context, trialSeeds []int64) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Parallel)

	for trial, seed := range trialSeeds {
		group.Go(func() error {
			return r.trial(groupCtx, trial, seed)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	// errgroup cancels groupCtx on return, report the caller's context instead.
	return ctx.Err()
}

func (r *trialRunner) trial(ctx context.Context, trial int, seed int64) error {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // fuzzing does not need crypto randomness
	population := slices.Clone(r.seeds)

	slog.Debug("Starting trial", "trial", trial)

	for generation := range r.cfg.MutationDepth {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.testPopulation(ctx, trial, generation, population)
		population = r.nextGeneration(rng, population)
	}

	// A cancel during the last generation must not report a finished trial.
	if err := ctx.Err(); err != nil {
		return err
	}

	r.engine.observer.OnTrialDone(ctx, int(r.done.Add(1)), r.cfg.Trials)

	return nil
}

func (r *trialRunner) testPopulation(ctx context.Context, trial, generation int, population []string) {
	for slot, input := range population {
		hit, reason := evaluate(ctx, r.tester, input, r.cfg.BooleanMode)

		// A tester interrupted by cancellation fails for that reason alone.
		if ctx.Err() != nil {
			return
		}

		if !hit {
			continue
		}

		first := r.engine.store.Record(input)
		r.engine.observer.OnHit(ctx, m.Hit{
			Trial:      trial,
			Generation: generation,
			Slot:       slot,
			Seed:       r.seeds[slot],
			Input:      input,
			Reason:     reason,
		}, first)
	}
}

// nextGeneration returns a population of the same length where each string
// was mutated once with probability MutationChance. Empty strings have no
// position to mutate and are carried over.
func (r *trialRunner) nextGeneration(rng *rand.Rand, population []string) []string {
	next := make([]string, len(population))

	for i, input := range population {
		next[i] = input

		if rng.Float64() >= r.cfg.MutationChance || input == "" {
			continue
		}

		entry := chooseMutator(rng, r.entries, r.cfg.SpecialChance)
		next[i] = entry.mutator.Mutate(rng, input)
	}

	return next
}
