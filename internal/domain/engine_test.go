package domain

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

var errNotPassword = errors.New("not the password")

func testConfig(trials, depth int) m.RunConfig {
	cfg := m.DefaultRunConfig()
	cfg.Trials = trials
	cfg.MutationDepth = depth
	cfg.MutationChance = 1

	return cfg
}

// inputRecorder is a Tester that remembers every input and fails for the
// inputs matched by reject.
type inputRecorder struct {
	mu     sync.Mutex
	seen   map[string]int
	reject func(string) bool
}

func newInputRecorder(reject func(string) bool) *inputRecorder {
	return &inputRecorder{seen: make(map[string]int), reject: reject}
}

func (r *inputRecorder) Test(_ context.Context, input string) (bool, error) {
	r.mu.Lock()
	r.seen[input]++
	r.mu.Unlock()

	if r.reject != nil && r.reject(input) {
		return false, errNotPassword
	}

	return false, nil
}

func (r *inputRecorder) inputs() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int, len(r.seen))
	for k, v := range r.seen {
		out[k] = v
	}

	return out
}

type recordingObserver struct {
	mu         sync.Mutex
	hits       []m.Hit
	firsts     int
	trialsDone []int
}

func (o *recordingObserver) OnHit(_ context.Context, hit m.Hit, first bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.hits = append(o.hits, hit)
	if first {
		o.firsts++
	}
}

func (o *recordingObserver) OnTrialDone(_ context.Context, done, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.trialsDone = append(o.trialsDone, done)
}

func TestNewEngine_Defaults(t *testing.T) {
	engine := NewEngine(WithRandSeed(5))

	names := make([]string, 0, 5)
	for _, info := range engine.Mutators() {
		names = append(names, info.Name)
		assert.Equal(t, m.MutatorBuiltin, info.Kind)
	}

	assert.Equal(t, []string{MutatorLeet, MutatorLowercase, MutatorUppercase, MutatorSpecial, MutatorHomoglyph}, names)
	assert.Equal(t, m.DefaultErrorLimit, engine.ErrorLimit())
	assert.Equal(t, int64(5), engine.RandSeed())
	assert.Empty(t, engine.Candidates())
}

func TestValidateRunConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*m.RunConfig)
	}{
		{"zero trials", func(c *m.RunConfig) { c.Trials = 0 }},
		{"negative trials", func(c *m.RunConfig) { c.Trials = -1 }},
		{"zero depth", func(c *m.RunConfig) { c.MutationDepth = 0 }},
		{"chance above one", func(c *m.RunConfig) { c.MutationChance = 1.5 }},
		{"negative chance", func(c *m.RunConfig) { c.MutationChance = -0.1 }},
		{"special chance above one", func(c *m.RunConfig) { c.SpecialChance = 2 }},
		{"zero parallel", func(c *m.RunConfig) { c.Parallel = 0 }},
		{"negative max candidates", func(c *m.RunConfig) { c.MaxCandidates = -1 }},
	}

	require.NoError(t, ValidateRunConfig(m.DefaultRunConfig()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := m.DefaultRunConfig()
			tt.modify(&cfg)

			tester := newInputRecorder(nil)
			err := NewEngine().Run(context.Background(), []string{"seed"}, tester, cfg)

			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Empty(t, tester.inputs(), "no work before validation")
		})
	}
}

func TestEngine_Run_InvalidArguments(t *testing.T) {
	engine := NewEngine()

	err := engine.Run(context.Background(), nil, newInputRecorder(nil), testConfig(1, 1))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ErrEmptySeeds)

	err = engine.Run(context.Background(), []string{"a"}, nil, testConfig(1, 1))
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ErrNilTester)
}

func TestEngine_Run_DepthOneTestsOnlySeeds(t *testing.T) {
	seeds := []string{"password", "admin", "password"}
	tester := newInputRecorder(func(string) bool { return true })
	engine := NewEngine(WithRandSeed(1))

	require.NoError(t, engine.Run(context.Background(), seeds, tester, testConfig(4, 1)))

	assert.Equal(t, map[string]int{"password": 8, "admin": 4}, tester.inputs())
	assert.Equal(t, []string{"password", "admin"}, engine.Candidates())
}

func TestEngine_Run_PasswordExactMatch(t *testing.T) {
	tester := newInputRecorder(func(s string) bool { return s == "password" })
	engine := NewEngine(WithRandSeed(2))

	require.NoError(t, engine.RunSeed(context.Background(), "password", tester, testConfig(50, 5)))

	assert.Equal(t, []string{"password"}, engine.Candidates())
	assert.Greater(t, len(tester.inputs()), 1, "mutated variants were tested")
}

func TestEngine_Run_PasswordCaseInsensitive(t *testing.T) {
	tester := newInputRecorder(func(s string) bool { return strings.EqualFold(s, "password") })
	engine := NewEngine(WithRandSeed(3))

	require.NoError(t, engine.RunSeed(context.Background(), "password", tester, testConfig(50, 5)))

	candidates := engine.Candidates()
	require.NotEmpty(t, candidates)
	assert.Equal(t, "password", candidates[0], "the seed is caught on generation 0")
	assert.Greater(t, len(candidates), 1, "case variants are found")

	for _, c := range candidates {
		assert.True(t, strings.EqualFold(c, "password"), c)
	}
}

func TestEngine_Run_Evasions(t *testing.T) {
	tester := newInputRecorder(func(s string) bool { return s != "password" })
	engine := NewEngine(WithRandSeed(12))

	require.NoError(t, engine.RunSeed(context.Background(), "password", tester, testConfig(50, 5)))

	candidates := engine.Candidates()
	require.NotEmpty(t, candidates)
	assert.NotContains(t, candidates, "password")

	for _, c := range candidates {
		assert.Equal(t, 8, utf8.RuneCountInString(c), c)
	}
}

func TestEngine_Run_NoMutableCharacters(t *testing.T) {
	engine := NewEngine(WithRandSeed(4))
	require.NoError(t, engine.SetErrorLimit(1))

	cfg := testConfig(20, 5)
	cfg.SpecialChance = 0

	tester := newInputRecorder(nil)
	require.NoError(t, engine.RunSeed(context.Background(), "1234", tester, cfg))

	assert.Equal(t, map[string]int{"1234": 100}, tester.inputs())
}

func TestEngine_SetErrorLimit(t *testing.T) {
	engine := NewEngine()

	require.NoError(t, engine.SetErrorLimit(7))
	assert.Equal(t, 7, engine.ErrorLimit())

	require.ErrorIs(t, engine.SetErrorLimit(0), ErrInvalidConfig)
	assert.Equal(t, 7, engine.ErrorLimit())
}

func TestEngine_Run_MutationChanceZero(t *testing.T) {
	cfg := testConfig(3, 4)
	cfg.MutationChance = 0

	tester := newInputRecorder(nil)
	require.NoError(t, NewEngine().RunSeed(context.Background(), "password", tester, cfg))

	assert.Equal(t, map[string]int{"password": 12}, tester.inputs())
}

func TestEngine_Run_EmptySeedNeverMutated(t *testing.T) {
	engine := NewEngine(WithRandSeed(5))

	var mu sync.Mutex
	var mutated []string

	require.NoError(t, engine.RegisterMutator("spy", RandMutatorFunc(func(_ *rand.Rand, input string) string {
		mu.Lock()
		mutated = append(mutated, input)
		mu.Unlock()

		return input
	})))

	tester := newInputRecorder(nil)
	require.NoError(t, engine.Run(context.Background(), []string{"", "ab"}, tester, testConfig(20, 6)))

	assert.NotContains(t, mutated, "")
	assert.Equal(t, 20*6, tester.inputs()[""])
}

func TestEngine_Run_Deterministic(t *testing.T) {
	run := func(parallel int) []string {
		engine := NewEngine(WithRandSeed(99))
		cfg := testConfig(40, 6)
		cfg.MutationChance = 0.7
		cfg.Parallel = parallel

		tester := newInputRecorder(func(s string) bool { return s != "secret" && s != "admin" })
		require.NoError(t, engine.Run(context.Background(), []string{"secret", "admin"}, tester, cfg))

		return engine.Candidates()
	}

	first := run(1)
	require.NotEmpty(t, first)
	assert.Equal(t, first, run(1), "sequential runs repeat exactly")
	assert.ElementsMatch(t, first, run(4), "parallel runs find the same candidates")
}

func TestEngine_Run_PanicIsAHit(t *testing.T) {
	engine := NewEngine()
	tester := TesterFunc(func(context.Context, string) (bool, error) {
		panic("validator crashed")
	})

	require.NoError(t, engine.RunSeed(context.Background(), "password", tester, testConfig(1, 1)))
	assert.Equal(t, []string{"password"}, engine.Candidates())
}

func TestEngine_Run_BooleanMode(t *testing.T) {
	tester := BoolTester(func(s string) bool { return s == "x" })

	engine := NewEngine()
	require.NoError(t, engine.RunSeed(context.Background(), "x", tester, testConfig(1, 1)))
	assert.Empty(t, engine.Candidates())

	cfg := testConfig(1, 1)
	cfg.BooleanMode = true

	require.NoError(t, engine.RunSeed(context.Background(), "x", tester, cfg))
	assert.Equal(t, []string{"x"}, engine.Candidates())
}

func TestEngine_Run_MaxCandidates(t *testing.T) {
	engine := NewEngine()
	cfg := testConfig(3, 1)
	cfg.MaxCandidates = 1

	tester := newInputRecorder(func(string) bool { return true })
	require.NoError(t, engine.Run(context.Background(), []string{"a", "b", "c"}, tester, cfg))

	assert.Equal(t, []string{"a"}, engine.Candidates())
	assert.Equal(t, uint64(2), engine.Dropped(), "b and c are refused in every trial but counted once")
}

func TestEngine_Run_CandidatesAccumulate(t *testing.T) {
	engine := NewEngine()
	tester := newInputRecorder(func(string) bool { return true })

	require.NoError(t, engine.RunSeed(context.Background(), "a", tester, testConfig(1, 1)))
	require.NoError(t, engine.RunSeed(context.Background(), "b", tester, testConfig(1, 1)))

	assert.Equal(t, []string{"a", "b"}, engine.Candidates())
}

func TestEngine_Run_Cancelled(t *testing.T) {
	for _, parallel := range []int{1, 3} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cfg := testConfig(10, 3)
		cfg.Parallel = parallel

		tester := newInputRecorder(nil)
		err := NewEngine().RunSeed(ctx, "password", tester, cfg)

		require.ErrorIs(t, err, context.Canceled, "parallel=%d", parallel)
		assert.Empty(t, tester.inputs())
	}
}

func TestEngine_Run_CancelledDuringTest(t *testing.T) {
	for _, parallel := range []int{1, 3} {
		t.Run(fmt.Sprintf("parallel %d", parallel), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Fails only because the run was cancelled while it was testing.
			tester := TesterFunc(func(ctx context.Context, _ string) (bool, error) {
				cancel()
				return false, ctx.Err()
			})

			observer := &recordingObserver{}
			engine := NewEngine(WithObserver(observer))

			cfg := testConfig(1, 1)
			cfg.Parallel = parallel

			err := engine.RunSeed(ctx, "password", tester, cfg)

			require.ErrorIs(t, err, context.Canceled)
			assert.Empty(t, engine.Candidates())
			assert.Empty(t, observer.hits)
			assert.Empty(t, observer.trialsDone)
		})
	}
}

func TestEngine_Run_Observer(t *testing.T) {
	observer := &recordingObserver{}
	engine := NewEngine(WithRandSeed(6), WithObserver(observer))

	tester := newInputRecorder(func(s string) bool { return s != "password" })
	require.NoError(t, engine.RunSeed(context.Background(), "password", tester, testConfig(5, 4)))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, observer.trialsDone)
	assert.Equal(t, len(engine.Candidates()), observer.firsts)

	for _, hit := range observer.hits {
		assert.Equal(t, "password", hit.Seed)
		assert.Equal(t, 0, hit.Slot)
		assert.Positive(t, hit.Generation, "the seed itself passes")
		assert.Less(t, hit.Trial, 5)
		assert.Equal(t, errNotPassword.Error(), hit.Reason)
	}
}

func TestEngine_RegisterMutator(t *testing.T) {
	engine := NewEngine()

	require.Error(t, engine.RegisterMutator(MutatorLeet, MutatorFunc(strings.ToUpper)))
	require.Error(t, engine.RegisterMutator("", MutatorFunc(strings.ToUpper)))
	require.Error(t, engine.RegisterMutator("nil", nil))

	require.NoError(t, engine.RegisterMutator("reverse", MutatorFunc(func(s string) string {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}

		return string(r)
	})))

	table, err := NewTable(map[string][]string{"1": {"l", "I"}, "0": {"O"}})
	require.NoError(t, err)
	require.NoError(t, engine.RegisterTable("digits", table))

	infos := engine.Mutators()
	require.Len(t, infos, 7)
	assert.Equal(t, m.MutatorInfo{Name: "reverse", Kind: m.MutatorCustom}, infos[5])
	assert.Equal(t, m.MutatorInfo{Name: "digits", Kind: m.MutatorTable, Keys: 2}, infos[6])
}

func TestEngine_Run_UsesRegisteredMutator(t *testing.T) {
	engine := NewEngine(WithRandSeed(8))
	require.NoError(t, engine.RegisterMutator("constant", MutatorFunc(func(string) string { return "custom" })))

	tester := newInputRecorder(func(s string) bool { return s == "custom" })
	require.NoError(t, engine.RunSeed(context.Background(), "password", tester, testConfig(20, 5)))

	assert.Equal(t, []string{"custom"}, engine.Candidates())
}

func TestEngine_RegisteredTableSharesErrorLimit(t *testing.T) {
	engine := NewEngine()

	table, err := NewTable(map[string][]string{"z": {"2"}})
	require.NoError(t, err)
	require.NoError(t, engine.RegisterTable("zed", table))
	require.NoError(t, engine.SetErrorLimit(3))

	for _, e := range engine.mutators.snapshot() {
		if sm, ok := e.mutator.(*SubstitutionMutator); ok {
			assert.Equal(t, 3, sm.Limit.Get(), e.info.Name)
		}
	}
}
