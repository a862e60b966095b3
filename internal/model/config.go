package model

// Defaults for RunConfig.
const (
	DefaultTrials         = 100
	DefaultMutationDepth  = 10
	DefaultMutationChance = 0.5
	DefaultSpecialChance  = 0.1
	DefaultParallel       = 1
	DefaultErrorLimit     = 100
)

// RunConfig holds the knobs of a single fuzzing run.
type RunConfig struct {
	// Trials is the number of independent restarts from the seeds.
	Trials int `yaml:"trials"`
	// MutationDepth is the number of generations per trial.
	MutationDepth int `yaml:"mutation_depth"`
	// MutationChance is the per-string probability of being mutated once per generation.
	MutationChance float64 `yaml:"mutation_chance"`
	// SpecialChance throttles the special-character mutator after it was drawn.
	SpecialChance float64 `yaml:"special_chance"`
	// BooleanMode makes a true return value count as a hit, not only errors.
	BooleanMode bool `yaml:"boolean_mode"`
	// Parallel is the number of trials executed concurrently.
	Parallel int `yaml:"parallel"`
	// MaxCandidates caps the candidate store, 0 means unbounded.
	MaxCandidates int `yaml:"max_candidates,omitempty"`
}

// DefaultRunConfig returns the configuration used when the caller sets nothing.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Trials:         DefaultTrials,
		MutationDepth:  DefaultMutationDepth,
		MutationChance: DefaultMutationChance,
		SpecialChance:  DefaultSpecialChance,
		Parallel:       DefaultParallel,
	}
}
