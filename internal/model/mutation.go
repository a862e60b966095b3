package model

// MutatorKind tells built-in mutators apart from the ones registered by the caller.
type MutatorKind string

const (
	// MutatorBuiltin marks one of the five default mutators.
	MutatorBuiltin MutatorKind = "builtin"
	// MutatorTable marks a table-backed mutator loaded from a substitution file.
	MutatorTable MutatorKind = "table"
	// MutatorCustom marks any other caller-supplied mutator.
	MutatorCustom MutatorKind = "custom"
)

// MutatorInfo describes a registered mutator for listing and reports.
type MutatorInfo struct {
	Name string      `yaml:"name"`
	Kind MutatorKind `yaml:"kind"`
	Keys int         `yaml:"keys,omitempty"` // substitution keys, 0 when not table-backed
}

// Hit is one positive signal from the tester.
type Hit struct {
	Trial      int    // zero-based trial index
	Generation int    // zero-based generation within the trial
	Slot       int    // population slot, equal to the originating seed index
	Seed       string // the seed this input descends from
	Input      string // the tested (pre-mutation) string
	Reason     string // error text, panic text or "returned true"
}
