package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

// Names of the built-in mutators.
const (
	MutatorLeet      = "leet"
	MutatorLowercase = "lowercase"
	MutatorUppercase = "uppercase"
	MutatorSpecial   = "special"
	MutatorHomoglyph = "homoglyph"
)

// Mutator produces a mutated copy of its input. rng is the random source of
// the trial the mutation belongs to.
type Mutator interface {
	Mutate(rng *rand.Rand, input string) string
}

// MutatorFunc adapts a plain string function to Mutator.
type MutatorFunc func(input string) string

// Mutate implements Mutator. The random source is ignored.
func (f MutatorFunc) Mutate(_ *rand.Rand, input string) string {
	return f(input)
}

// RandMutatorFunc adapts a function that draws from the trial's random source.
type RandMutatorFunc func(rng *rand.Rand, input string) string

// Mutate implements Mutator.
func (f RandMutatorFunc) Mutate(rng *rand.Rand, input string) string {
	return f(rng, input)
}

// ErrorLimit is the retry bound shared by the table-backed mutators of an
// engine. It may be changed between runs.
type ErrorLimit struct {
	v atomic.Int64
}

// NewErrorLimit returns an ErrorLimit set to limit.
func NewErrorLimit(limit int) *ErrorLimit {
	l := &ErrorLimit{}
	l.v.Store(int64(limit))

	return l
}

// Get returns the current bound.
func (l *ErrorLimit) Get() int {
	return int(l.v.Load())
}

// Set changes the bound. limit must be positive.
func (l *ErrorLimit) Set(limit int) error {
	if limit < 1 {
		return fmt.Errorf("%w: error limit must be positive, got %d", ErrInvalidConfig, limit)
	}

	l.v.Store(int64(limit))

	return nil
}

// SubstitutionMutator replaces one rune that is a key of Table with one of its
// candidates, searching at most Limit positions.
type SubstitutionMutator struct {
	Table Table
	Limit *ErrorLimit
}

// NewSubstitutionMutator creates a table-backed mutator bound to limit.
func NewSubstitutionMutator(table Table, limit *ErrorLimit) *SubstitutionMutator {
	return &SubstitutionMutator{Table: table, Limit: limit}
}

// Mutate implements Mutator.
func (s *SubstitutionMutator) Mutate(rng *rand.Rand, input string) string {
	return substitute(rng, input, s.Table, s.Limit.Get())
}

type specialMutator struct {
	chars []rune
}

func (s specialMutator) Mutate(rng *rand.Rand, input string) string {
	return overwrite(rng, input, s.chars)
}

type mutatorEntry struct {
	info    m.MutatorInfo
	mutator Mutator
	special bool
}

// MutatorSet is the ordered set of mutators an engine draws from.
type MutatorSet struct {
	mu      sync.RWMutex
	entries []mutatorEntry
}

func newDefaultMutatorSet(limit *ErrorLimit) *MutatorSet {
	builtin := func(name string, table Table) mutatorEntry {
		return mutatorEntry{
			info:    m.MutatorInfo{Name: name, Kind: m.MutatorBuiltin, Keys: len(table)},
			mutator: NewSubstitutionMutator(table, limit),
		}
	}

	return &MutatorSet{
		entries: []mutatorEntry{
			builtin(MutatorLeet, leetTable),
			builtin(MutatorLowercase, lowercaseTable),
			builtin(MutatorUppercase, uppercaseTable),
			{
				info:    m.MutatorInfo{Name: MutatorSpecial, Kind: m.MutatorBuiltin},
				mutator: specialMutator{chars: specialRunes},
				special: true,
			},
			builtin(MutatorHomoglyph, homoglyphTable),
		},
	}
}

// Register appends a mutator. Names must be unique within the set.
func (s *MutatorSet) Register(info m.MutatorInfo, mutator Mutator) error {
	if mutator == nil {
		return errors.New("mutator is nil")
	}

	if strings.TrimSpace(info.Name) == "" {
		return errors.New("mutator name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.info.Name == info.Name {
			return fmt.Errorf("mutator %q already registered", info.Name)
		}
	}

	s.entries = append(s.entries, mutatorEntry{info: info, mutator: mutator})

	return nil
}

// Infos lists the registered mutators in draw order.
func (s *MutatorSet) Infos() []m.MutatorInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]m.MutatorInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.info)
	}

	return infos
}

func (s *MutatorSet) snapshot() []mutatorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]mutatorEntry, len(s.entries))
	copy(entries, s.entries)

	return entries
}
