package model

import "time"

// CandidateReport aggregates every hit of one distinct candidate.
type CandidateReport struct {
	Input           string `yaml:"input"`
	Seed            string `yaml:"seed"`
	FirstTrial      int    `yaml:"first_trial"`
	FirstGeneration int    `yaml:"first_generation"`
	Hits            uint64 `yaml:"hits"`
	Reason          string `yaml:"reason,omitempty"`
}

// Report is the persisted outcome of one fuzzing run.
type Report struct {
	ID         string            `yaml:"id"`
	StartedAt  time.Time         `yaml:"started_at"`
	Duration   time.Duration     `yaml:"duration"`
	Seeds      []string          `yaml:"seeds"`
	Config     RunConfig         `yaml:"config"`
	RandSeed   int64             `yaml:"rand_seed"`
	ErrorLimit int               `yaml:"error_limit"`
	Mutators   []MutatorInfo     `yaml:"mutators"`
	TotalHits  uint64            `yaml:"total_hits"`
	Dropped    uint64            `yaml:"dropped,omitempty"` // distinct candidates refused by a full store
	Cancelled  bool              `yaml:"cancelled,omitempty"`
	Candidates []CandidateReport `yaml:"candidates"`
}
