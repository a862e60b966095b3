// Package model defines the data structures shared by the fuzzing engine, the
// adapters and the UI.
package model

// Path represents a file system path.
type Path string
