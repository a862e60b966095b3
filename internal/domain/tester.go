package domain

import (
	"context"
	"fmt"
)

const reasonReturnedTrue = "returned true"

// Tester is the function under test. A returned error always counts as a hit;
// a true result counts only in boolean mode.
type Tester interface {
	Test(ctx context.Context, input string) (bool, error)
}

// TesterFunc adapts a function to Tester.
type TesterFunc func(ctx context.Context, input string) (bool, error)

// Test implements Tester.
func (f TesterFunc) Test(ctx context.Context, input string) (bool, error) {
	return f(ctx, input)
}

// ErrorTester adapts a validation function that signals rejection with an error.
type ErrorTester func(input string) error

// Test implements Tester.
func (f ErrorTester) Test(_ context.Context, input string) (bool, error) {
	return false, f(input)
}

// BoolTester adapts a predicate. Use it with boolean mode.
type BoolTester func(input string) bool

// Test implements Tester.
func (f BoolTester) Test(_ context.Context, input string) (bool, error) {
	return f(input), nil
}

// evaluate calls t once and decides whether input is a hit. Panics are
// recovered and count as hits in both modes.
func evaluate(ctx context.Context, t Tester, input string, booleanMode bool) (hit bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			hit = true
			reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	ok, err := t.Test(ctx, input)
	if err != nil {
		return true, err.Error()
	}

	if booleanMode && ok {
		return true, reasonReturnedTrue
	}

	return false, ""
}
