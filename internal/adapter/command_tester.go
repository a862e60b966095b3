package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds a single invocation of the command under test.
const DefaultCommandTimeout = 30 * time.Second

// maxWaitDelay bounds how long output is drained after the command was killed
// or exited.
const maxWaitDelay = time.Second

const inputPlaceholder = "{}"

// CommandTester runs an external program once per input. The input replaces
// every "{}" argument, or is appended as the last argument when there is none,
// and is also written to stdin. A non-zero exit status or a timeout is a
// failure; stdout "true", "1" or "yes" is a true result.
type CommandTester struct {
	name    string
	args    []string
	timeout time.Duration
}

// NewCommandTester parses command into program and arguments.
func NewCommandTester(command string, timeout time.Duration) (*CommandTester, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("tester command is empty")
	}

	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	return &CommandTester{
		name:    fields[0],
		args:    fields[1:],
		timeout: timeout,
	}, nil
}

// Timeout returns the bound of a single invocation.
func (a *CommandTester) Timeout() time.Duration {
	return a.timeout
}

// Test runs the command for input. When ctx is cancelled the command is
// killed and ctx's error is returned, not a timeout.
func (a *CommandTester) Test(ctx context.Context, input string) (bool, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.name, a.buildArgs(input)...)
	cmd.Stdin = strings.NewReader(input)
	// Children of the command may keep the output pipes open after it was killed.
	cmd.WaitDelay = a.waitDelay()

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && errors.Is(err, exec.ErrWaitDelay) && runCtx.Err() == nil {
		// Exited successfully, only the output pipes were held open.
		err = nil
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}

		if runCtx.Err() != nil {
			return false, fmt.Errorf("%s timed out after %s: %w", a.name, a.timeout, runCtx.Err())
		}

		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return false, fmt.Errorf("%s: %w: %s", a.name, err, msg)
		}

		return false, fmt.Errorf("%s: %w", a.name, err)
	}

	return isTruthy(stdout.String()), nil
}

func (a *CommandTester) waitDelay() time.Duration {
	return min(a.timeout/10, maxWaitDelay)
}

func (a *CommandTester) buildArgs(input string) []string {
	args := make([]string, 0, len(a.args)+1)
	replaced := false

	for _, arg := range a.args {
		if arg == inputPlaceholder {
			args = append(args, input)
			replaced = true

			continue
		}

		args = append(args, arg)
	}

	if !replaced {
		args = append(args, input)
	}

	return args
}

func isTruthy(output string) bool {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "true", "1", "yes":
		return true
	}

	return false
}
