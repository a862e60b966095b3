package adapter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

var (
	// ErrBlocked is returned when an input matches a blocklist pattern.
	ErrBlocked = errors.New("input is blocked")
	// ErrNotBlocked is returned by an inverted blocklist when no pattern matches.
	ErrNotBlocked = errors.New("input passes the blocklist")
)

// BlocklistTester rejects inputs matching any of its patterns. Inverted, it
// rejects the inputs that match none, which makes evasions the hits.
type BlocklistTester struct {
	patterns []*regexp.Regexp
	invert   bool
}

// NewBlocklistTester compiles patterns.
func NewBlocklistTester(patterns []string, ignoreCase, invert bool) (*BlocklistTester, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		if ignoreCase {
			p = "(?i)" + p
		}

		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid blocklist pattern %q: %w", p, err)
		}

		compiled = append(compiled, re)
	}

	if len(compiled) == 0 {
		return nil, errors.New("blocklist has no patterns")
	}

	return &BlocklistTester{patterns: compiled, invert: invert}, nil
}

// LoadBlocklist reads one pattern per line from path. Blank lines and lines
// starting with '#' are skipped.
func LoadBlocklist(path m.Path, ignoreCase, invert bool) (*BlocklistTester, error) {
	file, err := os.Open(string(path))
	if err != nil {
		slog.Error("Failed to open blocklist", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open blocklist: %w", err)
	}
	defer file.Close()

	var patterns []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		patterns = append(patterns, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read blocklist: %w", err)
	}

	return NewBlocklistTester(patterns, ignoreCase, invert)
}

// Test implements the tester contract: a rejection is returned as an error.
func (b *BlocklistTester) Test(_ context.Context, input string) (bool, error) {
	for _, re := range b.patterns {
		if re.MatchString(input) {
			if b.invert {
				return false, nil
			}

			return true, fmt.Errorf("%w by %q", ErrBlocked, re.String())
		}
	}

	if b.invert {
		return true, ErrNotBlocked
	}

	return false, nil
}
