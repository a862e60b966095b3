package adapter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

// SeedSource loads seed strings from a file.
type SeedSource interface {
	ReadSeeds(ctx context.Context, path m.Path) ([]string, error)
}

// LocalSeedSource reads one seed per line. Blank lines are skipped, other
// lines are kept verbatim apart from a trailing carriage return.
type LocalSeedSource struct{}

// NewLocalSeedSource creates a LocalSeedSource.
func NewLocalSeedSource() *LocalSeedSource {
	return &LocalSeedSource{}
}

// ReadSeeds implements SeedSource.
func (s *LocalSeedSource) ReadSeeds(ctx context.Context, path m.Path) ([]string, error) {
	file, err := os.Open(string(path))
	if err != nil {
		slog.Error("Failed to open seeds file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open seeds file: %w", err)
	}
	defer file.Close()

	var seeds []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		seeds = append(seeds, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seeds file: %w", err)
	}

	slog.Debug("Loaded seeds", "path", path, "count", len(seeds))

	return seeds, nil
}
