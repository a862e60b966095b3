package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

// SubstitutionFile is a user supplied substitution table.
type SubstitutionFile struct {
	Name          string              `json:"name"`
	Substitutions map[string][]string `json:"substitutions"`
}

// TableLoader reads substitution tables.
type TableLoader interface {
	LoadTable(ctx context.Context, path m.Path) (SubstitutionFile, error)
}

// LocalTableLoader reads JSONC files (JSON with comments and trailing commas).
type LocalTableLoader struct{}

// NewLocalTableLoader creates a LocalTableLoader.
func NewLocalTableLoader() *LocalTableLoader {
	return &LocalTableLoader{}
}

// LoadTable implements TableLoader. Without a "name" field the file name
// without extension is used.
func (l *LocalTableLoader) LoadTable(ctx context.Context, path m.Path) (SubstitutionFile, error) {
	if err := ctx.Err(); err != nil {
		return SubstitutionFile{}, err
	}

	data, err := os.ReadFile(string(path))
	if err != nil {
		slog.Error("Failed to read substitution table", "path", path, "error", err)
		return SubstitutionFile{}, fmt.Errorf("failed to read substitution table: %w", err)
	}

	table, err := parseSubstitutionFile(data)
	if err != nil {
		return SubstitutionFile{}, fmt.Errorf("%s: %w", path, err)
	}

	if strings.TrimSpace(table.Name) == "" {
		base := filepath.Base(string(path))
		table.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return table, nil
}

func parseSubstitutionFile(data []byte) (SubstitutionFile, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return SubstitutionFile{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var table SubstitutionFile
	if err := json.Unmarshal(standardized, &table); err != nil {
		return SubstitutionFile{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if len(table.Substitutions) == 0 {
		return SubstitutionFile{}, fmt.Errorf("no substitutions defined")
	}

	return table, nil
}
