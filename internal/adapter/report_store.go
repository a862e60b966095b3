// Package adapter provides the I/O edges of textfuzz: testers backed by
// external programs or pattern files, seed and table loading, and report
// persistence.
package adapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

const reportExt = ".yaml"

// ReportStore persists run reports in a directory.
type ReportStore interface {
	SaveReport(ctx context.Context, dir m.Path, report m.Report) (m.Path, error)
	LoadReports(ctx context.Context, dir m.Path) ([]m.Report, error)
}

// LocalReportStore stores one YAML file per report.
type LocalReportStore struct{}

// NewReportStore creates a LocalReportStore.
func NewReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// SaveReport writes report to dir/<id>.yaml, replacing the file atomically.
func (s *LocalReportStore) SaveReport(ctx context.Context, dir m.Path, report m.Report) (m.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if report.ID == "" {
		return "", fmt.Errorf("report has no id")
	}

	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		slog.Error("Failed to create reports dir", "dir", dir, "error", err)
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report %s: %w", report.ID, err)
	}

	path := filepath.Join(string(dir), report.ID+reportExt)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		slog.Error("Failed to write report", "path", path, "error", err)
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	slog.Debug("Saved report", "path", path, "candidates", len(report.Candidates))

	return m.Path(path), nil
}

// LoadReports reads every report in dir, oldest first. A missing dir yields no
// reports and no error.
func (s *LocalReportStore) LoadReports(ctx context.Context, dir m.Path) ([]m.Report, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read reports dir: %w", err)
	}

	reports := make([]m.Report, 0, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if entry.IsDir() || !strings.HasSuffix(entry.Name(), reportExt) {
			continue
		}

		path := filepath.Join(string(dir), entry.Name())

		report, err := readReport(path)
		if err != nil {
			slog.Error("Failed to load report", "path", path, "error", err)
			return nil, err
		}

		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].StartedAt.Before(reports[j].StartedAt)
	})

	return reports, nil
}

func readReport(path string) (m.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m.Report{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var report m.Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.Report{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return report, nil
}
