package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/module"
)

// GoldenDir is where golden reports live, relative to the package or
// scenario directory.
const GoldenDir = "testdata/golden"

// GoldenSuffix is the golden file extension.
const GoldenSuffix = ".golden"

// GoldenReport renders the parts of a report that golden files pin down,
// as canonical JSON. Fingerprints are left out: they hash module shapes
// and are covered where shapes are built.
func GoldenReport(name string, r *finder.Report) ([]byte, error) {
	resolved := make([]any, len(r.Resolved))
	for i, res := range r.Resolved {
		resolved[i] = map[string]any{
			"alias": res.Alias,
			"key":   res.Key,
			"order": res.Order,
		}
	}
	return module.MarshalCanonical(map[string]any{
		"scenario":  name,
		"resolved":  resolved,
		"not_found": nonNil(r.NotFound),
		"deferred":  nonNil(r.Deferred),
		"unknown":   nonNil(r.Unknown),
		"errors":    nonNil(r.Errors),
	})
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// RunWithGolden executes a scenario and compares its report against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the report doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenReport(scenarioName, result.Report)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// GoldenMismatchError reports a report that differs from its golden file.
type GoldenMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *GoldenMismatchError) Error() string {
	return fmt.Sprintf("golden mismatch %s:\n  Expected: %s\n  Actual: %s", e.Path, e.Expected, e.Actual)
}

// CheckGolden compares a result against dir/testdata/golden/<name>.golden
// outside of a test binary. With update set the file is (re)written
// instead. A missing golden file is an error unless update is set.
func CheckGolden(dir, scenarioName string, result *Result, update bool) error {
	data, err := GoldenReport(scenarioName, result.Report)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, GoldenDir, scenarioName+GoldenSuffix)

	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return &GoldenMismatchError{Path: path, Expected: string(want), Actual: string(data)}
	}
	return nil
}
