package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Failures []SuiteFailure `json:"failures,omitempty"`
}

// SuiteFailure represents one scenario that did not pass.
type SuiteFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// Filter keeps only scenario files whose name contains it.
	Filter string

	// Golden also compares each report with its golden file under the
	// scenario directory.
	Golden bool

	// Update rewrites golden files instead of comparing them.
	Update bool
}

// DiscoverScenarios returns the .yaml and .yml files directly inside dir,
// sorted, keeping only names that contain filter.
func DiscoverScenarios(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario in dir.
//
// For each scenario file:
// 1. Load it, resolving paths against its directory
// 2. Run it with h
// 3. Optionally compare the report with its golden file
// 4. Collect the outcome
func (h *Harness) RunSuite(dir string, opts SuiteOptions) (*SuiteResult, error) {
	paths, err := DiscoverScenarios(dir, opts.Filter)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{}
	fail := func(name, path, msg string) {
		result.Failed++
		result.Failures = append(result.Failures, SuiteFailure{Scenario: name, Path: path, Error: msg})
	}

	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			fail("", path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		run, err := h.Run(scenario)
		if err != nil {
			fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		if !run.Pass {
			fail(scenario.Name, path, fmt.Sprintf("scenario expectations failed: %s", strings.Join(run.Errors, "\n")))
			continue
		}
		if opts.Golden || opts.Update {
			if err := CheckGolden(dir, scenario.Name, run, opts.Update); err != nil {
				fail(scenario.Name, path, err.Error())
				continue
			}
		}
		result.Passed++
	}
	return result, nil
}
