package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plugmods/internal/finder"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_MediaLibrary(t *testing.T) {
	result, err := Run(loadTestScenario(t, "media_library"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.NotNil(t, result.Report)
	assert.Len(t, result.Report.Resolved, 6)
}

func TestRun_EventHandlers(t *testing.T) {
	result, err := Run(loadTestScenario(t, "event_handlers"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	first := result.Report.Resolved[0]
	assert.Equal(t, "plug/util/Util", first.Alias)
	assert.Equal(t, int64(0), first.Order, "hand-defined aliases carry order 0")
}

func TestRun_FailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: every expectation is wrong
registry:
  modules:
    de369/a: { x: 1 }
    de369/b: { y: 1 }
catalogue: |
  module: "plug/A": match: has: "x"
  module: "plug/B": match: has: "y"
  module: "plug/C": match: has: "z"
expect:
  resolved: { plug/A: de369/b }
  not_found: []
  deferred: [plug/C]
  unknown: [de369/q]
  order: [plug/B, plug/A]
  errors: [CYCLE_DETECTED]
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)

	assert.Contains(t, result.Errors[0], "Assertion failed: resolved")
	assert.Contains(t, result.Errors[0], "Actual: plug/A = de369/a")
	assert.Contains(t, result.Errors[1], "Assertion failed: not_found")
	assert.Contains(t, result.Errors[1], "Actual: [plug/C]")
	assert.Contains(t, result.Errors[2], "Assertion failed: deferred")
	assert.Contains(t, result.Errors[3], "Assertion failed: unknown")
	assert.Contains(t, result.Errors[4], "plug/B (order 2) should be before plug/A (order 1)")
	assert.Contains(t, result.Errors[5], `an error containing "CYCLE_DETECTED"`)
}

func TestRun_ExecutionErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "bad registry",
			yaml: `
name: bad_registry
description: x
registry: { things: {} }
catalogue: 'module: "a": match: has: "x"'
`,
			wantErr: "registry:",
		},
		{
			name: "bad catalogue",
			yaml: `
name: bad_catalogue
description: x
registry: { modules: {} }
catalogue: 'module: "a": {}'
`,
			wantErr: "catalogue:",
		},
		{
			name: "conflicting define",
			yaml: `
name: bad_define
description: x
registry: { modules: { k: { x: 1 } } }
catalogue: 'module: "a": match: has: "x"'
define:
  - { alias: m, target: k }
  - { alias: n, target: k }
`,
			wantErr: "define n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScenario([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = Run(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateExpectations_NilMeansUnchecked(t *testing.T) {
	r := &finder.Report{
		Resolved: []finder.Resolution{{Alias: "a", Key: "k", Order: 1}},
		NotFound: []string{"b"},
		Deferred: []string{},
		Unknown:  []string{"u"},
		Errors:   []string{"DETECTIVE_PANIC: boom (alias=b)"},
	}
	assert.Empty(t, EvaluateExpectations(r, Expectations{}))
	assert.Empty(t, EvaluateExpectations(r, Expectations{
		NotFound: []string{"b"},
		Errors:   []string{"DETECTIVE_PANIC"},
	}))

	errs := EvaluateExpectations(r, Expectations{NoErrors: true})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: no errors")
}

func TestAssertionError_IncludesResolvedTable(t *testing.T) {
	err := &AssertionError{
		Type:     ExpectOrder,
		Expected: "a before b",
		Actual:   "b before a",
		Resolved: []finder.Resolution{{Alias: "b", Key: "k2", Order: 1}},
	}
	want := "Assertion failed: order\n  Expected: a before b\n  Actual: b before a\n\nResolved:\n  [1] b = k2\n"
	assert.Equal(t, want, err.Error())
}
