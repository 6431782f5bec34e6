package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plugmods/internal/finder"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"media_library", "event_handlers"} {
		t.Run(name, func(t *testing.T) {
			// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGoldenReport_IsCanonical(t *testing.T) {
	r := &finder.Report{
		Resolved: []finder.Resolution{{Alias: "b", Key: "k", Order: 1, Fingerprint: "ignored"}},
		NotFound: []string{"c"},
	}
	data, err := GoldenReport("s", r)
	require.NoError(t, err)

	want := `{"deferred":[],"errors":[],"not_found":["c"],"resolved":[{"alias":"b","key":"k","order":1}],"scenario":"s","unknown":[]}`
	assert.Equal(t, want, string(data))
}

func TestCheckGolden(t *testing.T) {
	dir := t.TempDir()
	result := &Result{Pass: true, Report: &finder.Report{}}

	err := CheckGolden(dir, "fresh", result, false)
	assert.ErrorContains(t, err, "read golden file")

	require.NoError(t, CheckGolden(dir, "fresh", result, true))
	_, err = os.Stat(filepath.Join(dir, GoldenDir, "fresh"+GoldenSuffix))
	require.NoError(t, err)
	require.NoError(t, CheckGolden(dir, "fresh", result, false))

	result.Report.NotFound = []string{"plug/A"}
	err = CheckGolden(dir, "fresh", result, false)
	var mismatch *GoldenMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Actual, `"not_found":["plug/A"]`)
}
