package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plugmods/internal/finder"
	"github.com/roach88/plugmods/internal/snapshot"
	"github.com/roach88/plugmods/internal/store"
)

// executeResolve runs the resolve command with args and returns stdout.
func executeResolve(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewResolveCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// jsonResponse decodes a CLIResponse whose data is T.
type jsonResponse[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
	RunID  string    `json:"run_id"`
}

func TestResolve_Text(t *testing.T) {
	out, err := executeResolve(t, "text", catalogueDir, snapshotFile)
	require.NoError(t, err)

	assert.Contains(t, out, "Resolved 2 alias(es)")
	assert.Contains(t, out, "[1] plug/core/EventManager = de369/m")
	assert.Contains(t, out, "[2] plug/handlers/AlertHandler = de369/h")
	assert.Contains(t, out, "Unknown: 1 registry key(s) unclaimed")
	assert.NotContains(t, out, "Not found")
}

func TestResolve_JSON(t *testing.T) {
	out, err := executeResolve(t, "json", catalogueDir, snapshotFile)
	require.NoError(t, err)

	var resp jsonResponse[ResolveResult]
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.RunID)
	assert.NotEmpty(t, resp.Data.Snapshot)
	assert.NotEmpty(t, resp.Data.Catalogue)

	want := map[string]string{
		"plug/core/EventManager":     "de369/m",
		"plug/handlers/AlertHandler": "de369/h",
	}
	if diff := cmp.Diff(want, resp.Data.Report.Keys()); diff != "" {
		t.Errorf("resolved keys mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"de369/u"}, resp.Data.Report.Unknown)
}

func TestResolve_NotFoundExitsWithFailure(t *testing.T) {
	out, err := executeResolve(t, "text", missingDir, snapshotFile)
	require.Error(t, err)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeUnresolved)
	assert.Contains(t, out, "Not found (1)")
	assert.Contains(t, out, "plug/views/Nowhere")
}

func TestResolve_CommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing snapshot", []string{catalogueDir, filepath.Join("testdata", "nope.yaml")}, ErrCodeNotFound},
		{"missing catalogue", []string{filepath.Join("testdata", "nope"), snapshotFile}, ErrCodeNotFound},
		{"invalid catalogue", []string{invalidDir, snapshotFile}, ErrCodeCatalogue},
		{"no registry source", []string{catalogueDir}, ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeResolve(t, "json", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp jsonResponse[any]
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestResolve_RegisterWritesPublishedSnapshot(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "published.yaml")

	out, err := executeResolve(t, "text", catalogueDir, snapshotFile, "--register", "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Published")
	assert.Contains(t, out, "plug/handlers/AlertHandler -> de369/h")

	snap, err := snapshot.Load(outPath)
	require.NoError(t, err)
	assert.Equal(t, 7, snap.Registry.Len())

	published, ok := snap.Registry.Get("plug/handlers/AlertHandler")
	require.True(t, ok)
	original, ok := snap.Registry.Get("de369/h")
	require.True(t, ok)
	assert.Same(t, original, published, "a published alias must be the module itself, not a copy")
}

func TestResolve_RecordsRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)

	opts := &ResolveOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		Label:       "nightly",
		Exclude:     finder.DefaultExcludedPrefixes,
		RunIDs:      store.NewFixedGenerator("run-1"),
	}
	require.NoError(t, runResolve(context.Background(), opts, catalogueDir, snapshotFile, cmd))

	var resp jsonResponse[ResolveResult]
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "nightly", run.Label)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, resp.Data.Snapshot, run.SnapshotDigest)
	require.Len(t, run.Resolutions, 2)
	assert.Equal(t, "plug/core/EventManager", run.Resolutions[0].Alias)
}

func TestReportOutcome(t *testing.T) {
	tests := []struct {
		name   string
		report *finder.Report
		want   int
	}{
		{"clean", &finder.Report{}, ExitSuccess},
		{"not found", &finder.Report{NotFound: []string{"a"}}, ExitFailure},
		{"deferred", &finder.Report{Deferred: []string{"b"}}, ExitFailure},
		{"errors", &finder.Report{Errors: []string{"DETECTIVE_PANIC"}}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(reportOutcome(tt.report)))
		})
	}
}
