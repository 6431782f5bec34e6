package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_ValidCatalogue(t *testing.T) {
	out, err := executeValidate(t, "text", catalogueDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalogue valid (2 entries)")
}

func TestValidate_ValidCatalogueJSON(t *testing.T) {
	out, err := executeValidate(t, "json", catalogueDir)
	require.NoError(t, err)

	var resp jsonResponse[ValidationResult]
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Entries)
}

func TestValidate_InvalidCatalogue(t *testing.T) {
	out, err := executeValidate(t, "text", invalidDir)
	require.Error(t, err)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, `module "plug/views/Empty"`)
	assert.Contains(t, out, "is required")
	assert.Contains(t, out, "app.cue:")
}

func TestValidate_InvalidCatalogueJSON(t *testing.T) {
	out, err := executeValidate(t, "json", invalidDir)
	require.Error(t, err)

	var resp jsonResponse[ValidationResult]
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)

	problem := resp.Data.Errors[0]
	assert.Equal(t, "plug/views/Empty", problem.Entry)
	assert.Equal(t, "module", problem.Field)
	assert.Greater(t, problem.Line, 0)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCatalogue, resp.Error.Code)
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	out, err := executeValidate(t, "text", filepath.Join("testdata", "nope"))
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateCatalogue_CollectsEveryError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.cue"), `package bad

module: "a": {}
module: "b": match: has: "x"
module: "c": handler: {}
`)

	cat, problems := ValidateCatalogue(dir)
	require.NotNil(t, cat)
	require.Len(t, problems, 2)
	assert.Equal(t, "a", problems[0].Entry)
	assert.Equal(t, "c", problems[1].Entry)
}
