package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	modelsDir    = "../../testdata/models"
	scenariosDir = "../../testdata/scenarios"
)

// execute runs the root command with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// workspace returns global flags for alice over a fresh database directory.
func workspace(t *testing.T) []string {
	t.Helper()
	return []string{"--models", modelsDir, "--db-dir", t.TempDir(), "--user", "alice"}
}

func with(base []string, args ...string) []string {
	out := append([]string{}, base...)
	return append(out, args...)
}

func decodeData(t *testing.T, out string, into any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, into))
}

func TestURICommand(t *testing.T) {
	out, err := execute(t, "--user", "alice", "uri", "res.partner", "5")
	require.NoError(t, err)
	assert.Equal(t,
		"content://com.example.provider/res.partner/5?key_model=res.partner&key_username=alice\n", out)

	out, err = execute(t, "--user", "alice", "--format", "json", "uri", "res.partner")
	require.NoError(t, err)
	var result URIResult
	decodeData(t, out, &result)
	assert.Equal(t, "collection", result.Route)

	_, err = execute(t, "--user", "alice", "uri", "res.partner", "five")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestModelsCommand(t *testing.T) {
	out, err := execute(t, "--models", modelsDir, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "res.partner (table res_partner)")
	assert.Contains(t, out, "category_ids")
	assert.Contains(t, out, "via res_partner_category_ids_rel")

	out, err = execute(t, "--models", modelsDir, "--format", "json", "models")
	require.NoError(t, err)
	var result struct {
		Valid  bool             `json:"valid"`
		Files  int              `json:"files"`
		Models       []map[string]any  `json:"models"`
		Fingerprints map[string]string `json:"fingerprints"`
	}
	decodeData(t, out, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.Files)
	require.Len(t, result.Models, 2)
	assert.Equal(t, "res.partner", result.Models[0]["name"])
	require.Contains(t, result.Fingerprints, "res.partner")
	assert.Len(t, result.Fingerprints["res.partner"], 64)
}

func TestModelsCommandReportsErrors(t *testing.T) {
	dir := t.TempDir()
	bad := "package models\n\nmodel: \"res.broken\": columns: size: \"blob\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte(bad), 0o644))

	out, err := execute(t, "--models", dir, "models")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")

	_, err = execute(t, "--models", filepath.Join(dir, "missing"), "models")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInitCommand(t *testing.T) {
	base := workspace(t)

	out, err := execute(t, with(base, "--format", "json", "init")...)
	require.NoError(t, err)
	var result InitResult
	decodeData(t, out, &result)
	assert.Equal(t, "alice", result.User)
	assert.Contains(t, result.Tables, "res_partner")
	assert.Contains(t, result.Tables, "res_partner_category_ids_rel")
	assert.FileExists(t, result.Path)

	// Re-running leaves existing tables in place.
	_, err = execute(t, with(base, "init")...)
	require.NoError(t, err)

	_, err = execute(t, "--models", modelsDir, "--db-dir", t.TempDir(), "--user", "", "init")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCRUDCommands(t *testing.T) {
	base := workspace(t)
	_, err := execute(t, with(base, "init")...)
	require.NoError(t, err)

	out, err := execute(t, with(base, "insert", "res.partner.category", "--values", `{"name":"VIP"}`)...)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ inserted content://com.example.provider/res.partner.category/1?")

	out, err = execute(t, with(base, "--format", "json", "insert", "res.partner",
		"--values", `{"name":"A","active":true,"category_ids":[1]}`)...)
	require.NoError(t, err)
	var inserted WriteOutput
	decodeData(t, out, &inserted)
	require.NotNil(t, inserted.RowID)
	assert.Equal(t, int64(1), *inserted.RowID)
	assert.Empty(t, inserted.Warnings)

	out, err = execute(t, with(base, "--format", "json", "query", "res.partner/1", "--links")...)
	require.NoError(t, err)
	var queried struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	decodeData(t, out, &queried)
	require.Len(t, queried.Rows, 1)
	assert.Equal(t, "A", queried.Rows[0]["name"])
	assert.Equal(t, []any{float64(1)}, queried.Rows[0]["category_ids"])
	assert.Contains(t, queried.Columns, "category_ids")

	out, err = execute(t, with(base, "update", "res.partner",
		"--where", "name = ?", "--arg", "A", "--values", `{"email":"a@example.com"}`)...)
	require.NoError(t, err)
	assert.Equal(t, "✓ update: 1 row(s)\n", out)

	out, err = execute(t, with(base, "query", "res.partner", "--columns", "name,email", "--sort", "name")...)
	require.NoError(t, err)
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "a@example.com")

	out, err = execute(t, with(base, "delete", "res.partner/1", "--where", "name = ?", "--arg", "nobody")...)
	require.NoError(t, err)
	assert.Equal(t, "✓ delete: 1 row(s)\n", out)

	out, err = execute(t, with(base, "query", "res.partner")...)
	require.NoError(t, err)
	assert.Equal(t, "(no rows)\n", out)
}

func TestInsertReportsMalformedRelationWarning(t *testing.T) {
	base := workspace(t)
	_, err := execute(t, with(base, "init")...)
	require.NoError(t, err)

	out, err := execute(t, with(base, "insert", "res.partner", "--values", `{"name":"A","category_ids":"oops"}`)...)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ inserted")
	assert.Contains(t, out, "warning: MALFORMED_RELATION_VALUE category_ids")
}

func TestQueryLinksNeedRowID(t *testing.T) {
	base := workspace(t)
	_, err := execute(t, with(base, "init")...)
	require.NoError(t, err)
	_, err = execute(t, with(base, "insert", "res.partner", "--values", `{"name":"A"}`)...)
	require.NoError(t, err)

	_, err = execute(t, with(base, "query", "res.partner", "--columns", "name", "--links")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCommandErrors(t *testing.T) {
	base := workspace(t)
	_, err := execute(t, with(base, "init")...)
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:     "unknown model",
			args:     with(base, "query", "res.nope"),
			wantCode: ExitCommandError,
			wantOut:  "Error [INVALID_LOCATOR]",
		},
		{
			name:     "insert on a single row",
			args:     with(base, "insert", "res.partner/4", "--values", `{"name":"A"}`),
			wantCode: ExitCommandError,
			wantOut:  "Error [UNSUPPORTED_OPERATION]",
		},
		{
			name:     "malformed values",
			args:     with(base, "insert", "res.partner", "--values", `[1]`),
			wantCode: ExitCommandError,
			wantOut:  "invalid --values",
		},
		{
			name:     "bad locator",
			args:     with(base, "query", "content://com.example.provider/res.partner"),
			wantCode: ExitCommandError,
			wantOut:  "invalid locator",
		},
		{
			name:     "missing user",
			args:     []string{"--models", modelsDir, "--db-dir", t.TempDir(), "--user", "", "query", "res.partner"},
			wantCode: ExitCommandError,
			wantOut:  "--user",
		},
		{
			name:     "selection args mismatch",
			args:     with(base, "query", "res.partner", "--where", "name = ?"),
			wantCode: ExitFailure,
			wantOut:  "query failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestCommandErrorJSON(t *testing.T) {
	out, err := execute(t, with(workspace(t), "--format", "json", "query", "res.nope")...)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_LOCATOR", resp.Error.Code)
}

func TestScenarioCommand(t *testing.T) {
	out, err := execute(t, "scenario", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ partner_links.yaml")
	assert.Contains(t, out, "✓ user_isolation.yaml")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")

	out, err = execute(t, "scenario", scenariosDir, "--filter", "user_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	out, err = execute(t, "scenario", filepath.Join(scenariosDir, "partner_links.yaml"), "--trace")
	require.NoError(t, err)
	assert.Contains(t, out, `"scenario_name": "partner_links"`)
}

func TestScenarioCommandFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0o644))

	out, err := execute(t, "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")

	_, err = execute(t, "scenario", filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "scenario", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
