package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllSupported(t *testing.T) {
	out, _, err := execute(t, "check", activeUsers)
	require.NoError(t, err)
	assert.Equal(t, "✓ postgres\n✓ mysql\n✓ sqlite\n", out)
}

func TestCheckReportsUnsupported(t *testing.T) {
	out, _, err := execute(t, "check", "testdata/queries/search.yaml")
	require.NoError(t, err, "lenient check never fails")
	assert.Equal(t, "✓ postgres\n✗ mysql\n  ILIKE is not supported\n✗ sqlite\n  ILIKE is not supported\n", out)
}

func TestCheckStrict(t *testing.T) {
	out, _, err := execute(t, "check", "testdata/queries/search.yaml", "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "2 dialect(s) cannot express the query under strict policy")
}

func TestCheckJSON(t *testing.T) {
	out, _, err := execute(t, "check", "testdata/queries/search.yaml", "--strict", "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
		Error  *CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
	assert.Equal(t, "search by name", resp.Data.Name)
	assert.Equal(t, []DialectCheck{
		{Dialect: "postgres", Supported: true},
		{Dialect: "mysql", Supported: false, Features: []string{"ILIKE"}},
		{Dialect: "sqlite", Supported: false, Features: []string{"ILIKE"}},
	}, resp.Data.Dialects)
}

func TestCheckErrors(t *testing.T) {
	out, _, err := execute(t, "check", "testdata/queries/broken.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E200]: statement has construction errors")

	_, _, err = execute(t, "check", activeUsers, "--passes", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
