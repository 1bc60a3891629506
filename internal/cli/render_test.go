package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const activeUsers = "testdata/queries/active_users.yaml"

func TestRenderText(t *testing.T) {
	out, _, err := execute(t, "render", activeUsers, "--config", "testdata/smart.yaml")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name FROM users WHERE role IN ('admin', 'staff') AND active = $1 ORDER BY id\n"+
			"-- params: [true]\n"+
			"-- applied: dedup_in_list\n",
		out)
}

func TestRenderFlagsOverrideConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "dialect",
			args: []string{"--dialect", "mysql"},
			want: "SELECT id, name FROM users WHERE role IN ('admin', 'staff') AND active = ? ORDER BY id\n-- params: [true]\n-- applied: dedup_in_list\n",
		},
		{
			name: "no optimize",
			args: []string{"--no-optimize"},
			want: "SELECT id, name FROM users WHERE role IN ('admin', 'staff', 'admin') AND active = $1 ORDER BY id\n-- params: [true]\n",
		},
		{
			name: "empty pass list",
			args: []string{"--passes", ""},
			want: "SELECT id, name FROM users WHERE role IN ('admin', 'staff', 'admin') AND active = $1 ORDER BY id\n-- params: [true]\n",
		},
		{
			name: "other passes",
			args: []string{"--passes", "in_to_exists,simplify_exists"},
			want: "SELECT id, name FROM users WHERE role IN ('admin', 'staff', 'admin') AND active = $1 ORDER BY id\n-- params: [true]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"render", activeUsers, "--config", "testdata/smart.yaml"}, tt.args...)
			out, _, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRenderJSON(t *testing.T) {
	out, _, err := execute(t, "render", activeUsers, "--dialect", "sqlite", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "active users", resp.Data.Name)
	assert.Equal(t, "sqlite", resp.Data.Dialect)
	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "role" IN ('admin', 'staff') AND "active" = ? ORDER BY "id"`, resp.Data.SQL)
	require.Len(t, resp.Data.Params, 1)
	assert.JSONEq(t, "true", string(resp.Data.Params[0]))
	assert.Equal(t, []string{"dedup_in_list"}, resp.Data.Applied)
	assert.NotEmpty(t, resp.Data.Fingerprint)
	assert.NotEmpty(t, resp.Data.CompileID)
}

func TestRenderStrict(t *testing.T) {
	out, _, err := execute(t, "render", "testdata/queries/search.yaml", "--strict")
	require.NoError(t, err)
	assert.Equal(t, "SELECT \"id\" FROM \"users\" WHERE \"name\" ILIKE $1\n-- params: [\"%ann%\"]\n", out)

	out, _, err = execute(t, "render", "testdata/queries/search.yaml", "--strict", "--dialect", "mysql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [E201]: cannot render for mysql under strict policy\n  ILIKE is not supported by mysql\n", out)

	// Lenient degrades instead.
	out, _, err = execute(t, "render", "testdata/queries/search.yaml", "--dialect", "mysql")
	require.NoError(t, err)
	assert.NotContains(t, out, "ILIKE")
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing document", []string{"render", "testdata/queries/nope.yaml"}, ErrCodeNotFound},
		{"construction errors", []string{"render", "testdata/queries/broken.yaml"}, "E200"},
		{"unknown pass", []string{"render", activeUsers, "--passes", "nope"}, "E202"},
		{"unknown dialect", []string{"render", activeUsers, "--dialect", "oracle"}, ErrCodeConfig},
		{"missing config", []string{"render", activeUsers, "--config", "testdata/nope.yaml"}, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRenderBadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quoting: sometimes\n"), 0644))

	out, _, err := execute(t, "render", activeUsers, "--config", path)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E008]")
	assert.Contains(t, out, `unknown quoting mode "sometimes"`)
}

// syncBuffer is a bytes.Buffer safe for the watcher's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRenderWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte("select: {columns: [a], from: t}\n"), 0644))

	out := &syncBuffer{}
	opts := &RootOptions{Format: "text"}
	cmd := NewRenderCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{path, "--watch"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `SELECT "a" FROM "t"`)
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("select: {columns: [b], from: t}\n"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `SELECT "b" FROM "t"`)
	}, 3*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "-- changed: ")

	// A broken save is reported and watching continues.
	require.NoError(t, os.WriteFile(path, []byte("select: {columns: [b]\n"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Error [E004]")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
