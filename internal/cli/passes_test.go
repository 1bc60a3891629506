package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlopt/internal/optimize"
)

func TestPassesText(t *testing.T) {
	out, _, err := execute(t, "passes")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(optimize.DefaultOrder()))
	for i, name := range optimize.DefaultOrder() {
		assert.Contains(t, lines[i], name)
	}
	assert.True(t, strings.HasPrefix(lines[0], "1.  dedup_in_list"), lines[0])
}

func TestPassesJSON(t *testing.T) {
	out, _, err := execute(t, "passes", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []PassInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 7)
	assert.Equal(t, "remove_subquery_order_by", resp.Data[6].Name)
	assert.NotEmpty(t, resp.Data[6].Description)
}

func TestPassesRejectsArgs(t *testing.T) {
	_, _, err := execute(t, "passes", "extra")
	assert.Error(t, err)
}
