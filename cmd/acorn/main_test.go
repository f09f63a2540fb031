package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBoardFile(t *testing.T, doc map[string]any) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func minimalBoardDoc() map[string]any {
	return map[string]any{
		"grid_size_x": 10, "grid_size_y": 10, "grid_size_z": 1,
		"nets": []map[string]any{
			{"name": "net1", "start": []int{0, 0, 0}, "end": []int{3, 0, 0}},
		},
		"design_rule_subsets": []map[string]any{
			{"id": 0, "layers": []map[string]any{
				{"layer": 0, "trace_width": 1, "via_diameter": 2, "trace_to_trace_gap": 1, "trace_to_via_gap": 1},
			}},
		},
		"user_drc_free_threshold": 1,
		"max_iterations":          50,
		"default_evap_rate":       25,
		"default_cell_cost":       1,
	}
}

func TestRunExitsZeroOnSuccessfulRoute(t *testing.T) {
	path := writeBoardFile(t, minimalBoardDoc())
	code := run([]string{"-t", "2", path})
	assert.Equal(t, exitOK, code)
}

func TestRunExitsFatalOnMissingArgument(t *testing.T) {
	code := run(nil)
	assert.Equal(t, exitFatal, code)
}

func TestRunExitsFatalOnOversizedFilename(t *testing.T) {
	code := run([]string{strings.Repeat("a", 300) + ".json"})
	assert.Equal(t, exitFatal, code)
}

func TestRunExitsFatalOnDesignRuleConflict(t *testing.T) {
	doc := minimalBoardDoc()
	doc["design_rule_subsets"] = []map[string]any{
		{"id": 0, "layers": []map[string]any{
			{"layer": 0, "via_diameter": 2},
			{"layer": 1, "via_diameter": 3},
		}},
	}
	path := writeBoardFile(t, doc)
	code := run([]string{path})
	assert.Equal(t, exitFatal, code)
}

func TestRunExitsFatalOnUnparsableFlags(t *testing.T) {
	code := run([]string{"-not-a-real-flag"})
	assert.Equal(t, exitFatal, code)
}
