package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycleprof/internal/haversine"
)

func TestRootCmd(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-n", "30", "-s", "5", "-t", "uniform", "-o", dir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Method: uniform\n")
	assert.Contains(t, out.String(), "Pair count: 30\n")

	jsonPath, answerPath := haversine.DatasetPaths(dir, 30)
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	pairs, err := haversine.ParsePairs(data)
	require.NoError(t, err)
	assert.Len(t, pairs, 30)

	info, err := os.Stat(answerPath)
	require.NoError(t, err)
	assert.Equal(t, int64(31*8), info.Size())
}

func TestRootCmd_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing number", []string{"-o", "."}},
		{"zero number", []string{"-n", "0"}},
		{"bad method", []string{"-n", "3", "-t", "spiral"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append(tt.args, "-o", t.TempDir()))
			assert.Error(t, cmd.Execute())
		})
	}
}
