package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShellRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("run_command requires sh")
	}
	root := t.TempDir()
	r := NewRegistry()
	RegisterShellTools(r, root)
	return r, root
}

func TestRunCommand(t *testing.T) {
	r, _ := newShellRegistry(t)

	res := r.Execute(context.Background(), "run_command", map[string]any{"command": "echo hello"})
	require.True(t, res.IsSuccess())
	assert.Equal(t, "hello\n[exit code: 0]", res.Output)
}

func TestRunCommand_RunsInWorkspace(t *testing.T) {
	r, root := newShellRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "marker.txt"), []byte("x"), 0o644))

	res := r.Execute(context.Background(), "run_command", map[string]any{"command": "ls"})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, "marker.txt")
}

func TestRunCommand_NonZeroExit(t *testing.T) {
	r, _ := newShellRegistry(t)

	res := r.Execute(context.Background(), "run_command", map[string]any{"command": "exit 3"})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, "[exit code: 3]")
}

func TestRunCommand_CapturesStderr(t *testing.T) {
	r, _ := newShellRegistry(t)

	res := r.Execute(context.Background(), "run_command", map[string]any{"command": "echo oops >&2"})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, "oops")
}

func TestRunCommand_EmptyRejected(t *testing.T) {
	r, _ := newShellRegistry(t)

	res := r.Execute(context.Background(), "run_command", map[string]any{"command": "   "})
	require.False(t, res.IsSuccess())
	assert.Contains(t, res.Err.Error(), "must not be empty")
}

func TestRunCommand_Timeout(t *testing.T) {
	r, _ := newShellRegistry(t)

	res := r.Execute(context.Background(), "run_command", map[string]any{
		"command":         "sleep 5",
		"timeout_seconds": 0.1,
	})
	require.False(t, res.IsSuccess())
	assert.Contains(t, res.Err.Error(), "timed out")
}
