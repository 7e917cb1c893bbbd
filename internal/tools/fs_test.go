package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klix-code/klix/internal/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFSRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	root := t.TempDir()
	r := NewRegistry()
	RegisterFilesystemTools(r, root)
	return r, root
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "empty defaults to root", path: ""},
		{name: "dot defaults to root", path: "."},
		{name: "simple relative", path: "src/main.go"},
		{name: "cleaned internal dots", path: "src/../docs/readme.md"},
		{name: "absolute rejected", path: "/etc/passwd", wantErr: true},
		{name: "parent escape rejected", path: "../outside", wantErr: true},
		{name: "nested escape rejected", path: "src/../../outside", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, err := resolvePath(root, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(full, root))
		})
	}
}

func TestLs(t *testing.T) {
	r, root := newFSRegistry(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# hi"), 0o644))

	res := r.Execute(context.Background(), "ls", map[string]any{"path": "."})
	require.True(t, res.IsSuccess())
	assert.Equal(t, "README.md (4B)\nmain.go (12B)\nsrc/", res.Output)
}

func TestLs_HiddenFilter(t *testing.T) {
	r, root := newFSRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SECRET=1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	res := r.Execute(context.Background(), "ls", map[string]any{"path": "."})
	require.True(t, res.IsSuccess())
	assert.NotContains(t, res.Output, ".env")

	res = r.Execute(context.Background(), "ls", map[string]any{"path": ".", "show_hidden": true})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, ".env")
}

func TestSizeLabel(t *testing.T) {
	assert.Equal(t, "512B", sizeLabel(512))
	assert.Equal(t, "2KB", sizeLabel(2048))
	assert.Equal(t, "3MB", sizeLabel(3*1024*1024))
}

func TestLs_EmptyAndMissing(t *testing.T) {
	r, root := newFSRegistry(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))

	res := r.Execute(context.Background(), "ls", map[string]any{"path": "empty"})
	require.True(t, res.IsSuccess())
	assert.Equal(t, "(empty directory)", res.Output)

	res = r.Execute(context.Background(), "ls", map[string]any{"path": "nope"})
	require.False(t, res.IsSuccess())
	assert.ErrorIs(t, res.Err, kerrors.ErrFileNotFound)
}

func TestReadFile(t *testing.T) {
	r, root := newFSRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("line one\nline two\n"), 0o644))

	res := r.Execute(context.Background(), "read_file", map[string]any{"path": "notes.txt"})
	require.True(t, res.IsSuccess())
	assert.Equal(t, "line one\nline two\n", res.Output)
}

func TestReadFile_LineRange(t *testing.T) {
	r, root := newFSRegistry(t)
	content := "alpha\nbravo\ncharlie\ndelta\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "nato.txt"), []byte(content), 0o644))

	res := r.Execute(context.Background(), "read_file", map[string]any{
		"path": "nato.txt", "start_line": 2.0, "end_line": 3.0,
	})
	require.True(t, res.IsSuccess())
	assert.Equal(t, "   2 | bravo\n   3 | charlie", res.Output)

	// Open-ended range reads to the last line.
	res = r.Execute(context.Background(), "read_file", map[string]any{
		"path": "nato.txt", "start_line": 4.0,
	})
	require.True(t, res.IsSuccess())
	assert.Equal(t, "   4 | delta", res.Output)

	// Bounds beyond the file are clamped.
	res = r.Execute(context.Background(), "read_file", map[string]any{
		"path": "nato.txt", "start_line": 1.0, "end_line": 99.0,
	})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, "   1 | alpha")
	assert.Contains(t, res.Output, "   4 | delta")
}

func TestReadFile_Truncation(t *testing.T) {
	r, root := newFSRegistry(t)
	big := strings.Repeat("x", maxReadBytes+100)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(big), 0o644))

	res := r.Execute(context.Background(), "read_file", map[string]any{"path": "big.txt"})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, "truncated")
	assert.Less(t, len(res.Output), len(big))
}

func TestReadFile_NotFound(t *testing.T) {
	r, _ := newFSRegistry(t)

	res := r.Execute(context.Background(), "read_file", map[string]any{"path": "missing.txt"})
	require.False(t, res.IsSuccess())
	assert.ErrorIs(t, res.Err, kerrors.ErrFileNotFound)
}

func TestReadFile_EscapeRejected(t *testing.T) {
	r, _ := newFSRegistry(t)

	res := r.Execute(context.Background(), "read_file", map[string]any{"path": "../secret"})
	require.False(t, res.IsSuccess())
	assert.Contains(t, res.Err.Error(), "escapes the workspace")
}

func TestWriteFile(t *testing.T) {
	r, root := newFSRegistry(t)

	res := r.Execute(context.Background(), "write_file", map[string]any{
		"path":    "deep/nested/out.txt",
		"content": "hello",
	})
	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Output, "wrote 5 bytes")

	data, err := os.ReadFile(filepath.Join(root, "deep", "nested", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteFile_Overwrites(t *testing.T) {
	r, root := newFSRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("old"), 0o644))

	res := r.Execute(context.Background(), "write_file", map[string]any{"path": "f.txt", "content": "new"})
	require.True(t, res.IsSuccess())

	data, err := os.ReadFile(filepath.Join(root, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestAppendFile(t *testing.T) {
	r, root := newFSRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "log.txt"), []byte("a\n"), 0o644))

	res := r.Execute(context.Background(), "append_file", map[string]any{"path": "log.txt", "content": "b\n"})
	require.True(t, res.IsSuccess())

	data, err := os.ReadFile(filepath.Join(root, "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestAppendFile_CreatesWhenAbsent(t *testing.T) {
	r, root := newFSRegistry(t)

	res := r.Execute(context.Background(), "append_file", map[string]any{"path": "fresh.txt", "content": "x"})
	require.True(t, res.IsSuccess())

	data, err := os.ReadFile(filepath.Join(root, "fresh.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestDeleteFile(t *testing.T) {
	r, root := newFSRegistry(t)
	target := filepath.Join(root, "gone.txt")
	require.NoError(t, os.WriteFile(target, []byte("bye"), 0o644))

	res := r.Execute(context.Background(), "delete_file", map[string]any{"path": "gone.txt"})
	require.True(t, res.IsSuccess())

	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteFile_RefusesDirectory(t *testing.T) {
	r, root := newFSRegistry(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))

	res := r.Execute(context.Background(), "delete_file", map[string]any{"path": "dir"})
	require.False(t, res.IsSuccess())
	assert.Contains(t, res.Err.Error(), "refusing to delete directory")
}

func TestDeleteFile_NotFound(t *testing.T) {
	r, _ := newFSRegistry(t)

	res := r.Execute(context.Background(), "delete_file", map[string]any{"path": "absent.txt"})
	require.False(t, res.IsSuccess())
	assert.ErrorIs(t, res.Err, kerrors.ErrFileNotFound)
}
