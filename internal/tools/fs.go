package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klix-code/klix/internal/kerrors"
)

// maxReadBytes bounds read_file output so one file cannot flood the
// conversation context.
const maxReadBytes = 256 * 1024

// resolvePath confines a tool path argument to the workspace root.
func resolvePath(root, path string) (string, error) {
	if path == "" || path == "." {
		return root, nil
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", path)
	}
	full := filepath.Clean(filepath.Join(root, path))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", path)
	}
	return full, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// RegisterFilesystemTools adds the file tools rooted at dir.
func RegisterFilesystemTools(r *Registry, root string) {
	r.MustRegister(lsTool(root))
	r.MustRegister(readFileTool(root))
	r.MustRegister(writeFileTool(root))
	r.MustRegister(appendFileTool(root))
	r.MustRegister(deleteFileTool(root))
}

func lsTool(root string) *Tool {
	return &Tool{
		Name:        "ls",
		Description: "List the contents of a directory. Directories are suffixed with a slash, files with their size.",
		Category:    CategoryFilesystem,
		Cacheable:   true,
		Schema: Schema{
			Properties: map[string]Property{
				"path":        {Type: "string", Description: "Directory to list, relative to the workspace. Defaults to the workspace root.", Default: "."},
				"show_hidden": {Type: "boolean", Description: "Include entries starting with a dot.", Default: false},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir, err := resolvePath(root, stringArg(args, "path"))
			if err != nil {
				return "", err
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				if os.IsNotExist(err) {
					return "", kerrors.NewFileNotFound(stringArg(args, "path"))
				}
				return "", fmt.Errorf("reading directory: %w", err)
			}
			showHidden, _ := args["show_hidden"].(bool)

			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if !showHidden && strings.HasPrefix(name, ".") {
					continue
				}
				if e.IsDir() {
					name += "/"
				} else if info, err := e.Info(); err == nil {
					name += " (" + sizeLabel(info.Size()) + ")"
				}
				names = append(names, name)
			}
			sort.Strings(names)
			if len(names) == 0 {
				return "(empty directory)", nil
			}
			return strings.Join(names, "\n"), nil
		},
	}
}

func sizeLabel(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%dKB", n/1024)
	default:
		return fmt.Sprintf("%dMB", n/(1024*1024))
	}
}

func readFileTool(root string) *Tool {
	return &Tool{
		Name:        "read_file",
		Description: "Read the contents of a text file, optionally limited to a line range.",
		Category:    CategoryFilesystem,
		Cacheable:   true,
		Schema: Schema{
			Required: []string{"path"},
			Properties: map[string]Property{
				"path":       {Type: "string", Description: "File to read, relative to the workspace."},
				"start_line": {Type: "integer", Description: "First line to read (1-indexed). Defaults to the start of the file."},
				"end_line":   {Type: "integer", Description: "Last line to read (1-indexed, inclusive). Defaults to the end of the file."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			full, err := resolvePath(root, stringArg(args, "path"))
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(full)
			if err != nil {
				if os.IsNotExist(err) {
					return "", kerrors.NewFileNotFound(stringArg(args, "path"))
				}
				if os.IsPermission(err) {
					return "", kerrors.NewFilePermission(stringArg(args, "path"), "read")
				}
				return "", fmt.Errorf("reading file: %w", err)
			}

			content := string(data)
			startLine, hasStart := args["start_line"].(float64)
			endLine, hasEnd := args["end_line"].(float64)
			if hasStart || hasEnd {
				content = sliceLines(content, int(startLine), int(endLine))
			}

			if len(content) > maxReadBytes {
				return content[:maxReadBytes] +
					fmt.Sprintf("\n... (truncated, %d bytes total)", len(content)), nil
			}
			return content, nil
		},
	}
}

// sliceLines returns the 1-indexed inclusive line range with line-number
// prefixes. Zero bounds default to the file edges; out-of-range bounds
// are clamped.
func sliceLines(content string, start, end int) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if start < 1 {
		start = 1
	}
	if end < 1 || end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%4d | %s\n", i, lines[i-1])
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeFileTool(root string) *Tool {
	return &Tool{
		Name:        "write_file",
		Description: "Create or overwrite a file with the given content.",
		Category:    CategoryFilesystem,
		Destructive: true,
		Schema: Schema{
			Required: []string{"path", "content"},
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "File to write, relative to the workspace."},
				"content": {Type: "string", Description: "Full file content."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			full, err := resolvePath(root, stringArg(args, "path"))
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return "", fmt.Errorf("creating parent directory: %w", err)
			}
			content := stringArg(args, "content")
			if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
				if os.IsPermission(err) {
					return "", kerrors.NewFilePermission(stringArg(args, "path"), "write")
				}
				return "", fmt.Errorf("writing file: %w", err)
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(content), stringArg(args, "path")), nil
		},
	}
}

func appendFileTool(root string) *Tool {
	return &Tool{
		Name:        "append_file",
		Description: "Append content to the end of an existing file, creating it if absent.",
		Category:    CategoryFilesystem,
		Destructive: true,
		Schema: Schema{
			Required: []string{"path", "content"},
			Properties: map[string]Property{
				"path":    {Type: "string", Description: "File to append to, relative to the workspace."},
				"content": {Type: "string", Description: "Content to append."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			full, err := resolvePath(root, stringArg(args, "path"))
			if err != nil {
				return "", err
			}
			f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				if os.IsPermission(err) {
					return "", kerrors.NewFilePermission(stringArg(args, "path"), "append")
				}
				return "", fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			content := stringArg(args, "content")
			if _, err := f.WriteString(content); err != nil {
				return "", fmt.Errorf("appending to file: %w", err)
			}
			return fmt.Sprintf("appended %d bytes to %s", len(content), stringArg(args, "path")), nil
		},
	}
}

func deleteFileTool(root string) *Tool {
	return &Tool{
		Name:        "delete_file",
		Description: "Delete a single file. Directories are refused.",
		Category:    CategoryFilesystem,
		Destructive: true,
		Schema: Schema{
			Required: []string{"path"},
			Properties: map[string]Property{
				"path": {Type: "string", Description: "File to delete, relative to the workspace."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			full, err := resolvePath(root, stringArg(args, "path"))
			if err != nil {
				return "", err
			}
			info, err := os.Stat(full)
			if err != nil {
				if os.IsNotExist(err) {
					return "", kerrors.NewFileNotFound(stringArg(args, "path"))
				}
				return "", fmt.Errorf("checking file: %w", err)
			}
			if info.IsDir() {
				return "", fmt.Errorf("refusing to delete directory: %s", stringArg(args, "path"))
			}
			if err := os.Remove(full); err != nil {
				if os.IsPermission(err) {
					return "", kerrors.NewFilePermission(stringArg(args, "path"), "delete")
				}
				return "", fmt.Errorf("deleting file: %w", err)
			}
			return fmt.Sprintf("deleted %s", stringArg(args, "path")), nil
		},
	}
}
