package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// skippedDirs are noise directories excluded from the project tree.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"vendor":       true,
}

const maxTreeDepth = 6

// RegisterProjectTools adds the project structure tool rooted at dir.
func RegisterProjectTools(r *Registry, root string) {
	r.MustRegister(projectStructureTool(root))
}

func projectStructureTool(root string) *Tool {
	return &Tool{
		Name:        "project_structure",
		Description: "Render the project directory tree, skipping dependency and VCS directories.",
		Category:    CategoryProject,
		Cacheable:   true,
		Schema: Schema{
			Properties: map[string]Property{
				"max_depth": {Type: "number", Description: "Levels of nesting to show.", Default: 6},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			depth := maxTreeDepth
			if d, ok := args["max_depth"].(float64); ok && d >= 1 {
				depth = int(d)
			}

			var b strings.Builder
			b.WriteString(filepath.Base(root) + "/\n")
			if err := writeTree(&b, root, "", depth); err != nil {
				return "", err
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

func writeTree(b *strings.Builder, dir, indent string, depth int) error {
	if depth == 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	// Directories first, each group alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && name != ".env" {
			continue
		}
		if e.IsDir() {
			if skippedDirs[name] {
				continue
			}
			b.WriteString(indent + name + "/\n")
			if err := writeTree(b, filepath.Join(dir, name), indent+"  ", depth-1); err != nil {
				return err
			}
			continue
		}
		b.WriteString(indent + name + "\n")
	}
	return nil
}
