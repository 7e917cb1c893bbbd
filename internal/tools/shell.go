package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// defaultCommandTimeout bounds run_command when the caller gives no limit.
const defaultCommandTimeout = 30 * time.Second

// RegisterShellTools adds the command execution tool, with commands run
// from the workspace root.
func RegisterShellTools(r *Registry, root string) {
	r.MustRegister(runCommandTool(root))
}

func runCommandTool(root string) *Tool {
	return &Tool{
		Name:        "run_command",
		Description: "Run a shell command in the workspace and return its combined output and exit code.",
		Category:    CategorySystem,
		Destructive: true,
		Schema: Schema{
			Required: []string{"command"},
			Properties: map[string]Property{
				"command":         {Type: "string", Description: "Command line to execute with sh -c."},
				"timeout_seconds": {Type: "number", Description: "Kill the command after this many seconds.", Default: 30},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			command := stringArg(args, "command")
			if strings.TrimSpace(command) == "" {
				return "", fmt.Errorf("command must not be empty")
			}

			timeout := defaultCommandTimeout
			if secs, ok := args["timeout_seconds"].(float64); ok && secs > 0 {
				timeout = time.Duration(secs * float64(time.Second))
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Dir = root

			var out bytes.Buffer
			cmd.Stdout = &out
			cmd.Stderr = &out

			err := cmd.Run()
			if ctx.Err() == context.DeadlineExceeded {
				return "", fmt.Errorf("command timed out after %s", timeout)
			}

			exitCode := 0
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else if err != nil {
				return "", fmt.Errorf("running command: %w", err)
			}

			result := out.String()
			if result == "" {
				result = "(no output)"
			}
			return fmt.Sprintf("%s\n[exit code: %d]", strings.TrimRight(result, "\n"), exitCode), nil
		},
	}
}
