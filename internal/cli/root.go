// Package cli wires the klix command tree: the interactive chat,
// task-document commands, tool invocation, memory management, and
// reasoning-trace inspection.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/klix-code/klix/internal/config"
	"github.com/klix-code/klix/internal/llm"
	"github.com/klix-code/klix/internal/repository"
	"github.com/klix-code/klix/internal/service"
	"github.com/klix-code/klix/internal/tools"
	"github.com/klix-code/klix/internal/trace"
)

// App holds everything the CLI commands need.
type App struct {
	Config   config.Config
	Tasks    service.TaskService
	Memory   service.MemoryService
	Traces   repository.TraceRepo
	Recorder *trace.Recorder
	Registry *tools.Registry
	LLM      llm.Client

	// IsInteractive reports whether stdin is a terminal.
	IsInteractive func() bool
}

// NewRootCmd creates the top-level "klix" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "klix",
		Short:         "LLM coding assistant with task tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Accept underscores in flag names (--older_than == --older-than).
	root.SetGlobalNormalizationFunc(normalizeFlag)

	root.AddCommand(
		newChatCmd(app),
		newTasksCmd(app),
		newToolsCmd(app),
		newMemoryCmd(app),
		newTraceCmd(app),
		newConfigCmd(app),
	)

	return root
}

func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
