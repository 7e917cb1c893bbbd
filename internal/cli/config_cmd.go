package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klix-code/klix/internal/cli/formatter"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			apiKey := formatter.Dim("(not set)")
			if cfg.GeminiAPIKey != "" {
				apiKey = formatter.StyleGreen.Render("(set)")
			}

			rows := [][]string{
				{"provider", string(cfg.Provider)},
				{"model", cfg.CurrentModel()},
				{"gemini_api_key", apiKey},
				{"project_root", cfg.ProjectRoot},
				{"tasks_file", cfg.TasksFile},
				{"traces_dir", cfg.TracesDir},
				{"enable_traces", fmt.Sprintf("%t", cfg.EnableTraces)},
				{"confirm_destructive", fmt.Sprintf("%t", cfg.ConfirmDestructive)},
				{"history_budget", fmt.Sprintf("%d", cfg.HistoryBudget)},
				{"max_parallel_tools", fmt.Sprintf("%d", cfg.MaxParallelTools)},
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"Key", "Value"}, rows))
			return nil
		},
	})

	return cmd
}
