package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/klix-code/klix/internal/agent"
)

func newChatCmd(app *App) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		Long: `Talk to the assistant. With -m the message is answered once and
printed; without it an interactive session starts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.LLM.Available(cmd.Context()) {
				return fmt.Errorf("llm provider %q is not reachable", app.Config.Provider)
			}

			a := agent.New(app.LLM, app.Registry,
				agent.WithMemory(app.Memory),
				agent.WithRecorder(app.Recorder),
				agent.WithHistoryBudget(app.Config.HistoryBudget),
				agent.WithParallelLimit(app.Config.MaxParallelTools),
			)

			app.Recorder.StartSession(cmd.Context(), string(app.Config.Provider),
				app.Config.CurrentModel(), map[string]string{"mode": "chat"})
			defer app.Recorder.EndSession(cmd.Context())

			if message != "" {
				answer, err := a.Run(cmd.Context(), message)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(answer, 100))
				return nil
			}

			if app.IsInteractive != nil && !app.IsInteractive() {
				return fmt.Errorf("no terminal detected; use -m for one-shot mode")
			}

			model := newChatModel(a, app.Config)
			_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message (non-interactive)")
	return cmd
}
