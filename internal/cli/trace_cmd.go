package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klix-code/klix/internal/cli/formatter"
	"github.com/klix-code/klix/internal/trace"
)

func newTraceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded reasoning traces",
	}

	cmd.AddCommand(
		newTraceListCmd(app),
		newTraceShowCmd(app),
		newTraceExportCmd(app),
	)

	return cmd
}

func newTraceListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trace sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := app.Traces.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTraceSessions(sessions))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions")
	return cmd
}

func newTraceShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the events of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := app.Traces.ListEvents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTraceEvents(events))
			return nil
		},
	}
}

func newTraceExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export one session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Export reads through the repo; any recorder over it will do.
			rec := trace.NewRecorder(app.Traces, true)
			out, err := rec.ExportSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
