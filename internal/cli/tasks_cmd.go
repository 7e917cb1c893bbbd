package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/klix-code/klix/internal/cli/formatter"
	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/taskdoc"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with the tasks.md tracking document",
	}

	cmd.AddCommand(
		newTasksImportCmd(app),
		newTasksReportCmd(app),
		newTasksListCmd(app),
		newTasksShowCmd(app),
		newTasksStatusCmd(app),
		newTasksValidateCmd(app),
		newTasksExportCmd(app),
		newTasksWatchCmd(app),
	)

	return cmd
}

func (app *App) tasksFileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return app.Config.TasksFile
}

func newTasksImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Parse a tracking document and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Tasks.ImportDocument(cmd.Context(), app.tasksFileArg(args))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderImportResult(result))
			return nil
		},
	}
}

func newTasksReportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show progress, blocked tasks and the ready queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := app.Tasks.Report(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderReport(rep))
			return nil
		},
	}
}

func newTasksListCmd(app *App) *cobra.Command {
	var tier string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.Tasks.Document(cmd.Context())
			if err != nil {
				return err
			}
			tasks := doc.Tasks
			if tier != "" {
				tasks = doc.ByPriority(domain.Priority(tier))
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTaskTable(tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&tier, "priority", "", "Filter by tier (high, medium, low)")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.Tasks.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTask(t))
			return nil
		},
	}
}

func newTasksStatusCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "status <task-id> <pending|partial|done>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, status := args[0], domain.Status(args[1])
			if err := app.Tasks.UpdateStatus(cmd.Context(), id, status, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", id, formatter.StatusLabel(status))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the dependency guard")
	return cmd
}

func newTasksValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a tracking document without importing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.tasksFileArg(args)
			out := cmd.OutOrStdout()

			errs := validateFile(path)
			if len(errs) == 0 {
				fmt.Fprintf(out, "%s %s\n", formatter.StyleGreen.Render("✓"), path)
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(out, "%s %v\n", formatter.StyleRed.Render("✗"), e)
			}
			return fmt.Errorf("%d validation errors", len(errs))
		},
	}
}

func validateFile(path string) []error {
	doc, err := taskdoc.ParseFile(path)
	if err != nil {
		return []error{err}
	}
	return taskdoc.Validate(doc)
}

func newTasksExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the stored document back out as canonical markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Tasks.Export(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newTasksWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-validate and re-import the document whenever it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.tasksFileArg(args)
			out := cmd.OutOrStdout()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}

			fmt.Fprintf(out, "watching %s\n", path)
			reimport(cmd.Context(), app, path, out)

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						reimport(cmd.Context(), app, path, out)
						// Editors that replace the file drop the watch.
						_ = watcher.Add(path)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "watch error: %v\n", err)
				}
			}
		},
	}
}

func reimport(ctx context.Context, app *App, path string, out io.Writer) {
	result, err := app.Tasks.ImportDocument(ctx, path)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", formatter.StyleRed.Render("✗"), err)
		return
	}
	fmt.Fprint(out, formatter.RenderImportResult(result))
}
