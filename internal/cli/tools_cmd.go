package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/klix-code/klix/internal/cli/formatter"
)

func newToolsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and run the assistant's tools",
	}

	cmd.AddCommand(
		newToolsListCmd(app),
		newToolsDescribeCmd(app),
		newToolsRunCmd(app),
	)

	return cmd
}

func newToolsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := app.Registry.All()
			rows := make([][]string, 0, len(all))
			for _, tool := range all {
				flags := ""
				if tool.Destructive {
					flags = formatter.StyleRed.Render("destructive")
				}
				rows = append(rows, []string{
					formatter.Bold(tool.Name),
					string(tool.Category),
					tool.Description,
					flags,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(),
				formatter.RenderTable([]string{"Name", "Category", "Description", ""}, rows))
			return nil
		},
	}
}

func newToolsDescribeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <tool>",
		Short: "Show a tool's argument schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := app.Registry.Get(args[0])
			if tool == nil {
				return fmt.Errorf("unknown tool %q", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", formatter.Bold(tool.Name), formatter.Dim(string(tool.Category)))
			fmt.Fprintln(out, tool.Description)

			required := make(map[string]bool, len(tool.Schema.Required))
			for _, r := range tool.Schema.Required {
				required[r] = true
			}
			names := make([]string, 0, len(tool.Schema.Properties))
			for name := range tool.Schema.Properties {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				prop := tool.Schema.Properties[name]
				marker := formatter.Dim("optional")
				if required[name] {
					marker = formatter.StyleYellow.Render("required")
				}
				fmt.Fprintf(out, "  %s (%s, %s) %s\n", formatter.Bold(name), prop.Type, marker, prop.Description)
			}
			return nil
		},
	}
}

func newToolsRunCmd(app *App) *cobra.Command {
	var argPairs []string
	var argsJSON string
	var yes bool

	cmd := &cobra.Command{
		Use:   "run <tool>",
		Short: "Run a tool directly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			toolArgs, err := parseToolArgs(argPairs, argsJSON)
			if err != nil {
				return err
			}

			if tool := app.Registry.Get(name); tool != nil && tool.Destructive &&
				app.Config.ConfirmDestructive && !yes {
				confirmed, err := confirmDestructive(name)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			res := app.Registry.Execute(cmd.Context(), name, toolArgs)
			if !res.IsSuccess() {
				return res.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&argPairs, "arg", nil, "Tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "json", "", "Tool arguments as a JSON object")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the destructive-tool confirmation")
	return cmd
}

func parseToolArgs(pairs []string, argsJSON string) (map[string]any, error) {
	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("parsing --json: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, expected key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

func confirmDestructive(toolName string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%q modifies the workspace. Run it?", toolName)).
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
