package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/task-cli/internal/model"
	"github.com/BuzzLyutic/task-cli/internal/service"
	"github.com/BuzzLyutic/task-cli/pkg/respond"
)

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <description>",
		Short: "Add a new task",
		Args:  cobra.MatchAll(exactArgs(1), descriptionArg(0)),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.service.Add(cmd.Context(), args[0])
			if err != nil {
				return a.handleErrors(err, 0)
			}
			respond.Message(a.stdout, "Task added successfully (ID: %d)", task.ID)
			return nil
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <description>",
		Short: "Update the description of an existing task",
		Args:  cobra.MatchAll(exactArgs(2), idArg(0), descriptionArg(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args[0])
			if _, err := a.service.Update(cmd.Context(), id, args[1]); err != nil {
				return a.handleErrors(err, id)
			}
			respond.Message(a.stdout, "Task (ID: %d) updated successfully.", id)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.MatchAll(exactArgs(1), idArg(0)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args[0])
			if err := a.service.Delete(cmd.Context(), id); err != nil {
				return a.handleErrors(err, id)
			}
			respond.Message(a.stdout, "Task (ID: %d) deleted successfully.", id)
			return nil
		},
	}
}

// markCmd builds one of the two fixed status commands; there is no
// generic mark command.
func (a *app) markCmd(use string, status model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark a task as %s", status),
		Args:  cobra.MatchAll(exactArgs(1), idArg(0)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args[0])
			if _, err := a.service.Mark(cmd.Context(), id, status); err != nil {
				return a.handleErrors(err, id)
			}
			respond.Message(a.stdout, "Task (ID: %d) marked as %s.", id, status)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "list [status]",
		Short:     "List tasks, optionally filtered by status (todo, in-progress, done)",
		Args:      cobra.MatchAll(invalidArgs(cobra.MaximumNArgs(1)), statusArg, outputArg(&output)),
		ValidArgs: statusNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter model.TaskFilter
			if len(args) == 1 && args[0] != "" {
				status, _ := model.ParseStatus(args[0])
				filter.Status = &status
			}

			tasks, err := a.service.List(cmd.Context(), filter)
			if err != nil {
				return a.handleErrors(err, 0)
			}
			return respond.Output(a.stdout, output, tasks, func(w io.Writer) {
				respond.Tasks(w, tasks)
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single task",
		Args:  cobra.MatchAll(exactArgs(1), idArg(0), outputArg(&output)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID(args[0])
			task, err := a.service.Get(cmd.Context(), id)
			if err != nil {
				return a.handleErrors(err, id)
			}
			return respond.Output(a.stdout, output, task, func(w io.Writer) {
				respond.Task(w, task)
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count tasks per status",
		Args:  cobra.MatchAll(exactArgs(0), outputArg(&output)),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.service.GetStats(cmd.Context())
			if err != nil {
				return a.handleErrors(err, 0)
			}
			return respond.Output(a.stdout, output, stats, func(w io.Writer) {
				for _, st := range model.Statuses {
					respond.Message(w, "%-12s %d", st+":", stats.ByStatus[st])
				}
				respond.Message(w, "%-12s %d", "total:", stats.TotalTasks)
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", respond.OutputText, "output format (text, json)")
}

// outputArg checks --output before the command touches the store.
func outputArg(output *string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		switch *output {
		case respond.OutputText, respond.OutputJSON:
			return nil
		}
		return fmt.Errorf("%w: unknown output format %q (want text or json)", service.ErrValidation, *output)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid task id %q", service.ErrValidation, s)
	}
	return id, nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return invalidArgs(cobra.ExactArgs(n))
}

// invalidArgs tags errors from cobra's stock validators as validation errors.
func invalidArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		return nil
	}
}

func idArg(i int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		_, err := parseID(args[i])
		return err
	}
}

func descriptionArg(i int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(args[i]) == "" {
			return fmt.Errorf("%w: description must not be empty", service.ErrValidation)
		}
		return nil
	}
}

func statusArg(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return nil
	}
	if _, err := model.ParseStatus(args[0]); err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}

func statusNames() []string {
	names := make([]string, 0, len(model.Statuses))
	for _, st := range model.Statuses {
		names = append(names, string(st))
	}
	return names
}
