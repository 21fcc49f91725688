package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/MrEthical07/goSession/tasks"
	"github.com/spf13/cobra"
)

func (a *app) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and edit your tasks",
	}
	cmd.AddCommand(a.tasksListCmd())
	cmd.AddCommand(a.tasksAddCmd())
	cmd.AddCommand(a.tasksEditCmd())
	cmd.AddCommand(a.tasksDoneCmd())
	cmd.AddCommand(a.tasksRmCmd())
	return cmd
}

func (a *app) tasksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			list, err := a.client.Tasks().List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(a.out, "No tasks")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDONE\tTITLE")
			for _, t := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, doneMark(t.Completed), t.Title)
			}
			return tw.Flush()
		},
	}
}

func (a *app) tasksAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			t, err := a.client.Tasks().Create(cmd.Context(), taskInput(cmd, args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added task %d\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "Task description")
	return cmd
}

func (a *app) tasksEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id] [title]",
		Short: "Replace the title and description of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			t, err := a.client.Tasks().Update(cmd.Context(), id, taskInput(cmd, args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated task %d\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "Task description")
	return cmd
}

func (a *app) tasksDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			t, err := a.client.Tasks().Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Task %d %s\n", t.ID, doneWord(t.Completed))
			return nil
		},
	}
}

func (a *app) tasksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			if err := a.client.Tasks().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted task %d\n", id)
			return nil
		},
	}
}

func taskInput(cmd *cobra.Command, title string) tasks.Input {
	in := tasks.Input{Title: title}
	if cmd.Flags().Changed("description") {
		d, _ := cmd.Flags().GetString("description")
		in.Description = &d
	}
	return in
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func doneMark(done bool) string {
	if done {
		return "x"
	}
	return ""
}

func doneWord(done bool) string {
	if done {
		return "completed"
	}
	return "reopened"
}
