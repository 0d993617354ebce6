package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/auth"
	"github.com/hiroki-koketsu/taskboard/internal/client"
	"github.com/hiroki-koketsu/taskboard/internal/model"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint an HS256 development token for subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				return fmt.Errorf("a secret is required: pass --secret or set JWT_SECRET")
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			audience, _ := cmd.Flags().GetString("audience")
			issuer, _ := cmd.Flags().GetString("issuer")

			token, err := auth.IssueToken(secret, args[0], audience, issuer, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().String("audience", os.Getenv("JWT_AUDIENCE"), "aud claim")
	cmd.Flags().String("issuer", os.Getenv("JWT_ISSUER"), "iss claim")

	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}

			priority, _ := cmd.Flags().GetString("priority")
			status, _ := cmd.Flags().GetString("status")
			search, _ := cmd.Flags().GetString("search")
			criteria, err := model.Criteria{Priority: priority, Status: status, Search: search}.Normalize()
			if err != nil {
				return err
			}

			board := client.NewBoard(api)
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			board.SetCriteria(criteria)

			printTasks(cmd.OutOrStdout(), board.Visible())
			return nil
		},
	}

	cmd.Flags().StringP("priority", "p", model.FilterAll, "low, medium, high or all")
	cmd.Flags().StringP("status", "s", model.FilterAll, "pending, completed or all")
	cmd.Flags().StringP("search", "q", "", "case-insensitive text in title or description")

	return cmd
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}

			description, _ := cmd.Flags().GetString("description")
			priority, _ := cmd.Flags().GetString("priority")
			req := model.CreateTaskRequest{
				Title:       args[0],
				Description: description,
				Priority:    model.Priority(priority),
			}

			due, _ := cmd.Flags().GetString("due")
			if due != "" {
				t, err := time.Parse(time.DateOnly, due)
				if err != nil {
					return fmt.Errorf("invalid --due, want YYYY-MM-DD: %w", err)
				}
				req.DueDate = &t
			}

			task, err := api.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), []*model.Task{task})
			return nil
		},
	}

	cmd.Flags().StringP("description", "d", "", "task description")
	cmd.Flags().StringP("priority", "p", "", "low, medium or high")
	cmd.Flags().String("due", "", "due date (YYYY-MM-DD)")

	return cmd
}

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Update the given fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}

			var req model.UpdateTaskRequest
			if cmd.Flags().Changed("title") {
				v, _ := cmd.Flags().GetString("title")
				req.Title = &v
			}
			if cmd.Flags().Changed("description") {
				v, _ := cmd.Flags().GetString("description")
				req.Description = &v
			}
			if cmd.Flags().Changed("priority") {
				v, _ := cmd.Flags().GetString("priority")
				p := model.Priority(v)
				req.Priority = &p
			}
			if cmd.Flags().Changed("status") {
				v, _ := cmd.Flags().GetString("status")
				s := model.Status(v)
				req.Status = &s
			}

			task, err := api.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), []*model.Task{task})
			return nil
		},
	}

	cmd.Flags().String("title", "", "new title")
	cmd.Flags().StringP("description", "d", "", "new description")
	cmd.Flags().StringP("priority", "p", "", "low, medium or high")
	cmd.Flags().StringP("status", "s", "", "pending or completed")

	return cmd
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "toggle [id]",
		Aliases: []string{"done"},
		Short:   "Flip a task between pending and completed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			task, err := api.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), []*model.Task{task})
			return nil
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient(cmd)
			if err != nil {
				return err
			}
			if err := api.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func printTasks(out io.Writer, tasks []*model.Task) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE")
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, due, t.Title)
	}
	w.Flush()
}
