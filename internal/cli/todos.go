package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mcollina/githuman-sub002/internal/client"
	"github.com/mcollina/githuman-sub002/internal/domain"
)

var (
	listReview    string
	listCompleted bool
	listPending   bool
	listLimit     int
	listOffset    int
	addReview     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos ordered by position",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		opts := client.ListOptions{Limit: listLimit, Offset: listOffset}
		if listReview != "" {
			opts.ReviewID = &listReview
		}
		if listCompleted && listPending {
			return fmt.Errorf("--completed and --pending are mutually exclusive")
		}
		if listCompleted {
			completed := true
			opts.Completed = &completed
		}
		if listPending {
			completed := false
			opts.Completed = &completed
		}

		result, err := api.List(cmd.Context(), opts)
		if err != nil {
			return err
		}

		printTodos(result.Data)
		fmt.Fprintf(os.Stdout, "%d of %d\n", len(result.Data), result.Total)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add CONTENT",
	Short: "Add a todo at the end of the order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		var reviewID *string
		if addReview != "" {
			reviewID = &addReview
		}

		todo, err := api.Create(cmd.Context(), args[0], reviewID)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "created %s at position %d\n", todo.ID, todo.Position)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit ID CONTENT",
	Short: "Rewrite a todo's text",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		content := args[1]
		todo, err := api.Update(cmd.Context(), args[0], client.UpdateFields{Content: &content})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "updated %s\n", todo.ID)
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Flip a todo between pending and completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		todo, err := api.Toggle(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		state := "pending"
		if todo.Completed {
			state = "completed"
		}
		fmt.Fprintf(os.Stdout, "%s is now %s\n", todo.ID, state)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		if err := api.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "deleted %s\n", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all completed todos",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		deleted, err := api.ClearCompleted(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "deleted %d completed todos\n", deleted)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move ID POSITION",
	Short: "Move a todo to a position in the global order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		position, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("position must be an integer: %w", err)
		}

		todo, err := api.Move(cmd.Context(), args[0], position)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "moved %s to position %d\n", todo.ID, todo.Position)
		return nil
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder ID...",
	Short: "Submit a full explicit ordering",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		updated, err := api.Reorder(cmd.Context(), args)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "reordered %d todos\n", updated)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate todo counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		stats, err := api.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "total %d, completed %d, pending %d\n",
			stats.Total, stats.Completed, stats.Pending)
		return nil
	},
}

func printTodos(todos []domain.Todo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, todo := range todos {
		mark := " "
		if todo.Completed {
			mark = "x"
		}
		scope := "-"
		if todo.ReviewID != nil {
			scope = *todo.ReviewID
		}
		fmt.Fprintf(w, "%d\t[%s]\t%s\t%s\t%s\n", todo.Position, mark, todo.ID, scope, todo.Content)
	}
	_ = w.Flush()
}

func init() {
	listCmd.Flags().StringVar(&listReview, "review", "", "only todos for this review")
	listCmd.Flags().BoolVar(&listCompleted, "completed", false, "only completed todos")
	listCmd.Flags().BoolVar(&listPending, "pending", false, "only pending todos")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "page size (0 = everything)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "page offset")
	addCmd.Flags().StringVar(&addReview, "review", "", "scope the todo to a review")
}
