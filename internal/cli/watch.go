package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcollina/githuman-sub002/internal/client"
	"github.com/mcollina/githuman-sub002/internal/collection"
)

var watchReview string

// watchCmd keeps a live view: every push event triggers a full resync of the
// collection, exactly like the browser front-end.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the todo list and reprint it on every change",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctrl := collection.NewController(api, collection.DefaultPageSize, logger)

		filter := collection.Filter{}
		if watchReview != "" {
			filter.ReviewID = &watchReview
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := ctrl.SetFilter(ctx, filter); err != nil {
			return err
		}
		printView(ctrl.Snapshot())

		listener, err := client.NewListener(serverURL,
			[]string{client.EventTodos},
			func(event client.Event) {
				ctrl.HandleEvent(ctx, event)
				printView(ctrl.Snapshot())
			},
			client.WithLogger(logger),
			client.WithListenerToken(authToken),
		)
		if err != nil {
			return err
		}

		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func printView(view collection.View) {
	fmt.Fprintln(os.Stdout, "----")
	printTodos(view.Items)
	fmt.Fprintf(os.Stdout, "%d shown of %d (completed %d, pending %d)\n",
		len(view.Items), view.Total, view.Stats.Completed, view.Stats.Pending)
}

func init() {
	watchCmd.Flags().StringVar(&watchReview, "review", "", "only todos for this review")
}
