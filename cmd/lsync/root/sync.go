package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lingsync/internal/ui"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain pending mutations against the server now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			before := svc.PendingSyncCount()
			if before == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Nothing pending."))
				return nil
			}

			if err := svc.Sync(ctx); err != nil {
				return fmt.Errorf("sync stopped with %d still pending: %w", svc.PendingSyncCount(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d mutation(s) reconciled, %d pending\n",
				ui.Good.Render(ui.IconCloud+" Synced."), before-svc.PendingSyncCount(), svc.PendingSyncCount())
			return nil
		},
	}
	return cmd
}
