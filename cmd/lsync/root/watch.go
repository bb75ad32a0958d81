package root

import (
	"context"

	"github.com/spf13/cobra"

	"lingsync/internal/tui"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard with automatic background sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			svc, mon, cleanup, err := openWatchService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.Run(ctx, svc, mon)
		},
	}
	return cmd
}
