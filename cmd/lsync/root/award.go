package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lingsync/internal/ui"
)

func newAwardCmd() *cobra.Command {
	var xp int

	cmd := &cobra.Command{
		Use:   "award",
		Short: "Grant passive experience (daily bonus, promotion)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.AwardPassiveXP(ctx, xp); err != nil {
				return err
			}
			snap := svc.CurrentSnapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%s +%d XP → %d total\n", ui.Good.Render(ui.IconBolt+" Awarded."), xp, snap.XPTotal)
			return nil
		},
	}

	cmd.Flags().IntVar(&xp, "xp", 5, "experience to grant")
	return cmd
}
