package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lingsync/internal/progress"
	"lingsync/internal/ui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show learning progress and sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			snap := svc.CurrentSnapshot()
			lvl := progress.Level(snap.XPTotal)

			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconSparkle, "Progress"))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Level", lvl))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Total XP", fmt.Sprintf("%d (%d to next level)", snap.XPTotal, progress.XPToNext(snap.XPTotal))))
			fmt.Fprintln(cmd.OutOrStdout(), "  "+ui.LevelBar(progress.FractionToNext(snap.XPTotal), 30))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Streak", fmt.Sprintf("%s %d days", ui.IconFlame, snap.Streak)))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Lessons", snap.Lessons))
			if !snap.LastLessonAt.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Last lesson", snap.LastLessonAt.Local().Format("2006-01-02 15:04")))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "")

			confirmed := ui.Good.Render("server confirmed")
			if !snap.ServerConfirmed {
				confirmed = ui.Warn.Render("local only")
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("State", confirmed))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Pending sync", svc.PendingSyncCount()))
			return nil
		},
	}
	return cmd
}
