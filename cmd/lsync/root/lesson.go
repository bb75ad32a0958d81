package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lingsync/internal/engine"
	"lingsync/internal/ui"
)

func newLessonCmd() *cobra.Command {
	var (
		xp      int
		perfect bool
		words   int
		minutes int
		lesson  string
	)

	cmd := &cobra.Command{
		Use:   "lesson",
		Short: "Record a completed lesson",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.RecordLessonCompletion(ctx, engine.LessonInput{
				XP:           xp,
				Perfect:      perfect,
				WordsLearned: words,
				TimeSpentMin: minutes,
				LessonID:     lesson,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s +%d XP → %d total\n", ui.Good.Render(ui.IconDone+" Lesson recorded."), xp, res.Snapshot.XPTotal)
			if res.LeveledUp {
				fmt.Fprintf(cmd.OutOrStdout(), "%s now level %d\n", ui.BadgeLevelUp, res.NewLevel)
			}
			for _, m := range res.UnlockedMilestones {
				fmt.Fprintf(cmd.OutOrStdout(), "%s unlocked: %s\n", ui.IconSparkle, ui.Gold.Render(m))
			}
			if res.Queued {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Saved locally; will sync when the server is reachable."))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&xp, "xp", 10, "experience earned")
	cmd.Flags().BoolVar(&perfect, "perfect", false, "no mistakes in the lesson")
	cmd.Flags().IntVar(&words, "words", 0, "new words learned")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "time spent, in minutes")
	cmd.Flags().StringVar(&lesson, "lesson", "", "lesson identifier")
	return cmd
}
