package root

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lingsync/internal/ui"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "lsync",
	Short:         "Lingsync — offline-first learning progress, synced",
	Long:          "Lingsync keeps learning progress (XP, streaks, lessons) authoritative on the device and reconciles it with the server of record when connectivity allows.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newStatusCmd(),
		newLessonCmd(),
		newAwardCmd(),
		newSyncCmd(),
		newWatchCmd(),
		newDevServerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
