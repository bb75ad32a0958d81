package root

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"lingsync/internal/devserver"
	"lingsync/internal/ui"
)

func newDevServerCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local reference backend for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := devserver.New(devserver.WithToken(os.Getenv("LINGSYNC_API_TOKEN")))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconCloud, "Dev server listening on "+addr))
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	return cmd
}
