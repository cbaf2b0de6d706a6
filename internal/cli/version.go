package cli

import (
	"github.com/spf13/cobra"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			if out.JSONMode() {
				out.JSON(map[string]string{"version": app.version})
				return nil
			}
			out.Info("condor %s", app.version)
			return nil
		},
	}
}
