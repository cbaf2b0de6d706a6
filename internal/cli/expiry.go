package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"condor-trader/pkg/utils"
)

func newExpiryCmd(app *App) *cobra.Command {
	expiryCmd := &cobra.Command{
		Use:   "expiry",
		Short: "Manage the manual expiry calendar",
	}

	expiryCmd.AddCommand(
		newExpiryAddCmd(app),
		newExpiryListCmd(app),
		newExpiryClearCmd(app),
	)
	return expiryCmd
}

func newExpiryAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <DD-MMM-YYYY>...",
		Short: "Append expiries to the calendar",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			rt, err := app.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			for _, arg := range args {
				if _, err := utils.ParseExpiry(arg); err != nil {
					return err
				}
				if err := rt.st.AddExpiry(cmd.Context(), arg); err != nil {
					return err
				}
			}
			out.Success("Added %d expiries", len(args))
			return nil
		},
	}
}

func newExpiryListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured expiries in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			rt, err := app.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			expiries, err := rt.st.GetExpiries(cmd.Context())
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(expiries)
				return nil
			}
			if len(expiries) == 0 {
				out.Info("No expiries configured.")
				return nil
			}

			t := out.Table()
			t.AppendHeader(table.Row{"#", "Expiry"})
			for i, e := range expiries {
				t.AppendRow(table.Row{i + 1, e})
			}
			t.Render()
			return nil
		},
	}
}

func newExpiryClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all configured expiries",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			rt, err := app.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.st.ClearExpiries(cmd.Context()); err != nil {
				return err
			}
			out.Success("Expiry calendar cleared")
			return nil
		},
	}
}
