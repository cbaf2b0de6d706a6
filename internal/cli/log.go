package cli

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newLogCmd(app *App) *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show persisted order and system logs",
	}

	logCmd.AddCommand(newLogOrdersCmd(app), newLogSystemCmd(app))
	return logCmd
}

func newLogOrdersCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show recent orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			rt, err := app.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			entries, err := rt.st.GetOrderLog(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(entries)
				return nil
			}
			if len(entries) == 0 {
				out.Info("No orders logged.")
				return nil
			}

			t := out.Table()
			t.AppendHeader(table.Row{"Time", "Order ID", "Symbol", "Side", "Qty", "Price", "Mode", "Note"})
			for _, e := range entries {
				mode := "live"
				if e.Virtual {
					mode = "virtual"
				}
				t.AppendRow(table.Row{
					e.Timestamp.Local().Format(time.DateTime),
					e.OrderID,
					e.Symbol,
					string(e.Side),
					e.Quantity,
					e.Price,
					mode,
					e.Note,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show")
	return cmd
}

func newLogSystemCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "system",
		Short: "Show recent system events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			rt, err := app.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			entries, err := rt.st.GetSystemLog(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(entries)
				return nil
			}
			if len(entries) == 0 {
				out.Info("No system events logged.")
				return nil
			}

			t := out.Table()
			t.AppendHeader(table.Row{"Time", "Message"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.Timestamp.Local().Format(time.DateTime), e.Message})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show")
	return cmd
}
