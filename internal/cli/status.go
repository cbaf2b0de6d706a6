package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"condor-trader/internal/models"
	"condor-trader/pkg/utils"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine state and open legs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			rt, err := app.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			if err := rt.eng.Resume(ctx); err != nil {
				return err
			}
			state, legs := rt.eng.Snapshot()

			if out.JSONMode() {
				out.JSON(map[string]interface{}{
					"state": state,
					"legs":  legs,
				})
				return nil
			}

			renderStatus(out, state, legs)
			return nil
		},
	}
}

func renderStatus(out *Output, state models.EngineState, legs []models.Leg) {
	mode := "LIVE"
	if state.Virtual {
		mode = "VIRTUAL"
	}
	paused := "no"
	if state.Paused {
		paused = "yes"
	}

	t := out.Table()
	t.AppendRows([]table.Row{
		{"Status", string(state.Status)},
		{"Mode", mode},
		{"Paused", paused},
		{"Expiry", state.Expiry},
		{"P&L", utils.FormatPnl(state.Pnl)},
		{"Peak profit", utils.FormatPnl(state.PeakProfit)},
		{"Peak loss", utils.FormatPnl(state.PeakLoss)},
		{"Target", utils.FormatIndianCurrency(state.TargetPnl)},
		{"Stop loss", utils.FormatIndianCurrency(state.StopLossPnl)},
		{"Entry time", state.EntryTime},
		{"Exit time", state.ExitTime},
		{"Entered at", state.EnteredAt},
		{"Exited at", state.ExitedAt},
	})
	t.Render()

	if len(legs) == 0 {
		out.Info("No open legs.")
		return
	}

	lt := out.Table()
	lt.AppendHeader(table.Row{"Symbol", "Side", "Strike", "Qty", "Entry", "LTP", "P&L", "Tier"})
	for _, leg := range legs {
		lt.AppendRow(table.Row{
			leg.Symbol,
			string(leg.Side),
			leg.Strike,
			leg.Quantity,
			leg.EntryPrice,
			leg.LTP,
			utils.FormatPnl(leg.PnL()),
			leg.Tier,
		})
	}
	lt.AppendFooter(table.Row{"", "", "", "", "", "Total", utils.FormatPnl(models.BasketPnL(legs)), ""})
	lt.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
	})
	lt.Render()
}
