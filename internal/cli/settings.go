package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"condor-trader/internal/models"
	"condor-trader/pkg/utils"
)

func newSettingsCmd(app *App) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change engine settings",
	}

	settingsCmd.AddCommand(newSettingsShowCmd(app), newSettingsSetCmd(app))
	return settingsCmd
}

func newSettingsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				state, _ := rt.eng.Snapshot()

				if out.JSONMode() {
					out.JSON(map[string]interface{}{
						"entry_time":    state.EntryTime,
						"exit_time":     state.ExitTime,
						"target_pnl":    state.TargetPnl,
						"stop_loss_pnl": state.StopLossPnl,
						"virtual":       state.Virtual,
					})
					return nil
				}

				t := out.Table()
				t.AppendRows([]table.Row{
					{"Entry time", state.EntryTime},
					{"Exit time", state.ExitTime},
					{"Target", utils.FormatIndianCurrency(state.TargetPnl)},
					{"Stop loss", utils.FormatIndianCurrency(state.StopLossPnl)},
					{"Virtual", state.Virtual},
				})
				t.Render()
				return nil
			})
		},
	}
}

func newSettingsSetCmd(app *App) *cobra.Command {
	var (
		entryTime   string
		exitTime    string
		targetPnl   float64
		stopLossPnl float64
		virtual     bool
		live        bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change engine settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				s := models.Settings{
					EntryTime:   entryTime,
					ExitTime:    exitTime,
					TargetPnl:   targetPnl,
					StopLossPnl: stopLossPnl,
				}
				if cmd.Flags().Changed("virtual") {
					s.Virtual = &virtual
				}
				if cmd.Flags().Changed("live") && live {
					v := false
					s.Virtual = &v
				}

				if err := rt.eng.UpdateSettings(cmd.Context(), s); err != nil {
					return err
				}
				out.Success("Settings updated")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&entryTime, "entry-time", "", "order placement time (HH:MM:SS)")
	cmd.Flags().StringVar(&exitTime, "exit-time", "", "expiry day exit time (HH:MM:SS)")
	cmd.Flags().Float64Var(&targetPnl, "target", 0, "profit target in rupees")
	cmd.Flags().Float64Var(&stopLossPnl, "stoploss", 0, "stop loss in rupees (negative)")
	cmd.Flags().BoolVar(&virtual, "virtual", true, "virtual (paper) trading mode")
	cmd.Flags().BoolVar(&live, "live", false, "live trading mode")

	return cmd
}
