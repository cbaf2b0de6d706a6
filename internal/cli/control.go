package cli

import (
	"github.com/spf13/cobra"
)

func newPauseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause monitoring and block order placement",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				rt.eng.Pause(cmd.Context())
				out.Success("Engine paused")
				return nil
			})
		},
	}
}

func newResumeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume monitoring after a pause",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				rt.eng.ResumeMonitoring(cmd.Context())
				out.Success("Engine resumed")
				return nil
			})
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset a force-exited engine back to IDLE",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				if err := rt.eng.Reset(cmd.Context()); err != nil {
					return err
				}
				out.Success("Engine reset to IDLE")
				return nil
			})
		},
	}
}

func newSelectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "select <expiry>",
		Short: "Select condor strikes for an expiry (DD-MMM-YYYY)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				if err := rt.eng.SelectStrikes(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, legs := rt.eng.Snapshot()
				out.Success("Selected %d legs for %s", len(legs), args[0])
				return nil
			})
		},
	}
}

func newPlaceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "place",
		Short: "Place the selected basket",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				if err := rt.eng.PlaceOrder(cmd.Context()); err != nil {
					return err
				}
				out.Success("Basket placed")
				return nil
			})
		},
	}
}

func newExitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "Exit all open legs immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return app.withEngine(cmd, func(rt *runtime) error {
				if err := rt.eng.ExitAllManual(cmd.Context()); err != nil {
					return err
				}
				state, _ := rt.eng.Snapshot()
				out.Success("All positions exited, final P&L %.2f", state.Pnl)
				return nil
			})
		},
	}
}

// withEngine hydrates an engine from the store, runs fn and tears down. The
// control surface is per-invocation; the run daemon picks flag changes up
// through its store sync.
func (a *App) withEngine(cmd *cobra.Command, fn func(*runtime) error) error {
	rt, err := a.buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.eng.Resume(cmd.Context()); err != nil {
		return err
	}
	return fn(rt)
}
