package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"condor-trader/internal/config"
	"condor-trader/internal/scheduler"
)

// Strike selection waits this long after its trigger fires before querying
// prices, letting the pre-entry spike settle.
const selectionSettleDelay = 30 * time.Second

// controlSyncInterval is how often the daemon re-reads operator flags
// written by other processes.
const controlSyncInterval = 2 * time.Second

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the trading engine daemon",
		Long: `Run the engine: resume persisted state, evaluate the expiry
calendar daily and arm the expiry-day triggers for exit, strike selection
and order placement.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runDaemon(cmd)
		},
	}
}

func (a *App) runDaemon(cmd *cobra.Command) error {
	out := NewOutput(cmd)

	rt, err := a.buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := rt.eng.Resume(ctx); err != nil {
		return err
	}
	if err := rt.eng.Start(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Tick stream unavailable at startup")
	}
	defer rt.eng.Stop()

	sched := scheduler.New(a.logger)
	defer sched.CancelAll()

	evalH, evalM, evalS, err := config.ParseClock(a.cfg.Trading.EvalTime)
	if err != nil {
		return err
	}

	evaluate := func() { a.evaluateDay(ctx, rt, sched) }
	sched.Daily(evalH, evalM, evalS, "expiry-eval", evaluate)

	// Also evaluate immediately so a midday restart re-arms today's
	// triggers.
	evaluate()

	go a.syncControlFlags(ctx, rt)

	out.Info("Engine running. Ctrl-C to stop.")
	a.logger.Info().Str("version", a.version).Msg("Daemon started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		a.logger.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
	}
	return nil
}

// evaluateDay re-arms the expiry-day triggers. Each trigger re-checks the
// engine's guards when it fires; arming is not a commitment to act.
func (a *App) evaluateDay(ctx context.Context, rt *runtime, sched *scheduler.Scheduler) {
	sched.Cancel("expiry-exit")
	sched.Cancel("strike-selection")
	sched.Cancel("order-placement")

	isExpiryDay, target, err := rt.eng.EvaluateExpiryDay(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Expiry evaluation failed")
		return
	}
	if !isExpiryDay {
		return
	}

	state, _ := rt.eng.Snapshot()

	exitH, exitM, exitS, err := config.ParseClock(state.ExitTime)
	if err != nil {
		a.logger.Error().Err(err).Str("exit_time", state.ExitTime).Msg("Bad exit time")
		return
	}
	selH, selM, selS, err := config.ParseClock(a.cfg.Trading.SelectionTime)
	if err != nil {
		a.logger.Error().Err(err).Msg("Bad selection time")
		return
	}
	entryH, entryM, entryS, err := config.ParseClock(state.EntryTime)
	if err != nil {
		a.logger.Error().Err(err).Str("entry_time", state.EntryTime).Msg("Bad entry time")
		return
	}

	sched.At(exitH, exitM, exitS, "expiry-exit", func() {
		if err := rt.eng.ExitAllOnExpiry(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Expiry day exit failed")
		}
	})

	sched.At(selH, selM, selS, "strike-selection", func() {
		time.Sleep(selectionSettleDelay)
		if err := rt.eng.SelectStrikes(ctx, target); err != nil {
			a.logger.Error().Err(err).Msg("Strike selection failed")
		}
	})

	sched.At(entryH, entryM, entryS, "order-placement", func() {
		if err := rt.eng.PlaceOrder(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Order placement failed")
			return
		}
		if err := rt.eng.StartMonitoring(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Monitoring start failed")
		}
		if err := rt.eng.ConsumeExpiry(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Expiry list rotation failed")
		}
	})
}

func (a *App) syncControlFlags(ctx context.Context, rt *runtime) {
	ticker := time.NewTicker(controlSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.eng.SyncControlFlags(ctx)
		}
	}
}
