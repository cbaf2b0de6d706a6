package engine

import (
	"context"
	"time"

	"condor-trader/internal/models"
)

// Tick-path persistence is throttled; control-path mutations flush
// immediately.
const flushInterval = time.Second

// flushStateLocked writes the engine state row. Store failures are logged
// and swallowed; in-memory state stays authoritative.
func (e *Engine) flushStateLocked(ctx context.Context) {
	if err := e.store.SaveEngineState(ctx, &e.state); err != nil {
		e.logger.Warn().Err(err).Msg("State flush failed")
	}
}

// flushControlLocked writes the operator control row. Only control-path
// mutations call it; the tick path never writes these fields, so a pause
// or settings change from another process cannot be clobbered by a flush.
func (e *Engine) flushControlLocked(ctx context.Context) {
	flags := models.ControlFlags{
		Paused:      e.state.Paused,
		Virtual:     e.state.Virtual,
		EntryTime:   e.state.EntryTime,
		ExitTime:    e.state.ExitTime,
		TargetPnl:   e.state.TargetPnl,
		StopLossPnl: e.state.StopLossPnl,
	}
	if err := e.store.SaveControlFlags(ctx, &flags); err != nil {
		e.logger.Warn().Err(err).Msg("Control flush failed")
	}
}

// flushAllLocked writes the engine state and the full leg set.
func (e *Engine) flushAllLocked(ctx context.Context) {
	e.flushStateLocked(ctx)
	if err := e.store.ReplaceLegs(ctx, e.legs); err != nil {
		e.logger.Warn().Err(err).Msg("Leg flush failed")
	}
	e.lastFlush = e.now()
}

// flushThrottledLocked persists at most once per flushInterval. Ticks
// arrive far faster than SQLite should be written. Before overwriting the
// state row it checks whether another process force-closed the basket and,
// if so, adopts that terminal state instead of resurrecting stale legs.
func (e *Engine) flushThrottledLocked(ctx context.Context, now time.Time) {
	if now.Sub(e.lastFlush) < flushInterval {
		return
	}
	if stored, err := e.store.GetEngineState(ctx); err == nil && e.adoptExternalExitLocked(stored) {
		e.lastFlush = now
		return
	}
	e.flushAllLocked(ctx)
}

// adoptExternalExitLocked detects a terminal status written by another
// process (the CLI kill switch) while this engine still thinks the basket
// is live. The closed position record in the store wins.
func (e *Engine) adoptExternalExitLocked(stored *models.EngineState) bool {
	terminal := stored.Status == models.StatusForceExited || stored.Status == models.StatusExitDone
	if !terminal || e.state.Status != models.StatusActive {
		return false
	}
	e.legs = nil
	e.state.Status = stored.Status
	e.state.TradePlaced = stored.TradePlaced
	e.state.Pnl = stored.Pnl
	e.state.PeakProfit = stored.PeakProfit
	e.state.PeakLoss = stored.PeakLoss
	e.state.ExitedAt = stored.ExitedAt
	e.resetTimersLocked()
	e.logger.Warn().Str("status", string(stored.Status)).Msg("External exit adopted from store")
	return true
}
