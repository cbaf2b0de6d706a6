package engine

import (
	"context"
	"fmt"
	"time"

	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/logging"
	"condor-trader/internal/models"
	"condor-trader/internal/notify"
	"condor-trader/pkg/utils"
)

// handleTick applies one market data update: refresh the leg's price,
// recompute P&L and peaks, then evaluate the adjustment and exit rules.
// Everything after the price update is skipped while paused.
func (e *Engine) handleTick(tick models.Tick) {
	ctx := context.Background()

	e.mu.Lock()

	if e.state.Status != models.StatusActive || e.exiting {
		e.mu.Unlock()
		return
	}

	updated := false
	for i := range e.legs {
		if e.legs[i].Token == tick.Token {
			e.legs[i].LTP = tick.LTP
			updated = true
			break
		}
	}
	if !updated {
		e.mu.Unlock()
		return
	}

	if e.state.Paused {
		e.mu.Unlock()
		return
	}

	e.state.Pnl = models.BasketPnL(e.legs)
	if e.state.Pnl > e.state.PeakProfit {
		e.state.PeakProfit = e.state.Pnl
	}
	if e.state.Pnl < e.state.PeakLoss {
		e.state.PeakLoss = e.state.Pnl
	}

	now := e.now()
	adjustLeg := e.evaluateAdjustmentLocked(tick, now)
	exitReason := e.evaluateExitLocked(now)

	e.flushThrottledLocked(ctx, now)
	e.mu.Unlock()

	if adjustLeg != nil {
		e.placeAdjustment(ctx, *adjustLeg)
	}
	if exitReason != "" {
		if err := e.ExitAll(ctx, exitReason, models.StatusForceExited); err != nil {
			e.logger.Error().Err(err).Str("reason", exitReason).Msg("Forced exit failed")
		}
	}
}

// evaluateAdjustmentLocked tracks how long each tier-2 short leg has traded
// above the threshold. A dip back to or below it resets the clock. Returns
// the leg whose hedge should be bought now, if any.
func (e *Engine) evaluateAdjustmentLocked(tick models.Tick, now time.Time) *models.Leg {
	for i := range e.legs {
		leg := &e.legs[i]
		if leg.Token != tick.Token {
			continue
		}
		if leg.Tier != models.TierHedge || leg.Side != models.SideSell {
			return nil
		}
		if e.adjustedFrom[leg.Token] {
			return nil
		}

		if leg.LTP <= adjustmentThreshold {
			delete(e.adjustSince, leg.Token)
			return nil
		}

		since, ok := e.adjustSince[leg.Token]
		if !ok {
			e.adjustSince[leg.Token] = now
			return nil
		}
		if now.Sub(since) < confirmationWindow {
			return nil
		}

		e.adjustedFrom[leg.Token] = true
		delete(e.adjustSince, leg.Token)
		legCopy := *leg
		return &legCopy
	}
	return nil
}

// evaluateExitLocked runs the profit and loss confirmation windows. Each
// condition must hold continuously; a single tick on the wrong side resets
// its timer.
func (e *Engine) evaluateExitLocked(now time.Time) string {
	// Both thresholds are strict: sitting exactly on the target or the
	// stop does not start a window.
	if e.state.TargetPnl != 0 && e.state.Pnl > e.state.TargetPnl {
		if e.profitSince.IsZero() {
			e.profitSince = now
		} else if now.Sub(e.profitSince) >= confirmationWindow {
			return "Profit Target Achieved (10s confirmation)"
		}
	} else {
		e.profitSince = time.Time{}
	}

	if e.state.StopLossPnl != 0 && e.state.Pnl < e.state.StopLossPnl {
		if e.lossSince.IsZero() {
			e.lossSince = now
		} else if now.Sub(e.lossSince) >= confirmationWindow {
			return "Loss Limit Hit (10s confirmation)"
		}
	} else {
		e.lossSince = time.Time{}
	}

	return ""
}

// placeAdjustment buys a hedge one strike further OTM than the breached
// short leg. A margin shortfall or missing contract skips the hedge and
// notifies; the basket keeps running.
func (e *Engine) placeAdjustment(ctx context.Context, breached models.Leg) {
	e.mu.Lock()
	if e.exiting {
		e.mu.Unlock()
		return
	}
	expiry := e.state.Expiry
	virtual := e.state.Virtual
	gw := e.gatewayLocked()
	e.mu.Unlock()

	target := breached.Strike + e.cfg.StrikeStep
	if breached.OptionType == models.OptionPE {
		target = breached.Strike - e.cfg.StrikeStep
	}

	chain, err := e.market.GetOptionChain(ctx, expiry, target, 1)
	if err != nil {
		e.logger.Error().Err(err).Float64("strike", target).Msg("Adjustment chain lookup failed")
		return
	}

	var contract *models.ChainEntry
	for i := range chain {
		if chain[i].OptionType == breached.OptionType && chain[i].Strike == target {
			contract = &chain[i]
			break
		}
	}
	if contract == nil {
		e.logger.Warn().
			Float64("strike", target).
			Str("type", string(breached.OptionType)).
			Msg("Adjustment contract not found")
		return
	}

	quote, err := e.market.GetQuote(ctx, models.NFO, contract.Symbol)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", contract.Symbol).Msg("Adjustment quote failed")
		return
	}

	hedge := models.Leg{
		Token:      contract.Token,
		Symbol:     contract.Symbol,
		OptionType: contract.OptionType,
		Side:       models.SideBuy,
		Strike:     contract.Strike,
		EntryPrice: quote.LTP,
		LTP:        quote.LTP,
		Quantity:   breached.Quantity,
		Tier:       models.TierAdjustment,
	}

	if err := e.checkMargin(ctx, gw, []models.Leg{hedge}); err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientMargin) {
			e.logger.Warn().Str("symbol", hedge.Symbol).Msg("Adjustment skipped, margin short")
			return
		}
		e.logger.Error().Err(err).Msg("Adjustment margin check failed")
		return
	}

	fill, err := gw.PlaceMarketOrder(ctx, &hedge)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", hedge.Symbol).Msg("Adjustment order failed")
		e.notifier.Dispatch(notify.Notification{
			Kind:    notify.KindError,
			Title:   "Adjustment Failed",
			Message: fmt.Sprintf("BUY %s failed: %v", hedge.Symbol, err),
		})
		return
	}

	hedge.EntryPrice = fill.FillPrice
	hedge.LTP = fill.FillPrice

	logging.LogOrder(e.logger, fill.OrderID, hedge.Symbol, string(hedge.Side), hedge.Quantity, fill.FillPrice)
	e.appendOrderLog(ctx, &models.OrderLogEntry{
		OrderID:  fill.OrderID,
		Symbol:   hedge.Symbol,
		Side:     hedge.Side,
		Quantity: hedge.Quantity,
		Price:    fill.FillPrice,
		Virtual:  virtual,
		Note:     "adjustment",
	})

	e.mu.Lock()
	e.legs = append(e.legs, hedge)
	e.flushAllLocked(ctx)
	e.mu.Unlock()

	if err := e.ticker.Subscribe([]uint32{hedge.Token}); err != nil {
		e.logger.Warn().Err(err).Str("symbol", hedge.Symbol).Msg("Adjustment subscribe failed")
	}

	e.systemLog(ctx, fmt.Sprintf("Adjustment hedge bought: %s at %.2f (short %s breached)", hedge.Symbol, fill.FillPrice, breached.Symbol))
	e.notifier.Dispatch(notify.Notification{
		Kind:    notify.KindTrade,
		Title:   "Adjustment Hedge Bought",
		Message: fmt.Sprintf("%s breached %.0f, bought %s", breached.Symbol, adjustmentThreshold, hedge.Symbol),
	})
}

// ExitAllOnExpiry is the 12:45 expiry-day exit. It lands in EXIT_DONE
// whatever the current status, including when there was nothing to close.
func (e *Engine) ExitAllOnExpiry(ctx context.Context) error {
	return e.ExitAll(ctx, "Expiry Day Exit", models.StatusExitDone)
}

// ExitAllManual is the operator kill switch.
func (e *Engine) ExitAllManual(ctx context.Context) error {
	return e.ExitAll(ctx, "Manual Exit", models.StatusForceExited)
}

// ExitAll closes every leg with an opposite market order, BUY closes first
// so shorts are covered before long protection goes. The basket is cleared
// and the engine lands in the given terminal status regardless of partial
// close failures. Only one exit can be in flight at a time; a trigger that
// arrives while another exit holds the claim is a no-op.
func (e *Engine) ExitAll(ctx context.Context, reason string, terminal models.Status) error {
	e.mu.Lock()

	if e.exiting {
		e.mu.Unlock()
		e.logger.Info().Str("reason", reason).Msg("Exit already in progress, skipping")
		return nil
	}

	if len(e.legs) == 0 {
		e.transitionLocked(terminal, reason)
		e.state.ExitedAt = e.now().In(utils.IndiaLocation).Format("15:04:05")
		e.flushStateLocked(ctx)
		e.mu.Unlock()
		return nil
	}

	e.exiting = true
	legs := make([]models.Leg, len(e.legs))
	copy(legs, e.legs)
	finalPnl := models.BasketPnL(legs)
	virtual := e.state.Virtual
	gw := e.gatewayLocked()
	tokens := e.legTokensLocked()
	e.mu.Unlock()

	closing := make([]models.Leg, 0, len(legs))
	for _, leg := range legs {
		c := leg
		if leg.Side == models.SideBuy {
			c.Side = models.SideSell
		} else {
			c.Side = models.SideBuy
		}
		c.EntryPrice = leg.LTP
		closing = append(closing, c)
	}

	var firstErr error
	for _, leg := range buysFirst(closing) {
		leg := leg
		fill, err := gw.PlaceMarketOrder(ctx, &leg)
		if err != nil {
			e.logger.Error().Err(err).Str("symbol", leg.Symbol).Msg("Exit order failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logging.LogOrder(e.logger, fill.OrderID, leg.Symbol, string(leg.Side), leg.Quantity, fill.FillPrice)
		e.appendOrderLog(ctx, &models.OrderLogEntry{
			OrderID:  fill.OrderID,
			Symbol:   leg.Symbol,
			Side:     leg.Side,
			Quantity: leg.Quantity,
			Price:    fill.FillPrice,
			Virtual:  virtual,
			Note:     "exit: " + reason,
		})
	}

	if err := e.ticker.Unsubscribe(tokens); err != nil {
		e.logger.Warn().Err(err).Msg("Unsubscribe failed during exit")
	}

	e.mu.Lock()
	e.exiting = false
	e.legs = nil
	e.state.Pnl = finalPnl
	e.state.ExitedAt = e.now().In(utils.IndiaLocation).Format("15:04:05")
	e.resetTimersLocked()
	e.transitionLocked(terminal, reason)
	e.flushAllLocked(ctx)
	e.mu.Unlock()

	logging.LogExit(e.logger, reason, finalPnl, len(legs))
	e.systemLog(ctx, fmt.Sprintf("All positions exited (%s), final P&L %.2f", reason, finalPnl))
	e.mu.Lock()
	peakProfit, peakLoss := e.state.PeakProfit, e.state.PeakLoss
	e.mu.Unlock()
	e.notifier.Dispatch(notify.Notification{
		Kind:    notify.KindExit,
		Title:   reason,
		Message: fmt.Sprintf("Closed %d legs (peak %s / %s)", len(legs), utils.FormatPnl(peakProfit), utils.FormatPnl(peakLoss)),
		Pnl:     finalPnl,
	})

	return firstErr
}
