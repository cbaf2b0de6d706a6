package engine

import (
	"context"
	"fmt"

	"condor-trader/internal/broker"
	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/logging"
	"condor-trader/internal/models"
	"condor-trader/internal/notify"
	"condor-trader/pkg/utils"
)

// PlaceOrder executes the selected basket. Guards run in a fixed order:
// authentication, pause, lifecycle status, the one-shot trade flag, then the
// live margin gate. BUY legs go first so short legs are always covered. A
// leg failure aborts the remaining legs and leaves the placed ones alone.
func (e *Engine) PlaceOrder(ctx context.Context) error {
	e.mu.Lock()

	gw := e.gatewayLocked()
	if !gw.IsAuthenticated() {
		e.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
	if e.state.Paused {
		e.mu.Unlock()
		return apperrors.ErrPaused
	}
	if e.state.Status == models.StatusActive || e.state.Status == models.StatusEntryDone {
		e.mu.Unlock()
		e.logger.Info().Str("status", string(e.state.Status)).Msg("Placement skipped, basket already live")
		return nil
	}
	if e.state.TradePlaced {
		e.mu.Unlock()
		e.logger.Info().Msg("Placement skipped, trade already placed this cycle")
		return nil
	}
	if len(e.legs) == 0 {
		e.mu.Unlock()
		return apperrors.ErrNoLegs
	}

	legs := make([]models.Leg, len(e.legs))
	copy(legs, e.legs)
	virtual := e.state.Virtual
	e.mu.Unlock()

	if err := e.checkMargin(ctx, gw, legs); err != nil {
		return err
	}

	ordered := buysFirst(legs)
	placed := 0
	fills := make(map[uint32]models.OrderFill, len(ordered))

	for _, leg := range ordered {
		leg := leg
		fill, err := gw.PlaceMarketOrder(ctx, &leg)
		if err != nil {
			e.recordPlacementFailure(ctx, leg, placed, err)
			return apperrors.NewLegExecutionError(leg.Symbol, string(leg.Side), placed, err)
		}
		placed++
		fills[leg.Token] = *fill

		logging.LogOrder(e.logger, fill.OrderID, leg.Symbol, string(leg.Side), leg.Quantity, fill.FillPrice)
		e.appendOrderLog(ctx, &models.OrderLogEntry{
			OrderID:  fill.OrderID,
			Symbol:   leg.Symbol,
			Side:     leg.Side,
			Quantity: leg.Quantity,
			Price:    fill.FillPrice,
			Virtual:  virtual,
			Note:     "entry",
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.legs {
		if fill, ok := fills[e.legs[i].Token]; ok {
			e.legs[i].EntryPrice = fill.FillPrice
			e.legs[i].LTP = fill.FillPrice
		}
	}
	e.state.TradePlaced = true
	e.state.Pnl = 0
	e.state.PeakProfit = 0
	e.state.PeakLoss = 0
	e.state.EnteredAt = e.now().In(utils.IndiaLocation).Format("15:04:05")
	e.state.ExitedAt = ""
	e.resetTimersLocked()
	e.adjustedFrom = make(map[uint32]bool)
	e.transitionLocked(models.StatusEntryDone, "basket placed")
	e.flushAllLocked(ctx)
	e.systemLog(ctx, fmt.Sprintf("Basket placed: %d legs", placed))

	e.notifier.Dispatch(notify.Notification{
		Kind:    notify.KindTrade,
		Title:   "Iron Condor Entered",
		Message: fmt.Sprintf("%d legs placed for expiry %s", placed, e.state.Expiry),
	})
	return nil
}

// StartMonitoring connects the ticker, subscribes the basket tokens and
// moves the engine to ACTIVE.
func (e *Engine) StartMonitoring(ctx context.Context) error {
	e.mu.Lock()
	if e.state.Status != models.StatusEntryDone {
		e.mu.Unlock()
		return nil
	}
	tokens := e.legTokensLocked()
	e.mu.Unlock()

	if err := e.ticker.Connect(ctx); err != nil {
		return err
	}
	if err := e.ticker.Subscribe(tokens); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitionLocked(models.StatusActive, "monitoring started")
	e.flushStateLocked(ctx)
	return nil
}

// checkMargin compares the basket's required margin against available funds.
// Virtual mode uses the paper gateway, which always passes.
func (e *Engine) checkMargin(ctx context.Context, gw broker.OrderGateway, legs []models.Leg) error {
	required, err := gw.GetBasketMargin(ctx, legs)
	if err != nil {
		return err
	}
	available, err := gw.GetAvailableMargin(ctx)
	if err != nil {
		return err
	}
	if required > available {
		e.logger.Warn().
			Float64("required", required).
			Float64("available", available).
			Msg("Insufficient Margin")
		e.notifier.Dispatch(notify.Notification{
			Kind:    notify.KindError,
			Title:   "Insufficient Margin",
			Message: fmt.Sprintf("Required %s, available %s", utils.FormatIndianCurrency(required), utils.FormatIndianCurrency(available)),
		})
		return apperrors.Wrapf(apperrors.ErrInsufficientMargin, "required %.2f, available %.2f", required, available)
	}
	return nil
}

func (e *Engine) recordPlacementFailure(ctx context.Context, leg models.Leg, placed int, err error) {
	e.logger.Error().
		Err(err).
		Str("symbol", leg.Symbol).
		Str("side", string(leg.Side)).
		Int("placed", placed).
		Msg("Leg placement failed, aborting remaining legs")
	e.systemLog(ctx, fmt.Sprintf("Leg placement failed for %s %s after %d fills: %v", leg.Side, leg.Symbol, placed, err))
	e.notifier.Dispatch(notify.Notification{
		Kind:    notify.KindError,
		Title:   "Leg Placement Failed",
		Message: fmt.Sprintf("%s %s failed after %d fills; placed legs left open", leg.Side, leg.Symbol, placed),
	})
}

func (e *Engine) appendOrderLog(ctx context.Context, entry *models.OrderLogEntry) {
	if err := e.store.AppendOrderLog(ctx, entry); err != nil {
		e.logger.Warn().Err(err).Msg("Order log write failed")
	}
}

// buysFirst orders legs BUY before SELL, preserving relative order within
// each side.
func buysFirst(legs []models.Leg) []models.Leg {
	ordered := make([]models.Leg, 0, len(legs))
	for _, l := range legs {
		if l.Side == models.SideBuy {
			ordered = append(ordered, l)
		}
	}
	for _, l := range legs {
		if l.Side == models.SideSell {
			ordered = append(ordered, l)
		}
	}
	return ordered
}
