// Package engine implements the iron condor strategy: strike selection,
// basket placement, tick-driven risk monitoring and expiry-day scheduling.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"condor-trader/internal/broker"
	"condor-trader/internal/config"
	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/logging"
	"condor-trader/internal/models"
	"condor-trader/internal/notify"
	"condor-trader/internal/store"
	"condor-trader/pkg/utils"
)

const (
	// Exit and adjustment conditions must hold continuously this long
	// before acting.
	confirmationWindow = 10 * time.Second

	// A tier-2 short leg trading above this triggers the adjustment hedge.
	adjustmentThreshold = 100.0

	tickQueueSize = 1024
)

// Engine drives the iron condor lifecycle. A single mutex serializes every
// mutating operation; ticks are drained by one goroutine so they apply in
// arrival order.
type Engine struct {
	mu sync.Mutex

	cfg      config.TradingConfig
	market   broker.MarketData
	liveGW   broker.OrderGateway
	paperGW  broker.OrderGateway
	ticker   broker.Ticker
	store    store.Store
	notifier *notify.Dispatcher
	logger   zerolog.Logger

	// now is replaceable so confirmation windows are testable.
	now func() time.Time

	state models.EngineState
	legs  []models.Leg

	// Confirmation timers. Never persisted; a restart starts them over.
	profitSince  time.Time
	lossSince    time.Time
	adjustSince  map[uint32]time.Time
	adjustedFrom map[uint32]bool

	lastFlush time.Time

	// exiting is set under the mutex for the whole span of an ExitAll,
	// including the broker calls, so concurrent exit triggers cannot
	// double-close the basket.
	exiting bool

	ticks chan models.Tick
	done  chan struct{}
	wg    sync.WaitGroup
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Config   config.TradingConfig
	Market   broker.MarketData
	LiveGW   broker.OrderGateway
	PaperGW  broker.OrderGateway
	Ticker   broker.Ticker
	Store    store.Store
	Notifier *notify.Dispatcher
	Logger   zerolog.Logger
}

// New creates an engine in its zero state. Call Resume to hydrate from the
// store and Start to begin draining ticks.
func New(deps Deps) *Engine {
	return &Engine{
		cfg:      deps.Config,
		market:   deps.Market,
		liveGW:   deps.LiveGW,
		paperGW:  deps.PaperGW,
		ticker:   deps.Ticker,
		store:    deps.Store,
		notifier: deps.Notifier,
		logger:   deps.Logger.With().Str("component", "engine").Logger(),
		now:      time.Now,
		state: models.EngineState{
			Status:      models.StatusIdle,
			Virtual:     deps.Config.Mode != "live",
			EntryTime:   deps.Config.EntryTime,
			ExitTime:    deps.Config.ExitTime,
			TargetPnl:   deps.Config.TargetPnl,
			StopLossPnl: deps.Config.StopLossPnl,
		},
		adjustSince:  make(map[uint32]time.Time),
		adjustedFrom: make(map[uint32]bool),
		ticks:        make(chan models.Tick, tickQueueSize),
		done:         make(chan struct{}),
	}
}

// Resume hydrates state and legs from the store. The store is ground truth
// except for P&L, which is recomputed from the legs' last known prices.
// Control fields keep their config-seeded values until an operator has
// written the control row.
func (e *Engine) Resume(ctx context.Context) error {
	state, err := e.store.GetEngineState(ctx)
	if err != nil {
		return err
	}
	flags, err := e.store.GetControlFlags(ctx)
	if err != nil {
		return err
	}
	legs, err := e.store.GetLegs(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Status = state.Status
	e.state.TradePlaced = state.TradePlaced
	e.state.PeakProfit = state.PeakProfit
	e.state.PeakLoss = state.PeakLoss
	e.state.Expiry = state.Expiry
	e.state.EnteredAt = state.EnteredAt
	e.state.ExitedAt = state.ExitedAt
	if flags != nil {
		e.applyControlLocked(flags)
	}
	e.legs = legs
	e.state.Pnl = models.BasketPnL(legs)
	e.profitSince = time.Time{}
	e.lossSince = time.Time{}
	e.adjustSince = make(map[uint32]time.Time)
	e.adjustedFrom = make(map[uint32]bool)

	e.logger.Info().
		Str("status", string(e.state.Status)).
		Int("legs", len(legs)).
		Float64("pnl", e.state.Pnl).
		Msg("State resumed")
	return nil
}

// Start begins draining ticks and, when a basket is live, reconnects the
// ticker and resubscribes its tokens.
func (e *Engine) Start(ctx context.Context) error {
	e.ticker.OnTick(e.enqueueTick)
	e.ticker.OnError(func(err error) {
		e.logger.Warn().Err(err).Msg("Ticker error")
	})

	e.wg.Add(1)
	go e.drainTicks()

	e.mu.Lock()
	needStream := len(e.legs) > 0 &&
		(e.state.Status == models.StatusActive || e.state.Status == models.StatusEntryDone)
	tokens := e.legTokensLocked()
	e.mu.Unlock()

	if !needStream {
		return nil
	}

	if err := e.ticker.Connect(ctx); err != nil {
		return err
	}
	if err := e.ticker.Subscribe(tokens); err != nil {
		return err
	}

	e.mu.Lock()
	if e.state.Status == models.StatusEntryDone {
		e.transitionLocked(models.StatusActive, "monitoring resumed")
		e.flushStateLocked(ctx)
	}
	e.mu.Unlock()
	return nil
}

// Stop halts the tick drainer and disconnects the ticker. In-flight broker
// calls are never cancelled.
func (e *Engine) Stop() {
	close(e.done)
	e.wg.Wait()
	_ = e.ticker.Disconnect()
}

// Snapshot returns a copy of the engine state and legs.
func (e *Engine) Snapshot() (models.EngineState, []models.Leg) {
	e.mu.Lock()
	defer e.mu.Unlock()

	legs := make([]models.Leg, len(e.legs))
	copy(legs, e.legs)
	return e.state, legs
}

// Pause suspends monitoring and blocks order placement. Open positions are
// left untouched.
func (e *Engine) Pause(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Paused {
		return
	}
	e.state.Paused = true
	e.resetTimersLocked()
	e.flushControlLocked(ctx)
	e.logger.Info().Msg("Engine paused")
	e.systemLog(ctx, "Engine paused")
}

// ResumeMonitoring lifts a pause. Confirmation timers restart from zero.
func (e *Engine) ResumeMonitoring(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Paused {
		return
	}
	e.state.Paused = false
	e.resetTimersLocked()
	e.flushControlLocked(ctx)
	e.logger.Info().Msg("Engine resumed")
	e.systemLog(ctx, "Engine resumed")
}

// Reset clears a FORCE_EXITED engine back to IDLE so a fresh cycle can run.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status != models.StatusForceExited {
		return apperrors.ErrNotForceExited
	}

	e.transitionLocked(models.StatusIdle, "operator reset")
	e.state.TradePlaced = false
	e.state.Pnl = 0
	e.state.PeakProfit = 0
	e.state.PeakLoss = 0
	e.state.Expiry = ""
	e.state.EnteredAt = ""
	e.state.ExitedAt = ""
	e.legs = nil
	e.resetTimersLocked()
	e.flushAllLocked(ctx)
	e.systemLog(ctx, "Engine reset to IDLE")
	return nil
}

// UpdateSettings applies operator-tunable parameters and persists them.
func (e *Engine) UpdateSettings(ctx context.Context, s models.Settings) error {
	for _, t := range []string{s.EntryTime, s.ExitTime} {
		if t == "" {
			continue
		}
		if _, _, _, err := config.ParseClock(t); err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "bad clock %q", t)
		}
	}
	if s.StopLossPnl > 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "stop loss must be zero or negative")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s.EntryTime != "" {
		e.state.EntryTime = s.EntryTime
	}
	if s.ExitTime != "" {
		e.state.ExitTime = s.ExitTime
	}
	if s.TargetPnl != 0 {
		e.state.TargetPnl = s.TargetPnl
	}
	if s.StopLossPnl != 0 {
		e.state.StopLossPnl = s.StopLossPnl
	}
	if s.Virtual != nil {
		e.state.Virtual = *s.Virtual
	}
	e.flushControlLocked(ctx)
	return nil
}

// EvaluateExpiryDay checks the manual expiry list against today's IST date.
// On expiry day it moves to WAITING_FOR_EXPIRY and returns the next expiry
// as the selection target.
func (e *Engine) EvaluateExpiryDay(ctx context.Context) (isExpiryDay bool, target string, err error) {
	expiries, err := e.store.GetExpiries(ctx)
	if err != nil {
		return false, "", err
	}
	if len(expiries) == 0 {
		e.logger.Info().Msg("No manual expiries configured")
		return false, "", nil
	}

	first, err := utils.ParseExpiry(expiries[0])
	if err != nil {
		return false, "", err
	}
	if !utils.IsToday(first, e.now()) {
		e.logger.Info().Str("next_expiry", expiries[0]).Msg("Not an expiry day")
		e.mu.Lock()
		summary := fmt.Sprintf("Status %s, P&L %s, next expiry %s",
			e.state.Status, utils.FormatPnl(e.state.Pnl), expiries[0])
		e.mu.Unlock()
		e.notifier.Dispatch(notify.Notification{
			Kind:    notify.KindStatus,
			Title:   "Daily Summary",
			Message: summary,
		})
		return false, "", nil
	}

	if len(expiries) > 1 {
		target = expiries[1]
	}

	// IDLE and ACTIVE move to WAITING_FOR_EXPIRY; FORCE_EXITED stays put
	// until an operator reset.
	e.mu.Lock()
	if e.state.Status == models.StatusIdle || e.state.Status == models.StatusActive {
		e.transitionLocked(models.StatusWaitingForExpiry, "expiry day "+expiries[0])
		e.flushStateLocked(ctx)
	}
	e.mu.Unlock()

	e.logger.Info().
		Str("expiry", expiries[0]).
		Str("target", target).
		Msg("Expiry day detected")
	e.systemLog(ctx, fmt.Sprintf("Expiry day %s detected, next target %s", expiries[0], target))
	e.notifier.Dispatch(notify.Notification{
		Kind:    notify.KindStatus,
		Title:   "Expiry Day",
		Message: fmt.Sprintf("Triggers armed for %s, next cycle targets %s", expiries[0], target),
	})
	return true, target, nil
}

// ConsumeExpiry pops the front of the manual expiry list after an expiry day
// completes, keeping the remaining entries in order.
func (e *Engine) ConsumeExpiry(ctx context.Context) error {
	expiries, err := e.store.GetExpiries(ctx)
	if err != nil {
		return err
	}
	if len(expiries) == 0 {
		return nil
	}
	if err := e.store.ClearExpiries(ctx); err != nil {
		return err
	}
	for _, exp := range expiries[1:] {
		if err := e.store.AddExpiry(ctx, exp); err != nil {
			return err
		}
	}
	return nil
}

// SyncControlFlags re-reads the operator control row so a pause or settings
// change issued by another process takes effect in the running engine.
// Position and P&L fields are never taken from the store here.
func (e *Engine) SyncControlFlags(ctx context.Context) {
	flags, err := e.store.GetControlFlags(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Control flag sync failed")
		return
	}
	if flags == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if flags.Paused != e.state.Paused {
		e.logger.Info().Bool("paused", flags.Paused).Msg("Pause flag synced from store")
	}
	e.applyControlLocked(flags)
}

// applyControlLocked copies the operator control row into the in-memory
// state. A pause flip restarts the confirmation windows.
func (e *Engine) applyControlLocked(flags *models.ControlFlags) {
	if flags.Paused != e.state.Paused {
		e.state.Paused = flags.Paused
		e.resetTimersLocked()
	}
	e.state.Virtual = flags.Virtual
	e.state.EntryTime = flags.EntryTime
	e.state.ExitTime = flags.ExitTime
	e.state.TargetPnl = flags.TargetPnl
	e.state.StopLossPnl = flags.StopLossPnl
}

func (e *Engine) enqueueTick(tick models.Tick) {
	select {
	case e.ticks <- tick:
	default:
		// Queue full. Dropping the oldest semantics are not worth the
		// complexity; the next tick carries a fresher price anyway.
	}
}

func (e *Engine) drainTicks() {
	defer e.wg.Done()
	for {
		select {
		case tick := <-e.ticks:
			e.handleTick(tick)
		case <-e.done:
			return
		}
	}
}

// gateway returns the order gateway matching the current trading mode.
func (e *Engine) gatewayLocked() broker.OrderGateway {
	if e.state.Virtual {
		return e.paperGW
	}
	return e.liveGW
}

func (e *Engine) legTokensLocked() []uint32 {
	tokens := make([]uint32, 0, len(e.legs))
	for _, leg := range e.legs {
		tokens = append(tokens, leg.Token)
	}
	return tokens
}

func (e *Engine) transitionLocked(to models.Status, reason string) {
	from := e.state.Status
	if from == to {
		return
	}
	e.state.Status = to
	logging.LogTransition(e.logger, string(from), string(to), reason)
}

func (e *Engine) resetTimersLocked() {
	e.profitSince = time.Time{}
	e.lossSince = time.Time{}
	e.adjustSince = make(map[uint32]time.Time)
}

// systemLog appends to the persisted system log. Failures are logged and
// otherwise ignored; the store never blocks the engine.
func (e *Engine) systemLog(ctx context.Context, message string) {
	if err := e.store.AppendSystemLog(ctx, message); err != nil {
		e.logger.Warn().Err(err).Msg("System log write failed")
	}
}
