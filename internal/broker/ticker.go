package broker

import (
	"context"
	"sync"
	"time"

	kitemodels "github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
)

// ZerodhaTicker wraps the Kite websocket ticker behind the Ticker interface.
type ZerodhaTicker struct {
	ticker *kiteticker.Ticker

	tickHandler  func(models.Tick)
	errorHandler func(error)

	subscribed map[uint32]struct{}
	connected  bool

	mu sync.RWMutex
}

// ZerodhaTickerConfig holds websocket ticker configuration.
type ZerodhaTickerConfig struct {
	APIKey      string
	AccessToken string
}

// NewZerodhaTicker creates a websocket ticker client. Connect must be called
// before Subscribe takes effect.
func NewZerodhaTicker(cfg ZerodhaTickerConfig) *ZerodhaTicker {
	t := &ZerodhaTicker{
		ticker:     kiteticker.New(cfg.APIKey, cfg.AccessToken),
		subscribed: make(map[uint32]struct{}),
	}

	t.ticker.SetReconnectMaxRetries(10)
	t.ticker.SetReconnectMaxDelay(30 * time.Second)

	t.ticker.OnTick(t.handleTick)
	t.ticker.OnError(t.handleError)
	t.ticker.OnConnect(t.handleConnect)
	t.ticker.OnReconnect(t.handleReconnect)
	t.ticker.OnNoReconnect(t.handleNoReconnect)

	return t
}

// Connect starts the websocket connection and waits until it is established.
func (t *ZerodhaTicker) Connect(ctx context.Context) error {
	go t.ticker.Serve()

	deadline := time.After(15 * time.Second)
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return apperrors.ErrConnectionFailed
		case <-poll.C:
			t.mu.RLock()
			connected := t.connected
			t.mu.RUnlock()
			if connected {
				return nil
			}
		}
	}
}

// Disconnect stops the websocket connection.
func (t *ZerodhaTicker) Disconnect() error {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
	t.ticker.Stop()
	return nil
}

// Subscribe subscribes to LTP updates for the given instrument tokens.
func (t *ZerodhaTicker) Subscribe(tokens []uint32) error {
	if len(tokens) == 0 {
		return nil
	}

	t.mu.Lock()
	for _, token := range tokens {
		t.subscribed[token] = struct{}{}
	}
	connected := t.connected
	t.mu.Unlock()

	if !connected {
		// Queued locally; resubscribed on connect.
		return nil
	}

	if err := t.ticker.Subscribe(tokens); err != nil {
		return apperrors.NewBrokerError("ticker", "subscribing tokens", err)
	}
	if err := t.ticker.SetMode(kiteticker.ModeLTP, tokens); err != nil {
		return apperrors.NewBrokerError("ticker", "setting LTP mode", err)
	}
	return nil
}

// Unsubscribe stops updates for the given instrument tokens.
func (t *ZerodhaTicker) Unsubscribe(tokens []uint32) error {
	if len(tokens) == 0 {
		return nil
	}

	t.mu.Lock()
	for _, token := range tokens {
		delete(t.subscribed, token)
	}
	connected := t.connected
	t.mu.Unlock()

	if !connected {
		return nil
	}

	if err := t.ticker.Unsubscribe(tokens); err != nil {
		return apperrors.NewBrokerError("ticker", "unsubscribing tokens", err)
	}
	return nil
}

// OnTick registers the tick handler.
func (t *ZerodhaTicker) OnTick(handler func(models.Tick)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickHandler = handler
}

// OnError registers the error handler.
func (t *ZerodhaTicker) OnError(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *ZerodhaTicker) handleTick(tick kitemodels.Tick) {
	t.mu.RLock()
	handler := t.tickHandler
	t.mu.RUnlock()

	if handler == nil {
		return
	}

	handler(models.Tick{
		Token:     tick.InstrumentToken,
		LTP:       tick.LastPrice,
		Timestamp: tick.Timestamp.Time,
	})
}

func (t *ZerodhaTicker) handleError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()

	if handler != nil {
		handler(err)
	}
}

func (t *ZerodhaTicker) handleConnect() {
	t.mu.Lock()
	t.connected = true
	tokens := t.subscribedTokensLocked()
	t.mu.Unlock()

	t.resubscribe(tokens)
}

func (t *ZerodhaTicker) handleReconnect(attempt int, delay time.Duration) {
	t.mu.Lock()
	t.connected = true
	tokens := t.subscribedTokensLocked()
	t.mu.Unlock()

	t.resubscribe(tokens)
}

func (t *ZerodhaTicker) handleNoReconnect(attempt int) {
	t.mu.Lock()
	t.connected = false
	handler := t.errorHandler
	t.mu.Unlock()

	if handler != nil {
		handler(apperrors.ErrConnectionFailed)
	}
}

func (t *ZerodhaTicker) subscribedTokensLocked() []uint32 {
	tokens := make([]uint32, 0, len(t.subscribed))
	for token := range t.subscribed {
		tokens = append(tokens, token)
	}
	return tokens
}

func (t *ZerodhaTicker) resubscribe(tokens []uint32) {
	if len(tokens) == 0 {
		return
	}
	if err := t.ticker.Subscribe(tokens); err != nil {
		t.handleError(err)
		return
	}
	if err := t.ticker.SetMode(kiteticker.ModeLTP, tokens); err != nil {
		t.handleError(err)
	}
}

// Ensure ZerodhaTicker implements the Ticker interface
var _ Ticker = (*ZerodhaTicker)(nil)
