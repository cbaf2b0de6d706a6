package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"condor-trader/internal/config"
	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
	"condor-trader/internal/notify"
	"condor-trader/internal/store"

	"github.com/rs/zerolog"
)

type fakeMarket struct {
	spot   float64
	chain  []models.ChainEntry
	quotes map[string]float64
	authed bool
}

func (f *fakeMarket) IsAuthenticated() bool { return f.authed }

func (f *fakeMarket) GetSpot(ctx context.Context, symbol string) (float64, error) {
	return f.spot, nil
}

func (f *fakeMarket) GetQuote(ctx context.Context, exchange models.Exchange, symbol string) (*models.Quote, error) {
	price, ok := f.quotes[symbol]
	if !ok {
		return nil, apperrors.ErrNoLiveQuotes
	}
	var token uint32
	for _, c := range f.chain {
		if c.Symbol == symbol {
			token = c.Token
			break
		}
	}
	return &models.Quote{Token: token, Symbol: symbol, LTP: price}, nil
}

func (f *fakeMarket) GetOptionChain(ctx context.Context, expiry string, anchorStrike float64, window int) ([]models.ChainEntry, error) {
	if len(f.chain) == 0 {
		return nil, apperrors.ErrEmptyChain
	}
	return f.chain, nil
}

type placedOrder struct {
	symbol string
	side   models.OrderSide
	qty    int
}

type fakeGateway struct {
	mu        sync.Mutex
	authed    bool
	required  float64
	available float64
	fillAt    map[string]float64
	failAfter int // fail the Nth order (1-based); 0 disables
	placed    []placedOrder
	nextID    int

	// entered receives a signal when an order arrives; release, when set,
	// holds every order until closed. Used to pin an exit mid-flight.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeGateway) IsAuthenticated() bool { return f.authed }

func (f *fakeGateway) PlaceMarketOrder(ctx context.Context, leg *models.Leg) (*models.OrderFill, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAfter > 0 && len(f.placed)+1 == f.failAfter {
		return nil, apperrors.NewBrokerError("order", "rejected", nil)
	}

	f.placed = append(f.placed, placedOrder{symbol: leg.Symbol, side: leg.Side, qty: leg.Quantity})
	f.nextID++

	price := leg.EntryPrice
	if p, ok := f.fillAt[leg.Symbol]; ok {
		price = p
	}
	return &models.OrderFill{
		OrderID:   fmt.Sprintf("fake-%d", f.nextID),
		FillPrice: price,
	}, nil
}

func (f *fakeGateway) GetBasketMargin(ctx context.Context, legs []models.Leg) (float64, error) {
	return f.required, nil
}

func (f *fakeGateway) GetAvailableMargin(ctx context.Context) (float64, error) {
	return f.available, nil
}

func (f *fakeGateway) orders() []placedOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]placedOrder, len(f.placed))
	copy(out, f.placed)
	return out
}

type fakeTicker struct {
	mu           sync.Mutex
	subscribed   map[uint32]bool
	tickHandler  func(models.Tick)
	errorHandler func(error)
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{subscribed: make(map[uint32]bool)}
}

func (f *fakeTicker) Connect(ctx context.Context) error { return nil }
func (f *fakeTicker) Disconnect() error                 { return nil }

func (f *fakeTicker) Subscribe(tokens []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tokens {
		f.subscribed[t] = true
	}
	return nil
}

func (f *fakeTicker) Unsubscribe(tokens []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tokens {
		delete(f.subscribed, t)
	}
	return nil
}

func (f *fakeTicker) OnTick(handler func(models.Tick)) { f.tickHandler = handler }
func (f *fakeTicker) OnError(handler func(error))      { f.errorHandler = handler }

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testConfig() config.TradingConfig {
	return config.TradingConfig{
		Mode:          "live",
		Underlying:    "NSE:NIFTY 50",
		ChainName:     "NIFTY",
		LotSize:       50,
		StrikeStep:    50,
		ChainWindow:   12,
		EvalTime:      "09:00:00",
		ExitTime:      "12:45:00",
		SelectionTime: "12:59:30",
		EntryTime:     "13:00:00",
		TargetPnl:     3000,
		StopLossPnl:   -2000,
	}
}

func testEngine(t *testing.T, cfg config.TradingConfig, market *fakeMarket, gw *fakeGateway) (*Engine, *fakeTicker) {
	t.Helper()
	return testEngineWithStore(t, cfg, market, gw, testStore(t))
}

// testEngineWithStore builds an engine over a caller-supplied store so two
// engines can share one database like separate processes do.
func testEngineWithStore(t *testing.T, cfg config.TradingConfig, market *fakeMarket, gw *fakeGateway, st store.Store) (*Engine, *fakeTicker) {
	t.Helper()

	ticker := newFakeTicker()
	dispatcher := notify.NewDispatcher(&notify.NoOpNotifier{}, 16, zerolog.Nop())
	t.Cleanup(dispatcher.Close)

	eng := New(Deps{
		Config:   cfg,
		Market:   market,
		LiveGW:   gw,
		PaperGW:  gw,
		Ticker:   ticker,
		Store:    st,
		Notifier: dispatcher,
		Logger:   zerolog.Nop(),
	})
	return eng, ticker
}
