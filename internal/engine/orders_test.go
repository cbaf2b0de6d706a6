package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
)

func plannedBasket() []models.Leg {
	return []models.Leg{
		{Token: 1, Symbol: "NIFTY24900CE", OptionType: models.OptionCE, Side: models.SideBuy, Strike: 24900, EntryPrice: 150, LTP: 150, Quantity: 50, Tier: models.TierCore},
		{Token: 2, Symbol: "NIFTY24950CE", OptionType: models.OptionCE, Side: models.SideSell, Strike: 24950, EntryPrice: 128, LTP: 128, Quantity: 50, Tier: models.TierCore},
		{Token: 3, Symbol: "NIFTY25100PE", OptionType: models.OptionPE, Side: models.SideBuy, Strike: 25100, EntryPrice: 150, LTP: 150, Quantity: 50, Tier: models.TierCore},
		{Token: 4, Symbol: "NIFTY25050PE", OptionType: models.OptionPE, Side: models.SideSell, Strike: 25050, EntryPrice: 128, LTP: 128, Quantity: 50, Tier: models.TierCore},
		{Token: 5, Symbol: "NIFTY25000CE", OptionType: models.OptionCE, Side: models.SideSell, Strike: 25000, EntryPrice: 75, LTP: 75, Quantity: 50, Tier: models.TierHedge},
		{Token: 6, Symbol: "NIFTY25200CE", OptionType: models.OptionCE, Side: models.SideBuy, Strike: 25200, EntryPrice: 7, LTP: 7, Quantity: 50, Tier: models.TierHedge},
		{Token: 7, Symbol: "NIFTY25000PE", OptionType: models.OptionPE, Side: models.SideSell, Strike: 25000, EntryPrice: 75, LTP: 75, Quantity: 50, Tier: models.TierHedge},
		{Token: 8, Symbol: "NIFTY24800PE", OptionType: models.OptionPE, Side: models.SideBuy, Strike: 24800, EntryPrice: 7, LTP: 7, Quantity: 50, Tier: models.TierHedge},
	}
}

func withBasket(eng *Engine, legs []models.Leg) {
	eng.mu.Lock()
	eng.legs = legs
	eng.state.Expiry = "29-JAN-2026"
	eng.mu.Unlock()
}

func TestPlaceOrderBuysBeforeSells(t *testing.T) {
	gw := &fakeGateway{authed: true, available: 1_000_000}
	eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
	withBasket(eng, plannedBasket())

	require.NoError(t, eng.PlaceOrder(context.Background()))

	orders := gw.orders()
	require.Len(t, orders, 8)
	for i, o := range orders[:4] {
		assert.Equal(t, models.SideBuy, o.side, "order %d should be a BUY", i)
	}
	for i, o := range orders[4:] {
		assert.Equal(t, models.SideSell, o.side, "order %d should be a SELL", i+4)
	}

	state, _ := eng.Snapshot()
	assert.Equal(t, models.StatusEntryDone, state.Status)
	assert.True(t, state.TradePlaced)
}

func TestPlaceOrderOverwritesEntryWithFillPrice(t *testing.T) {
	gw := &fakeGateway{
		authed:    true,
		available: 1_000_000,
		fillAt:    map[string]float64{"NIFTY24900CE": 151.35},
	}
	eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
	withBasket(eng, plannedBasket())

	require.NoError(t, eng.PlaceOrder(context.Background()))

	_, legs := eng.Snapshot()
	for _, leg := range legs {
		if leg.Symbol == "NIFTY24900CE" {
			assert.Equal(t, 151.35, leg.EntryPrice)
			return
		}
	}
	t.Fatal("leg not found")
}

func TestPlaceOrderMarginGate(t *testing.T) {
	gw := &fakeGateway{authed: true, required: 200_000, available: 150_000}
	eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
	withBasket(eng, plannedBasket())

	err := eng.PlaceOrder(context.Background())
	require.ErrorIs(t, err, apperrors.ErrInsufficientMargin)
	assert.Empty(t, gw.orders(), "no orders should reach the broker")

	state, _ := eng.Snapshot()
	assert.False(t, state.TradePlaced)
}

func TestPlaceOrderGuardOrder(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		gw := &fakeGateway{authed: false}
		eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
		withBasket(eng, plannedBasket())
		assert.ErrorIs(t, eng.PlaceOrder(context.Background()), apperrors.ErrNotAuthenticated)
	})

	t.Run("paused", func(t *testing.T) {
		gw := &fakeGateway{authed: true, available: 1_000_000}
		eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
		withBasket(eng, plannedBasket())
		eng.Pause(context.Background())
		assert.ErrorIs(t, eng.PlaceOrder(context.Background()), apperrors.ErrPaused)
	})

	t.Run("already active is a silent no-op", func(t *testing.T) {
		gw := &fakeGateway{authed: true, available: 1_000_000}
		eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
		withBasket(eng, plannedBasket())
		eng.mu.Lock()
		eng.state.Status = models.StatusActive
		eng.mu.Unlock()

		require.NoError(t, eng.PlaceOrder(context.Background()))
		assert.Empty(t, gw.orders())
	})

	t.Run("trade already placed is a no-op", func(t *testing.T) {
		gw := &fakeGateway{authed: true, available: 1_000_000}
		eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
		withBasket(eng, plannedBasket())
		eng.mu.Lock()
		eng.state.TradePlaced = true
		eng.mu.Unlock()

		require.NoError(t, eng.PlaceOrder(context.Background()))
		assert.Empty(t, gw.orders())
	})

	t.Run("no legs selected", func(t *testing.T) {
		gw := &fakeGateway{authed: true, available: 1_000_000}
		eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
		assert.ErrorIs(t, eng.PlaceOrder(context.Background()), apperrors.ErrNoLegs)
	})
}

func TestPlaceOrderLegFailureAbortsRemaining(t *testing.T) {
	gw := &fakeGateway{authed: true, available: 1_000_000, failAfter: 3}
	eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
	withBasket(eng, plannedBasket())

	err := eng.PlaceOrder(context.Background())
	require.Error(t, err)

	var legErr *apperrors.LegExecutionError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, 2, legErr.Placed)

	// The two successful fills stay; nothing is rolled back and the trade
	// flag stays clear.
	assert.Len(t, gw.orders(), 2)
	state, _ := eng.Snapshot()
	assert.False(t, state.TradePlaced)
	assert.NotEqual(t, models.StatusEntryDone, state.Status)
}

func TestPlaceOrderNotRepeatableAfterSuccess(t *testing.T) {
	gw := &fakeGateway{authed: true, available: 1_000_000}
	eng, _ := testEngine(t, testConfig(), &fakeMarket{authed: true}, gw)
	withBasket(eng, plannedBasket())

	require.NoError(t, eng.PlaceOrder(context.Background()))
	require.NoError(t, eng.PlaceOrder(context.Background()))
	assert.Len(t, gw.orders(), 8, "second call must not place again")
}
