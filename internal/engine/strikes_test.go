package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
)

// syntheticChain builds a NIFTY-like chain from 24700 to 25300 in 50-point
// steps with monotonic premiums on both sides.
func syntheticChain() (*fakeMarket, []float64) {
	cePrices := map[float64]float64{
		24700: 260, 24750: 230, 24800: 200, 24850: 175, 24900: 150,
		24950: 128, 25000: 75, 25050: 40, 25100: 25, 25150: 15,
		25200: 7, 25250: 4, 25300: 2,
	}
	pePrices := map[float64]float64{
		24700: 2, 24750: 4, 24800: 7, 24850: 15, 24900: 25,
		24950: 40, 25000: 75, 25050: 128, 25100: 150, 25150: 175,
		25200: 200, 25250: 230, 25300: 260,
	}

	market := &fakeMarket{
		spot:   25012,
		authed: true,
		quotes: make(map[string]float64),
	}

	var strikes []float64
	token := uint32(1000)
	for s := 24700.0; s <= 25300; s += 50 {
		strikes = append(strikes, s)

		ceSym := fmt.Sprintf("NIFTY%dCE", int(s))
		peSym := fmt.Sprintf("NIFTY%dPE", int(s))

		market.chain = append(market.chain,
			models.ChainEntry{Token: token, Symbol: ceSym, OptionType: models.OptionCE, Strike: s},
			models.ChainEntry{Token: token + 1000, Symbol: peSym, OptionType: models.OptionPE, Strike: s},
		)
		market.quotes[ceSym] = cePrices[s]
		market.quotes[peSym] = pePrices[s]
		token++
	}
	return market, strikes
}

func TestSelectStrikesBuildsEightLegCondor(t *testing.T) {
	market, _ := syntheticChain()
	gw := &fakeGateway{authed: true}
	eng, _ := testEngine(t, testConfig(), market, gw)

	require.NoError(t, eng.SelectStrikes(context.Background(), "29-JAN-2026"))

	state, legs := eng.Snapshot()
	require.Len(t, legs, 8)
	assert.Equal(t, "29-JAN-2026", state.Expiry)

	type want struct {
		symbol string
		side   models.OrderSide
		strike float64
		price  float64
		tier   int
	}
	wants := []want{
		{"NIFTY24900CE", models.SideBuy, 24900, 150, models.TierCore},
		{"NIFTY24950CE", models.SideSell, 24950, 128, models.TierCore},
		{"NIFTY25100PE", models.SideBuy, 25100, 150, models.TierCore},
		{"NIFTY25050PE", models.SideSell, 25050, 128, models.TierCore},
		{"NIFTY25000CE", models.SideSell, 25000, 75, models.TierHedge},
		{"NIFTY25200CE", models.SideBuy, 25200, 7, models.TierHedge},
		{"NIFTY25000PE", models.SideSell, 25000, 75, models.TierHedge},
		{"NIFTY24800PE", models.SideBuy, 24800, 7, models.TierHedge},
	}

	for i, w := range wants {
		assert.Equal(t, w.symbol, legs[i].Symbol, "leg %d symbol", i)
		assert.Equal(t, w.side, legs[i].Side, "leg %d side", i)
		assert.Equal(t, w.strike, legs[i].Strike, "leg %d strike", i)
		assert.Equal(t, w.price, legs[i].EntryPrice, "leg %d price", i)
		assert.Equal(t, w.tier, legs[i].Tier, "leg %d tier", i)
		assert.Equal(t, 50, legs[i].Quantity, "leg %d quantity", i)
	}
}

func TestSelectStrikesSkipsPairWhenPartnerMissing(t *testing.T) {
	market, _ := syntheticChain()

	// Drop every PE so only the call-side pairs can form.
	var ceOnly []models.ChainEntry
	for _, c := range market.chain {
		if c.OptionType == models.OptionCE {
			ceOnly = append(ceOnly, c)
		}
	}
	market.chain = ceOnly

	gw := &fakeGateway{authed: true}
	eng, _ := testEngine(t, testConfig(), market, gw)

	require.NoError(t, eng.SelectStrikes(context.Background(), "29-JAN-2026"))

	_, legs := eng.Snapshot()
	require.Len(t, legs, 4)
	for _, leg := range legs {
		assert.Equal(t, models.OptionCE, leg.OptionType)
	}
}

func TestSelectStrikesConsumesTokens(t *testing.T) {
	market, _ := syntheticChain()
	gw := &fakeGateway{authed: true}
	eng, _ := testEngine(t, testConfig(), market, gw)

	require.NoError(t, eng.SelectStrikes(context.Background(), "29-JAN-2026"))

	_, legs := eng.Snapshot()
	seen := make(map[uint32]bool)
	for _, leg := range legs {
		assert.False(t, seen[leg.Token], "token %d picked twice", leg.Token)
		seen[leg.Token] = true
	}
}

func TestSelectStrikesGuards(t *testing.T) {
	market, _ := syntheticChain()
	gw := &fakeGateway{authed: true}

	t.Run("paused", func(t *testing.T) {
		eng, _ := testEngine(t, testConfig(), market, gw)
		eng.Pause(context.Background())
		err := eng.SelectStrikes(context.Background(), "29-JAN-2026")
		assert.ErrorContains(t, err, "paused")
	})

	t.Run("active basket untouched", func(t *testing.T) {
		eng, _ := testEngine(t, testConfig(), market, gw)
		eng.mu.Lock()
		eng.state.Status = models.StatusActive
		eng.legs = []models.Leg{{Token: 1, Symbol: "HELD"}}
		eng.mu.Unlock()

		require.NoError(t, eng.SelectStrikes(context.Background(), "29-JAN-2026"))
		_, legs := eng.Snapshot()
		require.Len(t, legs, 1)
		assert.Equal(t, "HELD", legs[0].Symbol)
	})

	t.Run("empty expiry", func(t *testing.T) {
		eng, _ := testEngine(t, testConfig(), market, gw)
		err := eng.SelectStrikes(context.Background(), "")
		assert.ErrorIs(t, err, apperrors.ErrNoExpiries)
	})
}
