package broker

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-trader/internal/models"
)

func TestPaperGatewayFillsAtPlannedPrice(t *testing.T) {
	gw := NewPaperGateway(zerolog.Nop())
	require.True(t, gw.IsAuthenticated())

	leg := &models.Leg{
		Symbol:     "NIFTY24900CE",
		Side:       models.SideBuy,
		EntryPrice: 150.5,
		Quantity:   50,
	}
	fill, err := gw.PlaceMarketOrder(context.Background(), leg)
	require.NoError(t, err)
	assert.Equal(t, 150.5, fill.FillPrice)
	assert.True(t, strings.HasPrefix(fill.OrderID, "paper-"))
}

func TestPaperGatewayMarginAlwaysPasses(t *testing.T) {
	gw := NewPaperGateway(zerolog.Nop())

	required, err := gw.GetBasketMargin(context.Background(), []models.Leg{{Symbol: "X", Quantity: 50}})
	require.NoError(t, err)
	available, err := gw.GetAvailableMargin(context.Background())
	require.NoError(t, err)
	assert.Less(t, required, available)
}

func TestPaperGatewayHonorsCancelledContext(t *testing.T) {
	gw := NewPaperGateway(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.PlaceMarketOrder(ctx, &models.Leg{Symbol: "NIFTY24900CE"})
	assert.ErrorIs(t, err, context.Canceled)
}
