package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"condor-trader/internal/models"
)

// PaperGateway simulates order execution for virtual trading mode. Orders
// fill instantly at the leg's planned entry price and margin is always
// sufficient.
type PaperGateway struct {
	logger  zerolog.Logger
	latency time.Duration
}

// NewPaperGateway creates a simulated order gateway.
func NewPaperGateway(logger zerolog.Logger) *PaperGateway {
	return &PaperGateway{
		logger:  logger.With().Str("component", "paper").Logger(),
		latency: 50 * time.Millisecond,
	}
}

// IsAuthenticated always returns true; the simulator needs no session.
func (p *PaperGateway) IsAuthenticated() bool {
	return true
}

// PlaceMarketOrder fills the order at the planned entry price after a short
// simulated latency.
func (p *PaperGateway) PlaceMarketOrder(ctx context.Context, leg *models.Leg) (*models.OrderFill, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.latency):
	}

	orderID := "paper-" + uuid.NewString()

	p.logger.Info().
		Str("order_id", orderID).
		Str("symbol", leg.Symbol).
		Str("side", string(leg.Side)).
		Int("quantity", leg.Quantity).
		Float64("price", leg.EntryPrice).
		Msg("Simulated fill")

	return &models.OrderFill{
		OrderID:   orderID,
		FillPrice: leg.EntryPrice,
	}, nil
}

// GetBasketMargin returns zero; simulated baskets never require margin.
func (p *PaperGateway) GetBasketMargin(ctx context.Context, legs []models.Leg) (float64, error) {
	return 0, nil
}

// GetAvailableMargin returns a large simulated balance.
func (p *PaperGateway) GetAvailableMargin(ctx context.Context) (float64, error) {
	return 10_000_000, nil
}

// Ensure PaperGateway implements the OrderGateway interface
var _ OrderGateway = (*PaperGateway)(nil)
