// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"

	"condor-trader/internal/models"
)

// MarketData supplies spot prices, option chains and per-contract quotes.
type MarketData interface {
	IsAuthenticated() bool

	// GetSpot returns the last traded price of the underlying index,
	// addressed as "EXCHANGE:SYMBOL" (e.g. "NSE:NIFTY 50").
	GetSpot(ctx context.Context, symbol string) (float64, error)

	// GetQuote returns a live quote for a single contract.
	GetQuote(ctx context.Context, exchange models.Exchange, symbol string) (*models.Quote, error)

	// GetOptionChain returns the contracts of the given expiry within
	// window strikes either side of the anchor strike. Returned prices are
	// not populated; callers quote each strike live.
	GetOptionChain(ctx context.Context, expiry string, anchorStrike float64, window int) ([]models.ChainEntry, error)
}

// OrderGateway places orders and answers margin queries.
type OrderGateway interface {
	IsAuthenticated() bool

	// PlaceMarketOrder submits a market order for one leg and returns the
	// confirmed fill. Implementations must return the actual fill price,
	// not the planned one.
	PlaceMarketOrder(ctx context.Context, leg *models.Leg) (*models.OrderFill, error)

	// GetBasketMargin returns the margin required to hold the given legs.
	GetBasketMargin(ctx context.Context, legs []models.Leg) (float64, error)

	// GetAvailableMargin returns usable funds: cash + intraday pay-in +
	// collateral.
	GetAvailableMargin(ctx context.Context) (float64, error)
}

// Ticker streams live price updates for subscribed instrument tokens.
type Ticker interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Subscribe(tokens []uint32) error
	Unsubscribe(tokens []uint32) error
	OnTick(handler func(models.Tick))
	OnError(handler func(error))
}
