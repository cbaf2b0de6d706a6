// Package models defines the core domain types shared across the application.
package models

import "time"

// Exchange represents a stock exchange segment.
type Exchange string

const (
	NSE Exchange = "NSE"
	NFO Exchange = "NFO"
)

// OptionType represents the option contract type.
type OptionType string

const (
	OptionCE OptionType = "CE"
	OptionPE OptionType = "PE"
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Leg tiers. TierAdjustment marks hedges bought by the adjustment logic
// after entry; they carry no tier in the core/hedge sense.
const (
	TierAdjustment = 0
	TierCore       = 1
	TierHedge      = 2
)

// Leg is a single option contract position within the condor basket.
type Leg struct {
	Token      uint32     `json:"token"`
	Symbol     string     `json:"symbol"`
	OptionType OptionType `json:"option_type"`
	Side       OrderSide  `json:"side"`
	Strike     float64    `json:"strike"`
	EntryPrice float64    `json:"entry_price"`
	LTP        float64    `json:"ltp"`
	Quantity   int        `json:"quantity"`
	Tier       int        `json:"tier"`
}

// Sign returns +1 for BUY legs and -1 for SELL legs.
func (l Leg) Sign() float64 {
	if l.Side == SideBuy {
		return 1
	}
	return -1
}

// PnL returns the leg's running profit or loss against its entry price.
func (l Leg) PnL() float64 {
	return (l.LTP - l.EntryPrice) * float64(l.Quantity) * l.Sign()
}

// BasketPnL sums the running P&L over a leg set. An empty set is flat.
func BasketPnL(legs []Leg) float64 {
	var pnl float64
	for _, l := range legs {
		pnl += l.PnL()
	}
	return pnl
}

// Tick is a market data update for a single instrument.
type Tick struct {
	Token     uint32    `json:"token"`
	LTP       float64   `json:"ltp"`
	Timestamp time.Time `json:"timestamp"`
}

// Quote is a point-in-time price snapshot for an instrument.
type Quote struct {
	Token  uint32  `json:"token"`
	Symbol string  `json:"symbol"`
	LTP    float64 `json:"ltp"`
}

// ChainEntry is one contract in an option chain window.
type ChainEntry struct {
	Token      uint32     `json:"token"`
	Symbol     string     `json:"symbol"`
	OptionType OptionType `json:"option_type"`
	Strike     float64    `json:"strike"`
}

// OrderFill is the broker's confirmation of an executed order.
type OrderFill struct {
	OrderID   string  `json:"order_id"`
	FillPrice float64 `json:"fill_price"`
}

// OrderLogEntry is one row of the append-only order log.
type OrderLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Virtual   bool      `json:"virtual"`
	Note      string    `json:"note"`
}

// SystemLogEntry is one row of the append-only system log.
type SystemLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
