// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
	"condor-trader/pkg/utils"
)

// ZerodhaBroker implements MarketData and OrderGateway on Kite Connect.
type ZerodhaBroker struct {
	client      *kiteconnect.Client
	apiKey      string
	accessToken string
	chainName   string

	// Instrument dump cache. Kite publishes it once daily.
	instruments   []kiteconnect.Instrument
	instrumentsAt time.Time

	mu sync.RWMutex
}

// ZerodhaConfig holds configuration for the Zerodha broker.
type ZerodhaConfig struct {
	APIKey      string
	AccessToken string
	ChainName   string // NFO instrument name, e.g. "NIFTY"
}

// NewZerodhaBroker creates a new Zerodha broker instance.
func NewZerodhaBroker(cfg ZerodhaConfig) *ZerodhaBroker {
	client := kiteconnect.New(cfg.APIKey)
	if cfg.AccessToken != "" {
		client.SetAccessToken(cfg.AccessToken)
	}

	return &ZerodhaBroker{
		client:      client,
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		chainName:   cfg.ChainName,
	}
}

// IsAuthenticated returns whether a usable session exists.
func (z *ZerodhaBroker) IsAuthenticated() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.apiKey != "" && z.accessToken != ""
}

// GetSpot returns the last traded price of the underlying index.
func (z *ZerodhaBroker) GetSpot(ctx context.Context, symbol string) (float64, error) {
	if !z.IsAuthenticated() {
		return 0, apperrors.ErrNotAuthenticated
	}

	quotes, err := z.client.GetLTP(symbol)
	if err != nil {
		return 0, apperrors.NewBrokerError("ltp", "fetching spot price", err)
	}

	q, ok := quotes[symbol]
	if !ok || q.LastPrice == 0 {
		return 0, apperrors.NewDataError("spot", symbol, "no price in LTP response", nil)
	}
	return q.LastPrice, nil
}

// GetQuote returns a live quote for a single contract.
func (z *ZerodhaBroker) GetQuote(ctx context.Context, exchange models.Exchange, symbol string) (*models.Quote, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	key := fmt.Sprintf("%s:%s", exchange, symbol)
	quotes, err := z.client.GetLTP(key)
	if err != nil {
		return nil, apperrors.NewBrokerError("ltp", "fetching quote", err)
	}

	q, ok := quotes[key]
	if !ok {
		return nil, apperrors.NewDataError("quote", symbol, "symbol missing from LTP response", nil)
	}

	return &models.Quote{
		Token:  uint32(q.InstrumentToken),
		Symbol: symbol,
		LTP:    q.LastPrice,
	}, nil
}

// GetOptionChain returns contracts of the given expiry within window strikes
// either side of the anchor, built from the NFO instrument dump.
func (z *ZerodhaBroker) GetOptionChain(ctx context.Context, expiry string, anchorStrike float64, window int) ([]models.ChainEntry, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	expiryDate, err := utils.ParseExpiry(expiry)
	if err != nil {
		return nil, apperrors.NewDataError("chain", z.chainName, fmt.Sprintf("bad expiry %q", expiry), err)
	}

	instruments, err := z.nfoInstruments()
	if err != nil {
		return nil, err
	}

	step := 50.0
	low := anchorStrike - float64(window)*step
	high := anchorStrike + float64(window)*step

	var entries []models.ChainEntry
	for _, inst := range instruments {
		if inst.Name != z.chainName {
			continue
		}
		if inst.InstrumentType != "CE" && inst.InstrumentType != "PE" {
			continue
		}
		if !sameDate(inst.Expiry.Time, expiryDate) {
			continue
		}
		if inst.StrikePrice < low || inst.StrikePrice > high {
			continue
		}
		entries = append(entries, models.ChainEntry{
			Token:      uint32(inst.InstrumentToken),
			Symbol:     inst.Tradingsymbol,
			OptionType: models.OptionType(inst.InstrumentType),
			Strike:     inst.StrikePrice,
		})
	}

	if len(entries) == 0 {
		return nil, apperrors.NewDataError("chain", z.chainName, "no contracts for expiry window", apperrors.ErrEmptyChain)
	}
	return entries, nil
}

// nfoInstruments returns the cached NFO instrument dump, refreshing it once
// per day.
func (z *ZerodhaBroker) nfoInstruments() ([]kiteconnect.Instrument, error) {
	z.mu.RLock()
	cached := z.instruments
	fetchedAt := z.instrumentsAt
	z.mu.RUnlock()

	if cached != nil && sameDate(fetchedAt, time.Now().In(utils.IndiaLocation)) {
		return cached, nil
	}

	instruments, err := z.client.GetInstrumentsByExchange("NFO")
	if err != nil {
		return nil, apperrors.NewBrokerError("instruments", "fetching NFO instrument dump", err)
	}

	z.mu.Lock()
	z.instruments = instruments
	z.instrumentsAt = time.Now().In(utils.IndiaLocation)
	z.mu.Unlock()

	return instruments, nil
}

// PlaceMarketOrder submits a market NRML order and waits for the confirmed
// fill price.
func (z *ZerodhaBroker) PlaceMarketOrder(ctx context.Context, leg *models.Leg) (*models.OrderFill, error) {
	if !z.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	params := kiteconnect.OrderParams{
		Exchange:        "NFO",
		Tradingsymbol:   leg.Symbol,
		TransactionType: string(leg.Side),
		OrderType:       kiteconnect.OrderTypeMarket,
		Product:         kiteconnect.ProductNRML,
		Quantity:        leg.Quantity,
		Validity:        kiteconnect.ValidityDay,
	}

	resp, err := z.client.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return nil, apperrors.NewBrokerError("order", "placing market order", err)
	}

	fillPrice, err := z.awaitFill(ctx, resp.OrderID)
	if err != nil {
		return nil, err
	}

	return &models.OrderFill{
		OrderID:   resp.OrderID,
		FillPrice: fillPrice,
	}, nil
}

// awaitFill polls the order history until the order completes and returns
// the average fill price.
func (z *ZerodhaBroker) awaitFill(ctx context.Context, orderID string) (float64, error) {
	const (
		attempts = 10
		interval = 300 * time.Millisecond
	)

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(interval):
		}

		history, err := z.client.GetOrderHistory(orderID)
		if err != nil || len(history) == 0 {
			continue
		}

		last := history[len(history)-1]
		switch last.Status {
		case "COMPLETE":
			return last.AveragePrice, nil
		case "REJECTED", "CANCELLED":
			return 0, apperrors.NewBrokerError("order", fmt.Sprintf("order %s %s: %s", orderID, strings.ToLower(last.Status), last.StatusMessage), nil)
		}
	}

	return 0, apperrors.NewBrokerError("order", fmt.Sprintf("order %s fill not confirmed", orderID), nil)
}

// GetBasketMargin returns the margin required to hold the given legs.
func (z *ZerodhaBroker) GetBasketMargin(ctx context.Context, legs []models.Leg) (float64, error) {
	if !z.IsAuthenticated() {
		return 0, apperrors.ErrNotAuthenticated
	}
	if len(legs) == 0 {
		return 0, nil
	}

	orderParams := make([]kiteconnect.OrderMarginParam, 0, len(legs))
	for _, leg := range legs {
		orderParams = append(orderParams, kiteconnect.OrderMarginParam{
			Exchange:        "NFO",
			Tradingsymbol:   leg.Symbol,
			TransactionType: string(leg.Side),
			Variety:         kiteconnect.VarietyRegular,
			Product:         kiteconnect.ProductNRML,
			OrderType:       kiteconnect.OrderTypeMarket,
			Quantity:        float64(leg.Quantity),
		})
	}

	margins, err := z.client.GetBasketMargins(kiteconnect.GetBasketParams{
		OrderParams:       orderParams,
		ConsiderPositions: true,
	})
	if err != nil {
		return 0, apperrors.NewBrokerError("margin", "fetching basket margin", err)
	}

	return margins.Final.Total, nil
}

// GetAvailableMargin returns cash + intraday pay-in + collateral.
func (z *ZerodhaBroker) GetAvailableMargin(ctx context.Context) (float64, error) {
	if !z.IsAuthenticated() {
		return 0, apperrors.ErrNotAuthenticated
	}

	margins, err := z.client.GetUserMargins()
	if err != nil {
		return 0, apperrors.NewBrokerError("margin", "fetching user margins", err)
	}

	avail := margins.Equity.Available
	return avail.Cash + avail.IntradayPayin + avail.Collateral, nil
}

func sameDate(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Ensure ZerodhaBroker implements the broker interfaces
var (
	_ MarketData   = (*ZerodhaBroker)(nil)
	_ OrderGateway = (*ZerodhaBroker)(nil)
)
