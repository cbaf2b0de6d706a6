package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "condor-trader/internal/errors"
	"condor-trader/internal/models"
	"condor-trader/internal/notify"
	"condor-trader/pkg/utils"
)

// Premium anchors for the condor legs, in rupees.
const (
	corePremium  = 150.0
	hedgePremium = 75.0
	wingPremium  = 7.0
)

type quotedContract struct {
	models.ChainEntry
	price float64
}

// SelectStrikes builds the eight-leg condor basket for the given expiry from
// live option prices and stores it as the planned position. It replaces any
// previously selected (but unplaced) basket.
func (e *Engine) SelectStrikes(ctx context.Context, expiry string) error {
	if !e.market.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}
	if expiry == "" {
		return apperrors.ErrNoExpiries
	}

	e.mu.Lock()
	if e.state.Paused {
		e.mu.Unlock()
		return apperrors.ErrPaused
	}
	if e.state.Status == models.StatusActive || e.state.Status == models.StatusEntryDone {
		e.mu.Unlock()
		e.logger.Info().Str("status", string(e.state.Status)).Msg("Selection skipped, basket already live")
		return nil
	}
	e.mu.Unlock()

	spot, err := e.market.GetSpot(ctx, e.cfg.Underlying)
	if err != nil {
		return err
	}
	atm := utils.RoundToStep(spot, e.cfg.StrikeStep)

	chain, err := e.market.GetOptionChain(ctx, expiry, atm, e.cfg.ChainWindow)
	if err != nil {
		return err
	}

	quoted, err := e.quoteChain(ctx, chain)
	if err != nil {
		return err
	}

	legs := buildCondor(quoted, e.cfg.StrikeStep, e.cfg.LotSize)
	if len(legs) == 0 {
		return apperrors.NewDataError("selection", e.cfg.ChainName, "no pairs matched premium anchors", apperrors.ErrNoLiveQuotes)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.legs = legs
	e.state.Expiry = expiry
	e.state.Pnl = 0
	e.flushAllLocked(ctx)

	e.logger.Info().
		Float64("spot", spot).
		Float64("atm", atm).
		Str("expiry", expiry).
		Int("legs", len(legs)).
		Msg("Strikes selected")
	e.systemLog(ctx, fmt.Sprintf("Selected %d legs for expiry %s (spot %.2f)", len(legs), expiry, spot))
	e.notifier.Dispatch(notify.Notification{
		Kind:    notify.KindStatus,
		Title:   "Strikes Selected",
		Message: fmt.Sprintf("Expiry %s: %s", expiry, summarizeLegs(legs)),
	})
	return nil
}

func summarizeLegs(legs []models.Leg) string {
	parts := make([]string, 0, len(legs))
	for _, l := range legs {
		parts = append(parts, fmt.Sprintf("%s %.0f%s@%.2f", l.Side, l.Strike, l.OptionType, l.EntryPrice))
	}
	return strings.Join(parts, ", ")
}

// quoteChain fetches a live price for every contract in the chain window.
// Contracts without a quote are dropped rather than failing the selection.
func (e *Engine) quoteChain(ctx context.Context, chain []models.ChainEntry) ([]quotedContract, error) {
	quoted := make([]quotedContract, 0, len(chain))
	for _, entry := range chain {
		q, err := e.market.GetQuote(ctx, models.NFO, entry.Symbol)
		if err != nil {
			e.logger.Debug().Str("symbol", entry.Symbol).Err(err).Msg("Quote unavailable, dropping contract")
			continue
		}
		if q.LTP <= 0 {
			continue
		}
		quoted = append(quoted, quotedContract{ChainEntry: entry, price: q.LTP})
	}
	if len(quoted) == 0 {
		return nil, apperrors.ErrNoLiveQuotes
	}
	return quoted, nil
}

// buildCondor assembles the basket:
//
//	tier 1: BUY CE nearest 150, SELL the CE one strike higher,
//	        BUY PE nearest 150, SELL the PE one strike lower
//	tier 2: SELL CE nearest 75, BUY CE nearest 7,
//	        SELL PE nearest 75, BUY PE nearest 7
//
// A pair whose anchor or partner cannot be found is skipped whole. Each
// contract is consumed by at most one leg.
func buildCondor(quoted []quotedContract, step float64, lotSize int) []models.Leg {
	used := make(map[uint32]bool)
	var legs []models.Leg

	add := func(c *quotedContract, side models.OrderSide, tier int) {
		used[c.Token] = true
		legs = append(legs, models.Leg{
			Token:      c.Token,
			Symbol:     c.Symbol,
			OptionType: c.OptionType,
			Side:       side,
			Strike:     c.Strike,
			EntryPrice: c.price,
			LTP:        c.price,
			Quantity:   lotSize,
			Tier:       tier,
		})
	}

	// Tier 1 call spread.
	if anchor := closestByPremium(quoted, used, models.OptionCE, corePremium); anchor != nil {
		if partner := adjacentStrike(quoted, used, models.OptionCE, anchor.Strike, +1); partner != nil {
			add(anchor, models.SideBuy, models.TierCore)
			add(partner, models.SideSell, models.TierCore)
		}
	}

	// Tier 1 put spread.
	if anchor := closestByPremium(quoted, used, models.OptionPE, corePremium); anchor != nil {
		if partner := adjacentStrike(quoted, used, models.OptionPE, anchor.Strike, -1); partner != nil {
			add(anchor, models.SideBuy, models.TierCore)
			add(partner, models.SideSell, models.TierCore)
		}
	}

	// Tier 2 call hedge.
	if short := closestByPremium(quoted, used, models.OptionCE, hedgePremium); short != nil {
		if wing := closestByPremium(quoted, used, models.OptionCE, wingPremium); wing != nil {
			add(short, models.SideSell, models.TierHedge)
			add(wing, models.SideBuy, models.TierHedge)
		}
	}

	// Tier 2 put hedge.
	if short := closestByPremium(quoted, used, models.OptionPE, hedgePremium); short != nil {
		if wing := closestByPremium(quoted, used, models.OptionPE, wingPremium); wing != nil {
			add(short, models.SideSell, models.TierHedge)
			add(wing, models.SideBuy, models.TierHedge)
		}
	}

	return legs
}

// closestByPremium returns the unused contract of the given type whose price
// is nearest the anchor premium. The sort is stable so equal distances keep
// chain order; there is no secondary tie-break.
func closestByPremium(quoted []quotedContract, used map[uint32]bool, ot models.OptionType, anchor float64) *quotedContract {
	var candidates []quotedContract
	for _, c := range quoted {
		if c.OptionType == ot && !used[c.Token] {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return math.Abs(candidates[i].price-anchor) < math.Abs(candidates[j].price-anchor)
	})

	c := candidates[0]
	return &c
}

// adjacentStrike returns the unused contract of the given type at the
// nearest strike strictly beyond base in the given direction (+1 higher,
// -1 lower).
func adjacentStrike(quoted []quotedContract, used map[uint32]bool, ot models.OptionType, base float64, dir int) *quotedContract {
	var best *quotedContract
	for i := range quoted {
		c := &quoted[i]
		if c.OptionType != ot || used[c.Token] {
			continue
		}
		if dir > 0 && c.Strike <= base {
			continue
		}
		if dir < 0 && c.Strike >= base {
			continue
		}
		if best == nil ||
			(dir > 0 && c.Strike < best.Strike) ||
			(dir < 0 && c.Strike > best.Strike) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	c := *best
	return &c
}
