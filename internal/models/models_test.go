package models

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestLegSign(t *testing.T) {
	assert.Equal(t, 1.0, Leg{Side: SideBuy}.Sign())
	assert.Equal(t, -1.0, Leg{Side: SideSell}.Sign())
}

func TestLegPnL(t *testing.T) {
	buy := Leg{Side: SideBuy, EntryPrice: 100, LTP: 120, Quantity: 50}
	assert.InDelta(t, 1000, buy.PnL(), 0.001)

	sell := Leg{Side: SideSell, EntryPrice: 100, LTP: 120, Quantity: 50}
	assert.InDelta(t, -1000, sell.PnL(), 0.001)
}

func genLeg() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0.05, 500),
		gen.Float64Range(0.05, 500),
		gen.IntRange(1, 500),
		gen.Bool(),
	).Map(func(values []interface{}) Leg {
		side := SideBuy
		if values[3].(bool) {
			side = SideSell
		}
		return Leg{
			Side:       side,
			EntryPrice: values[0].(float64),
			LTP:        values[1].(float64),
			Quantity:   values[2].(int),
		}
	})
}

func TestBasketPnLProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(1234)

	properties := gopter.NewProperties(parameters)

	properties.Property("basket P&L is the sum of leg P&Ls", prop.ForAll(
		func(legs []Leg) bool {
			var sum float64
			for _, l := range legs {
				sum += l.PnL()
			}
			return math.Abs(BasketPnL(legs)-sum) < 1e-6
		},
		gen.SliceOf(genLeg()),
	))

	properties.Property("a leg at its entry price is flat", prop.ForAll(
		func(entry float64, qty int, isSell bool) bool {
			side := SideBuy
			if isSell {
				side = SideSell
			}
			leg := Leg{Side: side, EntryPrice: entry, LTP: entry, Quantity: qty}
			return leg.PnL() == 0
		},
		gen.Float64Range(0.05, 500),
		gen.IntRange(1, 500),
		gen.Bool(),
	))

	properties.Property("buy and sell of the same contract cancel out", prop.ForAll(
		func(entry, ltp float64, qty int) bool {
			buy := Leg{Side: SideBuy, EntryPrice: entry, LTP: ltp, Quantity: qty}
			sell := Leg{Side: SideSell, EntryPrice: entry, LTP: ltp, Quantity: qty}
			return math.Abs(BasketPnL([]Leg{buy, sell})) < 1e-6
		},
		gen.Float64Range(0.05, 500),
		gen.Float64Range(0.05, 500),
		gen.IntRange(1, 500),
	))

	properties.Property("price moves scale P&L linearly with quantity", prop.ForAll(
		func(entry, ltp float64, qty int) bool {
			single := Leg{Side: SideBuy, EntryPrice: entry, LTP: ltp, Quantity: 1}
			scaled := Leg{Side: SideBuy, EntryPrice: entry, LTP: ltp, Quantity: qty}
			return math.Abs(scaled.PnL()-single.PnL()*float64(qty)) < 1e-6
		},
		gen.Float64Range(0.05, 500),
		gen.Float64Range(0.05, 500),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}
