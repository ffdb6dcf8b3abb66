package strategy

import (
	"math"
	"sort"

	"optionscope/internal/models"
)

// candidate is a named leg set prior to economic evaluation.
type candidate struct {
	Name   string
	Family models.StrategyFamily
	Legs   []models.StrategyLeg
}

// Generator builds candidate strategies from an option chain, gated by
// the assessed regime.
type Generator struct {
	minDTE int
	maxDTE int
}

// NewGenerator returns a generator restricted to the given expiry window.
func NewGenerator(minDTE, maxDTE int) *Generator {
	return &Generator{minDTE: minDTE, maxDTE: maxDTE}
}

// Generate produces candidates for every family the regime admits.
func (g *Generator) Generate(chain *models.OptionChain, md *models.MarketData, regime MarketRegime) []candidate {
	calls := g.usable(chain.Calls)
	puts := g.usable(chain.Puts)
	if len(calls) == 0 && len(puts) == 0 {
		return nil
	}

	var out []candidate

	// Directional plays follow the trend.
	switch regime.Trend {
	case TrendBullish:
		if c := g.longSingle("long_call", models.FamilyDirectional, calls, md.Price, models.Buy); c != nil {
			out = append(out, *c)
		}
		if c := g.verticalSpread("bull_call_spread", calls, md.Price, true); c != nil {
			out = append(out, *c)
		}
	case TrendBearish:
		if c := g.longSingle("long_put", models.FamilyDirectional, puts, md.Price, models.Buy); c != nil {
			out = append(out, *c)
		}
		if c := g.verticalSpread("bear_put_spread", puts, md.Price, false); c != nil {
			out = append(out, *c)
		}
	}

	// Volatility plays buy premium while it is still cheap.
	if (regime.Volatility == VolLow || regime.Volatility == VolNormal) && !regime.HighImpactEventWithin(3) {
		if c := g.straddle(calls, puts, md.Price); c != nil {
			out = append(out, *c)
		}
	}

	// Premium selling wants rich vol.
	if regime.Volatility == VolHigh || regime.Volatility == VolExtreme {
		if c := g.ironCondor(calls, puts, md.Price); c != nil {
			out = append(out, *c)
		}
	}

	// Covered calls fit any book that is not leaning bearish.
	if regime.Trend == TrendNeutral || regime.Trend == TrendBullish {
		if c := g.coveredCall(calls, md.Price); c != nil {
			out = append(out, *c)
		}
	}

	return out
}

// usable filters to the expiry window and contracts with a two-sided market.
func (g *Generator) usable(contracts []models.OptionContract) []models.OptionContract {
	var out []models.OptionContract
	for _, c := range contracts {
		if c.DaysToExpiry < g.minDTE || c.DaysToExpiry > g.maxDTE {
			continue
		}
		if c.Bid <= 0 || c.Ask <= 0 {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// nearest returns the contract whose strike is closest to target.
func nearest(contracts []models.OptionContract, target float64) *models.OptionContract {
	if len(contracts) == 0 {
		return nil
	}
	best := 0
	for i := range contracts {
		if math.Abs(contracts[i].Strike-target) < math.Abs(contracts[best].Strike-target) {
			best = i
		}
	}
	c := contracts[best]
	return &c
}

func (g *Generator) longSingle(name string, family models.StrategyFamily, contracts []models.OptionContract, spot float64, side models.Side) *candidate {
	atm := nearest(contracts, spot)
	if atm == nil {
		return nil
	}
	return &candidate{
		Name:   name,
		Family: family,
		Legs: []models.StrategyLeg{
			{Kind: models.LegOption, Contract: *atm, Side: side, Quantity: 1, Price: atm.Mid},
		},
	}
}

func (g *Generator) verticalSpread(name string, contracts []models.OptionContract, spot float64, bullish bool) *candidate {
	long := nearest(contracts, spot)
	if long == nil {
		return nil
	}
	// Short strike one width away in the direction of profit.
	width := spot * 0.05
	shortTarget := spot + width
	if !bullish {
		shortTarget = spot - width
	}
	short := nearest(contracts, shortTarget)
	if short == nil || short.Strike == long.Strike {
		return nil
	}
	return &candidate{
		Name:   name,
		Family: models.FamilySpread,
		Legs: []models.StrategyLeg{
			{Kind: models.LegOption, Contract: *long, Side: models.Buy, Quantity: 1, Price: long.Mid},
			{Kind: models.LegOption, Contract: *short, Side: models.Sell, Quantity: 1, Price: short.Mid},
		},
	}
}

func (g *Generator) straddle(calls, puts []models.OptionContract, spot float64) *candidate {
	call := nearest(calls, spot)
	put := nearest(puts, spot)
	if call == nil || put == nil || call.Strike != put.Strike {
		return nil
	}
	return &candidate{
		Name:   "long_straddle",
		Family: models.FamilyVolatility,
		Legs: []models.StrategyLeg{
			{Kind: models.LegOption, Contract: *call, Side: models.Buy, Quantity: 1, Price: call.Mid},
			{Kind: models.LegOption, Contract: *put, Side: models.Buy, Quantity: 1, Price: put.Mid},
		},
	}
}

func (g *Generator) ironCondor(calls, puts []models.OptionContract, spot float64) *candidate {
	shortCall := nearest(calls, spot*1.05)
	longCall := nearest(calls, spot*1.10)
	shortPut := nearest(puts, spot*0.95)
	longPut := nearest(puts, spot*0.90)
	if shortCall == nil || longCall == nil || shortPut == nil || longPut == nil {
		return nil
	}
	if shortCall.Strike >= longCall.Strike || shortPut.Strike <= longPut.Strike {
		return nil
	}
	if shortCall.Strike <= spot || shortPut.Strike >= spot {
		return nil
	}
	return &candidate{
		Name:   "iron_condor",
		Family: models.FamilyIncome,
		Legs: []models.StrategyLeg{
			{Kind: models.LegOption, Contract: *shortCall, Side: models.Sell, Quantity: 1, Price: shortCall.Mid},
			{Kind: models.LegOption, Contract: *longCall, Side: models.Buy, Quantity: 1, Price: longCall.Mid},
			{Kind: models.LegOption, Contract: *shortPut, Side: models.Sell, Quantity: 1, Price: shortPut.Mid},
			{Kind: models.LegOption, Contract: *longPut, Side: models.Buy, Quantity: 1, Price: longPut.Mid},
		},
	}
}

func (g *Generator) coveredCall(calls []models.OptionContract, spot float64) *candidate {
	short := nearest(calls, spot*1.05)
	if short == nil || short.Strike <= spot {
		return nil
	}
	return &candidate{
		Name:   "covered_call",
		Family: models.FamilyIncome,
		Legs: []models.StrategyLeg{
			{Kind: models.LegStock, Side: models.Buy, Quantity: 100, Price: spot},
			{Kind: models.LegOption, Contract: *short, Side: models.Sell, Quantity: 1, Price: short.Mid},
		},
	}
}
