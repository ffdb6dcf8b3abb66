// Package models defines the core domain types shared across the analytics engines.
package models

import "time"

// OptionType identifies the contract right.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Side identifies the direction of a leg.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Sign returns +1 for buy legs and -1 for sell legs.
func (s Side) Sign() float64 {
	if s == Sell {
		return -1
	}
	return 1
}

// ContractMultiplier is the per-contract share multiplier.
const ContractMultiplier = 100.0

// Greeks holds per-unit option sensitivities.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// AdvancedGreeks holds second- and third-order sensitivities.
type AdvancedGreeks struct {
	Charm float64 // dDelta/dTime
	Vanna float64 // dDelta/dVol
	Volga float64 // dVega/dVol
	Veta  float64 // dVega/dTime
	Speed float64 // dGamma/dSpot
	Zomma float64 // dGamma/dVol
	Color float64 // dGamma/dTime
}

// OptionContract is an immutable snapshot of a single chain entry.
type OptionContract struct {
	Symbol       string
	Type         OptionType
	Strike       float64
	Expiry       time.Time
	Bid          float64
	Ask          float64
	Mid          float64
	Volume       int64
	OpenInterest int64
	ImpliedVol   float64
	Greeks       Greeks
	DaysToExpiry int
}

// Spread returns the quoted bid-ask spread.
func (c OptionContract) Spread() float64 {
	return c.Ask - c.Bid
}

// OptionChain groups the call and put sides of a chain for one symbol.
type OptionChain struct {
	Symbol    string
	SpotPrice float64
	Calls     []OptionContract
	Puts      []OptionContract
	FetchedAt time.Time
}

// Contracts returns both sides of the chain as a single slice.
func (ch OptionChain) Contracts() []OptionContract {
	out := make([]OptionContract, 0, len(ch.Calls)+len(ch.Puts))
	out = append(out, ch.Calls...)
	out = append(out, ch.Puts...)
	return out
}

// MarketData is the per-symbol market snapshot consumed by the engines.
type MarketData struct {
	Symbol        string
	Price         float64
	HistoricalVol float64   // annualized
	ImpliedVol    float64   // current ATM implied vol
	IVRank        float64   // 0-100 percentile of IV vs trailing history
	RiskFreeRate  float64
	Returns       []float64 // historical daily returns, oldest first
	AvgVolume     float64   // trailing average daily option volume
	DayVolume     float64   // today's option volume so far
	Timestamp     time.Time
}
