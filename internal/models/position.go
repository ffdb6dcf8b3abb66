package models

import "time"

// PositionLeg is a single option leg inside a position.
// Exposure contribution = greek x quantity x side sign x ContractMultiplier.
type PositionLeg struct {
	Symbol     string
	Type       OptionType
	Strike     float64
	Expiry     time.Time
	Quantity   int // always > 0; direction comes from Side
	Side       Side
	EntryPrice float64
	Greeks     Greeks
	ImpliedVol float64
}

// Exposure returns the leg's contribution for one per-unit greek value.
func (l PositionLeg) Exposure(greek float64) float64 {
	return greek * float64(l.Quantity) * l.Side.Sign() * ContractMultiplier
}

// Position is a read-only record supplied by the external positions store.
type Position struct {
	ID            string
	Symbol        string
	Strategy      string
	Quantity      int
	EntryDate     time.Time
	EntryPrice    float64
	RealizedPnL   float64
	UnrealizedPnL float64
	Active        bool
	Legs          []PositionLeg
}

// PnLPercent returns unrealized P&L relative to entry cost, in percent.
func (p Position) PnLPercent() float64 {
	cost := p.EntryPrice * float64(p.Quantity) * ContractMultiplier
	if cost == 0 {
		return 0
	}
	return p.UnrealizedPnL / cost * 100
}
