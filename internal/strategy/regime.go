// Package strategy generates and scores candidate multi-leg option
// strategies under an assessed market regime.
package strategy

import (
	"time"

	"optionscope/internal/models"
)

// VolRegime classifies the implied-volatility environment.
type VolRegime string

const (
	VolLow     VolRegime = "low"     // IV rank < 25
	VolNormal  VolRegime = "normal"  // 25 <= IV rank < 60
	VolHigh    VolRegime = "high"    // 60 <= IV rank < 85
	VolExtreme VolRegime = "extreme" // IV rank >= 85
)

// Trend classifies the directional environment.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// LiquidityRegime classifies chain depth.
type LiquidityRegime string

const (
	LiquidityThin   LiquidityRegime = "thin"
	LiquidityNormal LiquidityRegime = "normal"
	LiquidityDeep   LiquidityRegime = "deep"
)

// UpcomingEvent is a known near-term catalyst.
type UpcomingEvent struct {
	Name       string
	Date       time.Time
	HighImpact bool
}

// MarketRegime is the tagged per-axis assessment consumed by the optimizer.
type MarketRegime struct {
	Volatility VolRegime
	Trend      Trend
	Liquidity  LiquidityRegime
	Events     []UpcomingEvent
	AssessedAt time.Time
}

// HighImpactEventWithin reports whether a high-impact event falls inside
// the given window.
func (r MarketRegime) HighImpactEventWithin(days int) bool {
	cutoff := r.AssessedAt.AddDate(0, 0, days)
	for _, e := range r.Events {
		if e.HighImpact && !e.Date.After(cutoff) && !e.Date.Before(r.AssessedAt) {
			return true
		}
	}
	return false
}

// AssessRegime derives the regime from market data and the liquidity
// profile for the symbol.
func AssessRegime(md *models.MarketData, liq *models.LiquidityProfile, events []UpcomingEvent) MarketRegime {
	regime := MarketRegime{
		Events:     events,
		AssessedAt: time.Now(),
	}

	switch {
	case md.IVRank < 25:
		regime.Volatility = VolLow
	case md.IVRank < 60:
		regime.Volatility = VolNormal
	case md.IVRank < 85:
		regime.Volatility = VolHigh
	default:
		regime.Volatility = VolExtreme
	}

	regime.Trend = assessTrend(md.Returns)

	switch {
	case liq == nil || liq.OverallScore < 40:
		regime.Liquidity = LiquidityThin
	case liq.OverallScore >= 70:
		regime.Liquidity = LiquidityDeep
	default:
		regime.Liquidity = LiquidityNormal
	}

	return regime
}

// assessTrend reads the recent return series for a persistent drift.
func assessTrend(returns []float64) Trend {
	if len(returns) < 10 {
		return TrendNeutral
	}

	window := returns
	if len(window) > 20 {
		window = window[len(window)-20:]
	}

	var sum float64
	up := 0
	for _, r := range window {
		sum += r
		if r > 0 {
			up++
		}
	}
	avg := sum / float64(len(window))
	upRatio := float64(up) / float64(len(window))

	switch {
	case avg > 0.001 && upRatio > 0.55:
		return TrendBullish
	case avg < -0.001 && upRatio < 0.45:
		return TrendBearish
	default:
		return TrendNeutral
	}
}
