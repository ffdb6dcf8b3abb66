package scanner

import (
	"fmt"
	"math"
	"time"

	"optionscope/internal/config"
	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// assessHealth computes the portfolio dashboard summary from active
// positions. Overall is the plain mean of the four sub-scores.
func assessHealth(positions []models.Position, market map[string]*models.MarketData, limits config.RiskLimitsConfig) *models.PortfolioHealth {
	h := &models.PortfolioHealth{
		Profitability:   profitabilityScore(positions),
		Diversification: diversificationScore(positions),
		RiskScore:       riskScore(positions, limits),
		LiquidityScore:  liquidityScore(positions, market),
		UpdatedAt:       time.Now(),
	}
	h.Overall = (h.Profitability + h.Diversification + h.RiskScore + h.LiquidityScore) / 4
	h.Level = healthLevel(h.Overall)
	h.RiskFactors = riskFactors(positions, market, limits)
	return h
}

func healthLevel(overall float64) models.HealthLevel {
	switch {
	case overall >= 80:
		return models.HealthExcellent
	case overall >= 65:
		return models.HealthGood
	case overall >= 50:
		return models.HealthFair
	case overall >= 35:
		return models.HealthPoor
	default:
		return models.HealthCritical
	}
}

// profitabilityScore maps the share of winning positions and the
// aggregate P&L onto [0,100].
func profitabilityScore(positions []models.Position) float64 {
	if len(positions) == 0 {
		return 50
	}
	winners := 0
	var totalPnL float64
	for _, p := range positions {
		if p.UnrealizedPnL > 0 {
			winners++
		}
		totalPnL += p.UnrealizedPnL + p.RealizedPnL
	}
	winRate := float64(winners) / float64(len(positions))

	score := winRate * 70
	if totalPnL > 0 {
		score += 30
	} else if totalPnL > -1000 {
		score += 15
	}
	return utils.ClampScore(score)
}

// diversificationScore penalizes symbol concentration via the
// Herfindahl index of position cost.
func diversificationScore(positions []models.Position) float64 {
	if len(positions) == 0 {
		return 50
	}
	bySymbol := make(map[string]float64)
	var total float64
	for _, p := range positions {
		cost := math.Abs(p.EntryPrice * float64(p.Quantity) * models.ContractMultiplier)
		bySymbol[p.Symbol] += cost
		total += cost
	}
	if total == 0 {
		return 50
	}
	var herfindahl float64
	for _, cost := range bySymbol {
		share := cost / total
		herfindahl += share * share
	}
	// 1/n (perfectly even) maps near 100, 1.0 (single name) maps to 0.
	return utils.ClampScore((1 - herfindahl) * 110)
}

// riskScore measures remaining headroom against the greek caps.
func riskScore(positions []models.Position, limits config.RiskLimitsConfig) float64 {
	var delta, theta, vega float64
	for _, p := range positions {
		for _, leg := range p.Legs {
			delta += leg.Exposure(leg.Greeks.Delta)
			theta += leg.Exposure(leg.Greeks.Theta)
			vega += leg.Exposure(leg.Greeks.Vega)
		}
	}
	worst := 0.0
	if limits.MaxDelta > 0 {
		worst = math.Max(worst, math.Abs(delta)/limits.MaxDelta)
	}
	if limits.MaxTheta > 0 {
		worst = math.Max(worst, math.Abs(theta)/limits.MaxTheta)
	}
	if limits.MaxVega > 0 {
		worst = math.Max(worst, math.Abs(vega)/limits.MaxVega)
	}
	return utils.ClampScore((1 - worst) * 100)
}

// liquidityScore rates how easily the open positions could be unwound,
// using each symbol's trailing option volume as the depth proxy.
func liquidityScore(positions []models.Position, market map[string]*models.MarketData) float64 {
	var scores []float64
	for _, p := range positions {
		md, ok := market[p.Symbol]
		if !ok {
			scores = append(scores, 40)
			continue
		}
		switch {
		case md.AvgVolume >= 50000:
			scores = append(scores, 95)
		case md.AvgVolume >= 10000:
			scores = append(scores, 75)
		case md.AvgVolume >= 1000:
			scores = append(scores, 55)
		default:
			scores = append(scores, 25)
		}
	}
	if len(scores) == 0 {
		return 50
	}
	return utils.Mean(scores)
}

// riskFactors enumerates human-readable threshold breaches.
func riskFactors(positions []models.Position, market map[string]*models.MarketData, limits config.RiskLimitsConfig) []string {
	var delta, theta float64
	expiringSoon := 0
	for _, p := range positions {
		for _, leg := range p.Legs {
			delta += leg.Exposure(leg.Greeks.Delta)
			theta += leg.Exposure(leg.Greeks.Theta)
			if days := int(time.Until(leg.Expiry).Hours() / 24); days >= 0 && days <= 7 {
				expiringSoon++
			}
		}
	}

	var out []string
	if math.Abs(delta) > limits.MaxDelta {
		out = append(out, fmt.Sprintf("net delta %.0f exceeds the %.0f cap", delta, limits.MaxDelta))
	}
	if math.Abs(theta) > limits.MaxTheta {
		out = append(out, fmt.Sprintf("daily theta %.0f exceeds the %.0f cap", theta, limits.MaxTheta))
	}
	if expiringSoon > 0 {
		out = append(out, fmt.Sprintf("%d legs expire within 7 days", expiringSoon))
	}
	for sym, md := range market {
		if md.IVRank > 90 {
			out = append(out, fmt.Sprintf("%s implied volatility is in its 90th rank percentile", sym))
		}
	}
	return out
}

// WorstCases enumerates downside scenarios for the current portfolio.
func WorstCases(positions []models.Position, market map[string]*models.MarketData) []models.WorstCaseScenario {
	var delta, gamma, vega float64
	var spot float64
	for _, p := range positions {
		for _, leg := range p.Legs {
			delta += leg.Exposure(leg.Greeks.Delta)
			gamma += leg.Exposure(leg.Greeks.Gamma)
			vega += leg.Exposure(leg.Greeks.Vega)
		}
		if md, ok := market[p.Symbol]; ok && md.Price > spot {
			spot = md.Price
		}
	}
	if spot == 0 {
		spot = 100
	}

	impact := func(pctMove, volMove float64) float64 {
		move := spot * pctMove
		return delta*move + 0.5*gamma*move*move + vega*volMove*100
	}

	return []models.WorstCaseScenario{
		{
			Name:          "market drop 10%",
			Probability:   0.05,
			EstimatedLoss: math.Min(0, impact(-0.10, 0.15)),
			Mitigation:    "hedge net delta with index futures or long puts",
		},
		{
			Name:          "volatility spike",
			Probability:   0.10,
			EstimatedLoss: math.Min(0, impact(0, 0.20)),
			Mitigation:    "reduce short vega or add long options",
		},
		{
			Name:          "earnings shock",
			Probability:   0.15,
			EstimatedLoss: math.Min(0, impact(-0.08, -0.10)),
			Mitigation:    "close or roll positions through the event",
		},
	}
}
