package strategy

import (
	"math"

	"optionscope/internal/models"
)

// slippageBudget is the fraction of net price reserved for slippage.
const slippageBudget = 0.02

// buildGuidance produces working-order guidance from the candidate's
// net price and leg liquidity.
func buildGuidance(m models.StrategyMetrics, liq models.LiquidityAssessment) models.ExecutionGuidance {
	net := math.Abs(m.NetDebit)

	g := models.ExecutionGuidance{
		MidpointPrice:     net,
		AggressivePrice:   net * 1.05,
		ConservativePrice: net * 0.95,
		SlippageBudget:    slippageBudget,
	}

	switch {
	case liq.EntryScore >= 70:
		g.OrderType = "limit"
		g.EstimatedFillTime = "seconds"
	case liq.EntryScore >= 40:
		g.OrderType = "limit"
		g.EstimatedFillTime = "minutes"
	default:
		g.OrderType = "patient_limit"
		g.EstimatedFillTime = "hours"
	}

	// Multi-leg structures should fill as one order unless a leg is
	// too thin to include in a complex order book.
	g.Simultaneous = liq.ExitScore >= 40 || liq.ExecutionComplexity == "simple"

	return g
}
