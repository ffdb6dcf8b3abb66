package risk

import (
	"optionscope/internal/models"
)

// GreekExposure is the portfolio sensitivity snapshot a stress scenario
// is applied to.
type GreekExposure struct {
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
}

// scenarioCatalog is the fixed set of named shocks. Price moves are
// fractional, vol moves are absolute IV points (vega is per 1% move).
var scenarioCatalog = []models.StressScenario{
	{
		Name:        "black_monday",
		PriceMove:   -0.20,
		VolMove:     0.30,
		Days:        1,
		Description: "severe one-day crash with vol explosion",
	},
	{
		Name:        "financial_crisis",
		PriceMove:   -0.35,
		VolMove:     0.40,
		Days:        20,
		Description: "multi-week systemic drawdown",
	},
	{
		Name:        "rate_shock",
		PriceMove:   -0.08,
		VolMove:     0.10,
		Days:        5,
		Description: "abrupt policy-rate repricing",
	},
	{
		Name:        "earnings_shock",
		PriceMove:   -0.12,
		VolMove:     -0.15,
		Days:        1,
		Description: "single-name gap down with post-event vol crush",
	},
	{
		Name:        "melt_up",
		PriceMove:   0.15,
		VolMove:     -0.10,
		Days:        10,
		Description: "sharp rally with vol compression",
	},
}

// StressTest applies the scenario catalog to a greek exposure.
// Impact = delta*move + 0.5*gamma*move^2 + vega*volMove + theta*days,
// where move is the fractional price move, so 100 net delta under a
// -5% shock contributes -5 before the gamma term.
func StressTest(exp GreekExposure) models.StressTestResult {
	var result models.StressTestResult

	for _, sc := range scenarioCatalog {
		move := sc.PriceMove
		sc.Impact = exp.Delta*move +
			0.5*exp.Gamma*move*move +
			exp.Vega*(sc.VolMove*100) +
			exp.Theta*sc.Days
		result.Scenarios = append(result.Scenarios, sc)
	}

	result.WorstCase = result.Scenarios[0]
	var lossSum float64
	losing := 0
	for _, sc := range result.Scenarios {
		if sc.Impact < result.WorstCase.Impact {
			result.WorstCase = sc
		}
		if sc.Impact < 0 {
			lossSum += sc.Impact
			losing++
		}
	}
	if losing > 0 {
		result.AverageLoss = lossSum / float64(losing)
	}

	return result
}
