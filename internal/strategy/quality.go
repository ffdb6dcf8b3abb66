package strategy

import (
	"math"

	"optionscope/internal/liquidity"
	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// classifyRisk buckets a candidate's structural risk.
func classifyRisk(c candidate, m models.StrategyMetrics) models.RiskProfile {
	profile := models.RiskProfile{
		DefinedRisk: !m.MaxLoss.Unbounded,
	}

	theta := math.Abs(m.NetTheta)
	switch {
	case theta < 5:
		profile.TimeDecayRisk = "low"
	case theta < 20:
		profile.TimeDecayRisk = "moderate"
	default:
		profile.TimeDecayRisk = "high"
	}

	vega := math.Abs(m.NetVega)
	switch {
	case vega < 20:
		profile.VolatilityRisk = "low"
	case vega < 100:
		profile.VolatilityRisk = "moderate"
	default:
		profile.VolatilityRisk = "high"
	}

	delta := math.Abs(m.NetDelta)
	switch {
	case delta < 10:
		profile.DirectionalRisk = "low"
	case delta < 50:
		profile.DirectionalRisk = "moderate"
	default:
		profile.DirectionalRisk = "high"
	}

	// Any short option leg can be assigned early. ITM short legs are
	// materially more exposed.
	for _, leg := range c.Legs {
		if leg.Kind != models.LegOption || leg.Side != models.Sell {
			continue
		}
		risk := 0.15
		if math.Abs(leg.Contract.Greeks.Delta) > 0.5 {
			risk = 0.45
		}
		if risk > profile.AssignmentRisk {
			profile.AssignmentRisk = risk
		}
	}
	return profile
}

// assessLegLiquidity scores per-leg tradability. Entry uses the mean
// because all legs fill together; exit uses the worst leg because a
// single illiquid leg traps the whole position.
func assessLegLiquidity(c candidate) models.LiquidityAssessment {
	var scores []float64
	for _, leg := range c.Legs {
		if leg.Kind != models.LegOption {
			continue
		}
		scores = append(scores, liquidity.ContractScore(leg.Contract))
	}
	if len(scores) == 0 {
		// Stock-only structures trade the underlying.
		scores = []float64{100}
	}

	exit := scores[0]
	for _, s := range scores[1:] {
		if s < exit {
			exit = s
		}
	}

	complexity := "simple"
	switch {
	case len(c.Legs) == 2:
		complexity = "moderate"
	case len(c.Legs) > 2:
		complexity = "complex"
	}

	return models.LiquidityAssessment{
		EntryScore:          utils.Mean(scores),
		ExitScore:           exit,
		LegScores:           scores,
		ExecutionComplexity: complexity,
	}
}

// assessFit scores how well the candidate suits the regime.
func assessFit(m models.StrategyMetrics, regime MarketRegime) models.MarketFit {
	fit := models.MarketFit{
		VolatilityFit: volatilityFit(m, regime.Volatility),
		TrendFit:      trendFit(m, regime.Trend),
		TimingFit:     timingFit(m.DaysToExpiry),
	}
	fit.Overall = (fit.VolatilityFit + fit.TrendFit + fit.TimingFit) / 3
	return fit
}

// volatilityFit rewards buying premium when IV is low and selling it
// when IV is high.
func volatilityFit(m models.StrategyMetrics, vol VolRegime) float64 {
	buyingVol := m.NetVega > 0
	switch vol {
	case VolLow:
		if buyingVol {
			return 90
		}
		return 35
	case VolNormal:
		return 65
	case VolHigh:
		if buyingVol {
			return 30
		}
		return 85
	case VolExtreme:
		if buyingVol {
			return 15
		}
		return 95
	}
	return 50
}

// trendFit rewards directional exposure aligned with the trend.
func trendFit(m models.StrategyMetrics, trend Trend) float64 {
	switch trend {
	case TrendBullish:
		if m.NetDelta > 10 {
			return 90
		}
		if m.NetDelta < -10 {
			return 25
		}
		return 60
	case TrendBearish:
		if m.NetDelta < -10 {
			return 90
		}
		if m.NetDelta > 10 {
			return 25
		}
		return 60
	default:
		if math.Abs(m.NetDelta) < 10 {
			return 85
		}
		return 50
	}
}

// timingFit penalizes near-expiry gamma exposure and rewards the
// 21-45 day sweet spot.
func timingFit(dte int) float64 {
	switch {
	case dte <= 7:
		return 20
	case dte < 21:
		return 60
	case dte <= 45:
		return 95
	case dte <= 90:
		return 70
	default:
		return 50
	}
}

// qualityScore blends risk/reward, PoP, liquidity, and timing, with a
// structural edge bonus.
func qualityScore(m models.StrategyMetrics, liq models.LiquidityAssessment, fit models.MarketFit, regime MarketRegime) float64 {
	rr := riskRewardScore(m)
	pop := m.ProbOfProfit * 100

	score := rr*0.30 + pop*0.25 + liq.EntryScore*0.25 + fit.TimingFit*0.20
	score += structuralEdgeBonus(m, liq, regime)
	return utils.ClampScore(score)
}

// riskRewardScore maps the reward-to-risk ratio onto [0,100].
func riskRewardScore(m models.StrategyMetrics) float64 {
	if m.MaxProfit.Unbounded {
		return 85
	}
	loss := math.Abs(m.MaxLoss.Or(m.NetDebit * 3))
	if loss == 0 {
		return 100
	}
	ratio := m.MaxProfit.Amount / loss
	return utils.ClampScore(ratio * 40)
}

// structuralEdgeBonus adds up to 10 points for structural advantages.
func structuralEdgeBonus(m models.StrategyMetrics, liq models.LiquidityAssessment, regime MarketRegime) float64 {
	var bonus float64
	if m.NetVega > 0 && regime.Volatility == VolLow {
		bonus += 4
	}
	if m.NetVega < 0 && (regime.Volatility == VolHigh || regime.Volatility == VolExtreme) {
		bonus += 4
	}
	if m.NetTheta > 0 {
		bonus += 3
	}
	if liq.ExitScore >= 70 {
		bonus += 3
	}
	if bonus > 10 {
		bonus = 10
	}
	return bonus
}

// qualityGrade maps a quality score onto a letter grade.
func qualityGrade(score float64) string {
	switch {
	case score >= 90:
		return "AAA"
	case score >= 80:
		return "AA"
	case score >= 70:
		return "A"
	case score >= 60:
		return "BBB"
	case score >= 50:
		return "BB"
	case score >= 40:
		return "B"
	default:
		return "C"
	}
}
