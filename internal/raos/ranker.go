// Package raos computes the Risk-Adjusted Opportunity Score, the single
// normalized number the scanner ranks strategies by.
package raos

import (
	"fmt"
	"math"
	"sort"

	"optionscope/internal/models"
	"optionscope/internal/strategy"
	"optionscope/pkg/utils"
)

// Tier cutoffs for the composite score.
const (
	tierS = 85
	tierA = 75
	tierB = 60
	tierC = 45
)

// Ranker scores strategies and ranks them within a cycle.
type Ranker struct{}

// NewRanker returns a Ranker.
func NewRanker() *Ranker { return &Ranker{} }

// Score computes the RAOS record for one strategy. The composite
// multiplies the favorable factors and divides by the risk factors, so
// a zero anywhere in the numerator zeroes the score and no single risk
// factor can be averaged away.
func (r *Ranker) Score(s models.OptimizedStrategy, risk models.AdvancedRiskMetrics, regime strategy.MarketRegime) models.RAOSRecord {
	comp := buildComponents(s, risk, regime)
	penalties := buildPenalties(s, risk, regime)

	numerator := comp.ExpectedReturn * comp.ProbOfProfit * comp.Liquidity * comp.Conviction
	denominator := (101 - comp.MaxLoss) * (101 - comp.TailRisk) * (101 - comp.VolatilityRisk) * (101 - comp.ExecutionRisk)
	score := numerator / denominator * 50
	score = utils.ClampScore(score)

	var totalHaircut float64
	for _, p := range penalties {
		totalHaircut += p.Percent
	}
	if totalHaircut > 100 {
		totalHaircut = 100
	}
	score = utils.ClampScore(score * (1 - totalHaircut/100))

	rec := models.RAOSRecord{
		Strategy:   s,
		Risk:       risk,
		Components: comp,
		Penalties:  penalties,
		Score:      score,
		Tier:       tier(score),
		Confidence: confidence(score, comp),
	}
	rec.Institutional = institutionalGate(rec)
	rec.Insights = buildInsights(rec)
	return rec
}

// Rank fills percentile and category rank across a scored batch and
// returns it sorted by score descending.
func (r *Ranker) Rank(records []models.RAOSRecord) []models.RAOSRecord {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].Strategy.Name < records[j].Strategy.Name
	})

	n := len(records)
	categoryCounts := make(map[models.StrategyFamily]int)
	for i := range records {
		if n > 1 {
			records[i].Percentile = float64(n-1-i) / float64(n-1) * 100
		} else {
			records[i].Percentile = 100
		}
		categoryCounts[records[i].Strategy.Family]++
		records[i].CategoryRank = categoryCounts[records[i].Strategy.Family]
	}
	return records
}

func buildComponents(s models.OptimizedStrategy, risk models.AdvancedRiskMetrics, regime strategy.MarketRegime) models.RAOSComponents {
	return models.RAOSComponents{
		ExpectedReturn: expectedReturnScore(s),
		ProbOfProfit:   utils.ClampScore(s.Metrics.ProbOfProfit * 100),
		Liquidity:      utils.ClampScore(s.Liquidity.EntryScore),
		Conviction:     conviction(s, regime),
		MaxLoss:        maxLossScore(s),
		TailRisk:       tailRiskScore(risk),
		VolatilityRisk: volRiskScore(s),
		ExecutionRisk:  execRiskScore(s),
	}
}

// expectedReturnScore maps annualized return onto [0,100].
func expectedReturnScore(s models.OptimizedStrategy) float64 {
	if s.Metrics.ExpectedValue <= 0 {
		return 0
	}
	return utils.ClampScore(s.Metrics.AnnualizedReturn * 100)
}

// conviction starts at a neutral 50 and moves with structural and
// regime evidence.
func conviction(s models.OptimizedStrategy, regime strategy.MarketRegime) float64 {
	c := 50.0

	volEdge := (s.Metrics.NetVega > 0 && regime.Volatility == strategy.VolLow) ||
		(s.Metrics.NetVega < 0 && (regime.Volatility == strategy.VolHigh || regime.Volatility == strategy.VolExtreme))
	if volEdge {
		c += 25
	}
	if s.Metrics.NetTheta > 0 && s.Metrics.DaysToExpiry <= 45 {
		c += 15
	}
	if s.Risk.DefinedRisk && len(s.Legs) > 1 {
		c += 10
	}
	if s.Fit.Overall > 80 {
		c += 15
	}
	if regime.HighImpactEventWithin(7) {
		c -= 20
	}
	return utils.ClampScore(c)
}

// maxLossScore is higher when the worst case is small relative to the
// capital deployed. Unbounded loss scores zero.
func maxLossScore(s models.OptimizedStrategy) float64 {
	if s.Metrics.MaxLoss.Unbounded {
		return 0
	}
	loss := math.Abs(s.Metrics.MaxLoss.Amount)
	capital := math.Abs(s.Metrics.NetDebit)
	if capital == 0 {
		capital = loss
	}
	if loss == 0 {
		return 100
	}
	return utils.ClampScore(100 - (loss/capital)*50)
}

// tailRiskScore is higher when the simulated tail is fat.
func tailRiskScore(risk models.AdvancedRiskMetrics) float64 {
	score := risk.Tail.ProbThreeSigma * 1000
	if risk.Skewness < -0.5 {
		score += 20
	}
	if risk.Kurtosis > 1 {
		score += 15
	}
	return utils.ClampScore(score)
}

// volRiskScore is higher for larger net vega exposure.
func volRiskScore(s models.OptimizedStrategy) float64 {
	return utils.ClampScore(math.Abs(s.Metrics.NetVega))
}

// execRiskScore inverts the exit liquidity score and adds a complexity
// surcharge.
func execRiskScore(s models.OptimizedStrategy) float64 {
	score := 100 - s.Liquidity.ExitScore
	if s.Liquidity.ExecutionComplexity == "complex" {
		score += 10
	}
	return utils.ClampScore(score)
}

func buildPenalties(s models.OptimizedStrategy, risk models.AdvancedRiskMetrics, regime strategy.MarketRegime) []models.RAOSPenalty {
	var out []models.RAOSPenalty

	if s.Metrics.MaxLoss.Unbounded {
		out = append(out, models.RAOSPenalty{
			Reason:     "unlimited risk without a hedge",
			Percent:    40,
			Critical:   true,
			Mitigation: "add a protective wing to cap the worst case",
		})
	}
	if s.Liquidity.EntryScore < 100 {
		haircut := (100 - s.Liquidity.EntryScore) * 0.3
		if haircut >= 1 {
			out = append(out, models.RAOSPenalty{
				Reason:     "thin markets in one or more legs",
				Percent:    haircut,
				Critical:   haircut >= 20,
				Mitigation: "reduce size or move to more liquid strikes",
			})
		}
	}
	volEdge := (s.Metrics.NetVega > 0 && regime.Volatility == strategy.VolLow) ||
		(s.Metrics.NetVega < 0 && (regime.Volatility == strategy.VolHigh || regime.Volatility == strategy.VolExtreme))
	if regime.HighImpactEventWithin(7) && !volEdge {
		out = append(out, models.RAOSPenalty{
			Reason:     "event risk without a volatility edge",
			Percent:    25,
			Critical:   true,
			Mitigation: "wait for the event to pass or switch to a vol-aware structure",
		})
	}
	if s.Metrics.NetTheta < -20 && s.Metrics.DaysToExpiry > 60 {
		out = append(out, models.RAOSPenalty{
			Reason:     "heavy time decay on a long-dated debit position",
			Percent:    20,
			Mitigation: "shorten the expiry or finance the debit with a short leg",
		})
	}
	if math.Abs(s.Metrics.NetGamma) > 50 && s.Metrics.DaysToExpiry <= 7 {
		out = append(out, models.RAOSPenalty{
			Reason:     "extreme gamma into expiry week",
			Percent:    30,
			Critical:   true,
			Mitigation: "roll to a later expiry before gamma dominates",
		})
	}
	if s.Fit.TimingFit < 30 {
		out = append(out, models.RAOSPenalty{
			Reason:     "poor expiry timing",
			Percent:    15,
			Mitigation: "target the 21-45 day window",
		})
	}
	return out
}

func tier(score float64) string {
	switch {
	case score >= tierS:
		return "S"
	case score >= tierA:
		return "A"
	case score >= tierB:
		return "B"
	case score >= tierC:
		return "C"
	default:
		return "D"
	}
}

// confidence reflects how much to trust the score at its extremes.
// Very high scores on thin evidence and very low scores both reduce
// confidence.
func confidence(score float64, comp models.RAOSComponents) float64 {
	c := 70.0
	switch {
	case score >= 90:
		if comp.Liquidity >= 70 {
			c += 15
		} else {
			c -= 25
		}
	case score >= 70:
		c += 15
	case score < 20:
		c -= 25
	}
	return utils.ClampScore(c)
}

// institutionalGate applies the hard suitability screen.
func institutionalGate(rec models.RAOSRecord) models.InstitutionalGrade {
	var disq []string

	if rec.Strategy.Metrics.MaxLoss.Unbounded {
		disq = append(disq, "unlimited risk")
	}
	if rec.Strategy.Liquidity.EntryScore < 50 {
		disq = append(disq, "liquidity below 50")
	}
	if rec.Risk.Kelly.RiskOfRuin > 0.10 {
		disq = append(disq, fmt.Sprintf("risk of ruin %.2f above 0.10", rec.Risk.Kelly.RiskOfRuin))
	}
	if rec.Strategy.Metrics.DaysToExpiry <= 7 {
		disq = append(disq, "expiry within 7 days")
	}
	if len(rec.Strategy.Legs) < 2 {
		disq = append(disq, "single-leg structure")
	}

	grade := models.InstitutionalGrade{
		Disqualifiers: disq,
		Eligible:      len(disq) == 0 && rec.Score >= 60,
	}
	if grade.Eligible {
		grade.HedgeFund = rec.Risk.Kelly.RiskOfRuin <= 0.10
		grade.FamilyOffice = rec.Risk.Kelly.RiskOfRuin <= 0.05
		grade.PensionFund = rec.Risk.Kelly.RiskOfRuin <= 0.02 && rec.Strategy.Risk.DefinedRisk
	}
	return grade
}

func buildInsights(rec models.RAOSRecord) []models.RAOSInsight {
	var out []models.RAOSInsight

	for _, p := range rec.Penalties {
		if p.Critical {
			out = append(out, models.RAOSInsight{
				Priority: 1,
				Message:  fmt.Sprintf("%s: %s", p.Reason, p.Mitigation),
			})
		}
	}
	if rec.Components.Conviction < 40 {
		out = append(out, models.RAOSInsight{
			Priority: 2,
			Message:  "low conviction: the structure has no clear regime edge",
		})
	}
	if rec.Strategy.Metrics.DaysToExpiry <= 10 && rec.Strategy.Metrics.ProbOfProfit > 0.8 {
		out = append(out, models.RAOSInsight{
			Priority: 2,
			Message:  "high probability of profit this close to expiry usually means the reward left is small",
		})
	}
	if rec.Components.Liquidity < 50 {
		out = append(out, models.RAOSInsight{
			Priority: 3,
			Message:  "entry liquidity is thin, expect slippage above the budget",
		})
	}
	if rec.Strategy.QualityScore < 50 {
		out = append(out, models.RAOSInsight{
			Priority: 3,
			Message:  "overall trade quality is weak relative to the scan universe",
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
