package risk

import (
	"math"
	"sort"

	"optionscope/internal/errors"
	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// zScore returns the one-sided standard normal quantile for the common
// confidence levels used in VaR.
func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.999:
		return 3.090
	case confidence >= 0.99:
		return 2.326
	case confidence >= 0.95:
		return 1.645
	case confidence >= 0.90:
		return 1.282
	default:
		return 1.0
	}
}

// MetricsInput carries the context needed beyond raw outcomes.
type MetricsInput struct {
	Outcomes          []float64
	HistoricalReturns []float64 // daily underlying returns, may be empty
	Capital           float64   // capital at risk, used for historical VaR scaling
	MaxLoss           models.Payoff
	HorizonDays       int
	RiskFreeRate      float64
}

// ComputeMetrics derives the full risk metric set from an outcome
// distribution. An empty distribution is a configuration error and fails
// fast rather than producing zero-divide statistics.
func ComputeMetrics(in MetricsInput) (*models.AdvancedRiskMetrics, error) {
	if len(in.Outcomes) == 0 {
		return nil, errors.Wrap(errors.ErrEmptySimulation, "computing risk metrics")
	}

	outcomes := in.Outcomes
	m := &models.AdvancedRiskMetrics{
		Paths:       len(outcomes),
		Percentiles: make(map[int]float64),
	}

	m.ExpectedValue = utils.Mean(outcomes)

	profitable := 0
	for _, o := range outcomes {
		if o > 0 {
			profitable++
		}
	}
	m.ProbOfProfit = utils.Clamp01(float64(profitable) / float64(len(outcomes)))

	sd := utils.StdDev(outcomes)

	// Parametric VaR from the normal approximation of the outcome distribution.
	m.VaR.Parametric95 = m.ExpectedValue - zScore(0.95)*sd
	m.VaR.Parametric99 = m.ExpectedValue - zScore(0.99)*sd

	// Monte Carlo VaR straight off the empirical distribution.
	m.VaR.MonteCarlo95 = utils.Percentile(outcomes, 5)
	m.VaR.MonteCarlo99 = utils.Percentile(outcomes, 1)
	m.VaR.MonteCarlo999 = utils.Percentile(outcomes, 0.1)

	// Historical VaR from the return series when it is long enough to be
	// meaningful; otherwise fall back to the Monte Carlo estimate.
	if len(in.HistoricalReturns) >= 100 && in.Capital > 0 {
		m.VaR.Historical95 = utils.Percentile(in.HistoricalReturns, 5) * in.Capital
		m.VaR.Historical99 = utils.Percentile(in.HistoricalReturns, 1) * in.Capital
	} else {
		m.VaR.Historical95 = m.VaR.MonteCarlo95
		m.VaR.Historical99 = m.VaR.MonteCarlo99
	}

	m.CVaR95 = conditionalVaR(outcomes, m.VaR.MonteCarlo95)
	m.CVaR99 = conditionalVaR(outcomes, m.VaR.MonteCarlo99)

	m.Skewness = utils.Skewness(outcomes)
	m.Kurtosis = utils.Kurtosis(outcomes)

	for _, p := range []int{1, 5, 10, 25, 50, 75, 90, 95, 99} {
		m.Percentiles[p] = utils.Percentile(outcomes, float64(p))
	}

	m.Tail = tailExposure(outcomes, m.ExpectedValue, sd)
	m.Kelly = kellyCriterion(outcomes, in.MaxLoss)

	if sd > 0 && in.HorizonDays > 0 {
		periodsPerYear := 365.0 / float64(in.HorizonDays)
		excess := m.ExpectedValue - in.RiskFreeRate*math.Max(in.Capital, 1)/periodsPerYear
		m.SharpeRatio = excess / sd * math.Sqrt(periodsPerYear)
	}

	if m.CVaR95 != 0 {
		m.RiskAdjustedReturn = m.ExpectedValue / math.Abs(m.CVaR95)
	}

	return m, nil
}

// conditionalVaR is the mean of outcomes at or beyond the VaR cutoff.
func conditionalVaR(outcomes []float64, cutoff float64) float64 {
	var tail []float64
	for _, o := range outcomes {
		if o <= cutoff {
			tail = append(tail, o)
		}
	}
	if len(tail) == 0 {
		return cutoff
	}
	return utils.Mean(tail)
}

func tailExposure(outcomes []float64, mean, sd float64) models.TailExposure {
	var te models.TailExposure

	sorted := make([]float64, len(outcomes))
	copy(sorted, outcomes)
	sort.Float64s(sorted)

	n := len(sorted)
	tailSize := n / 20
	if tailSize == 0 {
		tailSize = 1
	}

	te.WorstFivePercent = utils.Mean(sorted[:tailSize])
	te.BestFivePercent = utils.Mean(sorted[n-tailSize:])
	if te.WorstFivePercent != 0 {
		te.TailRatio = math.Abs(te.BestFivePercent) / math.Abs(te.WorstFivePercent)
	}

	if sd > 0 {
		three, six := 0, 0
		for _, o := range outcomes {
			dev := math.Abs(o - mean)
			if dev > 3*sd {
				three++
			}
			if dev > 6*sd {
				six++
			}
		}
		te.ProbThreeSigma = float64(three) / float64(n)
		te.ProbSixSigma = float64(six) / float64(n)
	}

	return te
}

// kellyCriterion sizes the position from the empirical win rate and the
// win/loss payoff ratio, applying the 25%-of-Kelly conservative adjustment.
func kellyCriterion(outcomes []float64, maxLoss models.Payoff) models.KellyCriterion {
	var k models.KellyCriterion

	var wins, losses []float64
	for _, o := range outcomes {
		if o > 0 {
			wins = append(wins, o)
		} else if o < 0 {
			losses = append(losses, o)
		}
	}

	decided := len(wins) + len(losses)
	if decided == 0 {
		k.Recommendation = "undersized"
		return k
	}

	k.WinProbability = float64(len(wins)) / float64(decided)

	avgWin := utils.Mean(wins)
	avgLoss := math.Abs(utils.Mean(losses))
	if avgLoss > 0 {
		k.WinLossRatio = avgWin / avgLoss
	}

	if k.WinLossRatio > 0 {
		p := k.WinProbability
		q := 1 - p
		k.OptimalFraction = (p*k.WinLossRatio - q) / k.WinLossRatio
	}
	k.OptimalFraction = math.Max(k.OptimalFraction, 0)
	k.AdjustedFraction = math.Min(0.25, k.OptimalFraction*0.25)

	// Heuristic risk of ruin from the edge at the adjusted size, over a
	// notional 100-trade sequence.
	edge := k.WinProbability*k.WinLossRatio - (1 - k.WinProbability)
	if edge <= 0 {
		k.RiskOfRuin = 1
	} else {
		k.RiskOfRuin = utils.Clamp01(math.Exp(-2 * edge * 10))
	}
	if maxLoss.Unbounded {
		k.RiskOfRuin = utils.Clamp01(k.RiskOfRuin + 0.10)
	}

	switch {
	case k.OptimalFraction < 0.05:
		k.Recommendation = "undersized"
	case k.OptimalFraction > 0.25:
		k.Recommendation = "oversized"
	default:
		k.Recommendation = "optimal"
	}

	return k
}
