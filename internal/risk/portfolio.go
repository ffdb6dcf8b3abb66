package risk

import (
	"math"

	"optionscope/internal/errors"
	"optionscope/internal/models"
)

// interPositionCorrelation is the fixed correlation assumed between
// positions when combining per-position variances.
const interPositionCorrelation = 0.7

// PortfolioMetrics combines per-position risk metrics into a portfolio view.
type PortfolioMetrics struct {
	ExpectedValue float64
	VaR95         float64
	CVaR95        float64
	Positions     int
}

// AggregatePositions combines independent per-position metrics under the
// fixed correlation assumption:
// Var = sum(var_i^2) + sum_{i<j} 2*rho*var_i*var_j.
func AggregatePositions(metrics []*models.AdvancedRiskMetrics) (*PortfolioMetrics, error) {
	if len(metrics) == 0 {
		return nil, errors.Wrap(errors.ErrNoData, "aggregating portfolio risk")
	}

	out := &PortfolioMetrics{Positions: len(metrics)}

	vars := make([]float64, len(metrics))
	cvars := make([]float64, len(metrics))
	for i, m := range metrics {
		out.ExpectedValue += m.ExpectedValue
		vars[i] = math.Abs(m.VaR.MonteCarlo95)
		cvars[i] = math.Abs(m.CVaR95)
	}

	out.VaR95 = -combineCorrelated(vars)
	out.CVaR95 = -combineCorrelated(cvars)

	return out, nil
}

func combineCorrelated(vars []float64) float64 {
	var total float64
	for i, vi := range vars {
		total += vi * vi
		for j := i + 1; j < len(vars); j++ {
			total += 2 * interPositionCorrelation * vi * vars[j]
		}
	}
	return math.Sqrt(total)
}
