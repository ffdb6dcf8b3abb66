package strategy

import (
	"math"
	"sort"

	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// legCost returns the signed dollar cost of opening a leg. Positive
// means paying.
func legCost(leg models.StrategyLeg) float64 {
	if leg.Kind == models.LegStock {
		return leg.Price * float64(leg.Quantity) * leg.Side.Sign()
	}
	return leg.Price * float64(leg.Quantity) * leg.Side.Sign() * models.ContractMultiplier
}

// PayoffAt returns the dollar P&L of the full structure if the
// underlying settles at price s.
func PayoffAt(legs []models.StrategyLeg, s float64) float64 {
	var total float64
	for _, leg := range legs {
		switch leg.Kind {
		case models.LegStock:
			total += (s - leg.Price) * float64(leg.Quantity) * leg.Side.Sign()
		case models.LegOption:
			var intrinsic float64
			if leg.Contract.Type == models.Call {
				intrinsic = math.Max(0, s-leg.Contract.Strike)
			} else {
				intrinsic = math.Max(0, leg.Contract.Strike-s)
			}
			total += (intrinsic - leg.Price) * float64(leg.Quantity) * leg.Side.Sign() * models.ContractMultiplier
		}
	}
	return total
}

// upsideSlope returns the per-share payoff slope above every strike.
// A positive slope means profit grows without bound as price rises.
func upsideSlope(legs []models.StrategyLeg) float64 {
	var slope float64
	for _, leg := range legs {
		switch leg.Kind {
		case models.LegStock:
			slope += float64(leg.Quantity) * leg.Side.Sign()
		case models.LegOption:
			if leg.Contract.Type == models.Call {
				slope += float64(leg.Quantity) * leg.Side.Sign() * models.ContractMultiplier
			}
		}
	}
	return slope
}

// kinkPoints returns the sorted settlement prices at which the payoff
// changes slope, bracketed by zero and a point above every strike.
func kinkPoints(legs []models.StrategyLeg, spot float64) []float64 {
	pts := []float64{0}
	maxStrike := spot
	for _, leg := range legs {
		if leg.Kind != models.LegOption {
			continue
		}
		pts = append(pts, leg.Contract.Strike)
		if leg.Contract.Strike > maxStrike {
			maxStrike = leg.Contract.Strike
		}
	}
	pts = append(pts, maxStrike*2)
	sort.Float64s(pts)
	return pts
}

// ComputeMetrics evaluates the economics of a candidate at expiry.
func ComputeMetrics(c candidate, spot float64) models.StrategyMetrics {
	m := models.StrategyMetrics{
		NetDebit:     0,
		DaysToExpiry: math.MaxInt32,
	}
	for _, leg := range c.Legs {
		m.NetDebit += legCost(leg)
		if leg.Kind == models.LegOption {
			exp := float64(leg.Quantity) * leg.Side.Sign() * models.ContractMultiplier
			m.NetDelta += leg.Contract.Greeks.Delta * exp
			m.NetGamma += leg.Contract.Greeks.Gamma * exp
			m.NetTheta += leg.Contract.Greeks.Theta * exp
			m.NetVega += leg.Contract.Greeks.Vega * exp
			if leg.Contract.DaysToExpiry < m.DaysToExpiry {
				m.DaysToExpiry = leg.Contract.DaysToExpiry
			}
		}
	}
	if m.DaysToExpiry == math.MaxInt32 {
		m.DaysToExpiry = 0
	}

	pts := kinkPoints(c.Legs, spot)
	best := math.Inf(-1)
	worst := math.Inf(1)
	for _, p := range pts {
		v := PayoffAt(c.Legs, p)
		best = math.Max(best, v)
		worst = math.Min(worst, v)
	}

	slope := upsideSlope(c.Legs)
	switch {
	case slope > 0:
		m.MaxProfit = models.Unlimited()
	default:
		m.MaxProfit = models.Bounded(best)
	}
	switch {
	case slope < 0:
		m.MaxLoss = models.Unlimited()
	default:
		m.MaxLoss = models.Bounded(worst)
	}

	m.Breakevens = breakevens(c.Legs, pts)
	m.ProbOfProfit = probOfProfit(c.Legs, m.NetDebit)

	capital := capitalAtRisk(m)
	profitEstimate := m.MaxProfit.Or(capital * 2)
	lossEstimate := math.Abs(m.MaxLoss.Or(-capital))
	m.ExpectedValue = m.ProbOfProfit*profitEstimate - (1-m.ProbOfProfit)*lossEstimate
	if capital > 0 {
		m.ReturnOnCapital = profitEstimate / capital
	}
	if m.DaysToExpiry > 0 {
		m.AnnualizedReturn = m.ReturnOnCapital * 365 / float64(m.DaysToExpiry)
	}
	return m
}

// breakevens finds settlement prices where the payoff crosses zero.
// The payoff is piecewise linear between kink points, so a sign change
// on a segment yields one linearly interpolated root.
func breakevens(legs []models.StrategyLeg, pts []float64) []float64 {
	var out []float64
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		if a == b {
			continue
		}
		va, vb := PayoffAt(legs, a), PayoffAt(legs, b)
		if va == 0 {
			out = append(out, a)
			continue
		}
		if va*vb < 0 {
			out = append(out, a+(b-a)*va/(va-vb))
		}
	}
	return out
}

// probOfProfit approximates PoP from leg deltas. Debit structures need
// the long legs to move into the money; credit structures need the
// short legs to stay out of it.
func probOfProfit(legs []models.StrategyLeg, netDebit float64) float64 {
	var longDeltas, shortDeltas []float64
	for _, leg := range legs {
		if leg.Kind != models.LegOption {
			continue
		}
		d := math.Abs(leg.Contract.Greeks.Delta)
		if leg.Side == models.Buy {
			longDeltas = append(longDeltas, d)
		} else {
			shortDeltas = append(shortDeltas, d)
		}
	}
	if netDebit > 0 {
		if len(longDeltas) == 0 {
			return 0.5
		}
		return utils.Clamp01(utils.Mean(longDeltas))
	}
	if len(shortDeltas) == 0 {
		return 0.5
	}
	return utils.Clamp01(1 - utils.Mean(shortDeltas))
}

// capitalAtRisk is the buying power a candidate consumes.
func capitalAtRisk(m models.StrategyMetrics) float64 {
	if !m.MaxLoss.Unbounded {
		if loss := math.Abs(m.MaxLoss.Amount); loss > 0 {
			return loss
		}
	}
	if m.NetDebit > 0 {
		return m.NetDebit
	}
	return math.Abs(m.NetDebit)
}
