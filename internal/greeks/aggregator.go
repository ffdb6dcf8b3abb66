package greeks

import (
	"math"
	"sort"
	"time"

	"optionscope/internal/config"
	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// PortfolioGreeks holds portfolio-level aggregated sensitivities.
type PortfolioGreeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64

	Advanced models.AdvancedGreeks

	ExpiryBuckets []ExpiryBucket
	GammaProfile  GammaProfile
	ThetaDecay    []DecayPoint
	VegaScenarios []VegaScenario
	Limits        []LimitUtilization
	Hedges        []HedgeRecommendation

	// Legs skipped because market data for their underlying was missing.
	SkippedLegs int

	UpdatedAt time.Time
}

// ExpiryBucket groups exposure by expiry date.
type ExpiryBucket struct {
	Expiry           time.Time
	Delta            float64
	Gamma            float64
	Theta            float64
	Vega             float64
	Notional         float64
	RiskContribution float64 // bucket notional / total notional
}

// PinRiskLevel classifies gamma concentration near the money.
type PinRiskLevel string

const (
	PinLow     PinRiskLevel = "low"
	PinMedium  PinRiskLevel = "medium"
	PinHigh    PinRiskLevel = "high"
	PinExtreme PinRiskLevel = "extreme"
)

// GammaProfile buckets gamma by strike and assesses pin risk.
type GammaProfile struct {
	ByStrike    map[float64]float64
	NearbyGamma float64 // sum of |gamma| within 5% of spot
	PinRisk     PinRiskLevel
	PinProb     float64 // min(nearbyGamma/1000, 0.4)
}

// DecayPoint is one day on the projected theta decay curve.
type DecayPoint struct {
	Day        int
	Date       time.Time
	DailyTheta float64
	Cumulative float64
}

// VegaScenario is the portfolio value change under one IV multiplier.
type VegaScenario struct {
	VolMultiplier float64
	VolLevel      float64
	ValueChange   float64
}

// LimitUtilization reports one greek against its cap.
type LimitUtilization struct {
	Greek       string
	Value       float64
	Limit       float64
	Utilization float64
	Breached    bool // utilization > 0.8
}

// HedgeRecommendation proposes a hedge for an over-utilized greek.
type HedgeRecommendation struct {
	Greek         string
	Severity      string // warning at >0.7 utilization, critical at >1.0
	Instrument    string
	Quantity      int
	EstimatedCost float64
	Effectiveness float64 // [0,1]
	Rationale     string
}

// Aggregator rolls position legs up to portfolio-level exposure.
type Aggregator struct {
	limits config.RiskLimitsConfig
}

// NewAggregator creates a portfolio greeks aggregator with the given caps.
func NewAggregator(limits config.RiskLimitsConfig) *Aggregator {
	return &Aggregator{limits: limits}
}

// Aggregate computes the full portfolio exposure view. Legs whose underlying
// has no market data are excluded from expiry buckets but still counted in
// the raw greek totals; they are reported via SkippedLegs.
func (a *Aggregator) Aggregate(positions []models.Position, market map[string]*models.MarketData) *PortfolioGreeks {
	pg := &PortfolioGreeks{
		GammaProfile: GammaProfile{ByStrike: make(map[float64]float64)},
		UpdatedAt:    time.Now(),
	}

	buckets := make(map[time.Time]*ExpiryBucket)
	var totalNotional float64

	for _, pos := range positions {
		if !pos.Active {
			continue
		}
		for _, leg := range pos.Legs {
			pg.Delta += leg.Exposure(leg.Greeks.Delta)
			pg.Gamma += leg.Exposure(leg.Greeks.Gamma)
			pg.Theta += leg.Exposure(leg.Greeks.Theta)
			pg.Vega += leg.Exposure(leg.Greeks.Vega)
			pg.Rho += leg.Exposure(leg.Greeks.Rho)

			md, ok := market[leg.Symbol]
			if !ok || md == nil {
				pg.SkippedLegs++
				continue
			}

			a.aggregateAdvanced(pg, leg, md)

			day := leg.Expiry.Truncate(24 * time.Hour)
			bucket, ok := buckets[day]
			if !ok {
				bucket = &ExpiryBucket{Expiry: day}
				buckets[day] = bucket
			}
			bucket.Delta += leg.Exposure(leg.Greeks.Delta)
			bucket.Gamma += leg.Exposure(leg.Greeks.Gamma)
			bucket.Theta += leg.Exposure(leg.Greeks.Theta)
			bucket.Vega += leg.Exposure(leg.Greeks.Vega)

			notional := math.Abs(md.Price * float64(leg.Quantity) * models.ContractMultiplier)
			bucket.Notional += notional
			totalNotional += notional

			pg.GammaProfile.ByStrike[leg.Strike] += leg.Exposure(leg.Greeks.Gamma)
		}
	}

	for _, b := range buckets {
		if totalNotional > 0 {
			b.RiskContribution = b.Notional / totalNotional
		}
		pg.ExpiryBuckets = append(pg.ExpiryBuckets, *b)
	}
	sort.Slice(pg.ExpiryBuckets, func(i, j int) bool {
		return pg.ExpiryBuckets[i].Expiry.Before(pg.ExpiryBuckets[j].Expiry)
	})

	a.assessPinRisk(pg, positions, market)
	pg.ThetaDecay = a.projectThetaDecay(pg.Theta, time.Now())
	pg.VegaScenarios = a.vegaScenarios(pg.Vega, market)
	pg.Limits = a.limitUtilization(pg)
	pg.Hedges = a.hedgeRecommendations(pg)

	return pg
}

func (a *Aggregator) aggregateAdvanced(pg *PortfolioGreeks, leg models.PositionLeg, md *models.MarketData) {
	expiry := time.Until(leg.Expiry).Hours() / 24 / 365
	if expiry <= 0 {
		return
	}
	vol := leg.ImpliedVol
	if vol <= 0 {
		vol = md.HistoricalVol
	}

	adv := ComputeAdvanced(md.Price, leg.Strike, md.RiskFreeRate, vol, expiry, leg.Type)
	pg.Advanced.Charm += leg.Exposure(adv.Charm)
	pg.Advanced.Vanna += leg.Exposure(adv.Vanna)
	pg.Advanced.Volga += leg.Exposure(adv.Volga)
	pg.Advanced.Veta += leg.Exposure(adv.Veta)
	pg.Advanced.Speed += leg.Exposure(adv.Speed)
	pg.Advanced.Zomma += leg.Exposure(adv.Zomma)
	pg.Advanced.Color += leg.Exposure(adv.Color)
}

// assessPinRisk analyzes gamma at strikes within 5% of the current price.
func (a *Aggregator) assessPinRisk(pg *PortfolioGreeks, positions []models.Position, market map[string]*models.MarketData) {
	var nearby float64

	for _, pos := range positions {
		if !pos.Active {
			continue
		}
		md, ok := market[pos.Symbol]
		if !ok || md == nil || md.Price <= 0 {
			continue
		}
		for _, leg := range pos.Legs {
			if math.Abs(leg.Strike-md.Price)/md.Price <= 0.05 {
				nearby += math.Abs(leg.Exposure(leg.Greeks.Gamma))
			}
		}
	}

	pg.GammaProfile.NearbyGamma = nearby
	pg.GammaProfile.PinProb = math.Min(nearby/1000, 0.4)
	switch {
	case nearby < 200:
		pg.GammaProfile.PinRisk = PinLow
	case nearby < 500:
		pg.GammaProfile.PinRisk = PinMedium
	case nearby < 1000:
		pg.GammaProfile.PinRisk = PinHigh
	default:
		pg.GammaProfile.PinRisk = PinExtreme
	}
}

// projectThetaDecay builds a 30-day daily decay projection. Decay accelerates
// 1.5x inside the final 7 days of the window and 3x on calendar weekend days,
// capturing the non-trading-day decay that shows up at Monday open.
func (a *Aggregator) projectThetaDecay(theta float64, from time.Time) []DecayPoint {
	const days = 30
	curve := make([]DecayPoint, 0, days)
	var cumulative float64

	for day := 1; day <= days; day++ {
		date := from.AddDate(0, 0, day)
		daily := theta
		if days-day < 7 {
			daily *= 1.5
		}
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			daily *= 3
		}
		cumulative += daily
		curve = append(curve, DecayPoint{
			Day:        day,
			Date:       date,
			DailyTheta: daily,
			Cumulative: cumulative,
		})
	}
	return curve
}

// vegaScenarios evaluates the portfolio under six discrete IV multipliers
// using a linear vega approximation.
func (a *Aggregator) vegaScenarios(vega float64, market map[string]*models.MarketData) []VegaScenario {
	var atmVol float64
	var n int
	for _, md := range market {
		if md != nil && md.ImpliedVol > 0 {
			atmVol += md.ImpliedVol
			n++
		}
	}
	if n > 0 {
		atmVol /= float64(n)
	}

	multipliers := []float64{0.5, 0.8, 1.0, 1.2, 1.5, 2.0}
	scenarios := make([]VegaScenario, 0, len(multipliers))
	for _, m := range multipliers {
		// Vega is quoted per 1% vol move.
		volChange := atmVol * (m - 1) * 100
		scenarios = append(scenarios, VegaScenario{
			VolMultiplier: m,
			VolLevel:      atmVol * m,
			ValueChange:   vega * volChange,
		})
	}
	return scenarios
}

func (a *Aggregator) limitUtilization(pg *PortfolioGreeks) []LimitUtilization {
	entries := []struct {
		name  string
		value float64
		limit float64
	}{
		{"delta", pg.Delta, a.limits.MaxDelta},
		{"gamma", pg.Gamma, a.limits.MaxGamma},
		{"theta", pg.Theta, a.limits.MaxTheta},
		{"vega", pg.Vega, a.limits.MaxVega},
		{"rho", pg.Rho, a.limits.MaxRho},
	}

	out := make([]LimitUtilization, 0, len(entries))
	for _, e := range entries {
		if e.limit <= 0 {
			continue
		}
		util := math.Abs(e.value) / e.limit
		out = append(out, LimitUtilization{
			Greek:       e.name,
			Value:       e.value,
			Limit:       e.limit,
			Utilization: util,
			Breached:    util > 0.8,
		})
	}
	return out
}

// hedgeRecommendations proposes hedges for greeks above 70% utilization,
// escalating to critical above 100%.
func (a *Aggregator) hedgeRecommendations(pg *PortfolioGreeks) []HedgeRecommendation {
	var hedges []HedgeRecommendation

	for _, lim := range pg.Limits {
		if lim.Utilization <= 0.7 {
			continue
		}

		severity := "warning"
		if lim.Utilization > 1.0 {
			severity = "critical"
		}

		rec := HedgeRecommendation{
			Greek:         lim.Greek,
			Severity:      severity,
			Effectiveness: utils.Clamp01(0.6 + 0.3*(lim.Utilization-0.7)),
		}

		switch lim.Greek {
		case "delta":
			rec.Instrument = "underlying_futures"
			rec.Quantity = int(math.Ceil(math.Abs(lim.Value) / models.ContractMultiplier))
			rec.EstimatedCost = math.Abs(lim.Value) * 0.001
			rec.Rationale = "offset directional exposure with futures"
		case "gamma", "vega":
			rec.Instrument = "atm_straddle"
			rec.Quantity = int(math.Ceil(math.Abs(lim.Value) / 50))
			rec.EstimatedCost = math.Abs(lim.Value) * 0.02
			rec.Rationale = "offset convexity and vol exposure with ATM options"
		case "theta":
			rec.Instrument = "calendar_spread"
			rec.Quantity = int(math.Ceil(math.Abs(lim.Value) / 100))
			rec.EstimatedCost = math.Abs(lim.Value) * 0.01
			rec.Rationale = "reduce net decay with longer-dated offsets"
		default:
			rec.Instrument = "rate_futures"
			rec.Quantity = 1
			rec.EstimatedCost = math.Abs(lim.Value) * 0.005
			rec.Rationale = "offset rate sensitivity"
		}

		hedges = append(hedges, rec)
	}
	return hedges
}
