package greeks

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"optionscope/internal/config"
	"optionscope/internal/models"
)

func testLimits() config.RiskLimitsConfig {
	return config.RiskLimitsConfig{
		MaxDelta: 1000,
		MaxGamma: 500,
		MaxTheta: 500,
		MaxVega:  2000,
		MaxRho:   1000,
	}
}

func testMarket() map[string]*models.MarketData {
	return map[string]*models.MarketData{
		"NIFTY": {
			Symbol:        "NIFTY",
			Price:         100,
			HistoricalVol: 0.2,
			ImpliedVol:    0.22,
			RiskFreeRate:  0.065,
		},
	}
}

func leg(qty int, side models.Side, strike float64, g models.Greeks) models.PositionLeg {
	return models.PositionLeg{
		Symbol:   "NIFTY",
		Type:     models.Call,
		Strike:   strike,
		Expiry:   time.Now().AddDate(0, 1, 0),
		Quantity: qty,
		Side:     side,
		Greeks:   g,
	}
}

func TestAggregateNetGreeksExact(t *testing.T) {
	a := NewAggregator(testLimits())
	long := leg(2, models.Buy, 100, models.Greeks{Delta: 0.6, Gamma: 0.03, Theta: -0.05, Vega: 0.12, Rho: 0.08})
	short := leg(3, models.Sell, 110, models.Greeks{Delta: 0.3, Gamma: 0.02, Theta: -0.04, Vega: 0.10, Rho: 0.05})

	positions := []models.Position{{
		ID:     "p1",
		Symbol: "NIFTY",
		Active: true,
		Legs:   []models.PositionLeg{long, short},
	}}

	pg := a.Aggregate(positions, testMarket())

	wantDelta := long.Exposure(long.Greeks.Delta) + short.Exposure(short.Greeks.Delta)
	if math.Abs(pg.Delta-wantDelta) > 1e-9 {
		t.Errorf("net delta = %v, want %v", pg.Delta, wantDelta)
	}
	wantVega := long.Exposure(long.Greeks.Vega) + short.Exposure(short.Greeks.Vega)
	if math.Abs(pg.Vega-wantVega) > 1e-9 {
		t.Errorf("net vega = %v, want %v", pg.Vega, wantVega)
	}
	if pg.SkippedLegs != 0 {
		t.Errorf("skipped legs = %d, want 0", pg.SkippedLegs)
	}
}

func TestAggregateInactivePositionsIgnored(t *testing.T) {
	a := NewAggregator(testLimits())
	positions := []models.Position{{
		ID:     "closed",
		Symbol: "NIFTY",
		Active: false,
		Legs:   []models.PositionLeg{leg(10, models.Buy, 100, models.Greeks{Delta: 0.5})},
	}}

	pg := a.Aggregate(positions, testMarket())
	if pg.Delta != 0 {
		t.Errorf("inactive position contributed delta %v", pg.Delta)
	}
}

func TestAggregateMissingMarketDataSkipsLeg(t *testing.T) {
	a := NewAggregator(testLimits())
	l := leg(1, models.Buy, 100, models.Greeks{Delta: 0.5})
	l.Symbol = "UNKNOWN"
	positions := []models.Position{{
		ID: "p1", Symbol: "UNKNOWN", Active: true,
		Legs: []models.PositionLeg{l},
	}}

	pg := a.Aggregate(positions, testMarket())
	if pg.SkippedLegs != 1 {
		t.Errorf("skipped legs = %d, want 1", pg.SkippedLegs)
	}
	// Raw greek totals still include the skipped leg.
	if math.Abs(pg.Delta-l.Exposure(0.5)) > 1e-9 {
		t.Errorf("delta = %v, want %v", pg.Delta, l.Exposure(0.5))
	}
	if len(pg.ExpiryBuckets) != 0 {
		t.Errorf("expiry buckets = %d, want 0", len(pg.ExpiryBuckets))
	}
}

func TestPinRiskBuckets(t *testing.T) {
	tests := []struct {
		name     string
		gamma    float64
		want     PinRiskLevel
		wantProb float64
	}{
		{"low", 0.015, PinLow, 0.15},
		{"medium", 0.03, PinMedium, 0.3},
		{"high", 0.06, PinHigh, 0.4},
		{"extreme", 0.12, PinExtreme, 0.4},
	}

	a := NewAggregator(testLimits())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Strike at spot, so all gamma is within the 5% band.
			// 100 contracts x gamma x multiplier gives nearby gamma of
			// 150 / 300 / 600 / 1200 across the cases.
			positions := []models.Position{{
				ID: "p1", Symbol: "NIFTY", Active: true,
				Legs: []models.PositionLeg{leg(100, models.Buy, 100, models.Greeks{Gamma: tt.gamma})},
			}}
			pg := a.Aggregate(positions, testMarket())
			if pg.GammaProfile.PinRisk != tt.want {
				t.Errorf("pin risk = %v, want %v", pg.GammaProfile.PinRisk, tt.want)
			}
			if math.Abs(pg.GammaProfile.PinProb-tt.wantProb) > 1e-9 {
				t.Errorf("pin prob = %v, want %v", pg.GammaProfile.PinProb, tt.wantProb)
			}
		})
	}
}

func TestPinRiskIgnoresFarStrikes(t *testing.T) {
	a := NewAggregator(testLimits())
	positions := []models.Position{{
		ID: "p1", Symbol: "NIFTY", Active: true,
		// 20% OTM, outside the 5% pin band.
		Legs: []models.PositionLeg{leg(1, models.Buy, 120, models.Greeks{Gamma: 0.5})},
	}}
	pg := a.Aggregate(positions, testMarket())
	if pg.GammaProfile.NearbyGamma != 0 {
		t.Errorf("nearby gamma = %v, want 0", pg.GammaProfile.NearbyGamma)
	}
	if pg.GammaProfile.PinRisk != PinLow {
		t.Errorf("pin risk = %v, want %v", pg.GammaProfile.PinRisk, PinLow)
	}
}

func TestThetaDecayAcceleration(t *testing.T) {
	a := NewAggregator(testLimits())
	// A Wednesday, so weekday/weekend days are predictable.
	from := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	theta := -10.0
	curve := a.projectThetaDecay(theta, from)

	if len(curve) != 30 {
		t.Fatalf("curve length = %d, want 30", len(curve))
	}
	for _, pt := range curve {
		mult := 1.0
		if 30-pt.Day < 7 {
			mult *= 1.5
		}
		if wd := pt.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			mult *= 3
		}
		if math.Abs(pt.DailyTheta-theta*mult) > 1e-9 {
			t.Errorf("day %d daily theta = %v, want %v", pt.Day, pt.DailyTheta, theta*mult)
		}
	}
	if curve[29].Cumulative >= curve[0].Cumulative {
		t.Errorf("cumulative decay should grow more negative: day1=%v day30=%v",
			curve[0].Cumulative, curve[29].Cumulative)
	}
}

func TestLimitUtilizationBreach(t *testing.T) {
	a := NewAggregator(config.RiskLimitsConfig{MaxDelta: 100, MaxVega: 100})
	pg := &PortfolioGreeks{Delta: -90, Vega: 50}
	limits := a.limitUtilization(pg)

	if len(limits) != 2 {
		t.Fatalf("limit entries = %d, want 2", len(limits))
	}
	byGreek := make(map[string]LimitUtilization)
	for _, l := range limits {
		byGreek[l.Greek] = l
	}
	if !byGreek["delta"].Breached {
		t.Error("delta at 90% utilization should be breached")
	}
	if byGreek["vega"].Breached {
		t.Error("vega at 50% utilization should not be breached")
	}
	if math.Abs(byGreek["delta"].Utilization-0.9) > 1e-9 {
		t.Errorf("delta utilization = %v, want 0.9", byGreek["delta"].Utilization)
	}
}

func TestHedgeRecommendationSeverity(t *testing.T) {
	a := NewAggregator(config.RiskLimitsConfig{MaxDelta: 100, MaxVega: 100, MaxTheta: 100})
	pg := &PortfolioGreeks{Delta: 80, Vega: 120, Theta: -50}
	pg.Limits = a.limitUtilization(pg)
	hedges := a.hedgeRecommendations(pg)

	bySeverity := make(map[string]string)
	for _, h := range hedges {
		bySeverity[h.Greek] = h.Severity
	}
	if bySeverity["delta"] != "warning" {
		t.Errorf("delta hedge severity = %q, want warning", bySeverity["delta"])
	}
	if bySeverity["vega"] != "critical" {
		t.Errorf("vega hedge severity = %q, want critical", bySeverity["vega"])
	}
	if _, ok := bySeverity["theta"]; ok {
		t.Error("theta at 50% utilization should not produce a hedge")
	}
}

func TestProperty_AggregateLinearity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	a := NewAggregator(testLimits())
	market := testMarket()

	properties.Property("net delta equals sum of leg exposures", prop.ForAll(
		func(d1, d2 float64, q1, q2 int) bool {
			l1 := leg(q1, models.Buy, 100, models.Greeks{Delta: d1})
			l2 := leg(q2, models.Sell, 105, models.Greeks{Delta: d2})
			pg := a.Aggregate([]models.Position{{
				ID: "p", Symbol: "NIFTY", Active: true,
				Legs: []models.PositionLeg{l1, l2},
			}}, market)
			want := l1.Exposure(d1) + l2.Exposure(d2)
			return math.Abs(pg.Delta-want) < 1e-6
		},
		gen.Float64Range(-1, 1),
		gen.Float64Range(-1, 1),
		gen.IntRange(1, 50),
		gen.IntRange(1, 50),
	))

	properties.Property("pin probability is capped at 0.4", prop.ForAll(
		func(gamma float64, qty int) bool {
			pg := a.Aggregate([]models.Position{{
				ID: "p", Symbol: "NIFTY", Active: true,
				Legs: []models.PositionLeg{leg(qty, models.Buy, 100, models.Greeks{Gamma: gamma})},
			}}, market)
			return pg.GammaProfile.PinProb >= 0 && pg.GammaProfile.PinProb <= 0.4
		},
		gen.Float64Range(0, 10),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}
