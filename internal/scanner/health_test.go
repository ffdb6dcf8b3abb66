package scanner

import (
	"testing"
	"time"

	"optionscope/internal/config"
	"optionscope/internal/models"
)

func position(id, symbol string, entry float64, qty int, unrealized float64, legs ...models.PositionLeg) models.Position {
	return models.Position{
		ID:            id,
		Symbol:        symbol,
		Quantity:      qty,
		EntryPrice:    entry,
		UnrealizedPnL: unrealized,
		Active:        true,
		Legs:          legs,
	}
}

func healthMarket(avgVolume float64) map[string]*models.MarketData {
	return map[string]*models.MarketData{
		"NIFTY":     {Symbol: "NIFTY", Price: 100, IVRank: 50, AvgVolume: avgVolume},
		"BANKNIFTY": {Symbol: "BANKNIFTY", Price: 200, IVRank: 50, AvgVolume: avgVolume},
	}
}

func TestAssessHealthBalancedBook(t *testing.T) {
	positions := []models.Position{
		position("p1", "NIFTY", 5, 10, 800),
		position("p2", "BANKNIFTY", 5, 10, 600),
	}
	h := assessHealth(positions, healthMarket(60000), config.Default().RiskLimits)

	if h.Overall < 80 {
		t.Errorf("overall = %v, want >= 80 for a balanced winning book", h.Overall)
	}
	if h.Level != models.HealthExcellent {
		t.Errorf("level = %v, want excellent", h.Level)
	}
	if len(h.RiskFactors) != 0 {
		t.Errorf("unexpected risk factors: %v", h.RiskFactors)
	}
}

func TestAssessHealthLevels(t *testing.T) {
	tests := []struct {
		overall float64
		want    models.HealthLevel
	}{
		{85, models.HealthExcellent},
		{80, models.HealthExcellent},
		{79.9, models.HealthGood},
		{65, models.HealthGood},
		{64.9, models.HealthFair},
		{50, models.HealthFair},
		{49.9, models.HealthPoor},
		{35, models.HealthPoor},
		{34.9, models.HealthCritical},
	}
	for _, tt := range tests {
		got := healthLevel(tt.overall)
		if got != tt.want {
			t.Errorf("level(%v) = %v, want %v", tt.overall, got, tt.want)
		}
	}
}

func TestDiversificationScore(t *testing.T) {
	concentrated := []models.Position{
		position("p1", "NIFTY", 5, 10, 0),
		position("p2", "NIFTY", 5, 10, 0),
	}
	spread := []models.Position{
		position("p1", "NIFTY", 5, 10, 0),
		position("p2", "BANKNIFTY", 5, 10, 0),
	}

	if c, s := diversificationScore(concentrated), diversificationScore(spread); c >= s {
		t.Errorf("single-name score %v should be below two-name score %v", c, s)
	}
	if got := diversificationScore(concentrated); got != 0 {
		t.Errorf("single-name book score = %v, want 0", got)
	}
}

func TestRiskScoreHeadroom(t *testing.T) {
	limits := config.RiskLimitsConfig{MaxDelta: 1000, MaxTheta: 1000, MaxVega: 1000}

	flat := riskScore(nil, limits)
	if flat != 100 {
		t.Errorf("empty book risk score = %v, want 100", flat)
	}

	// Delta exposure at half the cap.
	leg := models.PositionLeg{Quantity: 10, Side: models.Buy, Greeks: models.Greeks{Delta: 0.5}}
	half := riskScore([]models.Position{position("p1", "NIFTY", 5, 10, 0, leg)}, limits)
	if half != 50 {
		t.Errorf("half-utilized risk score = %v, want 50", half)
	}
}

func TestRiskFactorsEnumeration(t *testing.T) {
	limits := config.RiskLimitsConfig{MaxDelta: 100, MaxTheta: 100}
	leg := models.PositionLeg{
		Quantity: 10,
		Side:     models.Buy,
		Expiry:   time.Now().AddDate(0, 0, 3),
		Greeks:   models.Greeks{Delta: 0.5},
	}
	market := healthMarket(60000)
	market["NIFTY"].IVRank = 95

	factors := riskFactors([]models.Position{position("p1", "NIFTY", 5, 10, 0, leg)}, market, limits)
	if len(factors) < 3 {
		t.Fatalf("factors = %v, want delta breach, near expiry, and IV rank entries", factors)
	}
}

func TestWorstCasesLossesOnly(t *testing.T) {
	leg := models.PositionLeg{
		Quantity: 5,
		Side:     models.Buy,
		Greeks:   models.Greeks{Delta: 0.5, Gamma: 0.02, Vega: 0.1},
	}
	positions := []models.Position{position("p1", "NIFTY", 5, 5, 0, leg)}
	scenarios := WorstCases(positions, healthMarket(60000))

	if len(scenarios) != 3 {
		t.Fatalf("scenarios = %d, want 3", len(scenarios))
	}
	for _, sc := range scenarios {
		if sc.EstimatedLoss > 0 {
			t.Errorf("%s estimated loss %v is positive", sc.Name, sc.EstimatedLoss)
		}
		if sc.Probability <= 0 || sc.Probability >= 1 {
			t.Errorf("%s probability %v outside (0,1)", sc.Name, sc.Probability)
		}
		if sc.Mitigation == "" {
			t.Errorf("%s missing mitigation", sc.Name)
		}
	}
}
