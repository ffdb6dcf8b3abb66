package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"optionscope/internal/config"
	"optionscope/internal/errors"
	"optionscope/internal/models"
)

func TestSimulateDeterministicWithSeed(t *testing.T) {
	terminal := func(path []float64) float64 { return path[len(path)-1] }

	a, err := NewSeededSimulator(500, 30, 42).Simulate(context.Background(), 100, 0.2, 0.05, terminal)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	b, err := NewSeededSimulator(500, 30, 42).Simulate(context.Background(), 100, 0.2, 0.05, terminal)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if len(a) != 500 || len(b) != 500 {
		t.Fatalf("outcome counts = %d, %d, want 500", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("outcome %d diverged: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSimulateWorkerPool(t *testing.T) {
	cfg := config.SimulationConfig{Paths: 500, Horizon: 20, Seed: 42, Workers: 4}
	terminal := func(path []float64) float64 { return path[len(path)-1] }

	a, err := NewSimulator(cfg).Simulate(context.Background(), 100, 0.2, 0.05, terminal)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	b, err := NewSimulator(cfg).Simulate(context.Background(), 100, 0.2, 0.05, terminal)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if len(a) != 500 {
		t.Fatalf("outcomes = %d, want 500", len(a))
	}
	for i := range a {
		// Terminal GBM prices are positive, so a zero means a worker
		// skipped its slot.
		if a[i] <= 0 {
			t.Fatalf("outcome %d not written: %v", i, a[i])
		}
		if a[i] != b[i] {
			t.Fatalf("outcome %d diverged across runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSimulatePathShape(t *testing.T) {
	sim := NewSeededSimulator(10, 20, 7)
	_, err := sim.Simulate(context.Background(), 100, 0.2, 0, func(path []float64) float64 {
		if len(path) != 21 {
			t.Fatalf("path length = %d, want 21", len(path))
		}
		if path[0] != 100 {
			t.Fatalf("path starts at %v, want 100", path[0])
		}
		for _, p := range path {
			if p <= 0 {
				t.Fatalf("non-positive price %v on path", p)
			}
		}
		return 0
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
}

func TestSimulateInvalidSpot(t *testing.T) {
	sim := NewSeededSimulator(10, 10, 1)
	_, err := sim.Simulate(context.Background(), -5, 0.2, 0, func([]float64) float64 { return 0 })
	if err == nil {
		t.Fatal("expected error for negative spot")
	}
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error %T is not a ValidationError", err)
	}
}

func TestSimulateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := NewSeededSimulator(5000, 30, 1)
	_, err := sim.Simulate(ctx, 100, 0.2, 0, func([]float64) float64 { return 0 })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestComputeMetricsEmptyOutcomes(t *testing.T) {
	_, err := ComputeMetrics(MetricsInput{})
	if !errors.Is(err, errors.ErrEmptySimulation) {
		t.Errorf("error = %v, want ErrEmptySimulation", err)
	}
}

func TestKellyWorkedExample(t *testing.T) {
	// Six wins of 150 and four losses of 100: p = 0.6, ratio = 1.5.
	outcomes := []float64{150, 150, 150, 150, 150, 150, -100, -100, -100, -100}
	m, err := ComputeMetrics(MetricsInput{Outcomes: outcomes, HorizonDays: 30})
	if err != nil {
		t.Fatalf("ComputeMetrics: %v", err)
	}

	k := m.Kelly
	if math.Abs(k.WinProbability-0.6) > 1e-9 {
		t.Errorf("win probability = %v, want 0.6", k.WinProbability)
	}
	if math.Abs(k.WinLossRatio-1.5) > 1e-9 {
		t.Errorf("win/loss ratio = %v, want 1.5", k.WinLossRatio)
	}
	// f* = (0.6*1.5 - 0.4) / 1.5 = 1/3.
	if math.Abs(k.OptimalFraction-1.0/3.0) > 1e-9 {
		t.Errorf("optimal fraction = %v, want 1/3", k.OptimalFraction)
	}
	if math.Abs(k.AdjustedFraction-1.0/12.0) > 1e-9 {
		t.Errorf("adjusted fraction = %v, want 1/12", k.AdjustedFraction)
	}
	if k.Recommendation != "oversized" {
		t.Errorf("recommendation = %q, want oversized", k.Recommendation)
	}
}

func TestKellyRecommendationBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []float64
		want     string
	}{
		{
			// p = 0.5, ratio = 1, f* = 0.
			name:     "no edge undersized",
			outcomes: []float64{100, -100, 100, -100},
			want:     "undersized",
		},
		{
			// p = 0.6, ratio = 1, f* = 0.2.
			name:     "modest edge optimal",
			outcomes: []float64{100, 100, 100, -100, -100},
			want:     "optimal",
		},
		{
			// All wins push f* past 0.25.
			name:     "extreme edge oversized",
			outcomes: []float64{200, 200, 200, 200, 200, 200, 200, 200, 200, -100},
			want:     "oversized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ComputeMetrics(MetricsInput{Outcomes: tt.outcomes, HorizonDays: 30})
			if err != nil {
				t.Fatalf("ComputeMetrics: %v", err)
			}
			if m.Kelly.Recommendation != tt.want {
				t.Errorf("recommendation = %q, want %q (f* = %v)",
					m.Kelly.Recommendation, tt.want, m.Kelly.OptimalFraction)
			}
		})
	}
}

func TestKellyUnboundedLossRaisesRuin(t *testing.T) {
	outcomes := []float64{100, 100, -50, -50}
	bounded, err := ComputeMetrics(MetricsInput{Outcomes: outcomes, HorizonDays: 30})
	if err != nil {
		t.Fatalf("ComputeMetrics: %v", err)
	}
	unbounded, err := ComputeMetrics(MetricsInput{
		Outcomes:    outcomes,
		HorizonDays: 30,
		MaxLoss:     models.Payoff{Unbounded: true},
	})
	if err != nil {
		t.Fatalf("ComputeMetrics: %v", err)
	}

	if unbounded.Kelly.RiskOfRuin <= bounded.Kelly.RiskOfRuin {
		t.Errorf("unbounded ruin %v should exceed bounded ruin %v",
			unbounded.Kelly.RiskOfRuin, bounded.Kelly.RiskOfRuin)
	}
}

func TestStressTestDeltaOnly(t *testing.T) {
	exp := GreekExposure{Delta: 100}
	result := StressTest(exp)

	if len(result.Scenarios) != 5 {
		t.Fatalf("scenarios = %d, want 5", len(result.Scenarios))
	}

	byName := make(map[string]models.StressScenario)
	for _, sc := range result.Scenarios {
		byName[sc.Name] = sc
		want := exp.Delta * sc.PriceMove
		if math.Abs(sc.Impact-want) > 1e-9 {
			t.Errorf("%s impact = %v, want %v", sc.Name, sc.Impact, want)
		}
	}
	// 100 net delta under a -8% move loses 8.
	if rate := byName["rate_shock"]; math.Abs(rate.Impact-(-8)) > 1e-9 {
		t.Errorf("rate_shock impact = %v, want -8", rate.Impact)
	}

	// For a long-delta book the deepest drawdown scenario is the worst.
	if result.WorstCase.Name != "financial_crisis" {
		t.Errorf("worst case = %q, want financial_crisis", result.WorstCase.Name)
	}
	for _, sc := range result.Scenarios {
		if sc.Impact < result.WorstCase.Impact {
			t.Errorf("scenario %s impact %v below reported worst case %v",
				sc.Name, sc.Impact, result.WorstCase.Impact)
		}
	}
}

func TestAggregatePositionsEmpty(t *testing.T) {
	_, err := AggregatePositions(nil)
	if !errors.Is(err, errors.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestAggregatePositionsCorrelated(t *testing.T) {
	m := &models.AdvancedRiskMetrics{ExpectedValue: 50, CVaR95: -300}
	m.VaR.MonteCarlo95 = -200

	out, err := AggregatePositions([]*models.AdvancedRiskMetrics{m, m})
	if err != nil {
		t.Fatalf("AggregatePositions: %v", err)
	}

	if out.Positions != 2 {
		t.Errorf("positions = %d, want 2", out.Positions)
	}
	if math.Abs(out.ExpectedValue-100) > 1e-9 {
		t.Errorf("expected value = %v, want 100", out.ExpectedValue)
	}
	// Two equal exposures at rho 0.7 combine to v*sqrt(2 + 2*0.7).
	wantVaR := -200 * math.Sqrt(3.4)
	if math.Abs(out.VaR95-wantVaR) > 1e-6 {
		t.Errorf("portfolio VaR95 = %v, want %v", out.VaR95, wantVaR)
	}
	if out.VaR95 > -200 {
		t.Errorf("portfolio VaR95 %v should be at least as severe as one position", out.VaR95)
	}
	if out.VaR95 < -400 {
		t.Errorf("portfolio VaR95 %v should show a diversification benefit below full correlation", out.VaR95)
	}
}

func TestProperty_MetricsCoherence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	genOutcomes := gen.SliceOfN(200, gen.Float64Range(-1000, 1000))

	properties.Property("CVaR95 is at least as severe as VaR95", prop.ForAll(
		func(outcomes []float64) bool {
			m, err := ComputeMetrics(MetricsInput{Outcomes: outcomes, HorizonDays: 30})
			if err != nil {
				return false
			}
			return m.CVaR95 <= m.VaR.MonteCarlo95+1e-9
		},
		genOutcomes,
	))

	properties.Property("percentiles are monotone", prop.ForAll(
		func(outcomes []float64) bool {
			m, err := ComputeMetrics(MetricsInput{Outcomes: outcomes, HorizonDays: 30})
			if err != nil {
				return false
			}
			order := []int{1, 5, 10, 25, 50, 75, 90, 95, 99}
			for i := 1; i < len(order); i++ {
				if m.Percentiles[order[i-1]] > m.Percentiles[order[i]]+1e-9 {
					return false
				}
			}
			return true
		},
		genOutcomes,
	))

	properties.Property("probability of profit stays in [0,1]", prop.ForAll(
		func(outcomes []float64) bool {
			m, err := ComputeMetrics(MetricsInput{Outcomes: outcomes, HorizonDays: 30})
			if err != nil {
				return false
			}
			return m.ProbOfProfit >= 0 && m.ProbOfProfit <= 1 &&
				m.Kelly.RiskOfRuin >= 0 && m.Kelly.RiskOfRuin <= 1
		},
		genOutcomes,
	))

	properties.TestingRun(t)
}
