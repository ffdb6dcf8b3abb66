package models

import "time"

// Payoff is a profit or loss bound. Unbounded payoffs carry an explicit flag
// so downstream arithmetic never sees an infinite or magic numeric value.
type Payoff struct {
	Amount    float64
	Unbounded bool
}

// Bounded returns a finite payoff.
func Bounded(amount float64) Payoff { return Payoff{Amount: amount} }

// Unlimited returns the unbounded sentinel.
func Unlimited() Payoff { return Payoff{Unbounded: true} }

// Or returns the payoff amount, or fallback when the payoff is unbounded.
func (p Payoff) Or(fallback float64) float64 {
	if p.Unbounded {
		return fallback
	}
	return p.Amount
}

// StrategyLegKind distinguishes option legs from underlying stock legs.
type StrategyLegKind string

const (
	LegOption StrategyLegKind = "option"
	LegStock  StrategyLegKind = "stock"
)

// StrategyLeg is one leg of a synthesized candidate strategy.
type StrategyLeg struct {
	Kind     StrategyLegKind
	Contract OptionContract // valid when Kind == LegOption
	Side     Side
	Quantity int
	Price    float64 // execution price used for metrics (mid)
}

// StrategyFamily groups candidates by construction style.
type StrategyFamily string

const (
	FamilyDirectional StrategyFamily = "directional"
	FamilySpread      StrategyFamily = "spread"
	FamilyVolatility  StrategyFamily = "volatility"
	FamilyIncome      StrategyFamily = "income"
)

// StrategyMetrics holds computed economics for a candidate.
type StrategyMetrics struct {
	NetDebit         float64 // positive when paying, negative when collecting
	MaxProfit        Payoff
	MaxLoss          Payoff
	Breakevens       []float64
	ProbOfProfit     float64 // [0,1]
	ExpectedValue    float64
	ReturnOnCapital  float64
	AnnualizedReturn float64
	DaysToExpiry     int
	NetDelta         float64
	NetGamma         float64
	NetTheta         float64
	NetVega          float64
}

// RiskProfile classifies a candidate's risk structure.
type RiskProfile struct {
	DefinedRisk     bool
	TimeDecayRisk   string // low, moderate, high
	VolatilityRisk  string
	DirectionalRisk string
	AssignmentRisk  float64 // [0,1]
}

// LiquidityAssessment scores per-leg tradability for a candidate.
type LiquidityAssessment struct {
	EntryScore          float64 // [0,100] mean of legs
	ExitScore           float64 // [0,100] minimum of legs
	LegScores           []float64
	ExecutionComplexity string // simple, moderate, complex
}

// MarketFit scores how well a candidate suits the assessed regime.
type MarketFit struct {
	VolatilityFit float64 // [0,100]
	TrendFit      float64
	TimingFit     float64
	Overall       float64
}

// ExecutionGuidance suggests how to work the order.
type ExecutionGuidance struct {
	OrderType         string
	AggressivePrice   float64
	MidpointPrice     float64
	ConservativePrice float64
	Simultaneous      bool
	EstimatedFillTime string
	SlippageBudget    float64 // fraction of net price
}

// OptimizedStrategy is an ephemeral scan-cycle candidate, never persisted.
type OptimizedStrategy struct {
	Name         string
	Family       StrategyFamily
	Symbol       string
	Legs         []StrategyLeg
	Metrics      StrategyMetrics
	Risk         RiskProfile
	Liquidity    LiquidityAssessment
	Fit          MarketFit
	QualityScore float64 // [0,100]
	QualityGrade string  // AAA..C
	Guidance     ExecutionGuidance
	GeneratedAt  time.Time
}

// ShortLegs reports whether any leg is sold.
func (s OptimizedStrategy) ShortLegs() bool {
	for _, leg := range s.Legs {
		if leg.Side == Sell {
			return true
		}
	}
	return false
}
