package models

// RAOSComponents holds the normalized factor scores feeding the composite.
// Every component is on the [0,100] scale.
type RAOSComponents struct {
	ExpectedReturn float64
	ProbOfProfit   float64
	Liquidity      float64
	Conviction     float64
	MaxLoss        float64
	TailRisk       float64
	VolatilityRisk float64
	ExecutionRisk  float64
}

// RAOSPenalty is one applied haircut.
type RAOSPenalty struct {
	Reason     string
	Percent    float64 // haircut in percentage points
	Critical   bool
	Mitigation string
}

// InstitutionalGrade carries the suitability gate output.
type InstitutionalGrade struct {
	Eligible      bool
	Disqualifiers []string
	HedgeFund     bool
	FamilyOffice  bool
	PensionFund   bool
}

// RAOSInsight is a generated observation about a scored strategy.
type RAOSInsight struct {
	Priority int // lower is more important
	Message  string
}

// RAOSRecord wraps a strategy with its composite score and ranking context.
type RAOSRecord struct {
	Strategy      OptimizedStrategy
	Risk          AdvancedRiskMetrics
	Components    RAOSComponents
	Penalties     []RAOSPenalty
	Score         float64 // [0,100]
	Tier          string  // S, A, B, C, D
	Percentile    float64
	CategoryRank  int
	Confidence    float64 // [0,100]
	Institutional InstitutionalGrade
	Insights      []RAOSInsight
}
