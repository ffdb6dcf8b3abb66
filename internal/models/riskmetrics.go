package models

// VaREstimates holds value-at-risk at the standard confidence levels.
// Values are losses expressed as negative outcomes.
type VaREstimates struct {
	Parametric95  float64
	Parametric99  float64
	Historical95  float64
	Historical99  float64
	MonteCarlo95  float64
	MonteCarlo99  float64
	MonteCarlo999 float64
}

// TailExposure summarizes the extremes of the outcome distribution.
type TailExposure struct {
	WorstFivePercent float64 // mean of worst 5% outcomes
	BestFivePercent  float64 // mean of best 5% outcomes
	TailRatio        float64 // |best| / |worst|
	ProbThreeSigma   float64 // probability of a >3 sigma move
	ProbSixSigma     float64 // probability of a >6 sigma move
}

// KellyCriterion holds growth-optimal sizing output.
type KellyCriterion struct {
	WinProbability   float64
	WinLossRatio     float64
	OptimalFraction  float64
	AdjustedFraction float64 // 25%-of-Kelly conservative sizing
	RiskOfRuin       float64
	Recommendation   string // undersized, optimal, oversized
}

// StressScenario is one named shock and its estimated portfolio impact.
type StressScenario struct {
	Name        string
	PriceMove   float64 // fractional spot move
	VolMove     float64 // absolute IV change
	Days        float64 // elapsed days for theta
	Impact      float64
	Description string
}

// StressTestResult aggregates the scenario catalog.
type StressTestResult struct {
	Scenarios   []StressScenario
	WorstCase   StressScenario
	AverageLoss float64 // mean impact across losing scenarios
}

// AdvancedRiskMetrics is the full simulation output for one strategy.
type AdvancedRiskMetrics struct {
	ExpectedValue      float64
	ProbOfProfit       float64 // [0,1]
	VaR                VaREstimates
	CVaR95             float64
	CVaR99             float64
	Skewness           float64
	Kurtosis           float64
	Percentiles        map[int]float64 // p1..p99
	Tail               TailExposure
	Kelly              KellyCriterion
	SharpeRatio        float64 // annualized
	RiskAdjustedReturn float64 // EV / |CVaR95|
	Stress             StressTestResult
	Paths              int
}
