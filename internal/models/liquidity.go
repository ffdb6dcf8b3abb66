package models

// LiquidityTier classifies per-strike open interest depth.
type LiquidityTier string

const (
	Tier1    LiquidityTier = "tier1"    // OI >= 1000
	Tier2    LiquidityTier = "tier2"    // OI >= 500
	Tier3    LiquidityTier = "tier3"    // OI >= 100
	Illiquid LiquidityTier = "illiquid" // below tier3
)

// StrikeLiquidity holds per-strike chain liquidity detail.
type StrikeLiquidity struct {
	Strike       float64
	CallOI       int64
	PutOI        int64
	CallVolume   int64
	PutVolume    int64
	Spread       float64 // effective spread across both sides
	Tier         LiquidityTier
	VolumeOIRate float64
}

// OpenInterestAnalysis summarizes chain open interest.
type OpenInterestAnalysis struct {
	TotalCallOI   int64
	TotalPutOI    int64
	AverageOI     float64
	Concentration float64 // Herfindahl index, [0,1]
	Score         float64 // [0,100]
}

// VolumeAnalysis summarizes chain trading volume.
type VolumeAnalysis struct {
	TotalVolume   int64
	AverageVolume float64
	VolumeOIRatio float64
	Score         float64 // [0,100]
}

// SpreadAnalysis summarizes bid-ask quality.
type SpreadAnalysis struct {
	AverageSpread  float64
	Microstructure string // excellent, good, fair, poor
	TightStrikes   int    // strikes with spread below the tight threshold
	Score          float64
}

// SlippagePoint is one sample on the market-impact curve.
type SlippagePoint struct {
	OrderSize    int
	EstimatedBps float64
}

// SizeTier is one order-size bucket on the slippage curve.
type SizeTier struct {
	Name             string // small, medium, large, block
	MaxContracts     int
	SpreadMultiplier float64
	SuggestedOrder   string
}

// ScalingLimits holds the four independent size constraints.
type ScalingLimits struct {
	OILimit           int
	VolumeLimit       int
	SpreadDepthLimit  int
	DepthEstimate     int
	MaxSize           int    // min of the four
	ExecutionStrategy string // single_fill, split_order, time_weighted, iceberg
}

// ExecutionRiskLevel orders risk severities.
type ExecutionRiskLevel string

const (
	ExecRiskLow      ExecutionRiskLevel = "low"
	ExecRiskModerate ExecutionRiskLevel = "moderate"
	ExecRiskHigh     ExecutionRiskLevel = "high"
	ExecRiskSevere   ExecutionRiskLevel = "severe"
)

// ExecutionRiskFlag is one triggered execution-risk rule.
type ExecutionRiskFlag struct {
	Rule   string
	Level  ExecutionRiskLevel
	Detail string
}

// ExecutionRisk aggregates triggered rules into an overall level.
type ExecutionRisk struct {
	Flags   []ExecutionRiskFlag
	Overall ExecutionRiskLevel
	Score   float64 // [0,100], higher is safer
}

// LiquidityProfile is the per-symbol, per-cycle tradability snapshot.
type LiquidityProfile struct {
	Symbol       string
	Strikes      []StrikeLiquidity
	OpenInterest OpenInterestAnalysis
	Volume       VolumeAnalysis
	Spreads      SpreadAnalysis
	Slippage     []SlippagePoint
	SizeTiers    []SizeTier
	Scaling      ScalingLimits
	ExecRisk     ExecutionRisk
	OverallScore float64 // [0,100]
	Rating       string  // excellent, good, fair, poor, illiquid
}
