// Package liquidity scores the tradability of a raw option chain.
package liquidity

import (
	"math"
	"sort"

	"optionscope/internal/config"
	"optionscope/internal/errors"
	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// Analyzer produces per-symbol LiquidityProfile snapshots.
type Analyzer struct {
	cfg config.LiquidityConfig
}

// NewAnalyzer creates a liquidity analyzer.
func NewAnalyzer(cfg config.LiquidityConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze scores the whole chain for one symbol.
func (a *Analyzer) Analyze(symbol string, calls, puts []models.OptionContract, spot float64) (*models.LiquidityProfile, error) {
	if len(calls) == 0 && len(puts) == 0 {
		return nil, errors.NewDataError("chain", symbol, "no contracts to analyze", errors.ErrEmptyChain)
	}

	profile := &models.LiquidityProfile{Symbol: symbol}
	profile.Strikes = buildStrikes(calls, puts)
	profile.OpenInterest = analyzeOpenInterest(profile.Strikes)
	profile.Volume = analyzeVolume(profile.Strikes)
	profile.Spreads = a.analyzeSpreads(profile.Strikes)
	profile.Slippage = slippageCurve(profile.Spreads.AverageSpread, profile.OpenInterest.AverageOI)
	profile.SizeTiers = sizeTiers()
	profile.Scaling = a.scalingLimits(profile)
	profile.ExecRisk = executionRisk(profile, calls, puts)

	profile.OverallScore = utils.ClampScore(
		profile.OpenInterest.Score*0.30 +
			profile.Volume.Score*0.25 +
			profile.Spreads.Score*0.25 +
			profile.ExecRisk.Score*0.20)
	profile.Rating = rating(profile.OverallScore)

	return profile, nil
}

// ClassifyOI returns the liquidity tier for an open-interest level.
func ClassifyOI(oi int64) models.LiquidityTier {
	switch {
	case oi >= 1000:
		return models.Tier1
	case oi >= 500:
		return models.Tier2
	case oi >= 100:
		return models.Tier3
	default:
		return models.Illiquid
	}
}

// ContractScore scores a single contract's tradability on [0,100] using
// the volume 40% / OI 35% / spread 25% weighting.
func ContractScore(c models.OptionContract) float64 {
	var volScore float64
	switch {
	case c.Volume >= 1000:
		volScore = 100
	case c.Volume >= 500:
		volScore = 80
	case c.Volume >= 100:
		volScore = 60
	case c.Volume >= 10:
		volScore = 40
	default:
		volScore = 10
	}

	var oiScore float64
	switch ClassifyOI(c.OpenInterest) {
	case models.Tier1:
		oiScore = 100
	case models.Tier2:
		oiScore = 75
	case models.Tier3:
		oiScore = 50
	default:
		oiScore = 15
	}

	var spreadScore float64
	switch spread := c.Spread(); {
	case spread < 0.05:
		spreadScore = 100
	case spread < 0.15:
		spreadScore = 75
	case spread < 0.30:
		spreadScore = 50
	default:
		spreadScore = 20
	}

	return utils.ClampScore(volScore*0.40 + oiScore*0.35 + spreadScore*0.25)
}

func buildStrikes(calls, puts []models.OptionContract) []models.StrikeLiquidity {
	byStrike := make(map[float64]*models.StrikeLiquidity)

	get := func(strike float64) *models.StrikeLiquidity {
		s, ok := byStrike[strike]
		if !ok {
			s = &models.StrikeLiquidity{Strike: strike}
			byStrike[strike] = s
		}
		return s
	}

	for _, c := range calls {
		s := get(c.Strike)
		s.CallOI += c.OpenInterest
		s.CallVolume += c.Volume
		s.Spread += c.Spread()
	}
	for _, p := range puts {
		s := get(p.Strike)
		s.PutOI += p.OpenInterest
		s.PutVolume += p.Volume
		s.Spread += p.Spread()
	}

	strikes := make([]models.StrikeLiquidity, 0, len(byStrike))
	for _, s := range byStrike {
		sides := 0
		if s.CallOI > 0 || s.CallVolume > 0 {
			sides++
		}
		if s.PutOI > 0 || s.PutVolume > 0 {
			sides++
		}
		if sides > 1 {
			s.Spread /= float64(sides)
		}

		totalOI := s.CallOI + s.PutOI
		totalVol := s.CallVolume + s.PutVolume
		s.Tier = ClassifyOI(totalOI)
		if totalOI > 0 {
			s.VolumeOIRate = float64(totalVol) / float64(totalOI)
		}
		strikes = append(strikes, *s)
	}

	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })
	return strikes
}

func analyzeOpenInterest(strikes []models.StrikeLiquidity) models.OpenInterestAnalysis {
	var oi models.OpenInterestAnalysis
	if len(strikes) == 0 {
		return oi
	}

	var total int64
	for _, s := range strikes {
		oi.TotalCallOI += s.CallOI
		oi.TotalPutOI += s.PutOI
		total += s.CallOI + s.PutOI
	}
	oi.AverageOI = float64(total) / float64(len(strikes))

	// Herfindahl index over per-strike OI shares.
	if total > 0 {
		for _, s := range strikes {
			share := float64(s.CallOI+s.PutOI) / float64(total)
			oi.Concentration += share * share
		}
	}

	switch {
	case oi.AverageOI >= 1000:
		oi.Score = 100
	case oi.AverageOI >= 500:
		oi.Score = 75
	case oi.AverageOI >= 100:
		oi.Score = 50
	case oi.AverageOI >= 10:
		oi.Score = 25
	default:
		oi.Score = 5
	}
	// Heavy concentration in a few strikes reduces effective depth.
	if oi.Concentration > 0.5 {
		oi.Score *= 0.8
	}

	return oi
}

func analyzeVolume(strikes []models.StrikeLiquidity) models.VolumeAnalysis {
	var va models.VolumeAnalysis
	if len(strikes) == 0 {
		return va
	}

	var totalOI int64
	for _, s := range strikes {
		va.TotalVolume += s.CallVolume + s.PutVolume
		totalOI += s.CallOI + s.PutOI
	}
	va.AverageVolume = float64(va.TotalVolume) / float64(len(strikes))
	if totalOI > 0 {
		va.VolumeOIRatio = float64(va.TotalVolume) / float64(totalOI)
	}

	var volScore float64
	switch {
	case va.AverageVolume >= 500:
		volScore = 100
	case va.AverageVolume >= 100:
		volScore = 75
	case va.AverageVolume >= 25:
		volScore = 50
	case va.AverageVolume >= 5:
		volScore = 25
	default:
		volScore = 5
	}

	var ratioScore float64
	switch {
	case va.VolumeOIRatio >= 0.5:
		ratioScore = 100
	case va.VolumeOIRatio >= 0.2:
		ratioScore = 70
	case va.VolumeOIRatio >= 0.05:
		ratioScore = 40
	default:
		ratioScore = 10
	}

	va.Score = utils.ClampScore(volScore*0.6 + ratioScore*0.4)
	return va
}

func (a *Analyzer) analyzeSpreads(strikes []models.StrikeLiquidity) models.SpreadAnalysis {
	var sa models.SpreadAnalysis
	if len(strikes) == 0 {
		return sa
	}

	var sum float64
	for _, s := range strikes {
		sum += s.Spread
		if s.Spread < a.cfg.TightSpread {
			sa.TightStrikes++
		}
	}
	sa.AverageSpread = sum / float64(len(strikes))

	switch {
	case sa.AverageSpread < 0.05:
		sa.Microstructure = "excellent"
		sa.Score = 100
	case sa.AverageSpread < 0.15:
		sa.Microstructure = "good"
		sa.Score = 75
	case sa.AverageSpread < 0.30:
		sa.Microstructure = "fair"
		sa.Score = 50
	default:
		sa.Microstructure = "poor"
		sa.Score = 20
	}
	return sa
}

// slippageCurve samples square-root market impact over order sizes 1-100.
func slippageCurve(avgSpread, avgOI float64) []models.SlippagePoint {
	depth := math.Max(avgOI, 1)
	var curve []models.SlippagePoint
	for size := 1; size <= 100; size += 5 {
		impact := avgSpread * 10000 * math.Sqrt(float64(size)/depth)
		curve = append(curve, models.SlippagePoint{
			OrderSize:    size,
			EstimatedBps: impact,
		})
	}
	return curve
}

func sizeTiers() []models.SizeTier {
	return []models.SizeTier{
		{Name: "small", MaxContracts: 10, SpreadMultiplier: 1.0, SuggestedOrder: "limit"},
		{Name: "medium", MaxContracts: 50, SpreadMultiplier: 1.25, SuggestedOrder: "limit"},
		{Name: "large", MaxContracts: 200, SpreadMultiplier: 1.75, SuggestedOrder: "split_limit"},
		{Name: "block", MaxContracts: 1000, SpreadMultiplier: 2.5, SuggestedOrder: "negotiated"},
	}
}

// scalingLimits computes the four independent size constraints; the binding
// size is the minimum of all four.
func (a *Analyzer) scalingLimits(p *models.LiquidityProfile) models.ScalingLimits {
	lim := models.ScalingLimits{
		OILimit:          int(p.OpenInterest.AverageOI * 0.10),
		VolumeLimit:      int(p.Volume.AverageVolume * 0.20),
		SpreadDepthLimit: p.Spreads.TightStrikes * 2,
		DepthEstimate:    a.cfg.DepthEstimate,
	}

	lim.MaxSize = lim.OILimit
	for _, v := range []int{lim.VolumeLimit, lim.SpreadDepthLimit, lim.DepthEstimate} {
		if v < lim.MaxSize {
			lim.MaxSize = v
		}
	}
	if lim.MaxSize < 0 {
		lim.MaxSize = 0
	}

	switch {
	case lim.MaxSize >= 100:
		lim.ExecutionStrategy = "single_fill"
	case lim.MaxSize >= 25:
		lim.ExecutionStrategy = "split_order"
	case lim.MaxSize >= 5:
		lim.ExecutionStrategy = "time_weighted"
	default:
		lim.ExecutionStrategy = "iceberg"
	}
	return lim
}

func executionRisk(p *models.LiquidityProfile, calls, puts []models.OptionContract) models.ExecutionRisk {
	var er models.ExecutionRisk
	er.Overall = models.ExecRiskLow

	addFlag := func(rule string, level models.ExecutionRiskLevel, detail string) {
		er.Flags = append(er.Flags, models.ExecutionRiskFlag{Rule: rule, Level: level, Detail: detail})
		if severityRank(level) > severityRank(er.Overall) {
			er.Overall = level
		}
	}

	if p.Spreads.AverageSpread >= 0.30 {
		addFlag("wide_spreads", models.ExecRiskHigh, "average spread at or above 0.30")
	}
	if p.Volume.AverageVolume < 10 {
		addFlag("low_volume", models.ExecRiskModerate, "average per-strike volume below 10")
	}

	minDTE := math.MaxInt32
	for _, c := range append(append([]models.OptionContract{}, calls...), puts...) {
		if c.DaysToExpiry < minDTE {
			minDTE = c.DaysToExpiry
		}
	}
	if minDTE <= 7 {
		addFlag("near_expiry", models.ExecRiskHigh, "contracts expire within 7 days")
	}

	if len(p.Strikes) > 0 {
		illiquid := 0
		for _, s := range p.Strikes {
			if s.Tier == models.Illiquid {
				illiquid++
			}
		}
		if float64(illiquid)/float64(len(p.Strikes)) > 0.5 {
			addFlag("illiquid_strikes", models.ExecRiskSevere, "more than half of strikes are illiquid")
		}
	}

	er.Score = 100 - 25*float64(severityRank(er.Overall))
	return er
}

func severityRank(l models.ExecutionRiskLevel) int {
	switch l {
	case models.ExecRiskModerate:
		return 1
	case models.ExecRiskHigh:
		return 2
	case models.ExecRiskSevere:
		return 3
	default:
		return 0
	}
}

func rating(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	case score >= 20:
		return "poor"
	default:
		return "illiquid"
	}
}
