package strategy

import (
	"sort"
	"time"

	"optionscope/internal/errors"
	"optionscope/internal/models"
)

// Criteria holds the selection thresholds applied after scoring.
type Criteria struct {
	MinQuality     float64
	MinLiquidity   float64
	MinMarketFit   float64
	LiquidityFloor float64 // symbol-level floor below which generation is skipped
	MaxResults     int
}

// DefaultCriteria matches the standard selection gate.
func DefaultCriteria() Criteria {
	return Criteria{
		MinQuality:     60,
		MinLiquidity:   50,
		MinMarketFit:   50,
		LiquidityFloor: 30,
		MaxResults:     10,
	}
}

// Optimizer generates, evaluates, and ranks candidate strategies.
type Optimizer struct {
	gen      *Generator
	criteria Criteria
}

// NewOptimizer returns an optimizer over the given expiry window and
// selection criteria.
func NewOptimizer(minDTE, maxDTE int, criteria Criteria) *Optimizer {
	if criteria.MaxResults <= 0 {
		criteria.MaxResults = 10
	}
	return &Optimizer{
		gen:      NewGenerator(minDTE, maxDTE),
		criteria: criteria,
	}
}

// Optimize builds the ranked strategy list for one symbol. Symbols
// whose chain liquidity sits below the floor are skipped outright
// rather than scored and discarded leg by leg.
func (o *Optimizer) Optimize(chain *models.OptionChain, md *models.MarketData, liq *models.LiquidityProfile, regime MarketRegime) ([]models.OptimizedStrategy, error) {
	if chain == nil || len(chain.Contracts()) == 0 {
		symbol := ""
		if chain != nil {
			symbol = chain.Symbol
		}
		return nil, errors.NewAnalysisError("strategy", symbol, "optimize", errors.ErrEmptyChain)
	}
	if liq != nil && liq.OverallScore < o.criteria.LiquidityFloor {
		return nil, errors.NewAnalysisError("strategy", chain.Symbol, "optimize", errors.ErrInsufficientLiquidity)
	}

	candidates := o.gen.Generate(chain, md, regime)
	now := time.Now()

	var out []models.OptimizedStrategy
	for _, c := range candidates {
		metrics := ComputeMetrics(c, md.Price)
		legLiq := assessLegLiquidity(c)
		fit := assessFit(metrics, regime)
		score := qualityScore(metrics, legLiq, fit, regime)

		if score < o.criteria.MinQuality {
			continue
		}
		if legLiq.EntryScore < o.criteria.MinLiquidity {
			continue
		}
		if fit.Overall < o.criteria.MinMarketFit {
			continue
		}

		out = append(out, models.OptimizedStrategy{
			Name:         c.Name,
			Family:       c.Family,
			Symbol:       chain.Symbol,
			Legs:         c.Legs,
			Metrics:      metrics,
			Risk:         classifyRisk(c, metrics),
			Liquidity:    legLiq,
			Fit:          fit,
			QualityScore: score,
			QualityGrade: qualityGrade(score),
			Guidance:     buildGuidance(metrics, legLiq),
			GeneratedAt:  now,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > o.criteria.MaxResults {
		out = out[:o.criteria.MaxResults]
	}
	return out, nil
}
