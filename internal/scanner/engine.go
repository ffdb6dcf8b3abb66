// Package scanner runs the continuous scan loop that ties the analytics
// engines together and maintains monitoring state.
package scanner

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"optionscope/internal/config"
	"optionscope/internal/errors"
	"optionscope/internal/liquidity"
	"optionscope/internal/logging"
	"optionscope/internal/marketdata"
	"optionscope/internal/models"
	"optionscope/internal/raos"
	"optionscope/internal/risk"
	"optionscope/internal/strategy"
	"optionscope/internal/telemetry"
)

// CycleResult is the output of one completed scan cycle.
type CycleResult struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration
	Records   []models.RAOSRecord
	Failures  map[string]error
	Health    *models.PortfolioHealth
	Alerts    []models.MonitoringAlert
}

// StateStore persists monitoring state across cycles and processes:
// fired alerts, trigger transitions, and the user-managed watchlist.
// All methods must be safe for concurrent use.
type StateStore interface {
	SaveAlert(ctx context.Context, a models.MonitoringAlert) error
	JournalTrigger(ctx context.Context, t models.SymbolTrigger, at time.Time) error
	Watchlist(ctx context.Context) ([]string, error)
}

// Engine orchestrates the per-symbol analytics pipeline. All mutable
// state lives on the struct and is guarded by mu; there is no package
// level state.
type Engine struct {
	cfg       *config.Config
	provider  marketdata.Provider
	liq       *liquidity.Analyzer
	optimizer *strategy.Optimizer
	ranker    *raos.Ranker
	store     StateStore
	metrics   *telemetry.Metrics
	log       zerolog.Logger

	mu          sync.Mutex
	cancelCycle context.CancelFunc
	cycleSeq    int
	triggers    map[string][]models.SymbolTrigger
	lastResult  *CycleResult
	alertSeq    int
}

// NewEngine wires the full pipeline from configuration. store may be
// nil, in which case cycles run purely in memory.
func NewEngine(cfg *config.Config, provider marketdata.Provider, store StateStore, metrics *telemetry.Metrics, log zerolog.Logger) *Engine {
	criteria := strategy.DefaultCriteria()
	criteria.LiquidityFloor = cfg.Liquidity.Floor
	criteria.MaxResults = cfg.Scanner.TopPerSymbol

	return &Engine{
		cfg:       cfg,
		provider:  provider,
		liq:       liquidity.NewAnalyzer(cfg.Liquidity),
		optimizer: strategy.NewOptimizer(1, cfg.Scanner.MaxDaysToExpiry, criteria),
		ranker:    raos.NewRanker(),
		store:     store,
		metrics:   metrics,
		log:       logging.WithEngine(log, "scanner"),
		triggers:  make(map[string][]models.SymbolTrigger),
	}
}

// universe merges the configured symbols with the persisted watchlist,
// configured symbols first, deduplicated.
func (e *Engine) universe(ctx context.Context) []string {
	out := make([]string, 0, len(e.cfg.Scanner.Universe))
	seen := make(map[string]bool)
	for _, sym := range e.cfg.Scanner.Universe {
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	if e.store == nil {
		return out
	}
	watched, err := e.store.Watchlist(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("loading watchlist, scanning configured universe only")
		return out
	}
	for _, sym := range watched {
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

// LastResult returns the most recent completed cycle, or nil.
func (e *Engine) LastResult() *CycleResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// Triggers returns a copy of the trigger state for a symbol.
func (e *Engine) Triggers(symbol string) []models.SymbolTrigger {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.SymbolTrigger, len(e.triggers[symbol]))
	copy(out, e.triggers[symbol])
	return out
}

// Run executes scan cycles on the configured interval until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Scanner.Interval)
	defer ticker.Stop()

	if _, err := e.RunCycle(ctx); err != nil && !errors.Is(err, errors.ErrCycleSuperseded) {
		e.log.Error().Err(err).Msg("initial scan cycle failed")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.RunCycle(ctx); err != nil && !errors.Is(err, errors.ErrCycleSuperseded) {
				e.log.Error().Err(err).Msg("scan cycle failed")
			}
		}
	}
}

// RunCycle runs one full scan. Starting a new cycle cancels any cycle
// still in flight; the newer snapshot always wins.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	e.mu.Lock()
	if e.cancelCycle != nil {
		e.cancelCycle()
		if e.metrics != nil {
			e.metrics.CyclesSuperseded.Inc()
		}
	}
	cycleCtx, cancel := context.WithCancel(ctx)
	e.cancelCycle = cancel
	e.cycleSeq++
	cycleID := fmt.Sprintf("cycle-%d", e.cycleSeq)
	e.mu.Unlock()
	defer cancel()

	start := time.Now()
	result := &CycleResult{
		CycleID:   cycleID,
		StartedAt: start,
		Failures:  make(map[string]error),
	}

	type symbolOutcome struct {
		symbol  string
		records []models.RAOSRecord
		md      *models.MarketData
		err     error
	}

	universe := e.universe(cycleCtx)
	outcomes := make([]symbolOutcome, len(universe))
	g, gctx := errgroup.WithContext(cycleCtx)
	for i, symbol := range universe {
		i, symbol := i, symbol
		g.Go(func() error {
			symCtx, symCancel := context.WithTimeout(gctx, e.cfg.Scanner.SymbolTimeout)
			defer symCancel()

			symStart := time.Now()
			records, md, err := e.scanSymbol(symCtx, symbol)
			if e.metrics != nil {
				telemetry.ObserveSince(e.metrics.SymbolDuration, symStart)
			}
			outcomes[i] = symbolOutcome{symbol: symbol, records: records, md: md, err: err}
			// Per-symbol failure never aborts the cycle.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cycleCtx.Err() != nil {
		return nil, errors.Wrap(errors.ErrCycleSuperseded, cycleID)
	}

	// Single writer: all state mutation happens here, after fan-in.
	var all []models.RAOSRecord
	market := make(map[string]*models.MarketData)
	for _, o := range outcomes {
		if o.err != nil {
			result.Failures[o.symbol] = o.err
			if e.metrics != nil {
				e.metrics.SymbolFailures.WithLabelValues("pipeline").Inc()
			}
			symLog := logging.WithSymbol(e.log, o.symbol)
			symLog.Warn().Err(o.err).Msg("symbol scan failed")
			continue
		}
		all = append(all, o.records...)
		if o.md != nil {
			market[o.symbol] = o.md
		}
	}
	result.Records = e.ranker.Rank(all)
	result.Duration = time.Since(start)

	e.mu.Lock()
	var transitions []models.SymbolTrigger
	for sym, md := range market {
		next := evaluateTriggers(e.triggers[sym], sym, md, e.cfg.Alerts, start)
		transitions = append(transitions, changedTriggers(e.triggers[sym], next)...)
		e.triggers[sym] = next
	}
	e.updateMonitoring(cycleCtx, result, market)
	e.lastResult = result
	e.mu.Unlock()

	e.persistCycle(cycleCtx, result, transitions, start)

	if e.metrics != nil {
		e.metrics.CyclesTotal.Inc()
		e.metrics.CycleDuration.Observe(result.Duration.Seconds())
		e.metrics.StrategiesFound.Set(float64(len(result.Records)))
		e.metrics.ActiveAlerts.Set(float64(len(result.Alerts)))
	}
	logging.LogCycle(e.log, cycleID, len(universe), len(result.Failures), result.Duration)
	return result, nil
}

// changedTriggers returns the triggers in next whose state differs from
// prev. Initial Untriggered entries are not transitions.
func changedTriggers(prev, next []models.SymbolTrigger) []models.SymbolTrigger {
	prevState := make(map[models.TriggerCondition]models.TriggerState, len(prev))
	for _, t := range prev {
		prevState[t.Condition] = t.State
	}
	var out []models.SymbolTrigger
	for _, t := range next {
		if t.State != models.Untriggered && t.State != prevState[t.Condition] {
			out = append(out, t)
		}
	}
	return out
}

// persistCycle journals trigger transitions and saves fired alerts.
// Persistence failures degrade to log warnings; the cycle result stands.
func (e *Engine) persistCycle(ctx context.Context, result *CycleResult, transitions []models.SymbolTrigger, at time.Time) {
	if e.store == nil {
		return
	}
	for _, t := range transitions {
		if err := e.store.JournalTrigger(ctx, t, at); err != nil {
			symLog := logging.WithSymbol(e.log, t.Symbol)
			symLog.Warn().Err(err).Msg("journaling trigger transition")
		}
	}
	for _, a := range result.Alerts {
		if err := e.store.SaveAlert(ctx, a); err != nil {
			e.log.Warn().Err(err).Str("alert_id", a.ID).Msg("persisting alert")
		}
	}
}

// newSimulator builds the per-symbol simulator. Simulators mutate
// per-call state, so each scan goroutine gets its own; the seed is
// derived from the base seed and the symbol so results stay
// reproducible regardless of goroutine scheduling.
func (e *Engine) newSimulator(symbol string) *risk.Simulator {
	simCfg := e.cfg.Simulation
	if simCfg.Seed != 0 {
		h := fnv.New64a()
		h.Write([]byte(symbol))
		simCfg.Seed += int64(h.Sum64() & math.MaxInt32)
	}
	return risk.NewSimulator(simCfg)
}

// scanSymbol runs the full analytics pipeline for one symbol.
func (e *Engine) scanSymbol(ctx context.Context, symbol string) ([]models.RAOSRecord, *models.MarketData, error) {
	log := logging.WithSymbol(e.log, symbol)

	chain, err := e.provider.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching chain")
	}
	md, err := e.provider.GetMarketData(ctx, symbol)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching market data")
	}

	profile, err := e.liq.Analyze(symbol, chain.Calls, chain.Puts, md.Price)
	if err != nil {
		return nil, md, errors.Wrap(err, "analyzing liquidity")
	}

	regime := strategy.AssessRegime(md, profile, nil)

	strategies, err := e.optimizer.Optimize(chain, md, profile, regime)
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientLiquidity) {
			log.Debug().Float64("score", profile.OverallScore).Msg("liquidity below floor, skipping")
			return nil, md, nil
		}
		return nil, md, errors.Wrap(err, "optimizing strategies")
	}

	sim := e.newSimulator(symbol)
	var records []models.RAOSRecord
	for _, s := range strategies {
		riskMetrics, err := e.evaluateRisk(ctx, sim, s, md)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.Name).Msg("risk evaluation failed")
			continue
		}
		rec := e.ranker.Score(s, *riskMetrics, regime)
		if e.passesFilters(rec) {
			records = append(records, rec)
		}
	}
	return records, md, nil
}

// evaluateRisk runs the Monte Carlo simulation for one strategy and
// derives the full metric set from the outcome distribution.
func (e *Engine) evaluateRisk(ctx context.Context, sim *risk.Simulator, s models.OptimizedStrategy, md *models.MarketData) (*models.AdvancedRiskMetrics, error) {
	simStart := time.Now()
	outcomes, err := sim.Simulate(ctx, md.Price, md.ImpliedVol, md.RiskFreeRate, func(path []float64) float64 {
		return strategy.PayoffAt(s.Legs, path[len(path)-1])
	})
	if e.metrics != nil {
		telemetry.ObserveSince(e.metrics.SimDuration, simStart)
	}
	if err != nil {
		return nil, err
	}

	m, err := risk.ComputeMetrics(risk.MetricsInput{
		Outcomes:          outcomes,
		HistoricalReturns: md.Returns,
		Capital:           capitalFor(s),
		MaxLoss:           s.Metrics.MaxLoss,
		HorizonDays:       sim.Horizon(),
		RiskFreeRate:      md.RiskFreeRate,
	})
	if err != nil {
		return nil, err
	}
	m.Stress = risk.StressTest(risk.GreekExposure{
		Delta: s.Metrics.NetDelta,
		Gamma: s.Metrics.NetGamma,
		Vega:  s.Metrics.NetVega,
		Theta: s.Metrics.NetTheta,
	})
	return m, nil
}

func capitalFor(s models.OptimizedStrategy) float64 {
	if !s.Metrics.MaxLoss.Unbounded && s.Metrics.MaxLoss.Amount != 0 {
		if loss := -s.Metrics.MaxLoss.Amount; loss > 0 {
			return loss
		}
	}
	if s.Metrics.NetDebit > 0 {
		return s.Metrics.NetDebit
	}
	return -s.Metrics.NetDebit
}

// passesFilters applies the configured result gate.
func (e *Engine) passesFilters(rec models.RAOSRecord) bool {
	sc := e.cfg.Scanner
	if rec.Score < sc.MinRAOS {
		return false
	}
	if rec.Components.TailRisk > sc.MaxRiskScore {
		return false
	}
	if rec.Strategy.Liquidity.EntryScore < sc.MinLiquidity {
		return false
	}
	if rec.Strategy.Metrics.DaysToExpiry > sc.MaxDaysToExpiry {
		return false
	}
	if rec.Strategy.Metrics.ProbOfProfit < sc.MinProbOfProfit {
		return false
	}
	if sc.RequireDefined && rec.Strategy.Metrics.MaxLoss.Unbounded {
		return false
	}
	return true
}

// updateMonitoring refreshes portfolio health and alerts. Caller holds mu.
func (e *Engine) updateMonitoring(ctx context.Context, result *CycleResult, market map[string]*models.MarketData) {
	positions, err := e.provider.GetActivePositions(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("fetching positions for monitoring")
		return
	}
	if len(positions) == 0 {
		return
	}

	result.Health = assessHealth(positions, market, e.cfg.RiskLimits)
	result.Alerts = e.buildAlerts(positions, market, result.Health)
	for _, a := range result.Alerts {
		logging.LogAlert(e.log, a.ID, a.Symbol, string(a.Kind), string(a.Severity))
	}
}

// nextAlertID mints an alert identifier unique across process restarts,
// so the persisted ledger's duplicate check never drops a fresh alert.
// Caller holds mu.
func (e *Engine) nextAlertID() string {
	e.alertSeq++
	return fmt.Sprintf("alert-%d-%d", time.Now().UnixNano(), e.alertSeq)
}
