// Package risk runs Monte Carlo strategy simulation and derives
// institutional risk metrics from the outcome distribution.
package risk

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"optionscope/internal/config"
	"optionscope/internal/errors"
)

// PathEvaluator maps one simulated terminal price path to a scalar
// strategy outcome (P&L). Evaluators may be called from multiple
// workers concurrently and must not retain the path slice.
type PathEvaluator func(path []float64) float64

// Simulator generates geometric-Brownian-motion price paths. The random
// source is injected and seedable so runs are reproducible: each worker
// draws from its own source seeded from the base seed, the call number,
// and the worker index, so path i is the same regardless of scheduling.
type Simulator struct {
	paths   int
	horizon int
	workers int
	seed    int64
	calls   int64
}

// NewSimulator creates a simulator from configuration. A zero seed falls
// back to a time-based seed.
func NewSimulator(cfg config.SimulationConfig) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	paths := cfg.Paths
	if paths <= 0 {
		paths = 10000
	}
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = 30
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Simulator{
		paths:   paths,
		horizon: horizon,
		workers: workers,
		seed:    seed,
	}
}

// NewSeededSimulator creates a single-worker simulator with explicit
// parameters.
func NewSeededSimulator(paths, horizon int, seed int64) *Simulator {
	return NewSimulator(config.SimulationConfig{Paths: paths, Horizon: horizon, Seed: seed})
}

// Paths returns the configured path count.
func (s *Simulator) Paths() int { return s.paths }

// Horizon returns the configured number of daily steps.
func (s *Simulator) Horizon() int { return s.horizon }

// Simulate generates the outcome distribution for one strategy.
// spot is the current underlying price, vol the annualized volatility and
// drift the annualized expected return. Returns ErrEmptySimulation when no
// paths are configured so statistics never divide by zero downstream.
func (s *Simulator) Simulate(ctx context.Context, spot, vol, drift float64, evaluate PathEvaluator) ([]float64, error) {
	if s.paths <= 0 {
		return nil, errors.Wrap(errors.ErrEmptySimulation, "no paths configured")
	}
	if spot <= 0 {
		return nil, errors.NewValidationError("spot", spot, "must be positive")
	}
	if vol <= 0 {
		vol = 0.01 // floor so the diffusion term stays defined
	}

	dt := 1.0 / 252
	driftTerm := (drift - 0.5*vol*vol) * dt
	diffusion := vol * math.Sqrt(dt)

	s.calls++
	callBase := s.seed + s.calls*1_000_003

	workers := s.workers
	if workers > s.paths {
		workers = s.paths
	}
	chunk := (s.paths + workers - 1) / workers
	outcomes := make([]float64, s.paths)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			rng := rand.New(rand.NewSource(callBase + int64(w)))
			path := make([]float64, s.horizon+1)

			start := w * chunk
			end := min(start+chunk, s.paths)
			for i := start; i < end; i++ {
				if (i-start)%1000 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}

				path[0] = spot
				price := spot
				for step := 1; step <= s.horizon; step++ {
					price *= math.Exp(driftTerm + diffusion*rng.NormFloat64())
					path[step] = price
				}
				outcomes[i] = evaluate(path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outcomes, nil
}
