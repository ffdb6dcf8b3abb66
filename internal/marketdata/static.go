package marketdata

import (
	"context"
	"math"
	"sync"
	"time"

	"optionscope/internal/errors"
	"optionscope/internal/greeks"
	"optionscope/internal/models"
)

// StaticProvider serves fixed in-memory snapshots. It backs offline
// runs and tests; chains can be seeded directly or synthesized.
type StaticProvider struct {
	mu        sync.RWMutex
	chains    map[string]*models.OptionChain
	market    map[string]*models.MarketData
	positions []models.Position
}

// NewStaticProvider returns an empty provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		chains: make(map[string]*models.OptionChain),
		market: make(map[string]*models.MarketData),
	}
}

// SetChain seeds the chain for a symbol.
func (p *StaticProvider) SetChain(symbol string, chain *models.OptionChain) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chains[symbol] = chain
}

// SetMarketData seeds the market snapshot for a symbol.
func (p *StaticProvider) SetMarketData(symbol string, md *models.MarketData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.market[symbol] = md
}

// SetPositions seeds the active position list.
func (p *StaticProvider) SetPositions(positions []models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = positions
}

// GetOptionChain implements ChainProvider.
func (p *StaticProvider) GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	chain, ok := p.chains[symbol]
	if !ok {
		return nil, errors.NewDataError("chain", symbol, "symbol not seeded", errors.ErrSymbolNotFound)
	}
	return chain, nil
}

// GetMarketData implements MarketDataProvider.
func (p *StaticProvider) GetMarketData(ctx context.Context, symbol string) (*models.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	md, ok := p.market[symbol]
	if !ok {
		return nil, errors.NewDataError("market", symbol, "symbol not seeded", errors.ErrSymbolNotFound)
	}
	return md, nil
}

// GetActivePositions implements PositionsProvider.
func (p *StaticProvider) GetActivePositions(ctx context.Context) ([]models.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Position, len(p.positions))
	copy(out, p.positions)
	return out, nil
}

// SynthesizeChain builds a plausible chain around spot with uniform
// vol, useful for demos and tests that do not care about quote detail.
func SynthesizeChain(symbol string, spot, vol float64, dte int, strikes int) *models.OptionChain {
	expiry := time.Now().AddDate(0, 0, dte)
	years := float64(dte) / 365
	rate := defaultRiskFreeRate

	chain := &models.OptionChain{
		Symbol:    symbol,
		SpotPrice: spot,
		FetchedAt: time.Now(),
	}

	step := math.Max(spot*0.025, 0.5)
	base := spot - step*float64(strikes/2)
	for i := 0; i < strikes; i++ {
		strike := base + step*float64(i)
		for _, optType := range []models.OptionType{models.Call, models.Put} {
			price := greeks.Price(spot, strike, rate, vol, years, optType)
			spread := math.Max(price*0.03, 0.05)
			moneyness := math.Exp(-math.Abs(strike-spot) / spot * 8)
			contract := models.OptionContract{
				Symbol:       symbol,
				Type:         optType,
				Strike:       strike,
				Expiry:       expiry,
				Bid:          math.Max(price-spread/2, 0.05),
				Ask:          price + spread/2,
				Mid:          price,
				Volume:       int64(2000 * moneyness),
				OpenInterest: int64(5000 * moneyness),
				ImpliedVol:   vol,
				Greeks:       greeks.Compute(spot, strike, rate, vol, years, optType),
				DaysToExpiry: dte,
			}
			if optType == models.Call {
				chain.Calls = append(chain.Calls, contract)
			} else {
				chain.Puts = append(chain.Puts, contract)
			}
		}
	}
	return chain
}

// SynthesizeMarketData builds a matching underlying snapshot with a
// flat return history.
func SynthesizeMarketData(symbol string, spot, vol, ivRank float64) *models.MarketData {
	returns := make([]float64, 60)
	daily := vol / math.Sqrt(252)
	for i := range returns {
		// Alternating moves keep the mean near zero with realistic scale.
		if i%2 == 0 {
			returns[i] = daily
		} else {
			returns[i] = -daily
		}
	}
	return &models.MarketData{
		Symbol:        symbol,
		Price:         spot,
		HistoricalVol: vol,
		ImpliedVol:    vol,
		IVRank:        ivRank,
		RiskFreeRate:  defaultRiskFreeRate,
		Returns:       returns,
		AvgVolume:     50000,
		DayVolume:     50000,
		Timestamp:     time.Now(),
	}
}
