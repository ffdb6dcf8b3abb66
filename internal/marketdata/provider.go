// Package marketdata defines the external data interfaces consumed by the
// analytics core, plus concrete provider implementations.
package marketdata

import (
	"context"

	"optionscope/internal/models"
)

// ChainProvider returns per-contract option chain snapshots.
type ChainProvider interface {
	GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error)
}

// MarketDataProvider returns the current underlying snapshot and history.
type MarketDataProvider interface {
	GetMarketData(ctx context.Context, symbol string) (*models.MarketData, error)
}

// PositionsProvider returns active position records.
type PositionsProvider interface {
	GetActivePositions(ctx context.Context) ([]models.Position, error)
}

// Provider bundles all three data interfaces.
type Provider interface {
	ChainProvider
	MarketDataProvider
	PositionsProvider
}
