package marketdata

import (
	"context"
	"testing"

	"optionscope/internal/errors"
	"optionscope/internal/models"
)

func TestStaticProviderUnseededSymbol(t *testing.T) {
	p := NewStaticProvider()
	ctx := context.Background()

	if _, err := p.GetOptionChain(ctx, "NIFTY"); !errors.Is(err, errors.ErrSymbolNotFound) {
		t.Errorf("chain error = %v, want ErrSymbolNotFound", err)
	}
	if _, err := p.GetMarketData(ctx, "NIFTY"); !errors.Is(err, errors.ErrSymbolNotFound) {
		t.Errorf("market error = %v, want ErrSymbolNotFound", err)
	}
}

func TestStaticProviderSeededLookup(t *testing.T) {
	p := NewStaticProvider()
	ctx := context.Background()

	p.SetChain("NIFTY", SynthesizeChain("NIFTY", 100, 0.2, 30, 11))
	p.SetMarketData("NIFTY", SynthesizeMarketData("NIFTY", 100, 0.2, 50))

	chain, err := p.GetOptionChain(ctx, "NIFTY")
	if err != nil {
		t.Fatalf("GetOptionChain: %v", err)
	}
	if len(chain.Calls) != 11 || len(chain.Puts) != 11 {
		t.Errorf("chain sides = %d/%d, want 11 each", len(chain.Calls), len(chain.Puts))
	}
	md, err := p.GetMarketData(ctx, "NIFTY")
	if err != nil {
		t.Fatalf("GetMarketData: %v", err)
	}
	if md.Price != 100 || md.IVRank != 50 {
		t.Errorf("market data = %+v, want seeded values", md)
	}
}

func TestStaticProviderCancelledContext(t *testing.T) {
	p := NewStaticProvider()
	p.SetChain("NIFTY", SynthesizeChain("NIFTY", 100, 0.2, 30, 5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.GetOptionChain(ctx, "NIFTY"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if _, err := p.GetActivePositions(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("positions error = %v, want context.Canceled", err)
	}
}

func TestStaticProviderPositionsCopied(t *testing.T) {
	p := NewStaticProvider()
	p.SetPositions([]models.Position{{ID: "p1", Symbol: "NIFTY"}})

	got, err := p.GetActivePositions(context.Background())
	if err != nil {
		t.Fatalf("GetActivePositions: %v", err)
	}
	got[0].Symbol = "CHANGED"

	again, err := p.GetActivePositions(context.Background())
	if err != nil {
		t.Fatalf("GetActivePositions: %v", err)
	}
	if again[0].Symbol != "NIFTY" {
		t.Error("mutating the returned slice leaked into the provider")
	}
}

func TestSynthesizeChainShape(t *testing.T) {
	chain := SynthesizeChain("NIFTY", 100, 0.2, 30, 11)
	if chain.SpotPrice != 100 {
		t.Errorf("spot = %v, want 100", chain.SpotPrice)
	}
	for _, c := range chain.Calls {
		if c.Bid <= 0 || c.Ask <= c.Bid {
			t.Errorf("strike %.1f: bid/ask %.2f/%.2f not a valid market", c.Strike, c.Bid, c.Ask)
		}
		if c.DaysToExpiry != 30 {
			t.Errorf("strike %.1f: dte = %d, want 30", c.Strike, c.DaysToExpiry)
		}
	}
	// Volume concentrates near the money.
	atm := chain.Calls[5]
	wing := chain.Calls[0]
	if atm.Volume <= wing.Volume {
		t.Errorf("atm volume %d should exceed wing volume %d", atm.Volume, wing.Volume)
	}
}
