package greeks

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"optionscope/internal/models"
)

func TestPriceKnownValues(t *testing.T) {
	tests := []struct {
		name    string
		spot    float64
		strike  float64
		rate    float64
		vol     float64
		expiry  float64
		optType models.OptionType
		want    float64
		tol     float64
	}{
		// Classic textbook case: S=100, K=100, r=5%, vol=20%, T=1y.
		{"atm call one year", 100, 100, 0.05, 0.20, 1.0, models.Call, 10.4506, 0.001},
		{"atm put one year", 100, 100, 0.05, 0.20, 1.0, models.Put, 5.5735, 0.001},
		{"deep itm call", 150, 100, 0.05, 0.20, 0.5, models.Call, 52.4746, 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Price(tt.spot, tt.strike, tt.rate, tt.vol, tt.expiry, tt.optType)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Price() = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestPriceAtExpiryIsIntrinsic(t *testing.T) {
	if got := Price(110, 100, 0.05, 0.20, 0, models.Call); got != 10 {
		t.Errorf("expired ITM call = %.4f, want 10", got)
	}
	if got := Price(110, 100, 0.05, 0.20, 0, models.Put); got != 0 {
		t.Errorf("expired OTM put = %.4f, want 0", got)
	}
}

func TestComputeDegenerateInputs(t *testing.T) {
	zero := models.Greeks{}
	if g := Compute(0, 100, 0.05, 0.2, 1, models.Call); g != zero {
		t.Errorf("zero spot should produce zero greeks, got %+v", g)
	}
	if g := Compute(100, 100, 0.05, 0, 1, models.Call); g != zero {
		t.Errorf("zero vol should produce zero greeks, got %+v", g)
	}
	if g := Compute(100, 100, 0.05, 0.2, -1, models.Put); g != zero {
		t.Errorf("negative expiry should produce zero greeks, got %+v", g)
	}
}

func TestProperty_GreeksBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("call delta in [0,1], put delta in [-1,0], gamma and vega non-negative", prop.ForAll(
		func(spot, strike, vol, expiry float64) bool {
			call := Compute(spot, strike, 0.05, vol, expiry, models.Call)
			put := Compute(spot, strike, 0.05, vol, expiry, models.Put)

			if call.Delta < 0 || call.Delta > 1 {
				return false
			}
			if put.Delta < -1 || put.Delta > 0 {
				return false
			}
			if call.Gamma < 0 || call.Vega < 0 {
				return false
			}
			// Gamma and vega do not depend on the option right.
			return math.Abs(call.Gamma-put.Gamma) < 1e-12 && math.Abs(call.Vega-put.Vega) < 1e-12
		},
		gen.Float64Range(10, 1000),
		gen.Float64Range(10, 1000),
		gen.Float64Range(0.05, 2.0),
		gen.Float64Range(0.01, 2.0),
	))

	properties.Property("put-call parity holds", prop.ForAll(
		func(spot, strike, vol, expiry float64) bool {
			rate := 0.05
			call := Price(spot, strike, rate, vol, expiry, models.Call)
			put := Price(spot, strike, rate, vol, expiry, models.Put)
			parity := call - put - (spot - strike*math.Exp(-rate*expiry))
			return math.Abs(parity) < 1e-6
		},
		gen.Float64Range(50, 500),
		gen.Float64Range(50, 500),
		gen.Float64Range(0.05, 1.5),
		gen.Float64Range(0.02, 2.0),
	))

	properties.TestingRun(t)
}

func TestProperty_ImpliedVolRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("backing vol out of a model price recovers the input vol", prop.ForAll(
		func(spot, vol, expiry float64) bool {
			strike := spot * 1.02 // near the money keeps vega meaningful
			price := Price(spot, strike, 0.05, vol, expiry, models.Call)
			got := ImpliedVol(price, spot, strike, 0.05, expiry, models.Call)
			return math.Abs(got-vol) < 1e-4
		},
		gen.Float64Range(50, 500),
		gen.Float64Range(0.10, 1.5),
		gen.Float64Range(0.05, 1.5),
	))

	properties.TestingRun(t)
}
