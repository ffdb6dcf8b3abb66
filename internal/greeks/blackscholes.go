// Package greeks rolls per-leg option sensitivities into portfolio-level
// exposure and computes analytic Black-Scholes sensitivities.
package greeks

import (
	"math"

	"optionscope/internal/models"
)

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// d1d2 returns the Black-Scholes d1 and d2 terms.
// expiry is in years, vol is annualized.
func d1d2(spot, strike, rate, vol, expiry float64) (float64, float64) {
	sqrtT := math.Sqrt(expiry)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*expiry) / (vol * sqrtT)
	return d1, d1 - vol*sqrtT
}

// Compute returns the standard per-unit Greeks for one contract.
func Compute(spot, strike, rate, vol, expiry float64, optType models.OptionType) models.Greeks {
	if expiry <= 0 || vol <= 0 || spot <= 0 || strike <= 0 {
		return models.Greeks{}
	}

	d1, d2 := d1d2(spot, strike, rate, vol, expiry)
	nd1 := normCDF(d1)
	np1 := normPDF(d1)
	sqrtT := math.Sqrt(expiry)
	discount := math.Exp(-rate * expiry)

	g := models.Greeks{
		Gamma: np1 / (spot * vol * sqrtT),
		Vega:  spot * sqrtT * np1 / 100, // per 1% vol move
	}

	if optType == models.Call {
		g.Delta = nd1
		g.Theta = (-(spot*np1*vol)/(2*sqrtT) - rate*strike*discount*normCDF(d2)) / 365
		g.Rho = strike * expiry * discount * normCDF(d2) / 100
	} else {
		g.Delta = nd1 - 1
		g.Theta = (-(spot*np1*vol)/(2*sqrtT) + rate*strike*discount*normCDF(-d2)) / 365
		g.Rho = -strike * expiry * discount * normCDF(-d2) / 100
	}

	return g
}

// ComputeAdvanced returns the second- and third-order per-unit Greeks,
// derived analytically from the same d1/d2 terms.
func ComputeAdvanced(spot, strike, rate, vol, expiry float64, optType models.OptionType) models.AdvancedGreeks {
	if expiry <= 0 || vol <= 0 || spot <= 0 || strike <= 0 {
		return models.AdvancedGreeks{}
	}

	d1, d2 := d1d2(spot, strike, rate, vol, expiry)
	np1 := normPDF(d1)
	sqrtT := math.Sqrt(expiry)

	gamma := np1 / (spot * vol * sqrtT)
	vega := spot * sqrtT * np1

	adv := models.AdvancedGreeks{
		// dDelta/dVol, per 1% vol move
		Vanna: -np1 * d2 / vol / 100,
		// dVega/dVol, per 1% vol move
		Volga: vega * d1 * d2 / vol / 10000,
		// dVega/dTime, per day
		Veta: -spot * np1 * sqrtT *
			(rate*d1/(vol*sqrtT) - (1+d1*d2)/(2*expiry)) / 36500,
		// dGamma/dSpot
		Speed: -gamma / spot * (d1/(vol*sqrtT) + 1),
		// dGamma/dVol, per 1% vol move
		Zomma: gamma * (d1*d2 - 1) / vol / 100,
		// dGamma/dTime, per day
		Color: -np1 / (2 * spot * expiry * vol * sqrtT) *
			(1 + d1*(2*rate*expiry-d2*vol*sqrtT)/(vol*sqrtT)) / 365,
	}

	// Charm: dDelta/dTime, per day. Identical for calls and puts absent dividends.
	adv.Charm = -np1 * (2*rate*expiry - d2*vol*sqrtT) / (2 * expiry * vol * sqrtT) / 365

	return adv
}

// Price returns the Black-Scholes value of one contract per unit.
func Price(spot, strike, rate, vol, expiry float64, optType models.OptionType) float64 {
	if expiry <= 0 || vol <= 0 {
		// At expiry the option is worth intrinsic value.
		if optType == models.Call {
			return math.Max(spot-strike, 0)
		}
		return math.Max(strike-spot, 0)
	}

	d1, d2 := d1d2(spot, strike, rate, vol, expiry)
	discount := math.Exp(-rate * expiry)

	if optType == models.Call {
		return spot*normCDF(d1) - strike*discount*normCDF(d2)
	}
	return strike*discount*normCDF(-d2) - spot*normCDF(-d1)
}
