package greeks

import (
	"optionscope/internal/models"
)

// ImpliedVol backs the volatility out of a quoted option price by
// bisection. expiry is in years. Returns 0 when the price cannot be
// bracketed inside the solver's volatility range.
func ImpliedVol(price, spot, strike, rate, expiry float64, optType models.OptionType) float64 {
	if price <= 0 || spot <= 0 || strike <= 0 || expiry <= 0 {
		return 0
	}

	lo, hi := 0.01, 5.0
	if Price(spot, strike, rate, hi, expiry, optType) < price {
		return 0
	}
	if Price(spot, strike, rate, lo, expiry, optType) > price {
		return 0
	}

	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if Price(spot, strike, rate, mid, expiry, optType) < price {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
