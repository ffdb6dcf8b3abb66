package utils

import (
	"math"
	"sort"
)

// Clamp restricts a value to the given range.
func Clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}

// Clamp01 restricts a probability to [0,1].
func Clamp01(value float64) float64 {
	return Clamp(value, 0, 1)
}

// ClampScore restricts a score to [0,100].
func ClampScore(value float64) float64 {
	return Clamp(value, 0, 100)
}

// Mean returns the arithmetic mean. Callers must check for empty input first;
// Mean returns 0 for an empty slice rather than dividing by zero.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Percentile returns the p-th percentile (0-100) of values using
// nearest-rank on a sorted copy.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Skewness returns the sample skewness of values.
func Skewness(values []float64) float64 {
	n := float64(len(values))
	if n < 3 {
		return 0
	}
	mean := Mean(values)
	sd := StdDev(values)
	if sd == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		z := (v - mean) / sd
		sum += z * z * z
	}
	return sum / n
}

// Kurtosis returns the excess kurtosis of values.
func Kurtosis(values []float64) float64 {
	n := float64(len(values))
	if n < 4 {
		return 0
	}
	mean := Mean(values)
	sd := StdDev(values)
	if sd == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		z := (v - mean) / sd
		sum += z * z * z * z
	}
	return sum/n - 3
}
