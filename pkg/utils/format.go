package utils

import "fmt"

// FormatCurrency formats a value as a currency string.
func FormatCurrency(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

// FormatPercent formats a fraction as a percentage string.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// FormatScore formats a 0-100 score.
func FormatScore(v float64) string {
	return fmt.Sprintf("%.0f/100", v)
}
