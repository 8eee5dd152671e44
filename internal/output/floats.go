package output

import (
	"math"
	"strconv"
	"strings"
)

// RoundFloat rounds a float to max 6 decimal places
func RoundFloat(f float64) float64 {
	multiplier := math.Pow(10, 6)
	return math.Round(f*multiplier) / multiplier
}

// Round1 rounds to one decimal place (attendance rates, averages)
func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// Round2 rounds to two decimal places (GPA values)
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// FormatFloat formats a float with no trailing zeros
func FormatFloat(f float64) string {
	str := strconv.FormatFloat(RoundFloat(f), 'f', 6, 64)
	str = strings.TrimRight(str, "0")
	str = strings.TrimRight(str, ".")
	return str
}
