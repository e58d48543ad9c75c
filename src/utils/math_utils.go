package utils

import (
	"math"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// FormatMoney renders d with two decimals and thousands separators, e.g. 1,234.50.
func FormatMoney(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")
	n, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return sign + fixed
	}
	return sign + humanize.BigComma(n) + "." + frac
}

// FormatCompactUSD renders large market figures the way the dashboard does,
// e.g. 1.2 trillion.
func FormatCompactUSD(v float64) string {
	if v < 1e6 {
		return "$" + humanize.CommafWithDigits(v, 2)
	}
	value, suffix := humanize.ComputeSI(v)
	names := map[string]string{"M": "million", "G": "billion", "T": "trillion", "P": "quadrillion"}
	name, ok := names[suffix]
	if !ok {
		name = suffix
	}
	return "$" + humanize.FtoaWithDigits(value, 2) + " " + name
}
