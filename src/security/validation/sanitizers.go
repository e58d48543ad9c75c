// src/security/validation/sanitizers.go
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxAmountDecimals is the fractional precision kept for crypto amounts.
const MaxAmountDecimals = 8

var amountInputPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// IsValidAmountInput reports whether text is acceptable as the new value of a
// numeric field: empty, or digits with at most one decimal point.
func IsValidAmountInput(text string) bool {
	if text == "" {
		return true
	}
	return amountInputPattern.MatchString(text)
}

// NormalizeAmount coerces any string into an amount string. Characters other
// than ASCII digits and '.' are dropped, extra decimal points are collapsed into
// the first one and the fraction is truncated to MaxAmountDecimals digits.
func NormalizeAmount(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, text)

	intPart, frac, hasDot := strings.Cut(cleaned, ".")
	if !hasDot {
		return intPart
	}
	frac = strings.ReplaceAll(frac, ".", "")
	if len(frac) > MaxAmountDecimals {
		frac = frac[:MaxAmountDecimals]
	}
	return intPart + "." + frac
}

// HandleAmountChange is the keystroke entry point of every numeric field.
// Invalid text is ignored so the field keeps its previous value.
func HandleAmountChange(text string, set func(string)) {
	if IsValidAmountInput(text) {
		set(NormalizeAmount(text))
	}
}

// AmountField holds the current value of one numeric input.
type AmountField struct {
	value string
}

func NewAmountField(initial string) *AmountField {
	f := &AmountField{}
	HandleAmountChange(initial, f.set)
	return f
}

func (f *AmountField) set(v string) { f.value = v }

// Input applies one keystroke result and reports whether it was accepted.
func (f *AmountField) Input(text string) bool {
	accepted := false
	HandleAmountChange(text, func(v string) {
		f.value = v
		accepted = true
	})
	return accepted
}

func (f *AmountField) Value() string { return f.value }

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1 // Drop the rune
	}, s)
}
