// src/processors/transaction_calculator.go
package processors

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/utils"
)

// DefaultSlippage is the tolerance shown on the swap screen (0.5%).
var DefaultSlippage = decimal.RequireFromString("0.005")

// ParseAmount reads a sanitized amount. Empty or unparsable text is zero.
func ParseAmount(text string) decimal.Decimal {
	if text == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ActiveRules keeps the rules that apply to the given context, preserving order.
func ActiveRules(rules []models.FeeRule, ctx models.FeeContext) []models.FeeRule {
	active := make([]models.FeeRule, 0, len(rules))
	for _, r := range rules {
		if len(r.Actions) > 0 && !slices.Contains(r.Actions, ctx.Action) {
			continue
		}
		if len(r.Methods) > 0 && !slices.Contains(r.Methods, ctx.PaymentMethod) {
			continue
		}
		active = append(active, r)
	}
	return active
}

// ComputeSummary derives the fee breakdown and total for an amount. Figures
// are accumulated exactly; only the Display strings are rounded.
func ComputeSummary(amountText string, rules []models.FeeRule, ctx models.FeeContext) models.TransactionSummary {
	amount := ParseAmount(amountText)
	total := amount
	summary := models.TransactionSummary{
		Amount: amount,
		Fees:   []models.AppliedFee{},
	}

	for _, rule := range ActiveRules(rules, ctx) {
		value := decimal.NewFromFloat(rule.Value)
		var fee decimal.Decimal
		switch rule.Kind {
		case models.FeeKindFixed:
			fee = value
		case models.FeeKindPercentage:
			fee = amount.Mul(value)
		default:
			continue
		}
		summary.Fees = append(summary.Fees, models.AppliedFee{Name: rule.Name, Amount: fee, Display: utils.FormatMoney(fee)})
		total = total.Add(fee)
	}

	summary.Total = total
	summary.Display.Amount = utils.FormatMoney(amount)
	summary.Display.Total = utils.FormatMoney(total)
	return summary
}

// QuoteSwap converts fromText at rate and applies the slippage tolerance to
// get the minimum amount the user is guaranteed to receive.
func QuoteSwap(fromText string, rate, slippage decimal.Decimal) models.SwapQuote {
	from := ParseAmount(fromText)
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	to := from.Mul(rate)
	minReceived := to.Mul(decimal.NewFromInt(1).Sub(slippage))

	q := models.SwapQuote{
		FromAmount:      from,
		Rate:            rate,
		ToAmount:        to,
		Slippage:        slippage,
		MinimumReceived: minReceived,
	}
	q.Display.ToAmount = to.StringFixed(4)
	q.Display.MinimumReceived = minReceived.StringFixed(4)
	return q
}

// ExchangeRate is how many units of the target one unit of the source buys.
func ExchangeRate(fromUSD, toUSD float64) float64 {
	if toUSD == 0 {
		return 0
	}
	return fromUSD / toUSD
}
