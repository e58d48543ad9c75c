// src/models/fee.go
package models

import "github.com/shopspring/decimal"

type FeeKind string

const (
	FeeKindFixed      FeeKind = "fixed"
	FeeKindPercentage FeeKind = "percentage"
)

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

type TransactionAction string

const (
	ActionBuy  TransactionAction = "buy"
	ActionSwap TransactionAction = "swap"
	ActionSend TransactionAction = "send"
)

// FeeRule is a named charge. Methods and Actions restrict where the rule
// applies; an empty list matches everything.
type FeeRule struct {
	Name    string              `json:"name" yaml:"name"`
	Kind    FeeKind             `json:"kind" yaml:"kind"`
	Value   float64             `json:"value" yaml:"value"`
	Methods []PaymentMethod     `json:"methods,omitempty" yaml:"methods,omitempty"`
	Actions []TransactionAction `json:"actions,omitempty" yaml:"actions,omitempty"`
}

func FixedFee(name string, value float64) FeeRule {
	return FeeRule{Name: name, Kind: FeeKindFixed, Value: value}
}

func PercentageFee(name string, value float64) FeeRule {
	return FeeRule{Name: name, Kind: FeeKindPercentage, Value: value}
}

// FeeContext carries what the user has selected on the transaction screen.
type FeeContext struct {
	Action        TransactionAction `json:"action"`
	PaymentMethod PaymentMethod     `json:"payment_method,omitempty"`
}

type AppliedFee struct {
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"` // Amount rounded to two places
}

// SummaryDisplay holds the same figures rounded to two places for rendering.
type SummaryDisplay struct {
	Amount string `json:"amount"`
	Total  string `json:"total"`
}

type TransactionSummary struct {
	Amount  decimal.Decimal `json:"amount"`
	Fees    []AppliedFee    `json:"fees"`
	Total   decimal.Decimal `json:"total"`
	Display SummaryDisplay  `json:"display"`
}

type SwapQuote struct {
	FromAmount      decimal.Decimal `json:"from_amount"`
	Rate            decimal.Decimal `json:"rate"`
	ToAmount        decimal.Decimal `json:"to_amount"`
	Slippage        decimal.Decimal `json:"slippage"`
	MinimumReceived decimal.Decimal `json:"minimum_received"`
	Display         struct {
		ToAmount        string `json:"to_amount"`
		MinimumReceived string `json:"minimum_received"`
	} `json:"display"`
}
