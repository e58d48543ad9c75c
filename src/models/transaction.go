package models

import "time"

// ProgressUpdate is one status line of a simulated transaction.
type ProgressUpdate struct {
	Step    int    `json:"step"`  // 1-based
	Total   int    `json:"total"` // number of steps in the flow
	Message string `json:"message"`
}

// TransactionRequest is what the buy/swap/send screens submit on confirm.
type TransactionRequest struct {
	Action        TransactionAction `json:"action"`
	Amount        string            `json:"amount"`
	Coin          string            `json:"coin"`                     // bought, sent or swapped-from symbol
	ToCoin        string            `json:"to_coin,omitempty"`        // swap target symbol
	ToAmount      string            `json:"to_amount,omitempty"`      // swap target amount
	PaymentMethod PaymentMethod     `json:"payment_method,omitempty"` // buy only
	Recipient     string            `json:"recipient,omitempty"`      // send only
}

type TransactionReceipt struct {
	ID          string             `json:"id"`
	Action      TransactionAction  `json:"action"`
	Status      string             `json:"status"` // always "completed" for simulated flows
	Summary     TransactionSummary `json:"summary"`
	Steps       []string           `json:"steps"`
	Message     string             `json:"message"`
	CompletedAt time.Time          `json:"completed_at"`
}
