package models

import "time"

type WalletToken struct {
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	Balance         string  `json:"balance"`
	ContractAddress string  `json:"contractAddress"`
	Price           float64 `json:"price"`
}

// WalletData mirrors the shape the mobile dashboard renders.
type WalletData struct {
	Name      string        `json:"name,omitempty"`
	Address   string        `json:"address"`
	Balance   string        `json:"balance"` // native ETH balance
	Tokens    []WalletToken `json:"tokens"`
	CreatedAt time.Time     `json:"created_at"`
}
