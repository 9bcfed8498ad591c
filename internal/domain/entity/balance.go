package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenBalance is a positional holding of one token in one wallet.
// Amounts are arbitrary-precision decimals; they marshal as JSON strings.
type TokenBalance struct {
	TokenAddress   string          `json:"tokenAddress"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Decimals       uint8           `json:"decimals"`
	Balance        decimal.Decimal `json:"balance"`
	BalanceUSD     decimal.Decimal `json:"balanceUsd"`
	Price          decimal.Decimal `json:"price"`
	PriceChange24h decimal.Decimal `json:"priceChange24h"`
}

// WalletBalance is a snapshot of all holdings of one connection at fetch time.
type WalletBalance struct {
	WalletID         string          `json:"walletId"`
	Network          Network         `json:"network"`
	NativeBalance    decimal.Decimal `json:"nativeBalance"`
	NativeBalanceUSD decimal.Decimal `json:"nativeBalanceUsd"`
	Tokens           []TokenBalance  `json:"tokens"`
	TotalBalanceUSD  decimal.Decimal `json:"totalBalanceUsd"`
	FetchedAt        time.Time       `json:"fetchedAt"`
}

// WalletBalanceResult is one wallet's slot in a batch fetch. Exactly one of Balance and Err is set.
type WalletBalanceResult struct {
	WalletID string         `json:"walletId"`
	Balance  *WalletBalance `json:"balance,omitempty"`
	Err      error          `json:"-"`
}

// Failed reports whether this wallet's fetch errored.
func (r WalletBalanceResult) Failed() bool {
	return r.Err != nil
}

// ErrorMessage returns the fetch error text, or "" on success.
func (r WalletBalanceResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
