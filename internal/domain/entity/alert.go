package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertCondition is the trigger direction of a price alert.
type AlertCondition string

const (
	AlertAbove AlertCondition = "above"
	AlertBelow AlertCondition = "below"
)

// PriceAlert is a user-defined price alert.
type PriceAlert struct {
	ID           string          `json:"id"`
	TokenAddress string          `json:"tokenAddress"`
	Symbol       string          `json:"symbol"`
	Network      Network         `json:"network"`
	Condition    AlertCondition  `json:"condition"`
	TargetPrice  decimal.Decimal `json:"targetPrice"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// PriceAlertInput is the payload to create a price alert.
type PriceAlertInput struct {
	TokenAddress string          `json:"tokenAddress"`
	Symbol       string          `json:"symbol"`
	Network      Network         `json:"network"`
	Condition    AlertCondition  `json:"condition"`
	TargetPrice  decimal.Decimal `json:"targetPrice"`
}

// TokenApproval is an on-chain allowance granted to a spender contract.
type TokenApproval struct {
	ID             string          `json:"id"`
	WalletID       string          `json:"walletId"`
	Network        Network         `json:"network"`
	TokenAddress   string          `json:"tokenAddress"`
	SpenderAddress string          `json:"spenderAddress"`
	Allowance      decimal.Decimal `json:"allowance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// TokenApprovalInput is the payload to create a token approval record.
type TokenApprovalInput struct {
	WalletID       string          `json:"walletId"`
	Network        Network         `json:"network"`
	TokenAddress   string          `json:"tokenAddress"`
	SpenderAddress string          `json:"spenderAddress"`
	Allowance      decimal.Decimal `json:"allowance"`
}
