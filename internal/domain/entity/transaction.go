package entity

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the logical operation of a transaction.
type TransactionKind string

const (
	TransactionBuy      TransactionKind = "buy"
	TransactionSell     TransactionKind = "sell"
	TransactionSwap     TransactionKind = "swap"
	TransactionTransfer TransactionKind = "transfer"
)

// TransactionStatus is the system-of-record status of a transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// DispatchState is a step of the dispatcher's per-transaction state machine.
type DispatchState string

const (
	StateBuilding  DispatchState = "building"
	StateSigning   DispatchState = "signing"
	StateSubmitted DispatchState = "submitted"
	StateConfirmed DispatchState = "confirmed"
	StateFailed    DispatchState = "failed"
	StateRejected  DispatchState = "rejected"
)

// GasOverrides are caller-supplied fee settings. Fee values are wei decimal strings.
type GasOverrides struct {
	GasLimit             uint64 `json:"gasLimit,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// TransactionInput is the caller's intent.
type TransactionInput struct {
	Kind            TransactionKind  `json:"type"`
	WalletAddress   string           `json:"walletAddress"`
	// WalletID and Network pick one connection when WalletAddress is connected on several networks.
	WalletID        string           `json:"walletId,omitempty"`
	Network         Network          `json:"network,omitempty"`
	TokenAddress    string           `json:"tokenAddress"`
	Amount          string           `json:"amount"`
	ToAddress       string           `json:"toAddress,omitempty"`
	ToTokenAddress  string           `json:"toTokenAddress,omitempty"`
	SlippagePercent *decimal.Decimal `json:"slippage,omitempty"`
	Gas             *GasOverrides    `json:"gas,omitempty"`
	BotID           string           `json:"botId,omitempty"`
	StrategyID      string           `json:"strategyId,omitempty"`
}

// Transaction is the system-of-record result of a dispatched TransactionInput.
type Transaction struct {
	ID             string            `json:"id"`
	WalletID       string            `json:"walletId"`
	WalletAddress  string            `json:"walletAddress"`
	Network        Network           `json:"network"`
	Kind           TransactionKind   `json:"type"`
	Status         TransactionStatus `json:"status"`
	Hash           string            `json:"hash,omitempty"`
	TokenAddress   string            `json:"tokenAddress"`
	ToTokenAddress string            `json:"toTokenAddress,omitempty"`
	ToAddress      string            `json:"toAddress,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	AmountUSD      decimal.Decimal   `json:"amountUsd"`
	Fee            decimal.Decimal   `json:"fee"`
	FeeUSD         decimal.Decimal   `json:"feeUsd"`
	BotID          string            `json:"botId,omitempty"`
	StrategyID     string            `json:"strategyId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// TransactionRecord is what the local-signing path posts to the history endpoint after submission.
type TransactionRecord struct {
	ID          string            `json:"clientId"`
	WalletID    string            `json:"walletId"`
	Network     Network           `json:"network"`
	Input       TransactionInput  `json:"input"`
	Hash        string            `json:"hash"`
	Status      TransactionStatus `json:"status"`
	GasLimit    uint64            `json:"gasLimit"`
	FeeEstimate decimal.Decimal   `json:"feeEstimate"`
	SubmittedAt time.Time         `json:"submittedAt"`
}

// PendingTransaction builds the locally known view of a submitted record.
func (r TransactionRecord) PendingTransaction(walletAddress string) Transaction {
	amount, _ := decimal.NewFromString(r.Input.Amount)
	return Transaction{
		ID:             r.ID,
		WalletID:       r.WalletID,
		WalletAddress:  walletAddress,
		Network:        r.Network,
		Kind:           r.Input.Kind,
		Status:         TransactionPending,
		Hash:           r.Hash,
		TokenAddress:   r.Input.TokenAddress,
		ToTokenAddress: r.Input.ToTokenAddress,
		ToAddress:      r.Input.ToAddress,
		Amount:         amount,
		Fee:            r.FeeEstimate,
		BotID:          r.Input.BotID,
		StrategyID:     r.Input.StrategyID,
		CreatedAt:      r.SubmittedAt,
		UpdatedAt:      r.SubmittedAt,
	}
}

// TransactionFilter selects a page of transaction history.
type TransactionFilter struct {
	WalletID  string
	Kind      TransactionKind
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// TransactionPage is one page of transaction history.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
}

// ChainCall is a chain-level call or transaction to build, estimate or send.
type ChainCall struct {
	From                 string
	To                   string
	Value                *big.Int
	Data                 []byte
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// FeeSuggestion is a chain client's EIP-1559 fee suggestion.
type FeeSuggestion struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}
