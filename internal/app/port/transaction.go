package port

import (
	"context"

	"wallet_core/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// TransactionBackend is the backend surface for transactions.
type TransactionBackend interface {
	// SubmitTransaction delegates build, sign and submit to the backend (custodial path).
	SubmitTransaction(ctx context.Context, walletID string, input entity.TransactionInput) (entity.Transaction, error)
	// RecordTransaction records a locally signed and submitted transaction in history.
	RecordTransaction(ctx context.Context, record entity.TransactionRecord) (entity.Transaction, error)
	ListTransactions(ctx context.Context, filter entity.TransactionFilter) (entity.TransactionPage, error)
}

// SignResult is the outcome of a signer. Local signers set Hash; remote signers set Transaction.
type SignResult struct {
	Hash        string
	GasLimit    uint64
	FeeEstimate decimal.Decimal // native units
	Transaction *entity.Transaction
}

// Signer builds, signs and submits a transaction for one signing path.
type Signer interface {
	Path() entity.SigningPath
	// Supports reports whether the signer can execute the kind for the given provider.
	Supports(provider entity.ProviderKind, kind entity.TransactionKind) bool
	// SignAndSubmit runs the signing path. report is invoked on each state transition.
	SignAndSubmit(ctx context.Context, conn entity.WalletConnection, input entity.TransactionInput, report func(entity.DispatchState)) (SignResult, error)
}

// TransactionJournal durably tracks submitted transactions until the backend has recorded them.
type TransactionJournal interface {
	Append(record entity.TransactionRecord) error
	MarkRecorded(id string) error
	Unrecorded() ([]entity.TransactionRecord, error)
}
