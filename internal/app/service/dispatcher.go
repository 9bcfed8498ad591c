package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/metrics"
	"wallet_core/internal/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DispatchEvent is one state transition of a dispatched transaction.
type DispatchEvent struct {
	WalletID string
	Kind     entity.TransactionKind
	State    entity.DispatchState
	Err      error
}

// TransactionDispatcher turns a TransactionInput into a recorded Transaction on the signing path
// of the owning wallet. Calls for the same wallet address are serialized.
type TransactionDispatcher struct {
	wallets      port.WalletDirectory
	signers      map[entity.SigningPath]port.Signer
	transactions port.TransactionBackend
	journal      port.TransactionJournal
	locks        *utils.KeyedMutex
	logger       *zap.Logger
	now          func() time.Time

	mu             sync.Mutex
	recent         []entity.Transaction
	recentWalletID string
	recentLimit    int
	observer       func(DispatchEvent)
}

// NewTransactionDispatcher creates a dispatcher over the given signing paths.
func NewTransactionDispatcher(
	wallets port.WalletDirectory,
	transactions port.TransactionBackend,
	journal port.TransactionJournal,
	recentLimit int,
	logger *zap.Logger,
	signers ...port.Signer,
) *TransactionDispatcher {
	if recentLimit <= 0 {
		recentLimit = 20
	}
	bySigningPath := make(map[entity.SigningPath]port.Signer, len(signers))
	for _, s := range signers {
		bySigningPath[s.Path()] = s
	}
	d := &TransactionDispatcher{
		wallets:      wallets,
		signers:      bySigningPath,
		transactions: transactions,
		journal:      journal,
		locks:        utils.NewKeyedMutex(),
		logger:       logger.Named("TransactionDispatcher"),
		now:          time.Now,
		recentLimit:  recentLimit,
	}
	if active, ok := wallets.Active(); ok {
		d.recentWalletID = active.ID
	}
	return d
}

// SetObserver registers fn to receive state transitions. fn must not block.
func (d *TransactionDispatcher) SetObserver(fn func(DispatchEvent)) {
	d.mu.Lock()
	d.observer = fn
	d.mu.Unlock()
}

// Execute dispatches input and returns the resulting Transaction.
// When a local-path submission succeeds but recording fails, the pending transaction is
// returned together with the recording error; the journal keeps it for RetryUnrecorded.
func (d *TransactionDispatcher) Execute(ctx context.Context, input entity.TransactionInput) (*entity.Transaction, error) {
	const op = "TransactionDispatcher.Execute"

	if err := validateInput(input); err != nil {
		return nil, err
	}

	conn, err := d.resolveWallet(input)
	if err != nil {
		return nil, err
	}
	if err := checkPermissions(conn, input); err != nil {
		d.logger.Warn("Transaction not permitted", zap.String("wallet_id", conn.ID), zap.Error(err))
		return nil, err
	}

	path := conn.ProviderKind.SigningPath()
	signer, ok := d.signers[path]
	if !ok || !signer.Supports(conn.ProviderKind, input.Kind) {
		metrics.Dispatches.WithLabelValues(string(path), string(entity.KindUnsupportedOperation)).Inc()
		return nil, entity.NewError(entity.KindUnsupportedOperation, op,
			string(input.Kind)+" is not supported for "+string(conn.ProviderKind)+" wallets", nil)
	}

	unlock := d.locks.Lock(strings.ToLower(conn.ChainAddress))
	defer unlock()

	report := func(state entity.DispatchState) { d.emit(conn.ID, input.Kind, state, nil) }

	result, err := signer.SignAndSubmit(ctx, conn, input, report)
	if err != nil {
		state := entity.StateFailed
		if entity.KindOf(err) == entity.KindSignatureRejected {
			state = entity.StateRejected
		}
		d.emit(conn.ID, input.Kind, state, err)
		metrics.Dispatches.WithLabelValues(string(path), string(entity.KindOf(err))).Inc()
		d.logger.Error("Transaction dispatch failed",
			zap.String("wallet_id", conn.ID),
			zap.String("kind", string(input.Kind)),
			zap.Error(err))
		return nil, err
	}

	var tx entity.Transaction
	var recordErr error
	if result.Transaction != nil {
		tx = *result.Transaction
	} else {
		tx, recordErr = d.record(ctx, conn, input, result)
	}

	d.emit(conn.ID, input.Kind, entity.StateSubmitted, nil)
	switch tx.Status {
	case entity.TransactionCompleted:
		d.emit(conn.ID, input.Kind, entity.StateConfirmed, nil)
	case entity.TransactionFailed:
		d.emit(conn.ID, input.Kind, entity.StateFailed, nil)
	}

	d.wallets.MarkUsed(conn.ID, d.now())
	d.prependRecent(tx)

	if recordErr != nil {
		metrics.Dispatches.WithLabelValues(string(path), string(entity.KindOf(recordErr))).Inc()
		return &tx, recordErr
	}
	metrics.Dispatches.WithLabelValues(string(path), "").Inc()
	d.logger.Info("Transaction dispatched",
		zap.String("wallet_id", conn.ID),
		zap.String("kind", string(input.Kind)),
		zap.String("hash", tx.Hash),
		zap.String("status", string(tx.Status)))
	return &tx, nil
}

// record journals a local-path submission and posts it to the history endpoint.
func (d *TransactionDispatcher) record(ctx context.Context, conn entity.WalletConnection, input entity.TransactionInput, result port.SignResult) (entity.Transaction, error) {
	rec := entity.TransactionRecord{
		ID:          uuid.NewString(),
		WalletID:    conn.ID,
		Network:     conn.Network,
		Input:       input,
		Hash:        result.Hash,
		Status:      entity.TransactionPending,
		GasLimit:    result.GasLimit,
		FeeEstimate: result.FeeEstimate,
		SubmittedAt: d.now().UTC(),
	}
	if err := d.journal.Append(rec); err != nil {
		d.logger.Error("Failed to journal submitted transaction", zap.String("hash", rec.Hash), zap.Error(err))
	}

	tx, err := d.transactions.RecordTransaction(ctx, rec)
	if err != nil {
		d.logger.Error("Transaction submitted but not recorded",
			zap.String("record_id", rec.ID),
			zap.String("hash", rec.Hash),
			zap.Error(err))
		return rec.PendingTransaction(conn.ChainAddress), err
	}
	if err := d.journal.MarkRecorded(rec.ID); err != nil {
		d.logger.Warn("Failed to mark journal entry recorded", zap.String("record_id", rec.ID), zap.Error(err))
	}
	return fillRecorded(tx, rec, conn), nil
}

// RetryUnrecorded posts every journaled, unrecorded submission to the backend, oldest first.
// It stops at the first failure and returns how many were recorded.
func (d *TransactionDispatcher) RetryUnrecorded(ctx context.Context) (int, error) {
	records, err := d.journal.Unrecorded()
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, rec := range records {
		if _, err := d.transactions.RecordTransaction(ctx, rec); err != nil {
			d.logger.Warn("Retry of unrecorded transaction failed", zap.String("record_id", rec.ID), zap.Error(err))
			return recorded, err
		}
		if err := d.journal.MarkRecorded(rec.ID); err != nil {
			return recorded, err
		}
		recorded++
	}
	if recorded > 0 {
		d.logger.Info("Recorded journaled transactions", zap.Int("count", recorded))
	}
	return recorded, nil
}

// RecentTransactions returns the active wallet's recent transactions, newest first.
func (d *TransactionDispatcher) RecentTransactions() []entity.Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entity.Transaction(nil), d.recent...)
}

// LoadRecent loads a history page. An empty filter wallet means the active wallet;
// pages of the active wallet also replace the recent list.
func (d *TransactionDispatcher) LoadRecent(ctx context.Context, filter entity.TransactionFilter) (entity.TransactionPage, error) {
	active, hasActive := d.wallets.Active()
	if filter.WalletID == "" {
		if !hasActive {
			return entity.TransactionPage{Transactions: []entity.Transaction{}}, nil
		}
		filter.WalletID = active.ID
	}
	if filter.Limit <= 0 {
		filter.Limit = d.recentLimit
	}

	page, err := d.transactions.ListTransactions(ctx, filter)
	if err != nil {
		return entity.TransactionPage{}, err
	}

	if hasActive && filter.WalletID == active.ID && filter.Offset == 0 {
		d.mu.Lock()
		d.recentWalletID = active.ID
		d.recent = append([]entity.Transaction(nil), page.Transactions...)
		if len(d.recent) > d.recentLimit {
			d.recent = d.recent[:d.recentLimit]
		}
		d.mu.Unlock()
	}
	return page, nil
}

// OnConnectionsChanged clears the recent list when the active wallet changes.
func (d *TransactionDispatcher) OnConnectionsChanged(snap ConnectionSnapshot) {
	activeID := ""
	if snap.Active != nil {
		activeID = snap.Active.ID
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if activeID != d.recentWalletID {
		d.recentWalletID = activeID
		d.recent = nil
	}
}

func (d *TransactionDispatcher) prependRecent(tx entity.Transaction) {
	active, ok := d.wallets.Active()
	if !ok || active.ID != tx.WalletID {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recentWalletID != active.ID {
		d.recentWalletID = active.ID
		d.recent = nil
	}
	d.recent = append([]entity.Transaction{tx}, d.recent...)
	if len(d.recent) > d.recentLimit {
		d.recent = d.recent[:d.recentLimit]
	}
}

func (d *TransactionDispatcher) emit(walletID string, kind entity.TransactionKind, state entity.DispatchState, err error) {
	d.mu.Lock()
	fn := d.observer
	d.mu.Unlock()

	d.logger.Debug("Dispatch state", zap.String("wallet_id", walletID), zap.String("state", string(state)))
	if fn != nil {
		fn(DispatchEvent{WalletID: walletID, Kind: kind, State: state, Err: err})
	}
}

// resolveWallet finds the connection that owns input.WalletAddress. WalletID, then Network,
// narrow the match; an address left matching several connections is rejected.
func (d *TransactionDispatcher) resolveWallet(input entity.TransactionInput) (entity.WalletConnection, error) {
	const op = "TransactionDispatcher.resolveWallet"

	if input.WalletID != "" {
		conn, ok := d.wallets.Get(input.WalletID)
		if !ok {
			return entity.WalletConnection{}, entity.NewError(entity.KindWalletNotFound, op, "wallet "+input.WalletID+" is not connected", nil)
		}
		if !strings.EqualFold(conn.ChainAddress, input.WalletAddress) {
			return entity.WalletConnection{}, entity.NewError(entity.KindInvalidInput, op, "wallet "+input.WalletID+" does not hold "+input.WalletAddress, nil)
		}
		if input.Network != "" && input.Network != conn.Network {
			return entity.WalletConnection{}, entity.NewError(entity.KindInvalidInput, op, "wallet "+input.WalletID+" is on "+string(conn.Network)+", not "+string(input.Network), nil)
		}
		return conn, nil
	}

	var matches []entity.WalletConnection
	for _, c := range d.wallets.FindByAddress(input.WalletAddress) {
		if input.Network == "" || c.Network == input.Network {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return entity.WalletConnection{}, entity.NewError(entity.KindWalletNotFound, op, "no connected wallet owns "+input.WalletAddress, nil)
	case 1:
		return matches[0], nil
	default:
		return entity.WalletConnection{}, entity.NewError(entity.KindInvalidInput, op,
			input.WalletAddress+" is connected more than once; set walletId or network", nil)
	}
}

func validateInput(input entity.TransactionInput) error {
	const op = "TransactionDispatcher.validate"
	switch input.Kind {
	case entity.TransactionBuy, entity.TransactionSell, entity.TransactionSwap, entity.TransactionTransfer:
	default:
		return entity.NewError(entity.KindInvalidInput, op, "unknown transaction type "+string(input.Kind), nil)
	}
	if input.WalletAddress == "" {
		return entity.NewError(entity.KindInvalidInput, op, "walletAddress is required", nil)
	}
	amount, err := decimal.NewFromString(input.Amount)
	if err != nil || !amount.IsPositive() {
		return entity.NewError(entity.KindInvalidInput, op, "amount must be a positive decimal", err)
	}
	if input.Kind == entity.TransactionTransfer && input.ToAddress == "" {
		return entity.NewError(entity.KindInvalidInput, op, "toAddress is required for transfers", nil)
	}
	if input.Kind == entity.TransactionSwap && input.ToTokenAddress == "" {
		return entity.NewError(entity.KindInvalidInput, op, "toTokenAddress is required for swaps", nil)
	}
	return nil
}

// checkPermissions enforces CanTrade, the per-transaction trade cap and the contract allow-list.
func checkPermissions(conn entity.WalletConnection, input entity.TransactionInput) error {
	const op = "TransactionDispatcher.checkPermissions"
	perms := conn.Permissions
	if !perms.CanTrade {
		return entity.NewError(entity.KindPermissionDenied, op, "wallet "+conn.ID+" is view-only", nil)
	}
	if perms.TradeLimit != nil && perms.TradeLimit.Amount.IsPositive() {
		amount, _ := decimal.NewFromString(input.Amount)
		if amount.GreaterThan(perms.TradeLimit.Amount) {
			return entity.NewError(entity.KindPermissionDenied, op, "amount exceeds the wallet trade limit of "+perms.TradeLimit.Amount.String(), nil)
		}
	}
	if !entity.IsNativeToken(input.TokenAddress) && !contractAllowed(perms, input.TokenAddress) {
		return entity.NewError(entity.KindPermissionDenied, op, "token "+input.TokenAddress+" is not allow-listed", nil)
	}
	if input.ToTokenAddress != "" && !entity.IsNativeToken(input.ToTokenAddress) && !contractAllowed(perms, input.ToTokenAddress) {
		return entity.NewError(entity.KindPermissionDenied, op, "token "+input.ToTokenAddress+" is not allow-listed", nil)
	}
	return nil
}

// contractAllowed reports whether address passes the allow-list. An empty list allows everything.
func contractAllowed(perms entity.Permissions, address string) bool {
	if len(perms.AllowedContracts) == 0 {
		return true
	}
	for _, allowed := range perms.AllowedContracts {
		if strings.EqualFold(allowed, address) {
			return true
		}
	}
	return false
}

func fillRecorded(tx entity.Transaction, rec entity.TransactionRecord, conn entity.WalletConnection) entity.Transaction {
	pending := rec.PendingTransaction(conn.ChainAddress)
	if tx.ID == "" {
		tx.ID = pending.ID
	}
	if tx.WalletID == "" {
		tx.WalletID = pending.WalletID
	}
	if tx.WalletAddress == "" {
		tx.WalletAddress = pending.WalletAddress
	}
	if tx.Network == "" {
		tx.Network = pending.Network
	}
	if tx.Kind == "" {
		tx.Kind = pending.Kind
	}
	if tx.Status == "" {
		tx.Status = entity.TransactionPending
	}
	if tx.Hash == "" {
		tx.Hash = pending.Hash
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = pending.CreatedAt
	}
	return tx
}
