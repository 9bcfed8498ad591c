package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func usedAt(day int) *time.Time {
	t := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return &t
}

type fakeConnectionBackend struct {
	mu sync.Mutex

	conns      []entity.WalletConnection
	registered []entity.ConnectionRequest
	deleted    []string
	nextID     int

	listErr, registerErr, updateErr, deleteErr error
	custodialAddress                            string
	custodialErr                                error
}

func (f *fakeConnectionBackend) ListConnections(context.Context) ([]entity.WalletConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]entity.WalletConnection(nil), f.conns...), nil
}

func (f *fakeConnectionBackend) RegisterConnection(_ context.Context, req entity.ConnectionRequest) (entity.WalletConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, req)
	if f.registerErr != nil {
		return entity.WalletConnection{}, f.registerErr
	}
	f.nextID++
	conn := entity.WalletConnection{
		ID:           fmt.Sprintf("w-%d", f.nextID),
		ProviderKind: req.ProviderKind,
		ChainAddress: req.ChainAddress,
		DisplayName:  req.DisplayName,
		Network:      req.Network,
		IsActive:     true,
		Permissions:  req.Permissions,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeConnectionBackend) UpdateConnection(_ context.Context, id string, update entity.WalletConnectionUpdate) (entity.WalletConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return entity.WalletConnection{}, f.updateErr
	}
	for i, c := range f.conns {
		if c.ID != id {
			continue
		}
		if update.DisplayName != nil {
			c.DisplayName = *update.DisplayName
		}
		if update.IsActive != nil {
			c.IsActive = *update.IsActive
		}
		if update.Permissions != nil {
			c.Permissions = *update.Permissions
		}
		f.conns[i] = c
		return c, nil
	}
	return entity.WalletConnection{}, entity.NewError(entity.KindBackendError, "fake", "not found", nil)
}

func (f *fakeConnectionBackend) DeleteConnection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeConnectionBackend) RequestCustodialAddress(context.Context, entity.ProviderKind, entity.Network) (string, error) {
	return f.custodialAddress, f.custodialErr
}

type fakeChainClient struct {
	mu sync.Mutex

	def         entity.NetworkDefinition
	accounts    []string
	accountsErr error
	estimate    uint64
	fees        entity.FeeSuggestion
	hash        string
	sendErr     error
	callFn      func(call entity.ChainCall) ([]byte, error)
	balances    []entity.BalanceResultItem

	accountCalls int
	sent         []entity.ChainCall
}

func (c *fakeChainClient) Definition() entity.NetworkDefinition { return c.def }

func (c *fakeChainClient) Accounts(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountCalls++
	return c.accounts, c.accountsErr
}

func (c *fakeChainClient) EstimateGas(context.Context, entity.ChainCall) (uint64, error) {
	return c.estimate, nil
}

func (c *fakeChainClient) SuggestFees(context.Context) (entity.FeeSuggestion, error) {
	return c.fees, nil
}

func (c *fakeChainClient) SendTransaction(_ context.Context, call entity.ChainCall) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.sent = append(c.sent, call)
	return c.hash, nil
}

func (c *fakeChainClient) Call(_ context.Context, call entity.ChainCall) ([]byte, error) {
	if c.callFn == nil {
		return nil, errors.New("unexpected call")
	}
	return c.callFn(call)
}

func (c *fakeChainClient) GetBalance(context.Context, string, string) (*big.Int, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeChainClient) GetBalances(context.Context, []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	return c.balances, nil
}

func (c *fakeChainClient) sentCalls() []entity.ChainCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.ChainCall(nil), c.sent...)
}

type fakeClients map[entity.Network]*fakeChainClient

func (f fakeClients) GetClient(network entity.Network) (port.ChainClient, error) {
	c, ok := f[network]
	if !ok {
		return nil, entity.NewError(entity.KindNetworkUnsupported, "fake", "unsupported", nil)
	}
	return c, nil
}

type fakeTxBackend struct {
	mu sync.Mutex

	submitted []entity.TransactionInput
	recorded  []entity.TransactionRecord
	filters   []entity.TransactionFilter

	submitResult entity.Transaction
	submitErr    error
	recordErr    error
	page         entity.TransactionPage
}

func (f *fakeTxBackend) SubmitTransaction(_ context.Context, walletID string, input entity.TransactionInput) (entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, input)
	if f.submitErr != nil {
		return entity.Transaction{}, f.submitErr
	}
	tx := f.submitResult
	tx.WalletID = walletID
	return tx, nil
}

func (f *fakeTxBackend) RecordTransaction(_ context.Context, rec entity.TransactionRecord) (entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return entity.Transaction{}, f.recordErr
	}
	f.recorded = append(f.recorded, rec)
	return entity.Transaction{
		ID:       "srv-" + rec.ID,
		WalletID: rec.WalletID,
		Kind:     rec.Input.Kind,
		Status:   entity.TransactionPending,
		Hash:     rec.Hash,
	}, nil
}

func (f *fakeTxBackend) ListTransactions(_ context.Context, filter entity.TransactionFilter) (entity.TransactionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.page, nil
}

func (f *fakeTxBackend) setRecordErr(err error) {
	f.mu.Lock()
	f.recordErr = err
	f.mu.Unlock()
}

type memJournal struct {
	mu      sync.Mutex
	order   []string
	records map[string]entity.TransactionRecord
	done    map[string]bool
}

func newMemJournal() *memJournal {
	return &memJournal{records: map[string]entity.TransactionRecord{}, done: map[string]bool{}}
}

func (j *memJournal) Append(rec entity.TransactionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.order = append(j.order, rec.ID)
	j.records[rec.ID] = rec
	return nil
}

func (j *memJournal) MarkRecorded(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.records[id]; !ok {
		return errors.Errorf("unknown record %s", id)
	}
	j.done[id] = true
	return nil
}

func (j *memJournal) Unrecorded() ([]entity.TransactionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []entity.TransactionRecord
	for _, id := range j.order {
		if !j.done[id] {
			out = append(out, j.records[id])
		}
	}
	return out, nil
}

type fakeBalanceSource struct {
	mu       sync.Mutex
	balances map[string]entity.WalletBalance
	errs     map[string]error
	calls    int
}

func (f *fakeBalanceSource) FetchWalletBalance(_ context.Context, conn entity.WalletConnection) (entity.WalletBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[conn.ID]; err != nil {
		return entity.WalletBalance{}, err
	}
	b, ok := f.balances[conn.ID]
	if !ok {
		return entity.WalletBalance{}, errors.New("no balance for " + conn.ID)
	}
	return b, nil
}

type staticLister []entity.WalletConnection

func (s staticLister) List() []entity.WalletConnection { return append([]entity.WalletConnection(nil), s...) }

func (s staticLister) Get(id string) (entity.WalletConnection, bool) {
	for _, c := range s {
		if c.ID == id {
			return c, true
		}
	}
	return entity.WalletConnection{}, false
}

func tokenBalance(addr, symbol, balance, price string) entity.TokenBalance {
	b, p := dec(balance), dec(price)
	return entity.TokenBalance{
		TokenAddress: addr,
		Symbol:       symbol,
		Name:         strings.ToUpper(symbol),
		Decimals:     18,
		Balance:      b,
		BalanceUSD:   b.Mul(p),
		Price:        p,
	}
}
