package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/evmcall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	walletAAA  = "0xAAA0000000000000000000000000000000000001"
	walletBBB  = "0xBBB0000000000000000000000000000000000002"
	recipient  = "0x1111111111111111111111111111111111111111"
	routerAddr = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
)

type dispatchFixture struct {
	store    *ConnectionStore
	client   *fakeChainClient
	txs      *fakeTxBackend
	journal  *memJournal
	disp     *TransactionDispatcher
	events   []DispatchEvent
	eventsMu sync.Mutex
}

func newDispatchFixture(t *testing.T, conns ...entity.WalletConnection) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		client: &fakeChainClient{
			def:      entity.NetworkDefinition{Identifier: entity.NetworkEthereum, NativeSymbol: "ETH", Decimals: 18, SwapRouterAddress: routerAddr},
			accounts: []string{walletAAA},
			estimate: 21000,
			fees:     entity.FeeSuggestion{MaxFeePerGas: big.NewInt(30_000_000_000), MaxPriorityFeePerGas: big.NewInt(1_000_000_000)},
			hash:     "0xhash",
		},
		txs:     &fakeTxBackend{},
		journal: newMemJournal(),
	}
	clients := fakeClients{entity.NetworkEthereum: f.client}

	f.store = newStore(t, &fakeConnectionBackend{conns: conns}, clients)
	require.NoError(t, f.store.Load(context.Background()))

	local := NewLocalSigner(clients, LocalSignerConfig{GasSafetyMarginPercent: 10, DefaultSlippagePercent: dec("0.5"), SwapDeadline: time.Minute}, zap.NewNop())
	custodial := NewCustodialSigner(f.txs, zap.NewNop())
	f.disp = NewTransactionDispatcher(f.store, f.txs, f.journal, 20, zap.NewNop(), local, custodial)
	f.store.Subscribe(f.disp.OnConnectionsChanged)
	f.disp.SetObserver(func(e DispatchEvent) {
		f.eventsMu.Lock()
		f.events = append(f.events, e)
		f.eventsMu.Unlock()
	})
	return f
}

func (f *dispatchFixture) states() []entity.DispatchState {
	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	out := make([]entity.DispatchState, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.State)
	}
	return out
}

func localWallet(id, address string) entity.WalletConnection {
	return entity.WalletConnection{
		ID:           id,
		ProviderKind: entity.ProviderBrowserExtension,
		ChainAddress: address,
		Network:      entity.NetworkEthereum,
		IsActive:     true,
		Permissions:  entity.Permissions{CanView: true, CanTrade: true},
	}
}

func nativeTransfer(from, amount string) entity.TransactionInput {
	return entity.TransactionInput{
		Kind:          entity.TransactionTransfer,
		WalletAddress: from,
		TokenAddress:  entity.NativeTokenAddress,
		Amount:        amount,
		ToAddress:     recipient,
	}
}

func TestExecute_AccountMismatchSendsNothing(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))
	f.client.accounts = []string{walletBBB}

	tx, err := f.disp.Execute(context.Background(), nativeTransfer(walletAAA, "1"))
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, entity.ErrAccountMismatch))
	assert.Empty(t, f.client.sentCalls())
	assert.Empty(t, f.txs.recorded)
	assert.Equal(t, []entity.DispatchState{entity.StateBuilding, entity.StateFailed}, f.states())
}

func TestExecute_AccountCompareIgnoresCase(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))
	f.client.accounts = []string{"0xaaa0000000000000000000000000000000000001"}

	_, err := f.disp.Execute(context.Background(), nativeTransfer(walletAAA, "1"))
	require.NoError(t, err)
}

func TestExecute_LocalNativeTransferIsJournaledAndRecorded(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))

	tx, err := f.disp.Execute(context.Background(), nativeTransfer(walletAAA, "0.25"))
	require.NoError(t, err)
	require.NotNil(t, tx)

	sent := f.client.sentCalls()
	require.Len(t, sent, 1)
	assert.Equal(t, recipient, sent[0].To)
	assert.Equal(t, "250000000000000000", sent[0].Value.String())
	assert.Equal(t, uint64(23100), sent[0].Gas, "estimate plus the 10 percent margin")

	require.Len(t, f.txs.recorded, 1)
	rec := f.txs.recorded[0]
	assert.Equal(t, "0xhash", rec.Hash)
	assert.Equal(t, "A", rec.WalletID)
	assert.True(t, rec.FeeEstimate.Equal(dec("0.000693")))

	assert.Equal(t, entity.TransactionPending, tx.Status)
	assert.Equal(t, walletAAA, tx.WalletAddress)
	assert.Equal(t, entity.NetworkEthereum, tx.Network)

	unrecorded, err := f.journal.Unrecorded()
	require.NoError(t, err)
	assert.Empty(t, unrecorded)

	assert.Equal(t, []entity.DispatchState{entity.StateBuilding, entity.StateSigning, entity.StateSubmitted}, f.states())
	recent := f.disp.RecentTransactions()
	require.Len(t, recent, 1)
	assert.Equal(t, tx.ID, recent[0].ID)

	conn, _ := f.store.Get("A")
	assert.NotNil(t, conn.LastUsedAt)
}

func TestExecute_GasOverridesSkipEstimateAndMargin(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))
	input := nativeTransfer(walletAAA, "1")
	input.Gas = &entity.GasOverrides{GasLimit: 50000, MaxFeePerGas: "2000000000", MaxPriorityFeePerGas: "5000000000"}

	_, err := f.disp.Execute(context.Background(), input)
	require.NoError(t, err)

	sent := f.client.sentCalls()
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(50000), sent[0].Gas)
	assert.Equal(t, "2000000000", sent[0].MaxFeePerGas.String())
	assert.Equal(t, "2000000000", sent[0].MaxPriorityFeePerGas.String(), "tip is capped at the max fee")
}

func TestExecute_RecordFailureReturnsPendingAndRetries(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))
	f.txs.setRecordErr(&entity.Error{Kind: entity.KindBackendError, Status: 503, Message: "unavailable"})

	tx, err := f.disp.Execute(context.Background(), nativeTransfer(walletAAA, "1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrBackend))
	require.NotNil(t, tx)
	assert.Equal(t, entity.TransactionPending, tx.Status)
	assert.Equal(t, "0xhash", tx.Hash)
	assert.Len(t, f.client.sentCalls(), 1)

	unrecorded, _ := f.journal.Unrecorded()
	require.Len(t, unrecorded, 1)

	n, err := f.disp.RetryUnrecorded(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, n)

	f.txs.setRecordErr(nil)
	n, err = f.disp.RetryUnrecorded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	unrecorded, _ = f.journal.Unrecorded()
	assert.Empty(t, unrecorded)
	assert.Equal(t, tx.ID, f.txs.recorded[0].ID)
}

func TestExecute_SignerRejection(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))
	f.client.sendErr = entity.NewError(entity.KindSignatureRejected, "fake", "user rejected", nil)

	_, err := f.disp.Execute(context.Background(), nativeTransfer(walletAAA, "1"))
	assert.True(t, errors.Is(err, entity.ErrSignatureRejected))
	assert.Equal(t, []entity.DispatchState{entity.StateBuilding, entity.StateSigning, entity.StateRejected}, f.states())
	assert.Empty(t, f.disp.RecentTransactions())
}

func TestExecute_FailsFastBeforeChainCalls(t *testing.T) {
	viewOnly := localWallet("V", walletBBB)
	viewOnly.Permissions = entity.Permissions{CanView: true}
	f := newDispatchFixture(t, localWallet("A", walletAAA), viewOnly)

	cases := []struct {
		name  string
		input entity.TransactionInput
		want  error
	}{
		{"unknown wallet", nativeTransfer("0x9999999999999999999999999999999999999999", "1"), entity.ErrWalletNotFound},
		{"buy on local provider", entity.TransactionInput{Kind: entity.TransactionBuy, WalletAddress: walletAAA, TokenAddress: usdcAddr, Amount: "1"}, entity.ErrUnsupportedOperation},
		{"view-only wallet", nativeTransfer(walletBBB, "1"), entity.ErrPermissionDenied},
		{"zero amount", nativeTransfer(walletAAA, "0"), entity.ErrInvalidInput},
		{"missing recipient", entity.TransactionInput{Kind: entity.TransactionTransfer, WalletAddress: walletAAA, Amount: "1"}, entity.ErrInvalidInput},
		{"unknown kind", entity.TransactionInput{Kind: "stake", WalletAddress: walletAAA, Amount: "1"}, entity.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.disp.Execute(context.Background(), tc.input)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
	assert.Equal(t, 0, f.client.accountCalls)
	assert.Empty(t, f.client.sentCalls())
}

func TestExecute_AllowListAndTradeLimit(t *testing.T) {
	conn := localWallet("A", walletAAA)
	conn.Permissions.AllowedContracts = []string{usdcAddr}
	conn.Permissions.TradeLimit = &entity.TradeLimit{Amount: dec("10"), Period: "day"}
	f := newDispatchFixture(t, conn)

	input := nativeTransfer(walletAAA, "1")
	input.TokenAddress = linkAddr
	_, err := f.disp.Execute(context.Background(), input)
	assert.True(t, errors.Is(err, entity.ErrPermissionDenied))

	_, err = f.disp.Execute(context.Background(), nativeTransfer(walletAAA, "10.5"))
	assert.True(t, errors.Is(err, entity.ErrPermissionDenied))

	swap := entity.TransactionInput{Kind: entity.TransactionSwap, WalletAddress: walletAAA, TokenAddress: usdcAddr, ToTokenAddress: usdcAddr, Amount: "1"}
	_, err = f.disp.Execute(context.Background(), swap)
	assert.True(t, errors.Is(err, entity.ErrPermissionDenied), "router is not allow-listed")
	assert.Empty(t, f.client.sentCalls())
}

func encodeUint256s(t *testing.T, values ...*big.Int) []byte {
	t.Helper()
	typ, err := abi.NewType("uint256[]", "", nil)
	require.NoError(t, err)
	out, err := abi.Arguments{{Type: typ}}.Pack(values)
	require.NoError(t, err)
	return out
}

func TestExecute_SwapAppliesSlippageToQuote(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))

	decimalsSel, err := evmcall.Decimals()
	require.NoError(t, err)
	quoteSel, err := evmcall.GetAmountsOut(big.NewInt(1), []string{usdcAddr, linkAddr})
	require.NoError(t, err)
	allowanceSel, err := evmcall.Allowance(walletAAA, routerAddr)
	require.NoError(t, err)

	f.client.callFn = func(call entity.ChainCall) ([]byte, error) {
		switch string(call.Data[:4]) {
		case string(decimalsSel[:4]):
			return common.LeftPadBytes([]byte{6}, 32), nil
		case string(allowanceSel[:4]):
			assert.Equal(t, usdcAddr, call.To)
			return common.LeftPadBytes(big.NewInt(2_000_000).Bytes(), 32), nil
		case string(quoteSel[:4]):
			assert.Equal(t, routerAddr, call.To)
			return encodeUint256s(t, big.NewInt(2_000_000), big.NewInt(1_000_000)), nil
		}
		return nil, errors.New("unexpected selector")
	}

	slippage := dec("1")
	input := entity.TransactionInput{
		Kind:            entity.TransactionSwap,
		WalletAddress:   walletAAA,
		TokenAddress:    usdcAddr,
		ToTokenAddress:  linkAddr,
		Amount:          "2",
		SlippagePercent: &slippage,
	}
	_, err = f.disp.Execute(context.Background(), input)
	require.NoError(t, err)

	sent := f.client.sentCalls()
	require.Len(t, sent, 1)
	assert.Equal(t, routerAddr, sent[0].To)
	amountIn := new(big.Int).SetBytes(sent[0].Data[4:36])
	minOut := new(big.Int).SetBytes(sent[0].Data[36:68])
	assert.Equal(t, "2000000", amountIn.String())
	assert.Equal(t, "990000", minOut.String())
}

func TestExecute_SwapNeedsRouterAllowance(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))

	decimalsSel, err := evmcall.Decimals()
	require.NoError(t, err)
	allowanceSel, err := evmcall.Allowance(walletAAA, routerAddr)
	require.NoError(t, err)
	f.client.callFn = func(call entity.ChainCall) ([]byte, error) {
		switch string(call.Data[:4]) {
		case string(decimalsSel[:4]):
			return common.LeftPadBytes([]byte{6}, 32), nil
		case string(allowanceSel[:4]):
			return common.LeftPadBytes(big.NewInt(1_999_999).Bytes(), 32), nil
		}
		return nil, errors.New("unexpected selector")
	}

	input := entity.TransactionInput{Kind: entity.TransactionSwap, WalletAddress: walletAAA, TokenAddress: usdcAddr, ToTokenAddress: linkAddr, Amount: "2"}
	_, err = f.disp.Execute(context.Background(), input)
	assert.True(t, errors.Is(err, entity.ErrPermissionDenied))
	assert.Contains(t, err.Error(), "swap needs 2000000")
	assert.Empty(t, f.client.sentCalls())
}

func TestExecute_SwapWithoutRouterIsUnsupported(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))
	f.client.def.SwapRouterAddress = ""

	input := entity.TransactionInput{Kind: entity.TransactionSwap, WalletAddress: walletAAA, TokenAddress: usdcAddr, ToTokenAddress: linkAddr, Amount: "1"}
	_, err := f.disp.Execute(context.Background(), input)
	assert.True(t, errors.Is(err, entity.ErrUnsupportedOperation))
	assert.Empty(t, f.client.sentCalls())
}

type blockingSigner struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (s *blockingSigner) Path() entity.SigningPath { return entity.SigningPathRemote }

func (s *blockingSigner) Supports(entity.ProviderKind, entity.TransactionKind) bool { return true }

func (s *blockingSigner) SignAndSubmit(_ context.Context, conn entity.WalletConnection, input entity.TransactionInput, report func(entity.DispatchState)) (port.SignResult, error) {
	n := s.inFlight.Add(1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	report(entity.StateSigning)
	time.Sleep(20 * time.Millisecond)
	s.inFlight.Add(-1)
	s.calls.Add(1)
	return port.SignResult{Transaction: &entity.Transaction{ID: input.Amount, WalletID: conn.ID, Status: entity.TransactionPending}}, nil
}

func TestExecute_SerializesPerWalletAddress(t *testing.T) {
	custodial := entity.WalletConnection{
		ID:           "C",
		ProviderKind: entity.ProviderCustodial,
		ChainAddress: walletAAA,
		Network:      entity.NetworkEthereum,
		IsActive:     true,
		Permissions:  entity.Permissions{CanTrade: true},
	}
	store := newStore(t, &fakeConnectionBackend{conns: []entity.WalletConnection{custodial}}, nil)
	require.NoError(t, store.Load(context.Background()))

	signer := &blockingSigner{}
	disp := NewTransactionDispatcher(store, &fakeTxBackend{}, newMemJournal(), 20, zap.NewNop(), signer)

	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := nativeTransfer(walletAAA, decimal.NewFromInt(int64(i)).String())
			if i%2 == 0 {
				input.WalletAddress = "0xaaa0000000000000000000000000000000000001"
			}
			_, err := disp.Execute(context.Background(), input)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(4), signer.calls.Load())
	assert.Equal(t, int32(1), signer.maxSeen.Load())
	assert.Len(t, disp.RecentTransactions(), 4)
}

func TestExecute_SharedAddressAcrossNetworks(t *testing.T) {
	eth := localWallet("E", walletAAA)
	eth.LastUsedAt = usedAt(1)
	poly := localWallet("P", walletAAA)
	poly.Network = entity.NetworkPolygon
	poly.LastUsedAt = usedAt(5)

	f := newDispatchFixture(t, eth, poly)
	polyClient := &fakeChainClient{
		def:      entity.NetworkDefinition{Identifier: entity.NetworkPolygon, NativeSymbol: "POL", Decimals: 18},
		accounts: []string{walletAAA},
		estimate: 21000,
		fees:     f.client.fees,
		hash:     "0xpoly",
	}
	clients := fakeClients{entity.NetworkEthereum: f.client, entity.NetworkPolygon: polyClient}
	local := NewLocalSigner(clients, LocalSignerConfig{GasSafetyMarginPercent: 10, DefaultSlippagePercent: dec("0.5"), SwapDeadline: time.Minute}, zap.NewNop())
	disp := NewTransactionDispatcher(f.store, f.txs, f.journal, 20, zap.NewNop(), local)

	_, err := disp.Execute(context.Background(), nativeTransfer(walletAAA, "1"))
	assert.True(t, errors.Is(err, entity.ErrInvalidInput), "ambiguous address must not pick a chain")
	assert.Empty(t, f.client.sentCalls())
	assert.Empty(t, polyClient.sentCalls())

	byID := nativeTransfer(walletAAA, "1")
	byID.WalletID = "E"
	tx, err := disp.Execute(context.Background(), byID)
	require.NoError(t, err)
	assert.Equal(t, "E", tx.WalletID)
	assert.Equal(t, entity.NetworkEthereum, tx.Network)
	assert.Len(t, f.client.sentCalls(), 1)
	assert.Empty(t, polyClient.sentCalls())

	byNetwork := nativeTransfer(walletAAA, "1")
	byNetwork.Network = entity.NetworkPolygon
	tx, err = disp.Execute(context.Background(), byNetwork)
	require.NoError(t, err)
	assert.Equal(t, "P", tx.WalletID)
	assert.Len(t, polyClient.sentCalls(), 1)

	wrong := nativeTransfer(walletBBB, "1")
	wrong.WalletID = "E"
	_, err = disp.Execute(context.Background(), wrong)
	assert.True(t, errors.Is(err, entity.ErrInvalidInput))

	conflicting := nativeTransfer(walletAAA, "1")
	conflicting.WalletID = "E"
	conflicting.Network = entity.NetworkPolygon
	_, err = disp.Execute(context.Background(), conflicting)
	assert.True(t, errors.Is(err, entity.ErrInvalidInput))

	missing := nativeTransfer(walletAAA, "1")
	missing.WalletID = "Z"
	_, err = disp.Execute(context.Background(), missing)
	assert.True(t, errors.Is(err, entity.ErrWalletNotFound))
}

func TestRecent_OnlyActiveWalletAndClearedOnSwitch(t *testing.T) {
	a := localWallet("A", walletAAA)
	a.LastUsedAt = usedAt(1)
	b := localWallet("B", walletBBB)
	b.ProviderKind = entity.ProviderCustodial
	f := newDispatchFixture(t, a, b)
	f.txs.submitResult = entity.Transaction{ID: "tx-b", Status: entity.TransactionPending}
	require.NoError(t, f.store.Select("A"))

	_, err := f.disp.Execute(context.Background(), nativeTransfer(walletBBB, "1"))
	require.NoError(t, err)
	assert.Empty(t, f.disp.RecentTransactions(), "other wallet's activity stays out of the active view")

	_, err = f.disp.Execute(context.Background(), nativeTransfer(walletAAA, "1"))
	require.NoError(t, err)
	assert.Len(t, f.disp.RecentTransactions(), 1)

	require.NoError(t, f.store.Select("B"))
	assert.Empty(t, f.disp.RecentTransactions())
}

func TestLoadRecent_DefaultsToActiveWallet(t *testing.T) {
	f := newDispatchFixture(t, localWallet("A", walletAAA))
	f.txs.page = entity.TransactionPage{Transactions: []entity.Transaction{{ID: "t1"}, {ID: "t2"}}, Total: 2}

	page, err := f.disp.LoadRecent(context.Background(), entity.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, f.txs.filters, 1)
	assert.Equal(t, "A", f.txs.filters[0].WalletID)
	assert.Equal(t, 20, f.txs.filters[0].Limit)
	assert.Len(t, f.disp.RecentTransactions(), 2)

	empty := newDispatchFixture(t)
	page, err = empty.disp.LoadRecent(context.Background(), entity.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Transactions)
}

func TestEndToEnd_CustodialTransfer(t *testing.T) {
	ctx := context.Background()
	connBackend := &fakeConnectionBackend{custodialAddress: "0xC0570d1a1000000000000000000000000000000a"}
	store := newStore(t, connBackend, nil)

	conn, err := store.Connect(ctx, entity.ProviderCustodial, entity.NetworkEthereum, "vault", entity.Permissions{CanView: true, CanTrade: true})
	require.NoError(t, err)

	tokens := []entity.TokenBalance{
		tokenBalance(usdcAddr, "USDC", "120", "1"),
		tokenBalance(linkAddr, "LINK", "3", "15"),
	}
	agg := NewBalanceAggregator(store, NewBackendBalanceSource(fakeBalanceBackend{conn.ID: {Tokens: tokens}}), 4, zap.NewNop())
	results := agg.FetchAll(ctx)
	require.Len(t, results, 1)
	require.False(t, results[0].Failed())

	consolidated := agg.Consolidated()
	require.Len(t, consolidated, 2)
	for i, tb := range consolidated {
		assert.Equal(t, tokens[i].TokenAddress, tb.TokenAddress)
		assert.True(t, tokens[i].Balance.Equal(tb.Balance))
		assert.True(t, tokens[i].BalanceUSD.Equal(tb.BalanceUSD))
	}

	txs := &fakeTxBackend{submitResult: entity.Transaction{ID: "tx-1", Kind: entity.TransactionTransfer, Status: entity.TransactionPending, Amount: dec("0.5")}}
	disp := NewTransactionDispatcher(store, txs, newMemJournal(), 20, zap.NewNop(), NewCustodialSigner(txs, zap.NewNop()))
	store.Subscribe(disp.OnConnectionsChanged)

	tx, err := disp.Execute(ctx, entity.TransactionInput{
		Kind:          entity.TransactionTransfer,
		WalletAddress: conn.ChainAddress,
		TokenAddress:  usdcAddr,
		Amount:        "0.5",
		ToAddress:     recipient,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionPending, tx.Status)
	require.Len(t, txs.submitted, 1)
	assert.Equal(t, "0.5", txs.submitted[0].Amount)
	assert.Empty(t, txs.recorded, "custodial results are recorded by the backend")

	recent := disp.RecentTransactions()
	require.Len(t, recent, 1)
	assert.Equal(t, "tx-1", recent[0].ID)
}
