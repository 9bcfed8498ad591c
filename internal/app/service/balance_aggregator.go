package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/domain/portfolio"
	"wallet_core/internal/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type balanceSnapshot struct {
	results []entity.WalletBalanceResult
	// versions holds the fetch generation each slot came from.
	versions  map[string]uint64
	fetchedAt time.Time
}

func (s *balanceSnapshot) slot(walletID string) (entity.WalletBalanceResult, uint64, bool) {
	if s == nil {
		return entity.WalletBalanceResult{}, 0, false
	}
	for _, r := range s.results {
		if r.WalletID == walletID {
			return r, s.versions[walletID], true
		}
	}
	return entity.WalletBalanceResult{}, 0, false
}

// BalanceAggregator fetches balances for every connection and holds the latest snapshot.
// Readers always see a complete snapshot; writers publish a new one atomically.
type BalanceAggregator struct {
	connections           port.ConnectionLister
	source                port.BalanceSource
	logger                *zap.Logger
	maxConcurrentRoutines int
	now                   func() time.Time

	snapshot   atomic.Pointer[balanceSnapshot]
	generation atomic.Uint64
	writeMu    sync.Mutex
}

// NewBalanceAggregator creates an aggregator with at most maxRoutines concurrent fetches.
func NewBalanceAggregator(connections port.ConnectionLister, source port.BalanceSource, maxRoutines int, logger *zap.Logger) *BalanceAggregator {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &BalanceAggregator{
		connections:           connections,
		source:                source,
		logger:                logger.Named("BalanceAggregator"),
		maxConcurrentRoutines: maxRoutines,
		now:                   time.Now,
	}
}

// FetchAll queries every known connection concurrently and replaces the snapshot wholesale.
// A failed wallet only fills its own slot; results follow the connection list order.
// Wallets disconnected while the fetch ran are left out, and slots refreshed by a later
// FetchOne are kept.
func (a *BalanceAggregator) FetchAll(ctx context.Context) []entity.WalletBalanceResult {
	gen := a.generation.Add(1)
	conns := a.connections.List()
	fetched := make([]entity.WalletBalanceResult, len(conns))

	a.logger.Debug("Fetching balances", zap.Int("wallets", len(conns)))

	var g errgroup.Group
	g.SetLimit(a.maxConcurrentRoutines)
	for i, conn := range conns {
		i, conn := i, conn
		g.Go(func() error {
			fetched[i] = a.fetch(ctx, conn)
			return nil
		})
	}
	_ = g.Wait()

	a.writeMu.Lock()
	cur := a.snapshot.Load()
	results := make([]entity.WalletBalanceResult, 0, len(fetched))
	versions := make(map[string]uint64, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	for _, r := range fetched {
		seen[r.WalletID] = struct{}{}
		if _, ok := a.connections.Get(r.WalletID); !ok {
			continue
		}
		if prev, v, ok := cur.slot(r.WalletID); ok && v > gen {
			results = append(results, prev)
			versions[r.WalletID] = v
			continue
		}
		results = append(results, r)
		versions[r.WalletID] = gen
	}
	if cur != nil {
		for _, r := range cur.results {
			if _, ok := seen[r.WalletID]; ok || cur.versions[r.WalletID] <= gen {
				continue
			}
			if _, ok := a.connections.Get(r.WalletID); ok {
				results = append(results, r)
				versions[r.WalletID] = cur.versions[r.WalletID]
			}
		}
	}
	a.snapshot.Store(&balanceSnapshot{results: results, versions: versions, fetchedAt: a.now()})
	a.writeMu.Unlock()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	a.logger.Info("Balance fetch completed", zap.Int("wallets", len(results)), zap.Int("failed", failed))

	return append([]entity.WalletBalanceResult(nil), results...)
}

// FetchOne refreshes a single connection and swaps its slot into a new snapshot.
// The slot is not published if the wallet was disconnected meanwhile or a newer fetch already filled it.
func (a *BalanceAggregator) FetchOne(ctx context.Context, walletID string) (entity.WalletBalance, error) {
	conn, ok := a.connections.Get(walletID)
	if !ok {
		return entity.WalletBalance{}, entity.NewError(entity.KindWalletNotFound, "BalanceAggregator.FetchOne", "wallet "+walletID+" is not connected", nil)
	}

	gen := a.generation.Add(1)
	result := a.fetch(ctx, conn)

	a.writeMu.Lock()
	a.publishSlot(result, gen)
	a.writeMu.Unlock()

	if result.Err != nil {
		return entity.WalletBalance{}, result.Err
	}
	return *result.Balance, nil
}

// publishSlot must be called with writeMu held.
func (a *BalanceAggregator) publishSlot(result entity.WalletBalanceResult, gen uint64) {
	if _, ok := a.connections.Get(result.WalletID); !ok {
		return
	}
	cur := a.snapshot.Load()
	if _, v, ok := cur.slot(result.WalletID); ok && v > gen {
		return
	}

	var prev []entity.WalletBalanceResult
	versions := map[string]uint64{}
	if cur != nil {
		prev = cur.results
		for id, v := range cur.versions {
			versions[id] = v
		}
	}
	next := make([]entity.WalletBalanceResult, 0, len(prev)+1)
	replaced := false
	for _, r := range prev {
		if r.WalletID == result.WalletID {
			next = append(next, result)
			replaced = true
			continue
		}
		next = append(next, r)
	}
	if !replaced {
		next = append(next, result)
	}
	versions[result.WalletID] = gen
	a.snapshot.Store(&balanceSnapshot{results: next, versions: versions, fetchedAt: a.now()})
}

func (a *BalanceAggregator) fetch(ctx context.Context, conn entity.WalletConnection) entity.WalletBalanceResult {
	balance, err := a.source.FetchWalletBalance(ctx, conn)
	if err != nil {
		metrics.BalanceFetches.WithLabelValues("error").Inc()
		a.logger.Warn("Wallet balance fetch failed",
			zap.String("wallet_id", conn.ID),
			zap.String("network", string(conn.Network)),
			zap.Error(err))
		return entity.WalletBalanceResult{WalletID: conn.ID, Err: err}
	}
	metrics.BalanceFetches.WithLabelValues("ok").Inc()
	balance.WalletID = conn.ID
	return entity.WalletBalanceResult{WalletID: conn.ID, Balance: &balance}
}

// Snapshot returns the latest per-wallet results.
func (a *BalanceAggregator) Snapshot() []entity.WalletBalanceResult {
	snap := a.snapshot.Load()
	if snap == nil {
		return nil
	}
	return append([]entity.WalletBalanceResult(nil), snap.results...)
}

// HasSnapshot reports whether any fetch has completed.
func (a *BalanceAggregator) HasSnapshot() bool {
	return a.snapshot.Load() != nil
}

// FetchedAt returns when the snapshot was last replaced.
func (a *BalanceAggregator) FetchedAt() time.Time {
	if snap := a.snapshot.Load(); snap != nil {
		return snap.fetchedAt
	}
	return time.Time{}
}

// Balances returns the successful wallet balances of the snapshot.
func (a *BalanceAggregator) Balances() []entity.WalletBalance {
	snap := a.snapshot.Load()
	if snap == nil {
		return nil
	}
	out := make([]entity.WalletBalance, 0, len(snap.results))
	for _, r := range snap.results {
		if r.Balance != nil {
			out = append(out, *r.Balance)
		}
	}
	return out
}

// Consolidated returns the cross-wallet holdings of the snapshot.
func (a *BalanceAggregator) Consolidated() []entity.TokenBalance {
	return portfolio.Consolidate(a.Balances())
}

// OnConnectionsChanged drops snapshot slots of wallets that are no longer connected.
func (a *BalanceAggregator) OnConnectionsChanged(snap ConnectionSnapshot) {
	connected := make(map[string]struct{}, len(snap.Connections))
	for _, c := range snap.Connections {
		connected[c.ID] = struct{}{}
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	cur := a.snapshot.Load()
	if cur == nil {
		return
	}
	kept := make([]entity.WalletBalanceResult, 0, len(cur.results))
	versions := make(map[string]uint64, len(cur.results))
	for _, r := range cur.results {
		if _, ok := connected[r.WalletID]; ok {
			kept = append(kept, r)
			versions[r.WalletID] = cur.versions[r.WalletID]
		}
	}
	if len(kept) == len(cur.results) {
		return
	}
	a.snapshot.Store(&balanceSnapshot{results: kept, versions: versions, fetchedAt: cur.fetchedAt})
}
