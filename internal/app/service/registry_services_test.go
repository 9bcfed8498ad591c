package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet_core/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePortfolioBackend struct {
	totals entity.PortfolioTotals
	err    error
	asked  []entity.Timeframe
}

func (f *fakePortfolioBackend) GetPortfolioTotals(_ context.Context, tf entity.Timeframe) (entity.PortfolioTotals, error) {
	f.asked = append(f.asked, tf)
	return f.totals, f.err
}

func TestTotalsService_RecomputesFromHoldings(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	backend := &fakePortfolioBackend{totals: entity.PortfolioTotals{
		TotalBalanceUSD: dec("999999"),
		History: []entity.HistoryPoint{
			{Date: now.Add(-7 * 24 * time.Hour), Value: dec("100")},
			{Date: now.Add(-24 * time.Hour), Value: dec("120")},
		},
	}}
	conns, source := threeWallets()
	agg := NewBalanceAggregator(conns, source, 2, zap.NewNop())

	svc := NewTotalsService(backend, agg, 0, zap.NewNop())
	svc.now = func() time.Time { return now }

	totals, err := svc.GetTotals(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []entity.Timeframe{entity.TimeframeWeek}, backend.asked)
	assert.True(t, agg.HasSnapshot(), "holdings are fetched on first use")
	assert.True(t, totals.TotalBalanceUSD.Equal(dec("180.5")))
	assert.True(t, totals.Change24h.Absolute.Equal(dec("60.5")))
	assert.True(t, totals.TotalProfitLossUSD.Equal(dec("80.5")))
	require.Len(t, totals.Allocation, 2)
	assert.Equal(t, "USDC", totals.Allocation[0].Symbol)
}

func TestTotalsService_Errors(t *testing.T) {
	conns, source := threeWallets()
	agg := NewBalanceAggregator(conns, source, 2, zap.NewNop())

	svc := NewTotalsService(&fakePortfolioBackend{}, agg, 0, zap.NewNop())
	_, err := svc.GetTotals(context.Background(), "decade")
	assert.True(t, errors.Is(err, entity.ErrInvalidInput))

	svc = NewTotalsService(&fakePortfolioBackend{err: entity.NewError(entity.KindUnauthorized, "fake", "expired", nil)}, agg, 0, zap.NewNop())
	_, err = svc.GetTotals(context.Background(), entity.TimeframeDay)
	assert.True(t, errors.Is(err, entity.ErrUnauthorized))
	assert.False(t, agg.HasSnapshot())
}

type fakeAlertBackend struct {
	alerts    []entity.PriceAlert
	approvals []entity.TokenApproval
	deleted   []string
	err       error
}

func (f *fakeAlertBackend) CreateAlert(_ context.Context, in entity.PriceAlertInput) (entity.PriceAlert, error) {
	a := entity.PriceAlert{ID: "al-1", TokenAddress: in.TokenAddress, Network: in.Network, Condition: in.Condition, TargetPrice: in.TargetPrice, IsActive: true}
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeAlertBackend) ListAlerts(context.Context) ([]entity.PriceAlert, error) {
	return f.alerts, f.err
}

func (f *fakeAlertBackend) DeleteAlert(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAlertBackend) CreateApproval(_ context.Context, in entity.TokenApprovalInput) (entity.TokenApproval, error) {
	a := entity.TokenApproval{ID: "ap-1", WalletID: in.WalletID, TokenAddress: in.TokenAddress, SpenderAddress: in.SpenderAddress, Allowance: in.Allowance}
	f.approvals = append(f.approvals, a)
	return a, nil
}

func (f *fakeAlertBackend) ListApprovals(context.Context, string) ([]entity.TokenApproval, error) {
	return f.approvals, f.err
}

func (f *fakeAlertBackend) DeleteApproval(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func TestAlertRegistry_CRUD(t *testing.T) {
	backend := &fakeAlertBackend{}
	reg := NewAlertRegistry(backend, zap.NewNop())
	ctx := context.Background()

	_, err := reg.Create(ctx, entity.PriceAlertInput{TokenAddress: usdcAddr, Network: entity.NetworkEthereum, Condition: "sideways", TargetPrice: dec("1")})
	assert.True(t, errors.Is(err, entity.ErrInvalidInput))
	_, err = reg.Create(ctx, entity.PriceAlertInput{TokenAddress: usdcAddr, Network: entity.NetworkEthereum, Condition: entity.AlertAbove, TargetPrice: dec("0")})
	assert.True(t, errors.Is(err, entity.ErrInvalidInput))

	alert, err := reg.Create(ctx, entity.PriceAlertInput{TokenAddress: usdcAddr, Network: entity.NetworkEthereum, Condition: entity.AlertBelow, TargetPrice: dec("0.98")})
	require.NoError(t, err)
	assert.Equal(t, "al-1", alert.ID)

	alerts, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	require.NoError(t, reg.Delete(ctx, "al-1"))
	assert.True(t, errors.Is(reg.Delete(ctx, ""), entity.ErrInvalidInput))
	assert.Equal(t, []string{"al-1"}, backend.deleted)
}

func TestApprovalRegistry_Validates(t *testing.T) {
	backend := &fakeAlertBackend{}
	reg := NewApprovalRegistry(backend, zap.NewNop())
	ctx := context.Background()

	_, err := reg.Create(ctx, entity.TokenApprovalInput{WalletID: "A", Network: entity.NetworkEthereum, TokenAddress: usdcAddr, SpenderAddress: "router"})
	assert.True(t, errors.Is(err, entity.ErrInvalidInput))

	approval, err := reg.Create(ctx, entity.TokenApprovalInput{WalletID: "A", Network: entity.NetworkEthereum, TokenAddress: usdcAddr, SpenderAddress: routerAddr, Allowance: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, routerAddr, approval.SpenderAddress)

	list, err := reg.List(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegistries_LogBackendFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)
	backend := &fakeAlertBackend{err: entity.NewError(entity.KindBackendError, "fake", "backend down", nil)}
	alerts := NewAlertRegistry(backend, logger)
	approvals := NewApprovalRegistry(backend, logger)
	ctx := context.Background()

	_, err := alerts.List(ctx)
	assert.True(t, errors.Is(err, entity.ErrBackend))
	assert.True(t, errors.Is(alerts.Delete(ctx, "al-1"), entity.ErrBackend))
	_, err = approvals.List(ctx, "A")
	assert.True(t, errors.Is(err, entity.ErrBackend))
	assert.True(t, errors.Is(approvals.Delete(ctx, "ap-1"), entity.ErrBackend))

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{
		"Failed to list price alerts",
		"Failed to delete price alert",
		"Failed to list token approvals",
		"Failed to delete token approval",
	}, messages)
	assert.Empty(t, backend.deleted)
}

type fakeMarketBackend struct {
	supported entity.SupportedNetworkProviders
}

func (f fakeMarketBackend) GetGasPrices(_ context.Context, network entity.Network) (entity.GasPrices, error) {
	return entity.GasPrices{Fast: entity.GasPriceTier{PriceGwei: "30", EstimatedSeconds: 15}}, nil
}

func (f fakeMarketBackend) GetSupportedNetworks(context.Context) (entity.SupportedNetworkProviders, error) {
	return f.supported, nil
}

type definitionSet map[entity.Network]entity.NetworkDefinition

func (d definitionSet) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	out := make([]entity.NetworkDefinition, 0, len(d))
	for _, def := range d {
		out = append(out, def)
	}
	return out
}

func (d definitionSet) GetNetworkDefinition(n entity.Network) (entity.NetworkDefinition, bool) {
	def, ok := d[n]
	return def, ok
}

func TestMarketService(t *testing.T) {
	backend := fakeMarketBackend{supported: entity.SupportedNetworkProviders{
		Networks: []entity.Network{entity.NetworkEthereum, entity.NetworkBSC},
		Providers: map[entity.Network][]entity.ProviderKind{
			entity.NetworkEthereum: {entity.ProviderBrowserExtension, entity.ProviderCustodial},
			entity.NetworkBSC:      {entity.ProviderCustodial},
		},
	}}
	svc := NewMarketService(backend, definitionSet{entity.NetworkEthereum: {Identifier: entity.NetworkEthereum}})
	ctx := context.Background()

	prices, err := svc.GasPrices(ctx, entity.NetworkEthereum)
	require.NoError(t, err)
	assert.Equal(t, entity.NetworkEthereum, prices.Network)
	assert.Equal(t, "30", prices.Fast.PriceGwei)

	_, err = svc.GasPrices(ctx, entity.NetworkBSC)
	assert.True(t, errors.Is(err, entity.ErrNetworkUnsupported))

	supported, err := svc.SupportedNetworks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.Network{entity.NetworkEthereum}, supported.Networks)
	assert.Len(t, supported.Providers[entity.NetworkEthereum], 2)
	assert.NotContains(t, supported.Providers, entity.NetworkBSC)
}
