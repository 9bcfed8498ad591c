package port

import (
	"context"

	"wallet_core/internal/domain/entity"
)

// BalanceSource fetches the balance snapshot of one wallet connection.
type BalanceSource interface {
	FetchWalletBalance(ctx context.Context, conn entity.WalletConnection) (entity.WalletBalance, error)
}

// BalanceBackend is the backend surface for wallet balances.
type BalanceBackend interface {
	GetWalletBalance(ctx context.Context, walletID string) (entity.WalletBalance, error)
}

// PortfolioBackend is the backend surface for portfolio history.
type PortfolioBackend interface {
	GetPortfolioTotals(ctx context.Context, timeframe entity.Timeframe) (entity.PortfolioTotals, error)
}

// MarketBackend is the backend surface for gas prices and supported networks.
type MarketBackend interface {
	GetGasPrices(ctx context.Context, network entity.Network) (entity.GasPrices, error)
	GetSupportedNetworks(ctx context.Context) (entity.SupportedNetworkProviders, error)
}

// AlertBackend is the backend surface for price alerts.
type AlertBackend interface {
	CreateAlert(ctx context.Context, input entity.PriceAlertInput) (entity.PriceAlert, error)
	ListAlerts(ctx context.Context) ([]entity.PriceAlert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// ApprovalBackend is the backend surface for token approvals.
type ApprovalBackend interface {
	CreateApproval(ctx context.Context, input entity.TokenApprovalInput) (entity.TokenApproval, error)
	ListApprovals(ctx context.Context, walletID string) ([]entity.TokenApproval, error)
	DeleteApproval(ctx context.Context, id string) error
}
