package port

import (
	"context"
	"time"

	"wallet_core/internal/domain/entity"
)

// ConnectionBackend is the backend surface for wallet connections.
type ConnectionBackend interface {
	ListConnections(ctx context.Context) ([]entity.WalletConnection, error)
	RegisterConnection(ctx context.Context, req entity.ConnectionRequest) (entity.WalletConnection, error)
	UpdateConnection(ctx context.Context, id string, update entity.WalletConnectionUpdate) (entity.WalletConnection, error)
	DeleteConnection(ctx context.Context, id string) error
	// RequestCustodialAddress asks the backend to issue an address for a remote/custodial provider.
	RequestCustodialAddress(ctx context.Context, provider entity.ProviderKind, network entity.Network) (string, error)
}

// ConnectionLister exposes the current connection set to readers.
type ConnectionLister interface {
	List() []entity.WalletConnection
	Get(id string) (entity.WalletConnection, bool)
}

// WalletDirectory resolves wallet connections for transaction dispatch.
type WalletDirectory interface {
	Get(id string) (entity.WalletConnection, bool)
	// FindByAddress returns every connection holding address, in list order.
	FindByAddress(address string) []entity.WalletConnection
	Active() (entity.WalletConnection, bool)
	MarkUsed(id string, at time.Time)
}
