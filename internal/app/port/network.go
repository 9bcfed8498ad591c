package port

import (
	"context"
	"math/big"

	"wallet_core/internal/domain/entity"
)

// ChainClient defines the interface for interacting with a blockchain network.
// Implementations will be specific to network types (e.g., EVM).
type ChainClient interface {
	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition

	// Accounts returns the accounts the client can sign for, currently selected account first.
	Accounts(ctx context.Context) ([]string, error)

	EstimateGas(ctx context.Context, call entity.ChainCall) (uint64, error)
	SuggestFees(ctx context.Context) (entity.FeeSuggestion, error)

	// SendTransaction signs and submits the call, returning the chain transaction hash.
	SendTransaction(ctx context.Context, call entity.ChainCall) (string, error)

	// Call executes a read-only contract call.
	Call(ctx context.Context, call entity.ChainCall) ([]byte, error)

	// GetBalance returns the raw balance of address; an empty or sentinel tokenAddress means the native asset.
	GetBalance(ctx context.Context, address string, tokenAddress string) (*big.Int, error)

	// GetBalances fetches multiple balances in one round trip.
	GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all enabled network definitions as a slice.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinition returns the definition for the network and true if it is enabled.
	GetNetworkDefinition(network entity.Network) (entity.NetworkDefinition, bool)
}

// ChainClientProvider defines the interface for providing chain clients.
type ChainClientProvider interface {
	GetClient(network entity.Network) (ChainClient, error)
}
