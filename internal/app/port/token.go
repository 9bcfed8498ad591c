package port

import (
	"context"

	"wallet_core/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// TokenProvider defines the interface for fetching token definitions.
type TokenProvider interface {
	// GetTokensByNetwork returns the tracked tokens of each given network.
	GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[entity.Network][]entity.TokenInfo, error)
}

// TokenPriceService provides USD prices for tokens.
type TokenPriceService interface {
	// GetPriceUSD returns the USD price and 24h change of a token; ok is false if no price is known.
	GetPriceUSD(ctx context.Context, def entity.NetworkDefinition, tokenAddress string) (price decimal.Decimal, change24h decimal.Decimal, ok bool)
}
