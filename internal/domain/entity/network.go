package entity

// Network identifies a supported blockchain network (e.g. "ethereum", "bsc").
type Network string

const (
	NetworkEthereum  Network = "ethereum"
	NetworkBSC       Network = "bsc"
	NetworkPolygon   Network = "polygon"
	NetworkArbitrum  Network = "arbitrum"
	NetworkAvalanche Network = "avalanche"
	NetworkBase      Network = "base"
	NetworkOptimism  Network = "optimism"
)

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID                   uint64   `json:"chainId" yaml:"chainId"`
	Name                      string   `json:"name" yaml:"name"`
	Identifier                Network  `json:"identifier" yaml:"identifier"`
	NativeSymbol              string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals                  int32    `json:"decimals" yaml:"decimals"`
	PrimaryRPCURL             string   `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs           []string `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL          string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	DEXScreenerChainID        string   `json:"dexScreenerChainId,omitempty" yaml:"dexScreenerChainId,omitempty"`
	WrappedNativeTokenAddress string   `json:"wrappedNativeTokenAddress,omitempty" yaml:"wrappedNativeTokenAddress,omitempty"`
	// SwapRouterAddress is a UniswapV2-compatible router used for local-signing swaps.
	SwapRouterAddress string `json:"swapRouterAddress,omitempty" yaml:"swapRouterAddress,omitempty"`
}

// NativeDecimals returns the native asset precision, defaulting to 18.
func (d NetworkDefinition) NativeDecimals() uint8 {
	if d.Decimals <= 0 {
		return 18
	}
	return uint8(d.Decimals)
}

// GasPriceTier is one speed tier of a gas price quote.
type GasPriceTier struct {
	PriceGwei        string `json:"price"`
	EstimatedSeconds int    `json:"estimatedSeconds"`
}

// GasPrices is the backend gas quote for a network.
type GasPrices struct {
	Network Network      `json:"network"`
	Slow    GasPriceTier `json:"slow"`
	Average GasPriceTier `json:"average"`
	Fast    GasPriceTier `json:"fast"`
}

// SupportedNetworkProviders lists which provider kinds the backend accepts per network.
type SupportedNetworkProviders struct {
	Networks  []Network                  `json:"networks"`
	Providers map[Network][]ProviderKind `json:"providers"`
}
