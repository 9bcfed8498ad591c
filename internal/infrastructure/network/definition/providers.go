package networkdefinition

import (
	"os"
	"sort"
	"strings"

	"wallet_core/internal/domain/entity"

	"go.uber.org/zap"
)

// Override adjusts a built-in definition for one network.
type Override struct {
	Identifier        entity.Network
	RPCURL            string
	FallbackRPCURLs   []string
	SwapRouterAddress string
}

// NetworkDefinitionProvider serves the definitions of the enabled networks.
type NetworkDefinitionProvider struct {
	logger            *zap.Logger
	allNetworkDefs    map[entity.Network]entity.NetworkDefinition
	activeNetworkDefs []entity.NetworkDefinition
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:                   1,
		Name:                      "Ethereum Mainnet",
		Identifier:                entity.NetworkEthereum,
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:          "https://etherscan.io",
		DEXScreenerChainID:        "ethereum",
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
		SwapRouterAddress:         "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", // Uniswap V2
	}
	BSC = entity.NetworkDefinition{
		ChainID:                   56,
		Name:                      "BNB Smart Chain",
		Identifier:                entity.NetworkBSC,
		NativeSymbol:              "BNB",
		Decimals:                  18,
		PrimaryRPCURL:             "https://1rpc.io/bnb",
		FallbackRPCURLs:           []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL:          "https://bscscan.com",
		DEXScreenerChainID:        "bsc",
		WrappedNativeTokenAddress: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", // WBNB
		SwapRouterAddress:         "0x10ED43C718714eb63d5aA57B78B54704E256024E", // PancakeSwap V2
	}
	Polygon = entity.NetworkDefinition{
		ChainID:                   137,
		Name:                      "Polygon PoS",
		Identifier:                entity.NetworkPolygon,
		NativeSymbol:              "POL",
		Decimals:                  18,
		PrimaryRPCURL:             "https://polygon-rpc.com/",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:          "https://polygonscan.com",
		DEXScreenerChainID:        "polygon",
		WrappedNativeTokenAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", // WPOL
		SwapRouterAddress:         "0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff", // QuickSwap
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:                   42161,
		Name:                      "Arbitrum One",
		Identifier:                entity.NetworkArbitrum,
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:           []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:          "https://arbiscan.io",
		DEXScreenerChainID:        "arbitrum",
		WrappedNativeTokenAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
		SwapRouterAddress:         "0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506", // SushiSwap
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:                   43114,
		Name:                      "Avalanche C-Chain",
		Identifier:                entity.NetworkAvalanche,
		NativeSymbol:              "AVAX",
		Decimals:                  18,
		PrimaryRPCURL:             "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:           []string{"https://avalanche.public-rpc.com", "https://rpc.ankr.com/avalanche"},
		BlockExplorerURL:          "https://snowtrace.io",
		DEXScreenerChainID:        "avalanche",
		WrappedNativeTokenAddress: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7", // WAVAX
		SwapRouterAddress:         "0x60aE616a2155Ee3d9A68541Ba4544862310933d4", // Trader Joe
	}
	Base = entity.NetworkDefinition{
		ChainID:                   8453,
		Name:                      "Base Mainnet",
		Identifier:                entity.NetworkBase,
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://1rpc.io/base",
		FallbackRPCURLs:           []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL:          "https://basescan.org",
		DEXScreenerChainID:        "base",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006",
		SwapRouterAddress:         "0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24", // Uniswap V2
	}
	Optimism = entity.NetworkDefinition{
		ChainID:                   10,
		Name:                      "OP Mainnet",
		Identifier:                entity.NetworkOptimism,
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://op-pokt.nodies.app",
		FallbackRPCURLs:           []string{"https://optimism.publicnode.com", "https://rpc.ankr.com/optimism"},
		BlockExplorerURL:          "https://optimistic.etherscan.io",
		DEXScreenerChainID:        "optimism",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006",
		SwapRouterAddress:         "0x4A7b5Da61326A6379179b40d00F57E5bbDC962c2", // Uniswap V2
	}
)

// KnownDefinitions returns a fresh copy of every built-in definition keyed by identifier.
func KnownDefinitions() map[entity.Network]entity.NetworkDefinition {
	return map[entity.Network]entity.NetworkDefinition{
		Ethereum.Identifier:  Ethereum,
		BSC.Identifier:       BSC,
		Polygon.Identifier:   Polygon,
		Arbitrum.Identifier:  Arbitrum,
		Avalanche.Identifier: Avalanche,
		Base.Identifier:      Base,
		Optimism.Identifier:  Optimism,
	}
}

// NewNetworkDefinitionProvider enables the networks named in overrides, applying their RPC and router settings.
// Without overrides, networks are enabled by the presence of a <identifier>.json token file in tokenDataDir.
func NewNetworkDefinitionProvider(logger *zap.Logger, overrides []Override, tokenDataDir string) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:            logger.Named("NetworkDefinitionProvider"),
		allNetworkDefs:    KnownDefinitions(),
		activeNetworkDefs: make([]entity.NetworkDefinition, 0),
	}

	if len(overrides) > 0 {
		p.activateFromOverrides(overrides)
	} else {
		p.activateFromTokenFiles(tokenDataDir)
	}

	sort.Slice(p.activeNetworkDefs, func(i, j int) bool {
		return p.activeNetworkDefs[i].ChainID < p.activeNetworkDefs[j].ChainID
	})

	if len(p.activeNetworkDefs) == 0 {
		p.logger.Warn("No networks enabled")
	} else {
		p.logger.Info("NetworkDefinitionProvider initialized", zap.Int("activeNetworks", len(p.activeNetworkDefs)))
		for _, def := range p.activeNetworkDefs {
			p.logger.Debug("Active network",
				zap.String("network", string(def.Identifier)),
				zap.Uint64("chainId", def.ChainID),
				zap.String("rpc", def.PrimaryRPCURL))
		}
	}
	return p
}

func (p *NetworkDefinitionProvider) activateFromOverrides(overrides []Override) {
	seen := make(map[entity.Network]struct{})
	for _, o := range overrides {
		id := entity.Network(strings.ToLower(string(o.Identifier)))
		def, ok := p.allNetworkDefs[id]
		if !ok {
			p.logger.Warn("Configured network has no built-in definition. Skipping.", zap.String("network", string(o.Identifier)))
			continue
		}
		if _, dup := seen[id]; dup {
			p.logger.Warn("Duplicate network configuration. Skipping.", zap.String("network", string(id)))
			continue
		}
		if o.RPCURL != "" {
			def.PrimaryRPCURL = o.RPCURL
		}
		if o.FallbackRPCURLs != nil {
			def.FallbackRPCURLs = o.FallbackRPCURLs
		}
		if o.SwapRouterAddress != "" {
			def.SwapRouterAddress = o.SwapRouterAddress
		}
		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		seen[id] = struct{}{}
	}
}

func (p *NetworkDefinitionProvider) activateFromTokenFiles(tokenDataDir string) {
	files, err := os.ReadDir(tokenDataDir)
	if err != nil {
		p.logger.Error("Failed to read token data directory", zap.String("dir", tokenDataDir), zap.Error(err))
		return
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}
		id := entity.Network(strings.TrimSuffix(strings.ToLower(file.Name()), ".json"))
		def, ok := p.allNetworkDefs[id]
		if !ok {
			p.logger.Warn("Token file found for unknown network. Skipping.", zap.String("file", file.Name()))
			continue
		}
		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
	}
}

// GetAllNetworkDefinitions returns the enabled network definitions ordered by chain id.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinition returns the definition of an enabled network.
func (p *NetworkDefinitionProvider) GetNetworkDefinition(network entity.Network) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.Identifier == network {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// GetNetworkDefinitionByChainID returns the definition of an enabled network by chain id.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
