package service

import (
	"context"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
)

// MarketService serves gas price tiers and the networks/providers the backend accepts.
type MarketService struct {
	backend     port.MarketBackend
	definitions port.NetworkDefinitionProvider
}

func NewMarketService(backend port.MarketBackend, definitions port.NetworkDefinitionProvider) *MarketService {
	return &MarketService{backend: backend, definitions: definitions}
}

// GasPrices returns the backend gas quote for an enabled network.
func (s *MarketService) GasPrices(ctx context.Context, network entity.Network) (entity.GasPrices, error) {
	if _, ok := s.definitions.GetNetworkDefinition(network); !ok {
		return entity.GasPrices{}, entity.NewError(entity.KindNetworkUnsupported, "MarketService.GasPrices", "network "+string(network)+" is not enabled", nil)
	}
	prices, err := s.backend.GetGasPrices(ctx, network)
	if err != nil {
		return entity.GasPrices{}, err
	}
	if prices.Network == "" {
		prices.Network = network
	}
	return prices, nil
}

// SupportedNetworks returns the backend list restricted to locally enabled networks.
func (s *MarketService) SupportedNetworks(ctx context.Context) (entity.SupportedNetworkProviders, error) {
	remote, err := s.backend.GetSupportedNetworks(ctx)
	if err != nil {
		return entity.SupportedNetworkProviders{}, err
	}

	out := entity.SupportedNetworkProviders{
		Networks:  make([]entity.Network, 0, len(remote.Networks)),
		Providers: make(map[entity.Network][]entity.ProviderKind),
	}
	for _, n := range remote.Networks {
		if _, ok := s.definitions.GetNetworkDefinition(n); !ok {
			continue
		}
		out.Networks = append(out.Networks, n)
		if providers, ok := remote.Providers[n]; ok {
			out.Providers[n] = providers
		}
	}
	return out, nil
}
