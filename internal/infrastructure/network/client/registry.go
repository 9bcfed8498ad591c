package client

import (
	"sort"
	"sync"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/metrics"

	"go.uber.org/zap"
)

// ClientFactory constructs a chain client for a network definition.
type ClientFactory func(def entity.NetworkDefinition) (port.ChainClient, error)

// ChainClientRegistry lazily constructs and caches one chain client per network.
// Only successful constructions are cached; a failed network is retried on the next call.
type ChainClientRegistry struct {
	definitions port.NetworkDefinitionProvider
	factory     ClientFactory
	clients     map[entity.Network]port.ChainClient
	mu          sync.Mutex
	logger      *zap.Logger
}

// NewChainClientRegistry creates a registry over the enabled network definitions.
func NewChainClientRegistry(definitions port.NetworkDefinitionProvider, factory ClientFactory, logger *zap.Logger) *ChainClientRegistry {
	return &ChainClientRegistry{
		definitions: definitions,
		factory:     factory,
		clients:     make(map[entity.Network]port.ChainClient),
		logger:      logger.Named("ChainClientRegistry"),
	}
}

// GetClient returns the cached client for network, constructing it on first use.
func (r *ChainClientRegistry) GetClient(network entity.Network) (port.ChainClient, error) {
	def, ok := r.definitions.GetNetworkDefinition(network)
	if !ok {
		return nil, entity.NewError(entity.KindNetworkUnsupported, "registry.GetClient", "network "+string(network)+" is not supported", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[network]; exists {
		return client, nil
	}

	r.logger.Info("Creating chain client", zap.String("network", string(network)), zap.String("rpc_primary", def.PrimaryRPCURL))
	client, err := r.factory(def)
	if err != nil {
		metrics.ChainClientInits.WithLabelValues(string(network), "error").Inc()
		r.logger.Error("Failed to create chain client", zap.String("network", string(network)), zap.Error(err))
		return nil, entity.NewError(entity.KindProviderUnavailable, "registry.GetClient", "chain client for "+string(network)+" is unavailable", err)
	}

	metrics.ChainClientInits.WithLabelValues(string(network), "ok").Inc()
	r.clients[network] = client
	return client, nil
}

// CachedNetworks lists the networks with a live client.
func (r *ChainClientRegistry) CachedNetworks() []entity.Network {
	r.mu.Lock()
	defer r.mu.Unlock()

	networks := make([]entity.Network, 0, len(r.clients))
	for n := range r.clients {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i] < networks[j] })
	return networks
}

// Reset drops every cached client, closing those that hold a connection.
func (r *ChainClientRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for network, c := range r.clients {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
		delete(r.clients, network)
	}
}

// EVMFactoryConfig configures NewEVMClientFactory.
type EVMFactoryConfig struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	// PrivateKeys holds local signing keys per network; networks without a key use node-managed accounts.
	PrivateKeys map[entity.Network]string
}

// NewEVMClientFactory returns a ClientFactory building EVMClients.
func NewEVMClientFactory(cfg EVMFactoryConfig) ClientFactory {
	return func(def entity.NetworkDefinition) (port.ChainClient, error) {
		return NewEVMClient(def, EVMClientOptions{
			ConnectionTimeout: cfg.ConnectionTimeout,
			RPCCallTimeout:    cfg.RPCCallTimeout,
			PrivateKeyHex:     cfg.PrivateKeys[def.Identifier],
		})
	}
}
