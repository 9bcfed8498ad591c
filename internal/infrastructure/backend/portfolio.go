package backend

import (
	"context"
	"net/url"

	"wallet_core/internal/domain/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const supportedNetworksKey = "supported-networks"

// GetWalletBalance returns the backend's balance snapshot of one wallet.
func (c *Client) GetWalletBalance(ctx context.Context, walletID string) (entity.WalletBalance, error) {
	var out entity.WalletBalance
	err := c.do(ctx, request{
		method:   fasthttp.MethodGet,
		endpoint: "/wallet/balances/{walletId}",
		path:     "/wallet/balances/" + escape(walletID),
		out:      &out,
	})
	if err != nil {
		return entity.WalletBalance{}, err
	}
	if out.WalletID == "" {
		out.WalletID = walletID
	}
	return out, nil
}

// GetPortfolioTotals returns backend totals including the historical series for timeframe.
func (c *Client) GetPortfolioTotals(ctx context.Context, timeframe entity.Timeframe) (entity.PortfolioTotals, error) {
	var out entity.PortfolioTotals
	err := c.do(ctx, request{
		method:   fasthttp.MethodGet,
		endpoint: "/wallet/portfolio/totals",
		path:     "/wallet/portfolio/totals",
		query:    url.Values{"timeframe": {string(timeframe)}},
		out:      &out,
	})
	return out, err
}

// GetGasPrices returns gas price tiers for a network. Results are cached for the configured TTL.
func (c *Client) GetGasPrices(ctx context.Context, network entity.Network) (entity.GasPrices, error) {
	key := "gas:" + string(network)
	if cached, found := c.cache.Get(key); found {
		if prices, ok := cached.(entity.GasPrices); ok {
			return prices, nil
		}
	}

	var out entity.GasPrices
	err := c.do(ctx, request{
		method:   fasthttp.MethodGet,
		endpoint: "/wallet/gas-price/{network}",
		path:     "/wallet/gas-price/" + escape(string(network)),
		out:      &out,
	})
	if err != nil {
		return entity.GasPrices{}, err
	}
	if out.Network == "" {
		out.Network = network
	}
	c.cache.SetDefault(key, out)
	return out, nil
}

// GetSupportedNetworks returns the networks and provider kinds the backend accepts. Cached.
func (c *Client) GetSupportedNetworks(ctx context.Context) (entity.SupportedNetworkProviders, error) {
	if cached, found := c.cache.Get(supportedNetworksKey); found {
		if supported, ok := cached.(entity.SupportedNetworkProviders); ok {
			return supported, nil
		}
	}

	var out entity.SupportedNetworkProviders
	err := c.do(ctx, request{
		method:   fasthttp.MethodGet,
		endpoint: "/wallet/supported-networks-providers",
		path:     "/wallet/supported-networks-providers",
		out:      &out,
	})
	if err != nil {
		return entity.SupportedNetworkProviders{}, err
	}
	c.logger.Debug("Fetched supported networks", zap.Int("networks", len(out.Networks)))
	c.cache.SetDefault(supportedNetworksKey, out)
	return out, nil
}
