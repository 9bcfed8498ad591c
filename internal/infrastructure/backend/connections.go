package backend

import (
	"context"

	"wallet_core/internal/domain/entity"

	"github.com/valyala/fasthttp"
)

// ListConnections returns the current user's wallet connections.
func (c *Client) ListConnections(ctx context.Context) ([]entity.WalletConnection, error) {
	var out []entity.WalletConnection
	err := c.do(ctx, request{method: fasthttp.MethodGet, endpoint: "/wallet/connections", path: "/wallet/connections", out: &out})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterConnection registers a connection after a successful handshake.
func (c *Client) RegisterConnection(ctx context.Context, req entity.ConnectionRequest) (entity.WalletConnection, error) {
	var out entity.WalletConnection
	err := c.do(ctx, request{method: fasthttp.MethodPost, endpoint: "/wallet/connections", path: "/wallet/connections", body: req, out: &out})
	return out, err
}

// UpdateConnection applies a partial update to a connection.
func (c *Client) UpdateConnection(ctx context.Context, id string, update entity.WalletConnectionUpdate) (entity.WalletConnection, error) {
	var out entity.WalletConnection
	err := c.do(ctx, request{
		method:   fasthttp.MethodPut,
		endpoint: "/wallet/connections/{id}",
		path:     "/wallet/connections/" + escape(id),
		body:     update,
		out:      &out,
	})
	return out, err
}

// DeleteConnection removes a connection.
func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	return c.do(ctx, request{method: fasthttp.MethodDelete, endpoint: "/wallet/connections/{id}", path: "/wallet/connections/" + escape(id)})
}

// RequestCustodialAddress asks the backend to issue a signing address for a remote or custodial provider.
func (c *Client) RequestCustodialAddress(ctx context.Context, provider entity.ProviderKind, network entity.Network) (string, error) {
	body := struct {
		Provider entity.ProviderKind `json:"provider"`
		Network  entity.Network      `json:"network"`
	}{provider, network}
	var out struct {
		Address string `json:"address"`
	}
	err := c.do(ctx, request{method: fasthttp.MethodPost, endpoint: "/wallet/custodial-addresses", path: "/wallet/custodial-addresses", body: body, out: &out})
	if err != nil {
		return "", err
	}
	return out.Address, nil
}
