package backend

import (
	"context"
	"net/url"

	"wallet_core/internal/domain/entity"

	"github.com/valyala/fasthttp"
)

func (c *Client) CreateAlert(ctx context.Context, input entity.PriceAlertInput) (entity.PriceAlert, error) {
	var out entity.PriceAlert
	err := c.do(ctx, request{method: fasthttp.MethodPost, endpoint: "/wallet/alerts", path: "/wallet/alerts", body: input, out: &out})
	return out, err
}

func (c *Client) ListAlerts(ctx context.Context) ([]entity.PriceAlert, error) {
	var out []entity.PriceAlert
	if err := c.do(ctx, request{method: fasthttp.MethodGet, endpoint: "/wallet/alerts", path: "/wallet/alerts", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	return c.do(ctx, request{method: fasthttp.MethodDelete, endpoint: "/wallet/alerts/{id}", path: "/wallet/alerts/" + escape(id)})
}

func (c *Client) CreateApproval(ctx context.Context, input entity.TokenApprovalInput) (entity.TokenApproval, error) {
	var out entity.TokenApproval
	err := c.do(ctx, request{method: fasthttp.MethodPost, endpoint: "/wallet/approvals", path: "/wallet/approvals", body: input, out: &out})
	return out, err
}

func (c *Client) ListApprovals(ctx context.Context, walletID string) ([]entity.TokenApproval, error) {
	var query url.Values
	if walletID != "" {
		query = url.Values{"walletId": {walletID}}
	}
	var out []entity.TokenApproval
	if err := c.do(ctx, request{method: fasthttp.MethodGet, endpoint: "/wallet/approvals", path: "/wallet/approvals", query: query, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteApproval(ctx context.Context, id string) error {
	return c.do(ctx, request{method: fasthttp.MethodDelete, endpoint: "/wallet/approvals/{id}", path: "/wallet/approvals/" + escape(id)})
}
