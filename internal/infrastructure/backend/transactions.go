package backend

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"wallet_core/internal/domain/entity"

	"github.com/valyala/fasthttp"
)

// SubmitTransaction delegates build, sign and submit to the backend for a custodial wallet.
func (c *Client) SubmitTransaction(ctx context.Context, walletID string, input entity.TransactionInput) (entity.Transaction, error) {
	body := struct {
		WalletID string `json:"walletId"`
		entity.TransactionInput
	}{walletID, input}

	var out entity.Transaction
	err := c.do(ctx, request{method: fasthttp.MethodPost, endpoint: "/wallet/transactions", path: "/wallet/transactions", body: body, out: &out})
	return out, err
}

// RecordTransaction records a locally signed submission. The record id doubles as the idempotency key
// so replays from the journal never create duplicates.
func (c *Client) RecordTransaction(ctx context.Context, record entity.TransactionRecord) (entity.Transaction, error) {
	var out entity.Transaction
	err := c.do(ctx, request{
		method:   fasthttp.MethodPost,
		endpoint: "/wallet/transactions",
		path:     "/wallet/transactions",
		body:     record,
		headers:  map[string]string{"Idempotency-Key": record.ID},
		out:      &out,
	})
	return out, err
}

// ListTransactions returns a page of transaction history.
func (c *Client) ListTransactions(ctx context.Context, filter entity.TransactionFilter) (entity.TransactionPage, error) {
	query := url.Values{}
	if filter.WalletID != "" {
		query.Set("walletId", filter.WalletID)
	}
	if filter.Kind != "" {
		query.Set("type", string(filter.Kind))
	}
	if filter.StartDate != nil {
		query.Set("startDate", filter.StartDate.UTC().Format(time.RFC3339))
	}
	if filter.EndDate != nil {
		query.Set("endDate", filter.EndDate.UTC().Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}

	var out entity.TransactionPage
	err := c.do(ctx, request{method: fasthttp.MethodGet, endpoint: "/wallet/transactions", path: "/wallet/transactions", query: query, out: &out})
	return out, err
}
