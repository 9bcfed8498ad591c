// Package backend is the fasthttp client of the platform REST backend.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/metrics"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config configures the backend client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
	CacheTTL  time.Duration
}

// Client implements the backend ports over REST.
type Client struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	tokens  port.TokenSource
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
}

// New creates a backend client.
func New(cfg Config, tokens port.TokenSource, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &Client{
		client:  &fasthttp.Client{Name: "wallet-core"},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		tokens:  tokens,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:  logger.Named("BackendClient"),
	}
}

// request describes one backend call. Endpoint is the route template used as the metrics label.
type request struct {
	method   string
	endpoint string
	path     string
	query    url.Values
	body     interface{}
	headers  map[string]string
	out      interface{}
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, r request) error {
	op := r.method + " " + r.endpoint

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", op, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	requestURL := c.baseURL + r.path
	if len(r.query) > 0 {
		requestURL += "?" + r.query.Encode()
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(r.method)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return entity.NewError(entity.KindInvalidInput, op, "failed to encode request body", err)
		}
		req.Header.SetContentTypeBytes([]byte("application/json"))
		req.SetBody(payload)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	started := time.Now()
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(r.method, r.endpoint, "transport_error").Observe(time.Since(started).Seconds())
		c.logger.Error("Backend request failed", zap.String("op", op), zap.String("url", requestURL), zap.Error(err))
		return entity.NewError(entity.KindBackendError, op, "backend request failed", err)
	}

	status := resp.StatusCode()
	metrics.BackendRequestDuration.WithLabelValues(r.method, r.endpoint, strconv.Itoa(status)).Observe(time.Since(started).Seconds())
	rawBody := resp.Body()

	if status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden {
		c.logger.Warn("Backend rejected credentials", zap.String("op", op), zap.Int("statusCode", status))
		return &entity.Error{Kind: entity.KindUnauthorized, Op: op, Message: errorMessage(rawBody, status), Status: status}
	}
	if status < 200 || status >= 300 {
		c.logger.Error("Backend request returned an error status",
			zap.String("op", op),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", rawBody))
		return &entity.Error{Kind: entity.KindBackendError, Op: op, Message: errorMessage(rawBody, status), Status: status}
	}

	if r.out == nil || len(rawBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(rawBody, r.out); err != nil {
		c.logger.Error("Failed to decode backend response", zap.String("op", op), zap.ByteString("responseBody", rawBody), zap.Error(err))
		return entity.NewError(entity.KindBackendError, op, "failed to decode backend response", err)
	}
	return nil
}

// errorMessage extracts the human-readable message of an error response.
func errorMessage(body []byte, status int) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return fmt.Sprintf("backend responded with status %d", status)
	}
	return text
}

func escape(id string) string {
	return url.PathEscape(id)
}
