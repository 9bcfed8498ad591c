package restapi

import (
	"context"
	"net/http"

	"wallet_core/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WalletStore is the connection store surface used by the API.
type WalletStore interface {
	List() []entity.WalletConnection
	Active() (entity.WalletConnection, bool)
	Connect(ctx context.Context, provider entity.ProviderKind, network entity.Network, name string, perms entity.Permissions) (entity.WalletConnection, error)
	Disconnect(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, update entity.WalletConnectionUpdate) (entity.WalletConnection, error)
	Select(id string) error
}

// BalanceReader is the balance aggregator surface used by the API.
type BalanceReader interface {
	FetchAll(ctx context.Context) []entity.WalletBalanceResult
	FetchOne(ctx context.Context, walletID string) (entity.WalletBalance, error)
	Snapshot() []entity.WalletBalanceResult
	HasSnapshot() bool
	Consolidated() []entity.TokenBalance
}

// TotalsProvider computes portfolio totals.
type TotalsProvider interface {
	GetTotals(ctx context.Context, tf entity.Timeframe) (entity.PortfolioTotals, error)
}

// TransactionExecutor is the dispatcher surface used by the API.
type TransactionExecutor interface {
	Execute(ctx context.Context, input entity.TransactionInput) (*entity.Transaction, error)
	RetryUnrecorded(ctx context.Context) (int, error)
	RecentTransactions() []entity.Transaction
	LoadRecent(ctx context.Context, filter entity.TransactionFilter) (entity.TransactionPage, error)
}

// AlertManager is CRUD over price alerts.
type AlertManager interface {
	Create(ctx context.Context, input entity.PriceAlertInput) (entity.PriceAlert, error)
	List(ctx context.Context) ([]entity.PriceAlert, error)
	Delete(ctx context.Context, id string) error
}

// ApprovalManager is CRUD over token approvals.
type ApprovalManager interface {
	Create(ctx context.Context, input entity.TokenApprovalInput) (entity.TokenApproval, error)
	List(ctx context.Context, walletID string) ([]entity.TokenApproval, error)
	Delete(ctx context.Context, id string) error
}

// MarketInfo serves gas prices and supported networks.
type MarketInfo interface {
	GasPrices(ctx context.Context, network entity.Network) (entity.GasPrices, error)
	SupportedNetworks(ctx context.Context) (entity.SupportedNetworkProviders, error)
}

// Services bundles the application services exposed over HTTP.
type Services struct {
	Wallets      WalletStore
	Balances     BalanceReader
	Totals       TotalsProvider
	Transactions TransactionExecutor
	Alerts       AlertManager
	Approvals    ApprovalManager
	Market       MarketInfo
}

// Handler serves the local wallet API.
type Handler struct {
	svc    Services
	logger *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(svc Services, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Named("RestAPI")}
}

// APIResponse is the envelope of every API response.
type APIResponse struct {
	Data          any       `json:"data,omitempty"`
	Error         *APIError `json:"error,omitempty"`
	StatusMessage string    `json:"status_message,omitempty"`
}

// APIError is the serialized form of a typed error.
type APIError struct {
	Kind    entity.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, APIResponse{Data: data, StatusMessage: message})
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := entity.KindOf(err)
	status := statusForKind(kind)
	if kind == "" {
		kind = "Internal"
	}
	_ = c.Error(err)
	c.JSON(status, APIResponse{Error: &APIError{Kind: kind, Message: err.Error()}})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.fail(c, entity.NewError(entity.KindInvalidInput, c.FullPath(), "malformed request", err))
}

func statusForKind(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindInvalidInput, entity.KindNetworkUnsupported:
		return http.StatusBadRequest
	case entity.KindUnauthorized:
		return http.StatusUnauthorized
	case entity.KindPermissionDenied:
		return http.StatusForbidden
	case entity.KindWalletNotFound:
		return http.StatusNotFound
	case entity.KindAccountMismatch, entity.KindHandshakeRejected, entity.KindSignatureRejected:
		return http.StatusConflict
	case entity.KindUnsupportedOperation:
		return http.StatusUnprocessableEntity
	case entity.KindRegistrationFailed, entity.KindBackendError:
		return http.StatusBadGateway
	case entity.KindProviderUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
