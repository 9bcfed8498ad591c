package restapi

import (
	"net/http"

	"wallet_core/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// walletBalanceView is the API form of one wallet's fetch slot.
type walletBalanceView struct {
	WalletID string                `json:"walletId"`
	Balance  *entity.WalletBalance `json:"balance,omitempty"`
	Error    string                `json:"error,omitempty"`
}

func balanceViews(results []entity.WalletBalanceResult) []walletBalanceView {
	views := make([]walletBalanceView, 0, len(results))
	for _, r := range results {
		views = append(views, walletBalanceView{WalletID: r.WalletID, Balance: r.Balance, Error: r.ErrorMessage()})
	}
	return views
}

// GetBalances returns the balance snapshot, fetching when refresh=true or nothing is cached.
func (h *Handler) GetBalances(c *gin.Context) {
	var results []entity.WalletBalanceResult
	if c.Query("refresh") == "true" || !h.svc.Balances.HasSnapshot() {
		results = h.svc.Balances.FetchAll(c.Request.Context())
	} else {
		results = h.svc.Balances.Snapshot()
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	var message string
	switch {
	case len(results) == 0:
		message = "No wallets connected."
	case failed == len(results):
		message = "Failed to retrieve any wallet balance."
	case failed > 0:
		message = "Balances retrieved. Some wallets encountered errors."
	default:
		message = "Balances retrieved successfully."
	}
	respond(c, http.StatusOK, balanceViews(results), message)
}

func (h *Handler) GetWalletBalance(c *gin.Context) {
	balance, err := h.svc.Balances.FetchOne(c.Request.Context(), c.Param("walletId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, balance, "")
}

func (h *Handler) GetConsolidated(c *gin.Context) {
	if !h.svc.Balances.HasSnapshot() {
		h.svc.Balances.FetchAll(c.Request.Context())
	}
	respond(c, http.StatusOK, h.svc.Balances.Consolidated(), "")
}

func (h *Handler) GetTotals(c *gin.Context) {
	totals, err := h.svc.Totals.GetTotals(c.Request.Context(), entity.Timeframe(c.Query("timeframe")))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, totals, "")
}
