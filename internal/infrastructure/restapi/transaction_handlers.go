package restapi

import (
	"net/http"
	"strconv"
	"time"

	"wallet_core/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// ExecuteTransaction dispatches a transaction. A submitted but unrecorded transaction is
// answered with 202 and both the pending transaction and the recording error.
func (h *Handler) ExecuteTransaction(c *gin.Context) {
	var input entity.TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	tx, err := h.svc.Transactions.Execute(c.Request.Context(), input)
	switch {
	case err == nil:
		respond(c, http.StatusCreated, tx, "")
	case tx != nil:
		_ = c.Error(err)
		c.JSON(http.StatusAccepted, APIResponse{
			Data:          tx,
			Error:         &APIError{Kind: entity.KindOf(err), Message: err.Error()},
			StatusMessage: "Transaction submitted but not yet recorded; it will be retried.",
		})
	default:
		h.fail(c, err)
	}
}

func (h *Handler) RecentTransactions(c *gin.Context) {
	respond(c, http.StatusOK, h.svc.Transactions.RecentTransactions(), "")
}

func (h *Handler) ListTransactions(c *gin.Context) {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	page, err := h.svc.Transactions.LoadRecent(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, page, "")
}

func (h *Handler) RetryUnrecorded(c *gin.Context) {
	n, err := h.svc.Transactions.RetryUnrecorded(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"recorded": n}, "")
}

func parseTransactionFilter(c *gin.Context) (entity.TransactionFilter, error) {
	filter := entity.TransactionFilter{
		WalletID: c.Query("walletId"),
		Kind:     entity.TransactionKind(c.Query("type")),
	}
	for name, dst := range map[string]**time.Time{"startDate": &filter.StartDate, "endDate": &filter.EndDate} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return entity.TransactionFilter{}, err
		}
		*dst = &t
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return entity.TransactionFilter{}, entity.NewError(entity.KindInvalidInput, "parseTransactionFilter", name+" must be a non-negative integer", err)
		}
		*dst = n
	}
	return filter, nil
}
