package restapi

import (
	"net/http"

	"wallet_core/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListAlerts(c *gin.Context) {
	alerts, err := h.svc.Alerts.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, alerts, "")
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var input entity.PriceAlertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}
	alert, err := h.svc.Alerts.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, alert, "")
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	if err := h.svc.Alerts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListApprovals(c *gin.Context) {
	approvals, err := h.svc.Approvals.List(c.Request.Context(), c.Query("walletId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, approvals, "")
}

func (h *Handler) CreateApproval(c *gin.Context) {
	var input entity.TokenApprovalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}
	approval, err := h.svc.Approvals.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, approval, "")
}

func (h *Handler) DeleteApproval(c *gin.Context) {
	if err := h.svc.Approvals.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetGasPrices(c *gin.Context) {
	prices, err := h.svc.Market.GasPrices(c.Request.Context(), entity.Network(c.Param("network")))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, prices, "")
}

func (h *Handler) GetSupportedNetworks(c *gin.Context) {
	supported, err := h.svc.Market.SupportedNetworks(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, supported, "")
}
