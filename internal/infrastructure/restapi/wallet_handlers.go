package restapi

import (
	"net/http"

	"wallet_core/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type connectRequest struct {
	Provider    entity.ProviderKind `json:"provider" binding:"required"`
	Network     entity.Network      `json:"network" binding:"required"`
	Name        string              `json:"name"`
	Permissions entity.Permissions  `json:"permissions"`
}

func (h *Handler) ListWallets(c *gin.Context) {
	respond(c, http.StatusOK, h.svc.Wallets.List(), "")
}

func (h *Handler) ActiveWallet(c *gin.Context) {
	active, ok := h.svc.Wallets.Active()
	if !ok {
		respond(c, http.StatusOK, nil, "No active wallet.")
		return
	}
	respond(c, http.StatusOK, active, "")
}

func (h *Handler) ConnectWallet(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	conn, err := h.svc.Wallets.Connect(c.Request.Context(), req.Provider, req.Network, req.Name, req.Permissions)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("Wallet connected via API", zap.String("wallet_id", conn.ID))
	respond(c, http.StatusCreated, conn, "")
}

func (h *Handler) UpdateWallet(c *gin.Context) {
	var update entity.WalletConnectionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.badRequest(c, err)
		return
	}

	conn, err := h.svc.Wallets.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, conn, "")
}

func (h *Handler) DisconnectWallet(c *gin.Context) {
	removed, err := h.svc.Wallets.Disconnect(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		h.fail(c, entity.NewError(entity.KindWalletNotFound, "DisconnectWallet", "wallet "+c.Param("id")+" is not connected", nil))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SelectWallet(c *gin.Context) {
	if err := h.svc.Wallets.Select(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	active, _ := h.svc.Wallets.Active()
	respond(c, http.StatusOK, active, "")
}
