package service

import (
	"context"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/evmcall"

	"go.uber.org/zap"
)

// AlertRegistry is CRUD over backend price alerts.
type AlertRegistry struct {
	backend port.AlertBackend
	logger  *zap.Logger
}

// NewAlertRegistry creates an AlertRegistry over backend.
func NewAlertRegistry(backend port.AlertBackend, logger *zap.Logger) *AlertRegistry {
	return &AlertRegistry{backend: backend, logger: logger.Named("AlertRegistry")}
}

// Create validates input and registers the alert with the backend.
func (r *AlertRegistry) Create(ctx context.Context, input entity.PriceAlertInput) (entity.PriceAlert, error) {
	const op = "AlertRegistry.Create"
	if input.TokenAddress == "" || input.Network == "" {
		return entity.PriceAlert{}, entity.NewError(entity.KindInvalidInput, op, "tokenAddress and network are required", nil)
	}
	if input.Condition != entity.AlertAbove && input.Condition != entity.AlertBelow {
		return entity.PriceAlert{}, entity.NewError(entity.KindInvalidInput, op, "condition must be above or below", nil)
	}
	if !input.TargetPrice.IsPositive() {
		return entity.PriceAlert{}, entity.NewError(entity.KindInvalidInput, op, "targetPrice must be positive", nil)
	}

	alert, err := r.backend.CreateAlert(ctx, input)
	if err != nil {
		r.logger.Error("Failed to create price alert", zap.String("token", input.TokenAddress), zap.Error(err))
		return entity.PriceAlert{}, err
	}
	return alert, nil
}

// List returns the caller's price alerts.
func (r *AlertRegistry) List(ctx context.Context) ([]entity.PriceAlert, error) {
	alerts, err := r.backend.ListAlerts(ctx)
	if err != nil {
		r.logger.Error("Failed to list price alerts", zap.Error(err))
		return nil, err
	}
	return alerts, nil
}

// Delete removes the alert with the given id.
func (r *AlertRegistry) Delete(ctx context.Context, id string) error {
	if id == "" {
		return entity.NewError(entity.KindInvalidInput, "AlertRegistry.Delete", "id is required", nil)
	}
	if err := r.backend.DeleteAlert(ctx, id); err != nil {
		r.logger.Error("Failed to delete price alert", zap.String("alert_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ApprovalRegistry is CRUD over backend token approval records.
type ApprovalRegistry struct {
	backend port.ApprovalBackend
	logger  *zap.Logger
}

// NewApprovalRegistry creates an ApprovalRegistry over backend.
func NewApprovalRegistry(backend port.ApprovalBackend, logger *zap.Logger) *ApprovalRegistry {
	return &ApprovalRegistry{backend: backend, logger: logger.Named("ApprovalRegistry")}
}

// Create validates input and records the approval with the backend.
func (r *ApprovalRegistry) Create(ctx context.Context, input entity.TokenApprovalInput) (entity.TokenApproval, error) {
	const op = "ApprovalRegistry.Create"
	if input.WalletID == "" || input.Network == "" {
		return entity.TokenApproval{}, entity.NewError(entity.KindInvalidInput, op, "walletId and network are required", nil)
	}
	if !evmcall.IsAddress(input.TokenAddress) || !evmcall.IsAddress(input.SpenderAddress) {
		return entity.TokenApproval{}, entity.NewError(entity.KindInvalidInput, op, "token and spender must be addresses", nil)
	}
	if input.Allowance.IsNegative() {
		return entity.TokenApproval{}, entity.NewError(entity.KindInvalidInput, op, "allowance must not be negative", nil)
	}

	approval, err := r.backend.CreateApproval(ctx, input)
	if err != nil {
		r.logger.Error("Failed to create token approval", zap.String("wallet_id", input.WalletID), zap.Error(err))
		return entity.TokenApproval{}, err
	}
	return approval, nil
}

// List returns the approvals recorded for walletID; an empty id lists all of them.
func (r *ApprovalRegistry) List(ctx context.Context, walletID string) ([]entity.TokenApproval, error) {
	approvals, err := r.backend.ListApprovals(ctx, walletID)
	if err != nil {
		r.logger.Error("Failed to list token approvals", zap.String("wallet_id", walletID), zap.Error(err))
		return nil, err
	}
	return approvals, nil
}

// Delete removes the approval record with the given id.
func (r *ApprovalRegistry) Delete(ctx context.Context, id string) error {
	if id == "" {
		return entity.NewError(entity.KindInvalidInput, "ApprovalRegistry.Delete", "id is required", nil)
	}
	if err := r.backend.DeleteApproval(ctx, id); err != nil {
		r.logger.Error("Failed to delete token approval", zap.String("approval_id", id), zap.Error(err))
		return err
	}
	return nil
}
