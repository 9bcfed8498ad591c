package service

import (
	"context"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"

	"go.uber.org/zap"
)

// CustodialSigner delegates build, sign and submit to the backend in a single request.
type CustodialSigner struct {
	backend port.TransactionBackend
	logger  *zap.Logger
}

// NewCustodialSigner creates the remote signing path.
func NewCustodialSigner(backend port.TransactionBackend, logger *zap.Logger) *CustodialSigner {
	return &CustodialSigner{backend: backend, logger: logger.Named("CustodialSigner")}
}

func (s *CustodialSigner) Path() entity.SigningPath { return entity.SigningPathRemote }

// Supports reports every transaction kind for remote-signer and custodial providers.
func (s *CustodialSigner) Supports(provider entity.ProviderKind, kind entity.TransactionKind) bool {
	if provider.SigningPath() != entity.SigningPathRemote {
		return false
	}
	switch kind {
	case entity.TransactionBuy, entity.TransactionSell, entity.TransactionSwap, entity.TransactionTransfer:
		return true
	}
	return false
}

// SignAndSubmit posts the input to the backend, which returns the recorded transaction.
func (s *CustodialSigner) SignAndSubmit(ctx context.Context, conn entity.WalletConnection, input entity.TransactionInput, report func(entity.DispatchState)) (port.SignResult, error) {
	report(entity.StateBuilding)
	report(entity.StateSigning)

	tx, err := s.backend.SubmitTransaction(ctx, conn.ID, input)
	if err != nil {
		s.logger.Error("Backend transaction submission failed", zap.String("wallet_id", conn.ID), zap.Error(err))
		return port.SignResult{}, err
	}

	if tx.Status == "" {
		tx.Status = entity.TransactionPending
	}
	if tx.WalletID == "" {
		tx.WalletID = conn.ID
	}
	if tx.WalletAddress == "" {
		tx.WalletAddress = conn.ChainAddress
	}
	if tx.Network == "" {
		tx.Network = conn.Network
	}
	if tx.Kind == "" {
		tx.Kind = input.Kind
	}

	return port.SignResult{Hash: tx.Hash, Transaction: &tx}, nil
}
