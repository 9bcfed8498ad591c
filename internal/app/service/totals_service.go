package service

import (
	"context"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/domain/portfolio"

	"go.uber.org/zap"
)

// HoldingsReader exposes the consolidated holdings of the latest balance snapshot.
type HoldingsReader interface {
	HasSnapshot() bool
	FetchAll(ctx context.Context) []entity.WalletBalanceResult
	Consolidated() []entity.TokenBalance
}

// TotalsService combines the backend history series with the current consolidated holdings.
type TotalsService struct {
	backend   port.PortfolioBackend
	holdings  HoldingsReader
	tolerance time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewTotalsService creates a totals service. tolerance bounds history point matching; zero means unbounded.
func NewTotalsService(backend port.PortfolioBackend, holdings HoldingsReader, tolerance time.Duration, logger *zap.Logger) *TotalsService {
	return &TotalsService{
		backend:   backend,
		holdings:  holdings,
		tolerance: tolerance,
		logger:    logger.Named("TotalsService"),
		now:       time.Now,
	}
}

// GetTotals fetches the series for tf and recomputes totals from local holdings.
// Balances are fetched first if no snapshot exists yet.
func (s *TotalsService) GetTotals(ctx context.Context, tf entity.Timeframe) (entity.PortfolioTotals, error) {
	if tf == "" {
		tf = entity.TimeframeWeek
	}
	if !tf.Valid() {
		return entity.PortfolioTotals{}, entity.NewError(entity.KindInvalidInput, "TotalsService.GetTotals", "unknown timeframe "+string(tf), nil)
	}

	remote, err := s.backend.GetPortfolioTotals(ctx, tf)
	if err != nil {
		s.logger.Error("Failed to fetch portfolio history", zap.String("timeframe", string(tf)), zap.Error(err))
		return entity.PortfolioTotals{}, err
	}

	if !s.holdings.HasSnapshot() {
		s.holdings.FetchAll(ctx)
	}

	return portfolio.CalculateTotals(portfolio.TotalsInput{
		Timeframe:      tf,
		Balances:       s.holdings.Consolidated(),
		History:        remote.History,
		Now:            s.now(),
		MatchTolerance: s.tolerance,
	}), nil
}
