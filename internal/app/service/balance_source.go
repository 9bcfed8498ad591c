package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/domain/portfolio"
	"wallet_core/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BackendBalanceSource reads wallet balances from the backend.
type BackendBalanceSource struct {
	backend port.BalanceBackend
	now     func() time.Time
}

// NewBackendBalanceSource creates a balance source over GET /wallet/balances/{walletId}.
func NewBackendBalanceSource(backend port.BalanceBackend) *BackendBalanceSource {
	return &BackendBalanceSource{backend: backend, now: time.Now}
}

// FetchWalletBalance implements port.BalanceSource.
func (s *BackendBalanceSource) FetchWalletBalance(ctx context.Context, conn entity.WalletConnection) (entity.WalletBalance, error) {
	balance, err := s.backend.GetWalletBalance(ctx, conn.ID)
	if err != nil {
		return entity.WalletBalance{}, err
	}
	balance.WalletID = conn.ID
	if balance.Network == "" {
		balance.Network = conn.Network
	}
	if balance.FetchedAt.IsZero() {
		balance.FetchedAt = s.now()
	}
	return balance, nil
}

// ChainBalanceSource reads balances directly from the chain for the configured token lists
// and prices them through the price feed.
type ChainBalanceSource struct {
	clients port.ChainClientProvider
	tokens  port.TokenProvider
	prices  port.TokenPriceService
	logger  *zap.Logger
	now     func() time.Time
}

// NewChainBalanceSource creates an on-chain balance source.
func NewChainBalanceSource(clients port.ChainClientProvider, tokens port.TokenProvider, prices port.TokenPriceService, logger *zap.Logger) *ChainBalanceSource {
	return &ChainBalanceSource{
		clients: clients,
		tokens:  tokens,
		prices:  prices,
		logger:  logger.Named("ChainBalanceSource"),
		now:     time.Now,
	}
}

// FetchWalletBalance implements port.BalanceSource. A failed token balance is logged and skipped;
// a failed native balance fails the wallet.
func (s *ChainBalanceSource) FetchWalletBalance(ctx context.Context, conn entity.WalletConnection) (entity.WalletBalance, error) {
	client, err := s.clients.GetClient(conn.Network)
	if err != nil {
		return entity.WalletBalance{}, err
	}
	def := client.Definition()

	tokenMap, err := s.tokens.GetTokensByNetwork([]entity.NetworkDefinition{def})
	if err != nil {
		s.logger.Warn("Token list unavailable, fetching native balance only", zap.String("network", string(def.Identifier)), zap.Error(err))
	}
	tokens := tokenMap[def.Identifier]

	requests := make([]entity.BalanceRequestItem, 0, len(tokens)+1)
	requests = append(requests, entity.BalanceRequestItem{
		ID:            "native",
		Type:          entity.NativeBalanceRequest,
		WalletAddress: conn.ChainAddress,
		TokenAddress:  entity.NativeTokenAddress,
		TokenSymbol:   def.NativeSymbol,
		TokenName:     def.Name,
		TokenDecimals: def.NativeDecimals(),
	})
	for _, t := range tokens {
		if entity.IsNativeToken(t.Address) {
			continue
		}
		requests = append(requests, entity.BalanceRequestItem{
			ID:            strings.ToLower(t.Address),
			Type:          entity.TokenBalanceRequest,
			WalletAddress: conn.ChainAddress,
			TokenAddress:  t.Address,
			TokenSymbol:   t.Symbol,
			TokenName:     t.Name,
			TokenDecimals: t.Decimals,
		})
	}

	results, err := client.GetBalances(ctx, requests)
	if err != nil {
		return entity.WalletBalance{}, entity.NewError(entity.KindProviderUnavailable, "ChainBalanceSource.FetchWalletBalance",
			fmt.Sprintf("balance query on %s failed", def.Identifier), err)
	}

	balance := entity.WalletBalance{
		WalletID:         conn.ID,
		Network:          def.Identifier,
		NativeBalance:    decimal.Zero,
		NativeBalanceUSD: decimal.Zero,
		FetchedAt:        s.now(),
	}
	nativeSeen := false
	for _, r := range results {
		if r.Error != nil {
			if r.IsNative {
				return entity.WalletBalance{}, entity.NewError(entity.KindProviderUnavailable, "ChainBalanceSource.FetchWalletBalance",
					"native balance query failed", r.Error)
			}
			s.logger.Warn("Token balance query failed",
				zap.String("wallet_id", conn.ID),
				zap.String("token", r.TokenSymbol),
				zap.Error(r.Error))
			continue
		}

		amount := utils.FromBaseUnits(r.Balance, r.Decimals)
		if !r.IsNative && amount.IsZero() {
			continue
		}

		address := r.TokenAddress
		if r.IsNative {
			address = entity.NativeTokenAddress
			nativeSeen = true
		}
		price, change, ok := s.prices.GetPriceUSD(ctx, def, address)
		if !ok {
			price, change = decimal.Zero, decimal.Zero
		}
		tb := entity.TokenBalance{
			TokenAddress:   address,
			Symbol:         r.TokenSymbol,
			Name:           r.TokenName,
			Decimals:       r.Decimals,
			Balance:        amount,
			BalanceUSD:     amount.Mul(price),
			Price:          price,
			PriceChange24h: change,
		}
		if r.IsNative {
			balance.NativeBalance = tb.Balance
			balance.NativeBalanceUSD = tb.BalanceUSD
		}
		balance.Tokens = append(balance.Tokens, tb)
	}
	if !nativeSeen {
		return entity.WalletBalance{}, entity.NewError(entity.KindProviderUnavailable, "ChainBalanceSource.FetchWalletBalance",
			"native balance missing from chain response", nil)
	}

	portfolio.SortTokenBalances(balance.Tokens)
	balance.TotalBalanceUSD = portfolio.WalletTotal(balance.Tokens)
	return balance, nil
}
