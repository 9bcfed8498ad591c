package pricefeed

import (
	"context"
	"strings"
	"time"

	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var stablecoinSymbols = map[string]struct{}{
	"USDC": {},
	"USDT": {},
	"DAI":  {},
}

type priceEntry struct {
	price     decimal.Decimal
	change24h decimal.Decimal
	found     bool
}

// PriceService implements port.TokenPriceService on top of DEX Screener with a TTL cache.
// Unknown tokens are cached as misses so they are not looked up again before the TTL expires.
type PriceService struct {
	client         DEXScreenerClient
	cache          *cache.Cache
	batchSize      int
	maxConcurrency int
	logger         *zap.Logger
}

// NewPriceService creates a price service.
func NewPriceService(client DEXScreenerClient, ttl time.Duration, batchSize, maxConcurrency int, logger *zap.Logger) *PriceService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 30
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &PriceService{
		client:         client,
		cache:          cache.New(ttl, 2*ttl),
		batchSize:      batchSize,
		maxConcurrency: maxConcurrency,
		logger:         logger.Named("TokenPriceService"),
	}
}

func cacheKey(dexID, address string) string {
	return dexID + ":" + strings.ToLower(address)
}

// priceAddress maps the native sentinel to the wrapped native token, which is what DEX pairs quote.
func priceAddress(def entity.NetworkDefinition, tokenAddress string) string {
	if entity.IsNativeToken(tokenAddress) {
		return def.WrappedNativeTokenAddress
	}
	return tokenAddress
}

// GetPriceUSD returns the USD price and 24h change of a token on the given network.
func (s *PriceService) GetPriceUSD(ctx context.Context, def entity.NetworkDefinition, tokenAddress string) (decimal.Decimal, decimal.Decimal, bool) {
	address := priceAddress(def, tokenAddress)
	if def.DEXScreenerChainID == "" || address == "" {
		return decimal.Zero, decimal.Zero, false
	}

	key := cacheKey(def.DEXScreenerChainID, address)
	if cached, ok := s.cache.Get(key); ok {
		entry := cached.(priceEntry)
		return entry.price, entry.change24h, entry.found
	}

	s.fetchBatch(ctx, def.DEXScreenerChainID, []string{address})

	if cached, ok := s.cache.Get(key); ok {
		entry := cached.(priceEntry)
		return entry.price, entry.change24h, entry.found
	}
	return decimal.Zero, decimal.Zero, false
}

// Warm loads prices for the tracked tokens of every network, including each network's native asset.
func (s *PriceService) Warm(ctx context.Context, defs []entity.NetworkDefinition, tokens map[entity.Network][]entity.TokenInfo) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for _, def := range defs {
		if def.DEXScreenerChainID == "" {
			s.logger.Warn("DEXScreenerChainID not defined for network, skipping price fetch", zap.String("network", string(def.Identifier)))
			continue
		}
		addresses := make([]string, 0, len(tokens[def.Identifier])+1)
		if def.WrappedNativeTokenAddress != "" {
			addresses = append(addresses, def.WrappedNativeTokenAddress)
		}
		for _, t := range tokens[def.Identifier] {
			if !entity.IsNativeToken(t.Address) {
				addresses = append(addresses, t.Address)
			}
		}

		dexID := def.DEXScreenerChainID
		for _, batch := range utils.BatchStrings(addresses, s.batchSize) {
			batch := batch
			g.Go(func() error {
				s.fetchBatch(gctx, dexID, batch)
				return nil
			})
		}
	}
	return g.Wait()
}

func (s *PriceService) fetchBatch(ctx context.Context, dexID string, addresses []string) {
	pairs, err := s.client.GetTokenPairsByAddresses(ctx, dexID, addresses)
	if err != nil {
		// Transport failures are not cached; the next lookup retries.
		s.logger.Error("Failed to get token pairs from DEXScreener",
			zap.String("dexScreenerID", dexID),
			zap.Int("tokenCount", len(addresses)),
			zap.Error(err))
		return
	}

	for _, address := range addresses {
		entry := priceEntry{price: decimal.Zero, change24h: decimal.Zero}
		if best := selectBestPair(pairs, address); best != nil {
			price, err := decimal.NewFromString(best.PriceUsd)
			if err != nil {
				s.logger.Warn("Failed to parse token price", zap.String("tokenAddress", address), zap.String("priceUsd", best.PriceUsd), zap.Error(err))
			} else {
				entry = priceEntry{price: price, change24h: decimal.NewFromFloat(best.PriceChange.H24), found: true}
			}
		}
		s.cache.SetDefault(cacheKey(dexID, address), entry)
	}
}

// selectBestPair prefers the most liquid pair quoted in a stablecoin, then the most liquid pair overall.
func selectBestPair(pairs []PairData, baseTokenAddress string) *PairData {
	var bestOverall, bestStable *PairData
	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}
		if _, stable := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; stable {
			if bestStable == nil || pair.liquidityUSD() > bestStable.liquidityUSD() {
				bestStable = pair
			}
		}
		if bestOverall == nil || pair.liquidityUSD() > bestOverall.liquidityUSD() {
			bestOverall = pair
		}
	}
	if bestStable != nil {
		return bestStable
	}
	return bestOverall
}
