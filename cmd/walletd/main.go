package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/app/service"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/infrastructure/auth"
	"wallet_core/internal/infrastructure/backend"
	"wallet_core/internal/infrastructure/configloader"
	"wallet_core/internal/infrastructure/journal"
	clientprovider "wallet_core/internal/infrastructure/network/client"
	networkdefinition "wallet_core/internal/infrastructure/network/definition"
	"wallet_core/internal/infrastructure/pricefeed"
	"wallet_core/internal/infrastructure/restapi"
	"wallet_core/internal/infrastructure/tokenloader"
	"wallet_core/internal/pkg/logger"
	"wallet_core/internal/pkg/utils"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Failed to read .env file: %v", err)
	}

	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logrus.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	overrides := make([]networkdefinition.Override, 0, len(cfg.Networks))
	privateKeys := make(map[entity.Network]string)
	for _, n := range cfg.Networks {
		network := entity.Network(n.Identifier)
		overrides = append(overrides, networkdefinition.Override{
			Identifier:        network,
			RPCURL:            n.RPCURL,
			FallbackRPCURLs:   n.FallbackRPCURLs,
			SwapRouterAddress: n.SwapRouterAddress,
		})
		if n.PrivateKeyEnv != "" {
			if key := os.Getenv(n.PrivateKeyEnv); key != "" {
				privateKeys[network] = key
			} else {
				zapLogger.Warn("Private key env var is empty, using node-managed accounts",
					zap.String("network", n.Identifier), zap.String("env", n.PrivateKeyEnv))
			}
		}
	}
	definitions := networkdefinition.NewNetworkDefinitionProvider(zapLogger, overrides, cfg.Storage.TokensDir)

	clients := clientprovider.NewChainClientRegistry(definitions, clientprovider.NewEVMClientFactory(clientprovider.EVMFactoryConfig{
		ConnectionTimeout: time.Duration(cfg.Performance.ConnectionTimeoutSeconds) * time.Second,
		RPCCallTimeout:    time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
		PrivateKeys:       privateKeys,
	}), zapLogger)
	defer clients.Reset()

	tokens := auth.NewBearerTokenSource(os.Getenv(cfg.Auth.TokenEnv))
	if _, err := tokens.Token(context.Background()); err != nil {
		zapLogger.Warn("Session token unusable, backend calls will be rejected", zap.String("env", cfg.Auth.TokenEnv), zap.Error(err))
	}
	backendClient := backend.New(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.BackendTimeout(),
		RateLimit: cfg.Backend.RateLimit,
		Burst:     cfg.Backend.BurstLimit,
		CacheTTL:  time.Duration(cfg.Backend.CacheTTLSeconds) * time.Second,
	}, tokens, zapLogger)

	txJournal, err := journal.Open(cfg.Storage.JournalDir, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open transaction journal", zap.String("dir", cfg.Storage.JournalDir), zap.Error(err))
	}
	defer func() {
		if err := txJournal.Close(); err != nil {
			zapLogger.Error("Failed to close transaction journal", zap.Error(err))
		}
	}()

	dexScreener := pricefeed.NewDEXScreenerClient(
		cfg.DEXScreener.BaseURL,
		time.Duration(cfg.DEXScreener.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
		cfg.TokenPriceSvc.MaxTokensPerBatchRequest,
	)
	prices := pricefeed.NewPriceService(
		dexScreener,
		time.Duration(cfg.TokenPriceSvc.CacheTTLMinutes)*time.Minute,
		cfg.TokenPriceSvc.MaxTokensPerBatchRequest,
		cfg.Performance.MaxConcurrentRoutines,
		zapLogger,
	)
	tokenLoader := tokenloader.NewTokenLoader(cfg.Storage.TokensDir, zapLogger)

	var balanceSource port.BalanceSource
	switch cfg.Portfolio.BalanceSource {
	case "chain":
		balanceSource = service.NewChainBalanceSource(clients, tokenLoader, prices, zapLogger)
	default:
		balanceSource = service.NewBackendBalanceSource(backendClient)
	}
	zapLogger.Info("Balance source selected", zap.String("source", cfg.Portfolio.BalanceSource))

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.BackendTimeout())
	store := service.NewConnectionStore(backendClient, clients, zapLogger)
	if err := store.Load(startupCtx); err != nil {
		zapLogger.Error("Failed to load wallet connections, starting empty", zap.Error(err))
	}
	cancelStartup()

	aggregator := service.NewBalanceAggregator(store, balanceSource, cfg.Performance.MaxConcurrentRoutines, zapLogger)

	localSigner := service.NewLocalSigner(clients, service.LocalSignerConfig{
		GasSafetyMarginPercent: *cfg.Dispatcher.GasSafetyMarginPercent,
		DefaultSlippagePercent: decimal.NewFromFloat(cfg.Dispatcher.DefaultSlippagePercent),
		SwapDeadline:           time.Duration(cfg.Dispatcher.SwapDeadlineSeconds) * time.Second,
	}, zapLogger)
	custodialSigner := service.NewCustodialSigner(backendClient, zapLogger)
	dispatcher := service.NewTransactionDispatcher(store, backendClient, txJournal, cfg.Dispatcher.RecentLimit, zapLogger,
		localSigner, custodialSigner)
	dispatcher.SetObserver(func(ev service.DispatchEvent) {
		zapLogger.Debug("Dispatch state changed",
			zap.String("wallet_id", ev.WalletID),
			zap.String("kind", string(ev.Kind)),
			zap.String("state", string(ev.State)),
			zap.Error(ev.Err))
	})

	unsubscribeAggregator := store.Subscribe(aggregator.OnConnectionsChanged)
	defer unsubscribeAggregator()
	unsubscribeDispatcher := store.Subscribe(dispatcher.OnConnectionsChanged)
	defer unsubscribeDispatcher()

	totals := service.NewTotalsService(backendClient, aggregator, cfg.MatchTolerance(), zapLogger)

	priceWarmer := priceWarmerFor(cfg.Portfolio.BalanceSource, func(ctx context.Context) {
		warm(ctx, zapLogger, prices, definitions, tokenLoader)
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Portfolio.RefreshSchedule, func() {
		refresh(zapLogger, cfg, aggregator, dispatcher, priceWarmer)
	}); err != nil {
		zapLogger.Fatal("Invalid refresh schedule", zap.String("schedule", cfg.Portfolio.RefreshSchedule), zap.Error(err))
	}
	scheduler.Start()
	go refresh(zapLogger, cfg, aggregator, dispatcher, priceWarmer)

	handler := restapi.NewHandler(restapi.Services{
		Wallets:      store,
		Balances:     aggregator,
		Totals:       totals,
		Transactions: dispatcher,
		Alerts:       service.NewAlertRegistry(backendClient, zapLogger),
		Approvals:    service.NewApprovalRegistry(backendClient, zapLogger),
		Market:       service.NewMarketService(backendClient, definitions),
	}, zapLogger)
	router := restapi.SetupRouter(handler, restapi.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		EnablePprof:    cfg.Server.EnablePprof,
	}, zapLogger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	<-scheduler.Stop().Done()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}

// refresh warms prices when warmPrices is set, refetches balances and retries unrecorded transactions.
func refresh(
	log *zap.Logger,
	cfg *configloader.Config,
	aggregator *service.BalanceAggregator,
	dispatcher *service.TransactionDispatcher,
	warmPrices func(context.Context),
) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.BackendTimeout()+time.Minute)
	defer cancel()

	if warmPrices != nil {
		warmPrices(ctx)
	}

	results := aggregator.FetchAll(ctx)
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	recorded, err := dispatcher.RetryUnrecorded(ctx)
	if err != nil {
		log.Warn("Retry of unrecorded transactions stopped", zap.Int("recorded", recorded), zap.Error(err))
	}
	log.Info("Refresh completed",
		zap.Int("wallets", len(results)),
		zap.Int("failed", failed),
		zap.Int("recorded", recorded))
}

// priceWarmerFor returns fn when balanceSource reads the price feed, nil otherwise.
func priceWarmerFor(balanceSource string, fn func(context.Context)) func(context.Context) {
	if balanceSource != "chain" {
		return nil
	}
	return fn
}

func warm(
	ctx context.Context,
	log *zap.Logger,
	prices *pricefeed.PriceService,
	definitions *networkdefinition.NetworkDefinitionProvider,
	tokenLoader *tokenloader.TokenFileLoader,
) {
	defs := definitions.GetAllNetworkDefinitions()
	tokensByNetwork, err := tokenLoader.GetTokensByNetwork(defs)
	if err != nil {
		log.Warn("Failed to load token lists for price warm-up", zap.Error(err))
		return
	}
	if err := prices.Warm(ctx, defs, tokensByNetwork); err != nil {
		log.Warn("Price warm-up failed", zap.Error(err))
	}
}
