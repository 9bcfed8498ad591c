package restapi

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds HTTP surface settings.
type RouterConfig struct {
	// AllowedOrigins empty means any origin.
	AllowedOrigins []string
	EnablePprof    bool
}

// SetupRouter builds the gin engine with middleware, API routes, metrics and optional pprof.
func SetupRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/wallets", h.ListWallets)
		v1.POST("/wallets", h.ConnectWallet)
		v1.GET("/wallets/active", h.ActiveWallet)
		v1.PUT("/wallets/:id", h.UpdateWallet)
		v1.DELETE("/wallets/:id", h.DisconnectWallet)
		v1.POST("/wallets/:id/select", h.SelectWallet)

		v1.GET("/balances", h.GetBalances)
		v1.GET("/balances/:walletId", h.GetWalletBalance)
		v1.GET("/portfolio/consolidated", h.GetConsolidated)
		v1.GET("/portfolio/totals", h.GetTotals)

		v1.POST("/transactions", h.ExecuteTransaction)
		v1.GET("/transactions", h.ListTransactions)
		v1.GET("/transactions/recent", h.RecentTransactions)
		v1.POST("/transactions/retry", h.RetryUnrecorded)

		v1.GET("/alerts", h.ListAlerts)
		v1.POST("/alerts", h.CreateAlert)
		v1.DELETE("/alerts/:id", h.DeleteAlert)
		v1.GET("/approvals", h.ListApprovals)
		v1.POST("/approvals", h.CreateApproval)
		v1.DELETE("/approvals/:id", h.DeleteApproval)

		v1.GET("/gas-price/:network", h.GetGasPrices)
		v1.GET("/supported-networks", h.GetSupportedNetworks)
	}

	if cfg.EnablePprof {
		pprofRouter := router.Group("/debug/pprof")
		{
			pprofRouter.GET("/", gin.WrapF(pprof.Index))
			pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
			pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
			pprofRouter.POST("/symbol", gin.WrapF(pprof.Symbol))
			pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
			pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
			pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		}
	}

	return router
}

// ZapLoggerMiddleware logs each request with zap.
func ZapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Request rejected", fields...)
		default:
			log.Debug("Request served", fields...)
		}
	}
}
