package configloader

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds settings of the local HTTP API.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
	EnablePprof         bool     `yaml:"enablePprof"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// BackendConfig holds settings of the platform REST backend.
type BackendConfig struct {
	BaseURL              string  `yaml:"baseURL"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	RateLimit            float64 `yaml:"rateLimit"` // requests per second
	BurstLimit           int     `yaml:"burstLimit"`
	CacheTTLSeconds      int     `yaml:"cacheTTLSeconds"`
}

// AuthConfig names where the bearer session token comes from.
type AuthConfig struct {
	TokenEnv string `yaml:"tokenEnv"`
}

// NetworkNodeConfig enables a known network and optionally overrides its RPC settings.
type NetworkNodeConfig struct {
	Identifier        string   `yaml:"identifier"`      // e.g., "ethereum"
	RPCURL            string   `yaml:"rpcURL"`          // overrides the built-in primary RPC
	FallbackRPCURLs   []string `yaml:"fallbackRPCURLs"` // overrides the built-in fallbacks
	PrivateKeyEnv     string   `yaml:"privateKeyEnv"`   // env var holding a local signing key; empty means node-managed accounts
	SwapRouterAddress string   `yaml:"swapRouterAddress"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines    int `yaml:"maxConcurrentRoutines"`
	RPCCallTimeoutSeconds    int `yaml:"rpcCallTimeoutSeconds"`
	ConnectionTimeoutSeconds int `yaml:"connectionTimeoutSeconds"`
}

// DispatcherConfig holds transaction dispatch parameters.
type DispatcherConfig struct {
	// GasSafetyMarginPercent is added on top of the gas estimate. Defaults to 10.
	GasSafetyMarginPercent *int    `yaml:"gasSafetyMarginPercent"`
	DefaultSlippagePercent float64 `yaml:"defaultSlippagePercent"`
	SwapDeadlineSeconds    int     `yaml:"swapDeadlineSeconds"`
	RecentLimit            int     `yaml:"recentLimit"`
}

// PortfolioConfig holds balance and totals parameters.
type PortfolioConfig struct {
	// BalanceSource is "backend" or "chain".
	BalanceSource string `yaml:"balanceSource"`
	// MatchToleranceHours bounds how far a historical point may be from a window target; 0 disables the bound.
	MatchToleranceHours int    `yaml:"matchToleranceHours"`
	RefreshSchedule     string `yaml:"refreshSchedule"`
}

// DEXScreenerConfig holds DEXScreener API specific configurations.
type DEXScreenerConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// TokenPriceServiceConfig holds configuration for the TokenPriceService.
type TokenPriceServiceConfig struct {
	MaxTokensPerBatchRequest int `yaml:"maxTokensPerBatchRequest"`
	CacheTTLMinutes          int `yaml:"cacheTTLMinutes"`
}

// StorageConfig holds local file locations.
type StorageConfig struct {
	TokensDir  string `yaml:"tokensDir"`
	JournalDir string `yaml:"journalDir"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig            `yaml:"server"`
	Logging       LoggingConfig           `yaml:"logging"`
	Backend       BackendConfig           `yaml:"backend"`
	Auth          AuthConfig              `yaml:"auth"`
	Networks      []NetworkNodeConfig     `yaml:"networks"`
	Performance   PerformanceConfig       `yaml:"performance"`
	Dispatcher    DispatcherConfig        `yaml:"dispatcher"`
	Portfolio     PortfolioConfig         `yaml:"portfolio"`
	DEXScreener   DEXScreenerConfig       `yaml:"dexScreener"`
	TokenPriceSvc TokenPriceServiceConfig `yaml:"tokenPriceService"`
	Storage       StorageConfig           `yaml:"storage"`
}

// Load reads the YAML configuration file from the given path and unmarshals it.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML configuration data, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Backend.RequestTimeoutMillis <= 0 {
		cfg.Backend.RequestTimeoutMillis = 10000
		logrus.Infof("Backend.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Backend.RequestTimeoutMillis)
	}
	if cfg.Backend.RateLimit <= 0 {
		cfg.Backend.RateLimit = 10
	}
	if cfg.Backend.BurstLimit <= 0 {
		cfg.Backend.BurstLimit = 5
	}
	if cfg.Backend.CacheTTLSeconds <= 0 {
		cfg.Backend.CacheTTLSeconds = 30
	}
	if cfg.Auth.TokenEnv == "" {
		cfg.Auth.TokenEnv = "WALLET_SESSION_TOKEN"
	}
	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.ConnectionTimeoutSeconds <= 0 {
		cfg.Performance.ConnectionTimeoutSeconds = 10
	}
	if cfg.Dispatcher.GasSafetyMarginPercent == nil {
		margin := 10
		cfg.Dispatcher.GasSafetyMarginPercent = &margin
		logrus.Infof("Dispatcher.GasSafetyMarginPercent not set, defaulting to %d%%", margin)
	}
	if cfg.Dispatcher.DefaultSlippagePercent <= 0 {
		cfg.Dispatcher.DefaultSlippagePercent = 0.5
	}
	if cfg.Dispatcher.SwapDeadlineSeconds <= 0 {
		cfg.Dispatcher.SwapDeadlineSeconds = 1200
	}
	if cfg.Dispatcher.RecentLimit <= 0 {
		cfg.Dispatcher.RecentLimit = 20
	}
	if cfg.Portfolio.BalanceSource == "" {
		cfg.Portfolio.BalanceSource = "backend"
	}
	if cfg.Portfolio.RefreshSchedule == "" {
		cfg.Portfolio.RefreshSchedule = "@every 1m"
	}
	if cfg.DEXScreener.BaseURL == "" {
		cfg.DEXScreener.BaseURL = "https://api.dexscreener.com"
		logrus.Infof("DEXScreener.BaseURL not set, defaulting to %s", cfg.DEXScreener.BaseURL)
	}
	if cfg.DEXScreener.RequestTimeoutMillis <= 0 {
		cfg.DEXScreener.RequestTimeoutMillis = 10000
	}
	if cfg.TokenPriceSvc.MaxTokensPerBatchRequest <= 0 {
		cfg.TokenPriceSvc.MaxTokensPerBatchRequest = 30 // DEXScreener limit
	}
	if cfg.TokenPriceSvc.CacheTTLMinutes <= 0 {
		cfg.TokenPriceSvc.CacheTTLMinutes = 5
	}
	if cfg.Storage.TokensDir == "" {
		cfg.Storage.TokensDir = "data/tokens"
	}
	if cfg.Storage.JournalDir == "" {
		cfg.Storage.JournalDir = "data/journal"
	}
}

func (cfg *Config) validate() error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseURL is required")
	}
	if *cfg.Dispatcher.GasSafetyMarginPercent < 0 {
		return fmt.Errorf("dispatcher.gasSafetyMarginPercent must not be negative")
	}
	switch cfg.Portfolio.BalanceSource {
	case "backend", "chain":
	default:
		return fmt.Errorf("portfolio.balanceSource must be \"backend\" or \"chain\", got %q", cfg.Portfolio.BalanceSource)
	}
	for _, network := range cfg.Networks {
		if network.Identifier == "" {
			return fmt.Errorf("network entry without identifier")
		}
	}
	return nil
}

// BackendTimeout returns the backend request timeout.
func (cfg *Config) BackendTimeout() time.Duration {
	return time.Duration(cfg.Backend.RequestTimeoutMillis) * time.Millisecond
}

// MatchTolerance returns the historical point matching tolerance (0 means unbounded).
func (cfg *Config) MatchTolerance() time.Duration {
	return time.Duration(cfg.Portfolio.MatchToleranceHours) * time.Hour
}
