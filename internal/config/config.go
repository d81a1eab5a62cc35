// Package config loads service settings from an optional .env file, an
// optional YAML file and SNIPER_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"solana-token-sniper/internal/dexscreener"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/honeypot"
	"solana-token-sniper/internal/jupiter"
	"solana-token-sniper/internal/order"
	"solana-token-sniper/internal/outcome"
	"solana-token-sniper/internal/rpcservice"
	"solana-token-sniper/internal/rugcheck"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/scanner"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "SNIPER"

// Config is the full service configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	RPC        RPCConfig        `mapstructure:"rpc"`
	EVM        EVMConfig        `mapstructure:"evm"`
	Safety     SafetyConfig     `mapstructure:"safety"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Scanner    ScannerConfig    `mapstructure:"scanner"`
	Execution  ExecutionConfig  `mapstructure:"execution"`
	Database   DatabaseConfig   `mapstructure:"database"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	AMQP       AMQPConfig       `mapstructure:"amqp"`
	Honeypot   HoneypotConfig   `mapstructure:"honeypot"`
	RugCheck   RugCheckConfig   `mapstructure:"rugcheck"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type RPCConfig struct {
	PremiumURL    string        `mapstructure:"premium_url"`
	PremiumAPIKey string        `mapstructure:"premium_api_key"`
	CustomURL     string        `mapstructure:"custom_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type EVMConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
}

type SafetyConfig struct {
	MaxTop10HoldersPercent float64       `mapstructure:"max_top10_holders_percent"`
	MinLiquidityUSD        float64       `mapstructure:"min_liquidity_usd"`
	MaxSellTax             float64       `mapstructure:"max_sell_tax"`
	MaxBuyTax              float64       `mapstructure:"max_buy_tax"`
	RequireLiquidityLocked bool          `mapstructure:"require_liquidity_locked"`
	MinHolders             int           `mapstructure:"min_holders"`
	CheckTimeout           time.Duration `mapstructure:"check_timeout"`
	// MinScore gates order creation on top of the pass/fail verdict.
	MinScore int `mapstructure:"min_score"`
}

type MonitorConfig struct {
	SweepInterval        time.Duration `mapstructure:"sweep_interval"`
	OrderDelay           time.Duration `mapstructure:"order_delay"`
	Concurrency          int           `mapstructure:"concurrency"`
	PriceTimeout         time.Duration `mapstructure:"price_timeout"`
	MaxConsecutiveLosses int           `mapstructure:"max_consecutive_losses"`
}

type ScannerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Schedule         string        `mapstructure:"schedule"` // cron spec
	DexScreenerURL   string        `mapstructure:"dexscreener_url"`
	MinAgeMinutes    float64       `mapstructure:"min_age_minutes"`
	MaxAgeMinutes    float64       `mapstructure:"max_age_minutes"`
	MinLiquidityUSD  float64       `mapstructure:"min_liquidity_usd"`
	MinPriceChange5m float64       `mapstructure:"min_price_change_5m"`
	ItemDelay        time.Duration `mapstructure:"item_delay"`
	MaxCandidates    int           `mapstructure:"max_candidates"`
}

type ExecutionConfig struct {
	JupiterURL         string  `mapstructure:"jupiter_url"`
	DefaultSlippageBps int     `mapstructure:"default_slippage_bps"`
	MaxBuildAttempts   int     `mapstructure:"max_build_attempts"`
	TakeProfitPercent  float64 `mapstructure:"take_profit_percent"`
	StopLossPercent    float64 `mapstructure:"stop_loss_percent"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"` // empty keeps orders in memory
	MaxConns int32  `mapstructure:"max_conns"`
}

type ClickHouseConfig struct {
	URL string `mapstructure:"url"` // empty keeps snapshots in memory
}

type AMQPConfig struct {
	URL        string `mapstructure:"url"` // empty disables outcome publishing
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

type HoneypotConfig struct {
	URL string `mapstructure:"url"`
}

type RugCheckConfig struct {
	URL string `mapstructure:"url"` // empty skips the report and probes sell routes only
}

// ValidationError reports an out-of-range setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("rpc.premium_url", "https://mainnet.helius-rpc.com")
	v.SetDefault("rpc.premium_api_key", "")
	v.SetDefault("rpc.custom_url", "")
	v.SetDefault("rpc.timeout", 8*time.Second)

	v.SetDefault("evm.rpc_url", "")

	sd := safety.DefaultConfig()
	v.SetDefault("safety.max_top10_holders_percent", sd.MaxTop10HoldersPercent)
	v.SetDefault("safety.min_liquidity_usd", sd.MinLiquidityUSD)
	v.SetDefault("safety.max_sell_tax", sd.MaxSellTax)
	v.SetDefault("safety.max_buy_tax", sd.MaxBuyTax)
	v.SetDefault("safety.require_liquidity_locked", sd.RequireLiquidityLocked)
	v.SetDefault("safety.min_holders", sd.MinHolders)
	v.SetDefault("safety.check_timeout", sd.CheckTimeout)
	v.SetDefault("safety.min_score", 0)

	md := order.DefaultMonitorConfig()
	v.SetDefault("monitor.sweep_interval", time.Minute)
	v.SetDefault("monitor.order_delay", md.OrderDelay)
	v.SetDefault("monitor.concurrency", md.Concurrency)
	v.SetDefault("monitor.price_timeout", md.PriceTimeout)
	v.SetDefault("monitor.max_consecutive_losses", order.DefaultConfig().MaxConsecutiveLosses)

	sc := scanner.DefaultConfig()
	v.SetDefault("scanner.enabled", false)
	v.SetDefault("scanner.schedule", "@every 5m")
	v.SetDefault("scanner.dexscreener_url", dexscreener.DefaultBaseURL)
	v.SetDefault("scanner.min_age_minutes", sc.MinAgeMinutes)
	v.SetDefault("scanner.max_age_minutes", sc.MaxAgeMinutes)
	v.SetDefault("scanner.min_liquidity_usd", sc.MinLiquidityUSD)
	v.SetDefault("scanner.min_price_change_5m", sc.MinPriceChange5m)
	v.SetDefault("scanner.item_delay", sc.ItemDelay)
	v.SetDefault("scanner.max_candidates", sc.MaxCandidates)

	ed := execution.DefaultConfig()
	v.SetDefault("execution.jupiter_url", jupiter.DefaultBaseURL)
	v.SetDefault("execution.default_slippage_bps", ed.DefaultSlippageBps)
	v.SetDefault("execution.max_build_attempts", ed.MaxBuildAttempts)
	v.SetDefault("execution.take_profit_percent", 50.0)
	v.SetDefault("execution.stop_loss_percent", 20.0)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("clickhouse.url", "")

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", outcome.DefaultExchange)
	v.SetDefault("amqp.routing_key", outcome.DefaultRoutingKey)

	v.SetDefault("honeypot.url", honeypot.DefaultBaseURL)
	v.SetDefault("rugcheck.url", rugcheck.DefaultBaseURL)
}

// Load reads the configuration. path may name a YAML file; empty skips it.
// A .env file in the working directory is loaded when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return &ValidationError{"log.format", fmt.Sprintf("must be json or text, got %q", c.Log.Format)}
	}
	if c.RPC.PremiumURL == "" {
		return &ValidationError{"rpc.premium_url", "is required"}
	}
	if c.RPC.Timeout <= 0 {
		return &ValidationError{"rpc.timeout", "must be positive"}
	}
	if err := c.SafetyConfig().Validate(); err != nil {
		return &ValidationError{"safety", err.Error()}
	}
	if c.Safety.MinScore < 0 || c.Safety.MinScore > 100 {
		return &ValidationError{"safety.min_score", "must be in [0,100]"}
	}
	if c.Monitor.SweepInterval < time.Second {
		return &ValidationError{"monitor.sweep_interval", "must be at least 1s"}
	}
	if c.Monitor.Concurrency < 1 {
		return &ValidationError{"monitor.concurrency", "must be at least 1"}
	}
	if c.Monitor.OrderDelay < 0 {
		return &ValidationError{"monitor.order_delay", "must be non-negative"}
	}
	if c.Monitor.MaxConsecutiveLosses < 0 {
		return &ValidationError{"monitor.max_consecutive_losses", "must be non-negative"}
	}
	if err := c.ScannerConfig().Validate(); err != nil {
		return &ValidationError{"scanner", err.Error()}
	}
	if c.Execution.DefaultSlippageBps <= 0 || c.Execution.DefaultSlippageBps > 10_000 {
		return &ValidationError{"execution.default_slippage_bps", "must be in (0,10000]"}
	}
	if c.Execution.MaxBuildAttempts < 1 {
		return &ValidationError{"execution.max_build_attempts", "must be at least 1"}
	}
	if c.Execution.TakeProfitPercent < 0 || c.Execution.StopLossPercent < 0 || c.Execution.StopLossPercent >= 100 {
		return &ValidationError{"execution", "take-profit must be non-negative and stop-loss in [0,100)"}
	}
	return nil
}

// SafetyConfig returns the safety engine thresholds.
func (c *Config) SafetyConfig() safety.Config {
	cfg := safety.DefaultConfig()
	cfg.MaxTop10HoldersPercent = c.Safety.MaxTop10HoldersPercent
	cfg.MinLiquidityUSD = c.Safety.MinLiquidityUSD
	cfg.MaxSellTax = c.Safety.MaxSellTax
	cfg.MaxBuyTax = c.Safety.MaxBuyTax
	cfg.RequireLiquidityLocked = c.Safety.RequireLiquidityLocked
	cfg.MinHolders = c.Safety.MinHolders
	if c.Safety.CheckTimeout > 0 {
		cfg.CheckTimeout = c.Safety.CheckTimeout
	}
	return cfg
}

// OrderConfig returns the order service settings.
func (c *Config) OrderConfig() order.Config {
	cfg := order.DefaultConfig()
	cfg.MaxConsecutiveLosses = c.Monitor.MaxConsecutiveLosses
	cfg.MinSafetyScore = c.Safety.MinScore
	cfg.Safety = c.SafetyConfig()
	cfg.DefaultExits = c.ExitConfig()
	return cfg
}

// MonitorConfig returns the sweep settings.
func (c *Config) MonitorConfig() order.MonitorConfig {
	return order.MonitorConfig{
		Concurrency:  c.Monitor.Concurrency,
		OrderDelay:   c.Monitor.OrderDelay,
		PriceTimeout: c.Monitor.PriceTimeout,
	}
}

// ScannerConfig returns the scanner filters.
func (c *Config) ScannerConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.MinAgeMinutes = c.Scanner.MinAgeMinutes
	cfg.MaxAgeMinutes = c.Scanner.MaxAgeMinutes
	cfg.MinLiquidityUSD = c.Scanner.MinLiquidityUSD
	cfg.MinPriceChange5m = c.Scanner.MinPriceChange5m
	cfg.ItemDelay = c.Scanner.ItemDelay
	cfg.MaxCandidates = c.Scanner.MaxCandidates
	cfg.Safety = c.SafetyConfig()
	return cfg
}

// ExecutionConfig returns the swap pipeline settings.
func (c *Config) ExecutionConfig() execution.Config {
	cfg := execution.DefaultConfig()
	cfg.DefaultSlippageBps = c.Execution.DefaultSlippageBps
	cfg.MaxBuildAttempts = c.Execution.MaxBuildAttempts
	return cfg
}

// ExitConfig returns the default take-profit and stop-loss distances.
func (c *Config) ExitConfig() execution.ExitConfig {
	return execution.ExitConfig{
		TakeProfitPercent: c.Execution.TakeProfitPercent,
		StopLossPercent:   c.Execution.StopLossPercent,
	}
}

// RPCServiceConfig returns the RPC service settings with the API key applied.
func (c *Config) RPCServiceConfig() rpcservice.Config {
	cfg := rpcservice.DefaultConfig()
	cfg.PremiumURL = rpcservice.PremiumURL(c.RPC.PremiumURL, c.RPC.PremiumAPIKey)
	cfg.HealthTimeout = c.RPC.Timeout
	return cfg
}
