// Package config defines the top-level configuration for the arbitrage
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBITER_* environment
// variables.
type Config struct {
	Store      StoreConfig      `toml:"store"`
	Trading    TradingConfig    `toml:"trading"`
	Stream     StreamConfig     `toml:"stream"`
	Triangular TriangularConfig `toml:"triangular"`
	Execution  ExecutionConfig  `toml:"execution"`
	Dedup      DedupConfig      `toml:"dedup"`
	Balances   BalancesConfig   `toml:"balances"`
	Redis      RedisConfig      `toml:"redis"`
	Notify     NotifyConfig     `toml:"notify"`
	Watcher    WatcherConfig    `toml:"watcher"`
	Stats      StatsConfig      `toml:"stats"`
	LogLevel   string           `toml:"log_level"`
}

// StoreConfig holds the external entity-store endpoint and credential. The
// app token doubles as the trade-entrypoint auth key.
type StoreConfig struct {
	BaseURL  string   `toml:"base_url"`
	AppToken string   `toml:"app_token"`
	Timeout  duration `toml:"timeout"`
}

// TradingConfig holds symbols and profitability thresholds.
type TradingConfig struct {
	Symbols []string `toml:"symbols"`
	// MinProfitThreshold is the engine-level minimum net profit percentage.
	MinProfitThreshold float64 `toml:"min_profit_threshold"`
	// StrategyMinProfit is the strategy-level threshold; an opportunity must
	// clear the greater of the two before being persisted.
	StrategyMinProfit float64 `toml:"strategy_min_profit"`
	// TradeNotional is the simulated trade size in quote units used by the
	// detectors.
	TradeNotional float64 `toml:"trade_notional"`
	// PerSideFeeRate is the taker fee estimate applied per side.
	PerSideFeeRate float64 `toml:"per_side_fee_rate"`
	// MaxTradeAmount is the default execution notional when a trade request
	// carries no amount.
	MaxTradeAmount float64 `toml:"max_trade_amount"`
	// ScanInterval is the cross-exchange detector cycle.
	ScanInterval duration `toml:"scan_interval"`
}

// StreamConfig holds order-book stream reconnect parameters.
type StreamConfig struct {
	ReconnectDelay    duration `toml:"reconnect_delay"`
	MaxReconnectDelay duration `toml:"max_reconnect_delay"`
}

// TriangularConfig holds triangular scanner parameters.
type TriangularConfig struct {
	// FeeMultiplier is applied once per leg (0.999 = 0.1% fee).
	FeeMultiplier float64 `toml:"fee_multiplier"`
	// PriorityAssets bound path generation: a cycle must touch at least one.
	PriorityAssets []string `toml:"priority_assets"`
	// MaxSymbols caps the number of watched symbols per venue.
	MaxSymbols int `toml:"max_symbols"`
	// MaxConcurrentEvals bounds the per-venue re-evaluation pool.
	MaxConcurrentEvals int64 `toml:"max_concurrent_evals"`
	// InitialNotional is the starting amount for cycle evaluation.
	InitialNotional float64 `toml:"initial_notional"`
}

// ExecutionConfig holds execution guards and transfer-arbitrage timing.
type ExecutionConfig struct {
	SlippageTolerance float64 `toml:"slippage_tolerance"`
	// MaxOpportunityAge rejects opportunities older than this at execution.
	MaxOpportunityAge   duration `toml:"max_opportunity_age"`
	DepositPollInterval duration `toml:"deposit_poll_interval"`
	DepositMaxWait      duration `toml:"deposit_max_wait"`
	// DepositTolerance scales the expected deposit amount to absorb network
	// fee variance. The 0.98 default mirrors the source system and is kept
	// configurable pending a documented tolerance model.
	DepositTolerance float64 `toml:"deposit_tolerance"`
}

// DedupConfig holds the opportunity seen-set parameters.
type DedupConfig struct {
	TTL duration `toml:"ttl"`
	// Backend selects the seen-set implementation: "memory" or "redis".
	Backend string `toml:"backend"`
}

// BalancesConfig holds the balance tracker cycle parameters.
type BalancesConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	InitialDelay    duration `toml:"initial_delay"`
	MaxRetries      int      `toml:"max_retries"`
}

// RedisConfig holds Redis connection parameters (dedup backend).
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// WatcherConfig holds the exchange-config change poller parameters.
type WatcherConfig struct {
	PollInterval duration `toml:"poll_interval"`
}

// StatsConfig holds the periodic stats reporter parameters.
type StatsConfig struct {
	Interval duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			Timeout: duration{8 * time.Second},
		},
		Trading: TradingConfig{
			Symbols:            []string{"FIL/USDT", "QTUM/USDT", "DOT/USDT", "XRP/USDT", "ADA/USDT"},
			MinProfitThreshold: 0.3,
			StrategyMinProfit:  0.3,
			TradeNotional:      1000,
			PerSideFeeRate:     0.002,
			MaxTradeAmount:     1000,
			ScanInterval:       duration{2 * time.Second},
		},
		Stream: StreamConfig{
			ReconnectDelay:    duration{30 * time.Second},
			MaxReconnectDelay: duration{300 * time.Second},
		},
		Triangular: TriangularConfig{
			FeeMultiplier:      0.999,
			PriorityAssets:     []string{"USDT", "BTC", "ETH", "BNB", "USDC"},
			MaxSymbols:         20,
			MaxConcurrentEvals: 8,
			InitialNotional:    1000,
		},
		Execution: ExecutionConfig{
			SlippageTolerance:   0.005,
			MaxOpportunityAge:   duration{10 * time.Second},
			DepositPollInterval: duration{10 * time.Second},
			DepositMaxWait:      duration{600 * time.Second},
			DepositTolerance:    0.98,
		},
		Dedup: DedupConfig{
			TTL:     duration{60 * time.Second},
			Backend: "memory",
		},
		Balances: BalancesConfig{
			RefreshInterval: duration{5 * time.Minute},
			InitialDelay:    duration{5 * time.Second},
			MaxRetries:      3,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		Watcher: WatcherConfig{
			PollInterval: duration{30 * time.Minute},
		},
		Stats: StatsConfig{
			Interval: duration{60 * time.Second},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if strings.TrimSpace(c.Store.BaseURL) == "" {
		errs = append(errs, "store: base_url must not be empty")
	}
	if strings.TrimSpace(c.Store.AppToken) == "" {
		errs = append(errs, "store: app_token must not be empty")
	}

	if len(c.Trading.Symbols) == 0 {
		errs = append(errs, "trading: symbols must not be empty")
	}
	for _, s := range c.Trading.Symbols {
		if !strings.Contains(s, "/") {
			errs = append(errs, fmt.Sprintf("trading: symbol %q is not BASE/QUOTE", s))
		}
	}
	if c.Trading.MinProfitThreshold < 0 {
		errs = append(errs, "trading: min_profit_threshold must be >= 0")
	}
	if c.Trading.TradeNotional <= 0 {
		errs = append(errs, "trading: trade_notional must be > 0")
	}
	if c.Trading.PerSideFeeRate < 0 || c.Trading.PerSideFeeRate >= 1 {
		errs = append(errs, "trading: per_side_fee_rate must be in [0, 1)")
	}
	if c.Trading.MaxTradeAmount <= 0 {
		errs = append(errs, "trading: max_trade_amount must be > 0")
	}
	if c.Trading.ScanInterval.Duration <= 0 {
		errs = append(errs, "trading: scan_interval must be > 0")
	}

	if c.Stream.ReconnectDelay.Duration <= 0 {
		errs = append(errs, "stream: reconnect_delay must be > 0")
	}
	if c.Stream.MaxReconnectDelay.Duration < c.Stream.ReconnectDelay.Duration {
		errs = append(errs, "stream: max_reconnect_delay must be >= reconnect_delay")
	}

	if c.Triangular.FeeMultiplier <= 0 || c.Triangular.FeeMultiplier > 1 {
		errs = append(errs, "triangular: fee_multiplier must be in (0, 1]")
	}
	if c.Triangular.MaxConcurrentEvals < 1 {
		errs = append(errs, "triangular: max_concurrent_evals must be >= 1")
	}
	if c.Triangular.InitialNotional <= 0 {
		errs = append(errs, "triangular: initial_notional must be > 0")
	}

	if c.Execution.SlippageTolerance <= 0 || c.Execution.SlippageTolerance >= 1 {
		errs = append(errs, "execution: slippage_tolerance must be in (0, 1)")
	}
	if c.Execution.MaxOpportunityAge.Duration <= 0 {
		errs = append(errs, "execution: max_opportunity_age must be > 0")
	}
	if c.Execution.DepositPollInterval.Duration <= 0 {
		errs = append(errs, "execution: deposit_poll_interval must be > 0")
	}
	if c.Execution.DepositMaxWait.Duration < c.Execution.DepositPollInterval.Duration {
		errs = append(errs, "execution: deposit_max_wait must be >= deposit_poll_interval")
	}
	if c.Execution.DepositTolerance <= 0 || c.Execution.DepositTolerance > 1 {
		errs = append(errs, "execution: deposit_tolerance must be in (0, 1]")
	}

	if c.Dedup.TTL.Duration <= 0 {
		errs = append(errs, "dedup: ttl must be > 0")
	}
	switch c.Dedup.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("dedup: unknown backend %q (valid: memory, redis)", c.Dedup.Backend))
	}
	if c.Dedup.Backend == "redis" && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when dedup backend is redis")
	}

	if c.Balances.RefreshInterval.Duration <= 0 {
		errs = append(errs, "balances: refresh_interval must be > 0")
	}
	if c.Balances.MaxRetries < 1 {
		errs = append(errs, "balances: max_retries must be >= 1")
	}

	tgToken := c.Notify.TelegramToken != ""
	tgChat := c.Notify.TelegramChatID != ""
	if tgToken != tgChat {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if c.Watcher.PollInterval.Duration <= 0 {
		errs = append(errs, "watcher: poll_interval must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
