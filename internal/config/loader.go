package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBITER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBITER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Store ──
	setStr(&cfg.Store.BaseURL, "ARBITER_STORE_BASE_URL")
	setStr(&cfg.Store.AppToken, "ARBITER_STORE_APP_TOKEN")
	setDuration(&cfg.Store.Timeout, "ARBITER_STORE_TIMEOUT")

	// ── Trading ──
	setStringSlice(&cfg.Trading.Symbols, "ARBITER_TRADING_SYMBOLS")
	setFloat64(&cfg.Trading.MinProfitThreshold, "ARBITER_TRADING_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Trading.StrategyMinProfit, "ARBITER_TRADING_STRATEGY_MIN_PROFIT")
	setFloat64(&cfg.Trading.TradeNotional, "ARBITER_TRADING_TRADE_NOTIONAL")
	setFloat64(&cfg.Trading.PerSideFeeRate, "ARBITER_TRADING_PER_SIDE_FEE_RATE")
	setFloat64(&cfg.Trading.MaxTradeAmount, "ARBITER_TRADING_MAX_TRADE_AMOUNT")
	setDuration(&cfg.Trading.ScanInterval, "ARBITER_TRADING_SCAN_INTERVAL")

	// ── Stream ──
	setDuration(&cfg.Stream.ReconnectDelay, "ARBITER_STREAM_RECONNECT_DELAY")
	setDuration(&cfg.Stream.MaxReconnectDelay, "ARBITER_STREAM_MAX_RECONNECT_DELAY")

	// ── Triangular ──
	setFloat64(&cfg.Triangular.FeeMultiplier, "ARBITER_TRIANGULAR_FEE_MULTIPLIER")
	setStringSlice(&cfg.Triangular.PriorityAssets, "ARBITER_TRIANGULAR_PRIORITY_ASSETS")
	setInt(&cfg.Triangular.MaxSymbols, "ARBITER_TRIANGULAR_MAX_SYMBOLS")
	setInt64(&cfg.Triangular.MaxConcurrentEvals, "ARBITER_TRIANGULAR_MAX_CONCURRENT_EVALS")
	setFloat64(&cfg.Triangular.InitialNotional, "ARBITER_TRIANGULAR_INITIAL_NOTIONAL")

	// ── Execution ──
	setFloat64(&cfg.Execution.SlippageTolerance, "ARBITER_EXECUTION_SLIPPAGE_TOLERANCE")
	setDuration(&cfg.Execution.MaxOpportunityAge, "ARBITER_EXECUTION_MAX_OPPORTUNITY_AGE")
	setDuration(&cfg.Execution.DepositPollInterval, "ARBITER_EXECUTION_DEPOSIT_POLL_INTERVAL")
	setDuration(&cfg.Execution.DepositMaxWait, "ARBITER_EXECUTION_DEPOSIT_MAX_WAIT")
	setFloat64(&cfg.Execution.DepositTolerance, "ARBITER_EXECUTION_DEPOSIT_TOLERANCE")

	// ── Dedup ──
	setDuration(&cfg.Dedup.TTL, "ARBITER_DEDUP_TTL")
	setStr(&cfg.Dedup.Backend, "ARBITER_DEDUP_BACKEND")

	// ── Balances ──
	setDuration(&cfg.Balances.RefreshInterval, "ARBITER_BALANCES_REFRESH_INTERVAL")
	setDuration(&cfg.Balances.InitialDelay, "ARBITER_BALANCES_INITIAL_DELAY")
	setInt(&cfg.Balances.MaxRetries, "ARBITER_BALANCES_MAX_RETRIES")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBITER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBITER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBITER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBITER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBITER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBITER_REDIS_TLS_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBITER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBITER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBITER_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Watcher / stats ──
	setDuration(&cfg.Watcher.PollInterval, "ARBITER_WATCHER_POLL_INTERVAL")
	setDuration(&cfg.Stats.Interval, "ARBITER_STATS_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ARBITER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
