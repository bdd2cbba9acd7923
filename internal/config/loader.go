package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/mnavtrack/nav-engine/internal/symbol"
)

// Load merges the TOML file at path (skipped when path is empty) on top of
// the built-in defaults, applies MNAV_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	for _, f := range []*string{&cfg.Treasury.EquitySymbol, &cfg.Treasury.ETHSymbol, &cfg.Treasury.BTCSymbol} {
		*f = symbol.Normalize(*f)
	}

	return &cfg, nil
}

// applyEnvOverrides reads well-known MNAV_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "PORT") // platform convention
	setInt(&cfg.Server.Port, "MNAV_SERVER_PORT")
	setDuration(&cfg.Server.ReadTimeout, "MNAV_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "MNAV_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "MNAV_SERVER_SHUTDOWN_TIMEOUT")

	// ── Feed ──
	setStr(&cfg.Feed.BaseURL, "MNAV_FEED_BASE_URL")
	setDuration(&cfg.Feed.Timeout, "MNAV_FEED_TIMEOUT")
	setDuration(&cfg.Feed.CacheTTL, "MNAV_FEED_CACHE_TTL")
	setDuration(&cfg.Feed.RefreshInterval, "MNAV_FEED_REFRESH_INTERVAL")

	// ── Stores ──
	setStr(&cfg.Postgres.URL, "DATABASE_URL")
	setStr(&cfg.Postgres.URL, "MNAV_POSTGRES_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Redis.URL, "MNAV_REDIS_URL")
	setDuration(&cfg.Redis.TreasuryTTL, "MNAV_REDIS_TREASURY_TTL")

	// ── Band ──
	setFloat64(&cfg.Band.Lower, "MNAV_BAND_LOWER")
	setFloat64(&cfg.Band.Upper, "MNAV_BAND_UPPER")

	// ── Treasury ──
	setStr(&cfg.Treasury.Name, "MNAV_TREASURY_NAME")
	setStr(&cfg.Treasury.EquitySymbol, "MNAV_TREASURY_EQUITY_SYMBOL")
	setStr(&cfg.Treasury.ETHSymbol, "MNAV_TREASURY_ETH_SYMBOL")
	setStr(&cfg.Treasury.BTCSymbol, "MNAV_TREASURY_BTC_SYMBOL")
	setFloat64(&cfg.Treasury.SharesOutstanding, "MNAV_TREASURY_SHARES_OUTSTANDING")
	setFloat64(&cfg.Treasury.CashReserve, "MNAV_TREASURY_CASH_RESERVE")
	setFloat64(&cfg.Treasury.OtherAssetValue, "MNAV_TREASURY_OTHER_ASSET_VALUE")
	setFloat64(&cfg.Treasury.BTCHolding, "MNAV_TREASURY_BTC_HOLDING")
	setFloat64(&cfg.Treasury.ETHHolding, "MNAV_TREASURY_ETH_HOLDING")
	setFloat64(&cfg.Treasury.ETHStaked, "MNAV_TREASURY_ETH_STAKED")
	setFloat64(&cfg.Treasury.StakingAPR, "MNAV_TREASURY_STAKING_APR")

	// ── Misc ──
	setStr(&cfg.Display.Timezone, "MNAV_DISPLAY_TIMEZONE")
	setStr(&cfg.LogLevel, "MNAV_LOG_LEVEL")
}

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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
