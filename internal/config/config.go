// Package config defines the configuration for the mNAV tracker and provides
// validation helpers.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // display timezones must resolve on minimal images

	"github.com/mnavtrack/nav-engine/internal/band"
	"github.com/mnavtrack/nav-engine/internal/feed"
	"github.com/mnavtrack/nav-engine/internal/model"
	"github.com/mnavtrack/nav-engine/internal/symbol"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MNAV_* environment variables.
type Config struct {
	Server   ServerConfig             `toml:"server"`
	Feed     FeedConfig               `toml:"feed"`
	Postgres PostgresConfig           `toml:"postgres"`
	Redis    RedisConfig              `toml:"redis"`
	Band     BandConfig               `toml:"band"`
	Treasury model.TreasuryParameters `toml:"treasury"`
	Display  DisplayConfig            `toml:"display"`
	LogLevel string                   `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	IdleTimeout     duration `toml:"idle_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// FeedConfig controls the price feed and the refresh schedule.
type FeedConfig struct {
	BaseURL         string   `toml:"base_url"`
	Timeout         duration `toml:"timeout"`
	CacheTTL        duration `toml:"cache_ttl"`
	RefreshInterval duration `toml:"refresh_interval"`
}

// PostgresConfig holds the treasury store connection. Empty URL selects the
// in-memory store.
type PostgresConfig struct {
	URL string `toml:"url"`
}

// RedisConfig holds the cache connection. Empty URL keeps caches in process.
type RedisConfig struct {
	URL         string   `toml:"url"`
	TreasuryTTL duration `toml:"treasury_ttl"`
}

// BandConfig is the mNAV par window.
type BandConfig struct {
	Lower float64 `toml:"lower"`
	Upper float64 `toml:"upper"`
}

// DisplayConfig controls how timestamps are rendered for humans.
type DisplayConfig struct {
	Timezone string `toml:"timezone"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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

// Defaults returns a Config populated with sensible defaults. The treasury
// block describes BMNR's disclosed holdings.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     duration{10 * time.Second},
			WriteTimeout:    duration{10 * time.Second},
			IdleTimeout:     duration{60 * time.Second},
			ShutdownTimeout: duration{5 * time.Second},
		},
		Feed: FeedConfig{
			BaseURL:         feed.DefaultYahooBaseURL,
			Timeout:         duration{5 * time.Second},
			CacheTTL:        duration{15 * time.Second},
			RefreshInterval: duration{60 * time.Second},
		},
		Redis: RedisConfig{
			TreasuryTTL: duration{30 * time.Second},
		},
		Band: BandConfig{
			Lower: 0.95,
			Upper: 1.05,
		},
		Treasury: model.TreasuryParameters{
			Name:              "BitMine Immersion Technologies",
			EquitySymbol:      "BMNR",
			ETHSymbol:         "ETH-USD",
			BTCSymbol:         "BTC-USD",
			SharesOutstanding: 431_344_812,
			CashReserve:       1_000_000_000,
			OtherAssetValue:   32_000_000,
			BTCHolding:        193,
			ETHHolding:        4_066_062,
			ETHStaked:         342_560,
			StakingAPR:        0.03,
		},
		Display: DisplayConfig{
			Timezone: "America/New_York",
		},
		LogLevel: "info",
	}
}

// validLogLevels maps the accepted values for Config.LogLevel to slog levels.
var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the slog level for LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	if lvl, ok := validLogLevels[strings.ToLower(c.LogLevel)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// Location loads the display timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Display.Timezone)
}

// Classifier builds the band classifier from the configured thresholds.
func (c *Config) Classifier() (*band.Classifier, error) {
	return band.NewClassifier(c.Band.Lower, c.Band.Upper)
}

// Validate checks that the configuration is internally consistent. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if _, ok := validLogLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		errs = append(errs, "server: shutdown_timeout must be > 0")
	}

	// Feed
	if c.Feed.BaseURL == "" {
		errs = append(errs, "feed: base_url must not be empty")
	}
	if c.Feed.Timeout.Duration <= 0 {
		errs = append(errs, "feed: timeout must be > 0")
	}
	if c.Feed.CacheTTL.Duration < 0 {
		errs = append(errs, "feed: cache_ttl must be >= 0")
	}
	if c.Feed.RefreshInterval.Duration <= 0 {
		errs = append(errs, "feed: refresh_interval must be > 0")
	}

	// Band
	if _, err := c.Classifier(); err != nil {
		errs = append(errs, fmt.Sprintf("band: %v (got lower=%v upper=%v)", err, c.Band.Lower, c.Band.Upper))
	}

	// Treasury
	if err := c.Treasury.Validate(); err != nil {
		errs = append(errs, "treasury: "+err.Error())
	}
	if err := symbol.ValidateSet(c.Treasury.EquitySymbol, c.Treasury.ETHSymbol, c.Treasury.BTCSymbol); err != nil {
		errs = append(errs, "treasury: "+err.Error())
	}

	// Display
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("display: unknown timezone %q", c.Display.Timezone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
