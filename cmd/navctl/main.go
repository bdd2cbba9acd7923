// navctl fetches live prices once, runs the mNAV valuation and prints the
// metrics and holdings breakdown.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnavtrack/nav-engine/internal/config"
	"github.com/mnavtrack/nav-engine/internal/feed"
	"github.com/mnavtrack/nav-engine/internal/valuation"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "navctl",
	Short:         "Compute NAV and mNAV for a crypto treasury company",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (TOML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(treasuryCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "navctl %s (%s)\n", version, commit)
	},
}

// --- Compute Command ---

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Fetch prices and print NAV, mNAV and the holdings breakdown",
	Long: `Fetch the equity, ETH and BTC prices, run the valuation against the
configured treasury and print the result.

Passing any of --equity-price, --eth-price or --btc-price runs offline:
only the given prices are used and the feed is not contacted.

Examples:
  navctl compute
  navctl compute --config configs/mnav.toml --json
  navctl compute --equity-price 50 --eth-price 3000 --btc-price 90000`,
	RunE: runCompute,
}

func init() {
	computeCmd.Flags().Float64("equity-price", 0, "equity price override (offline mode)")
	computeCmd.Flags().Float64("eth-price", 0, "ETH price override (offline mode)")
	computeCmd.Flags().Float64("btc-price", 0, "BTC price override (offline mode)")
	computeCmd.Flags().Bool("json", false, "print JSON instead of tables")
}

func runCompute(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Feed.Timeout.Duration)
	defer cancel()

	params := cfg.Treasury
	prices, avail := feed.FetchPrices(ctx, priceFeed(cmd), params)
	for sym, msg := range avail.Errors {
		slog.Warn("price unavailable", "symbol", sym, "err", msg)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	now := time.Now()

	m, err := valuation.Compute(params, prices)
	if errors.Is(err, valuation.ErrInvalidInput) {
		return fmt.Errorf("awaiting data: %w", err)
	}
	if err != nil {
		return err
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		return err
	}

	report := Report{
		Treasury:  params,
		Prices:    prices,
		Metrics:   m,
		Breakdown: valuation.Breakdown(params, prices, m),
		Band:      classifier.Classify(m.MNAVMultiple),
		AsOf:      now.In(loc),
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderReport(out, report)
	return nil
}

// priceFeed returns a static feed when any price flag was given, otherwise
// the live Yahoo feed.
func priceFeed(cmd *cobra.Command) feed.Feed {
	overrides := map[string]float64{}
	for flag, sym := range map[string]string{
		"equity-price": cfg.Treasury.EquitySymbol,
		"eth-price":    cfg.Treasury.ETHSymbol,
		"btc-price":    cfg.Treasury.BTCSymbol,
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetFloat64(flag)
			overrides[sym] = v
		}
	}
	if len(overrides) > 0 {
		slog.Debug("offline mode", "prices", overrides)
		return feed.NewStaticFeed(overrides)
	}
	return feed.NewYahooFeed(cfg.Feed.BaseURL, cfg.Feed.Timeout.Duration)
}

// --- Treasury Command ---

var treasuryCmd = &cobra.Command{
	Use:   "treasury",
	Short: "Print the effective treasury parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		renderTreasury(cmd.OutOrStdout(), cfg.Treasury)
		return nil
	},
}
