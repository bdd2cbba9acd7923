// Package model defines the core domain types shared across the NAV engine.
// Valuation math runs on float64; display values in the breakdown table are
// rounded with shopspring/decimal.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidTreasury is returned by TreasuryParameters.Validate.
var ErrInvalidTreasury = errors.New("model: invalid treasury parameters")

// TreasuryParameters are the static balance-sheet figures of the tracked
// company. Immutable for the duration of one valuation.
type TreasuryParameters struct {
	Name              string  `json:"name" toml:"name"`
	EquitySymbol      string  `json:"equity_symbol" toml:"equity_symbol"`
	ETHSymbol         string  `json:"eth_symbol" toml:"eth_symbol"`
	BTCSymbol         string  `json:"btc_symbol" toml:"btc_symbol"`
	SharesOutstanding float64 `json:"shares_outstanding" toml:"shares_outstanding"`
	CashReserve       float64 `json:"cash_reserve" toml:"cash_reserve"`
	OtherAssetValue   float64 `json:"other_asset_value" toml:"other_asset_value"`
	BTCHolding        float64 `json:"btc_holding" toml:"btc_holding"`
	ETHHolding        float64 `json:"eth_holding" toml:"eth_holding"`
	ETHStaked         float64 `json:"eth_staked" toml:"eth_staked"`
	StakingAPR        float64 `json:"staking_apr" toml:"staking_apr"` // annual rate in [0,1]
}

// Validate checks the business sanity rules the valuation engine trusts
// its caller to enforce.
func (p TreasuryParameters) Validate() error {
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"cash_reserve", p.CashReserve},
		{"other_asset_value", p.OtherAssetValue},
		{"btc_holding", p.BTCHolding},
		{"eth_holding", p.ETHHolding},
		{"eth_staked", p.ETHStaked},
	}

	if !(p.SharesOutstanding > 0) || math.IsInf(p.SharesOutstanding, 0) {
		return fmt.Errorf("%w: shares_outstanding must be positive", ErrInvalidTreasury)
	}
	for _, f := range nonNegative {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidTreasury, f.name)
		}
	}
	if p.ETHStaked > p.ETHHolding {
		return fmt.Errorf("%w: eth_staked (%g) exceeds eth_holding (%g)",
			ErrInvalidTreasury, p.ETHStaked, p.ETHHolding)
	}
	if !(p.StakingAPR >= 0 && p.StakingAPR <= 1) {
		return fmt.Errorf("%w: staking_apr must be within [0,1]", ErrInvalidTreasury)
	}
	if p.EquitySymbol == "" || p.ETHSymbol == "" || p.BTCSymbol == "" {
		return fmt.Errorf("%w: equity, eth and btc symbols are required", ErrInvalidTreasury)
	}
	return nil
}

// MarketPrices is one snapshot of live prices. A zero price means the feed
// could not supply a value.
type MarketPrices struct {
	EquityPrice float64 `json:"equity_price"`
	ETHPrice    float64 `json:"eth_price"`
	BTCPrice    float64 `json:"btc_price"`
}

// Metrics are the derived per-share valuation figures. Recomputed on every
// refresh, never persisted.
type Metrics struct {
	ETHValue              float64 `json:"eth_value"`
	BTCValue              float64 `json:"btc_value"`
	TotalNAV              float64 `json:"total_nav"`
	MarketCap             float64 `json:"market_cap"`
	NAVPerShare           float64 `json:"nav_per_share"`
	MNAVMultiple          float64 `json:"mnav_multiple"`
	NAVPerShareExCash     float64 `json:"nav_per_share_ex_cash"`
	MNAVMultipleExCash    float64 `json:"mnav_multiple_ex_cash"`
	ETHPerShare           float64 `json:"eth_per_share"`
	AnnualStakingYieldUSD float64 `json:"annual_staking_yield_usd"`
	YieldPerShare         float64 `json:"yield_per_share"`
}

// BreakdownRow is one line of the per-asset holdings table.
type BreakdownRow struct {
	Asset      string          `json:"asset"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"` // live price; 1 for cash-like rows
	TotalValue decimal.Decimal `json:"total_value"`
}
