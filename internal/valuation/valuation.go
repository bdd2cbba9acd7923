// Package valuation implements the NAV / mNAV calculation engine for a
// company holding ETH and BTC treasuries.
//
// The engine is a pure function of the static treasury parameters and one
// snapshot of live prices:
//   - NAV = ETH value + BTC value + cash + other assets
//   - mNAV = market cap / NAV (premium or discount to treasury value)
//   - ex-cash variants isolate the crypto-backed part of NAV
//   - staking yield is annualized on the staked ETH only
//
// It holds no state and performs no I/O, so it is safe for concurrent use.
// A zero price is the feed's "unavailable" sentinel and is rejected for the
// equity and ETH legs. A missing BTC price contributes zero value instead of
// failing, since BTC is a small fraction of the treasury.
package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/mnavtrack/nav-engine/internal/model"
)

var (
	// ErrInvalidInput is returned when a required live price is missing
	// (zero sentinel), negative or NaN.
	ErrInvalidInput = errors.New("valuation: insufficient price data")

	// ErrDivision is returned when a divisor is non-positive or a quotient
	// would not be a finite number.
	ErrDivision = errors.New("valuation: non-positive divisor")
)

// Compute derives all metrics from params and prices. On failure the
// returned Metrics is the zero value.
func Compute(params model.TreasuryParameters, prices model.MarketPrices) (model.Metrics, error) {
	if !(prices.EquityPrice > 0) {
		return model.Metrics{}, fmt.Errorf("%w: equity price %v", ErrInvalidInput, prices.EquityPrice)
	}
	if !(prices.ETHPrice > 0) {
		return model.Metrics{}, fmt.Errorf("%w: eth price %v", ErrInvalidInput, prices.ETHPrice)
	}

	btcPrice := prices.BTCPrice
	if !(btcPrice > 0) {
		btcPrice = 0
	}

	shares := params.SharesOutstanding
	if !(shares > 0) {
		return model.Metrics{}, fmt.Errorf("%w: shares outstanding %v", ErrDivision, shares)
	}

	ethValue := params.ETHHolding * prices.ETHPrice
	btcValue := params.BTCHolding * btcPrice
	totalNAV := ethValue + btcValue + params.CashReserve + params.OtherAssetValue
	if !(totalNAV > 0) {
		return model.Metrics{}, fmt.Errorf("%w: total nav %v", ErrDivision, totalNAV)
	}

	navNoCash := totalNAV - params.CashReserve
	if !(navNoCash > 0) {
		return model.Metrics{}, fmt.Errorf("%w: nav ex-cash %v", ErrDivision, navNoCash)
	}

	marketCap := prices.EquityPrice * shares
	stakingYield := (params.ETHStaked * params.StakingAPR) * prices.ETHPrice

	m := model.Metrics{
		ETHValue:              ethValue,
		BTCValue:              btcValue,
		TotalNAV:              totalNAV,
		MarketCap:             marketCap,
		NAVPerShare:           totalNAV / shares,
		MNAVMultiple:          marketCap / totalNAV,
		NAVPerShareExCash:     navNoCash / shares,
		MNAVMultipleExCash:    marketCap / navNoCash,
		ETHPerShare:           params.ETHHolding / shares,
		AnnualStakingYieldUSD: stakingYield,
		YieldPerShare:         stakingYield / shares,
	}

	if err := checkFinite(m); err != nil {
		return model.Metrics{}, err
	}
	return m, nil
}

// checkFinite rejects results that overflowed, e.g. a share count so close
// to zero that a per-share quotient leaves the float64 range.
func checkFinite(m model.Metrics) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"eth_value", m.ETHValue},
		{"btc_value", m.BTCValue},
		{"total_nav", m.TotalNAV},
		{"market_cap", m.MarketCap},
		{"nav_per_share", m.NAVPerShare},
		{"mnav_multiple", m.MNAVMultiple},
		{"nav_per_share_ex_cash", m.NAVPerShareExCash},
		{"mnav_multiple_ex_cash", m.MNAVMultipleExCash},
		{"eth_per_share", m.ETHPerShare},
		{"annual_staking_yield_usd", m.AnnualStakingYieldUSD},
		{"yield_per_share", m.YieldPerShare},
	}
	for _, f := range fields {
		if math.IsInf(f.v, 0) || math.IsNaN(f.v) {
			return fmt.Errorf("%w: %s is not finite", ErrDivision, f.name)
		}
	}
	return nil
}
