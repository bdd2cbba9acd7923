package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/mnavtrack/nav-engine/internal/band"
	"github.com/mnavtrack/nav-engine/internal/model"
	"github.com/mnavtrack/nav-engine/internal/valuation"
)

// Report is one computed valuation as printed by compute.
type Report struct {
	Treasury  model.TreasuryParameters `json:"treasury"`
	Prices    model.MarketPrices       `json:"prices"`
	Metrics   model.Metrics            `json:"metrics"`
	Breakdown []model.BreakdownRow     `json:"breakdown"`
	Band      band.Band                `json:"band"`
	AsOf      time.Time                `json:"as_of"`
}

const timeLayout = "2006-01-02 15:04:05 MST"

func renderReport(w io.Writer, r Report) {
	name := r.Treasury.Name
	if name == "" {
		name = r.Treasury.EquitySymbol
	}
	fmt.Fprintf(w, "%s (%s) as of %s\n\n", name, r.Treasury.EquitySymbol, r.AsOf.Format(timeLayout))

	m := r.Metrics
	metrics := tablewriter.NewWriter(w)
	metrics.SetHeader([]string{"Metric", "Value"})
	metrics.SetAlignment(tablewriter.ALIGN_RIGHT)
	metrics.AppendBulk([][]string{
		{"Stock price", usd(r.Prices.EquityPrice, 2)},
		{"ETH price", usd(r.Prices.ETHPrice, 2)},
		{"BTC price", usd(r.Prices.BTCPrice, 2)},
		{"Market cap", usd(m.MarketCap, 0)},
		{"Total NAV", usd(m.TotalNAV, 0)},
		{"NAV per share", usd(m.NAVPerShare, 2)},
		{"mNAV", multiple(m.MNAVMultiple)},
		{"NAV per share (ex-cash)", usd(m.NAVPerShareExCash, 2)},
		{"mNAV (ex-cash)", multiple(m.MNAVMultipleExCash)},
		{"ETH per share", decimal.NewFromFloat(m.ETHPerShare).StringFixed(6)},
		{"Annual staking yield", usd(m.AnnualStakingYieldUSD, 0)},
		{"Yield per share", usd(m.YieldPerShare, 4)},
		{"Band", string(r.Band)},
	})
	metrics.Render()
	fmt.Fprintln(w)

	breakdown := tablewriter.NewWriter(w)
	breakdown.SetHeader([]string{"Asset", "Quantity", "Price", "Total Value"})
	breakdown.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range r.Breakdown {
		breakdown.Append([]string{
			row.Asset,
			row.Quantity.StringFixed(valuation.QuantityScale),
			row.Price.StringFixed(valuation.MoneyScale),
			row.TotalValue.StringFixed(valuation.MoneyScale),
		})
	}
	breakdown.SetFooter([]string{"", "", "Total", valuation.Total(r.Breakdown).StringFixed(valuation.MoneyScale)})
	breakdown.Render()
}

func renderTreasury(w io.Writer, p model.TreasuryParameters) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Parameter", "Value"})
	t.AppendBulk([][]string{
		{"name", p.Name},
		{"equity_symbol", p.EquitySymbol},
		{"eth_symbol", p.ETHSymbol},
		{"btc_symbol", p.BTCSymbol},
		{"shares_outstanding", decimal.NewFromFloat(p.SharesOutstanding).String()},
		{"cash_reserve", usd(p.CashReserve, 0)},
		{"other_asset_value", usd(p.OtherAssetValue, 0)},
		{"btc_holding", decimal.NewFromFloat(p.BTCHolding).String()},
		{"eth_holding", decimal.NewFromFloat(p.ETHHolding).String()},
		{"eth_staked", decimal.NewFromFloat(p.ETHStaked).String()},
		{"staking_apr", decimal.NewFromFloat(p.StakingAPR).Shift(2).String() + "%"},
	})
	t.Render()
}

func usd(v float64, places int32) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(places)
}

func multiple(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3) + "x"
}
