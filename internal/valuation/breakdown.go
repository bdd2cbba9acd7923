package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/mnavtrack/nav-engine/internal/model"
)

// Display precision for the holdings table.
var (
	QuantityScale int32 = 4
	MoneyScale    int32 = 2
)

// Breakdown builds the holdings table shown next to the metrics: one row per
// treasury component with quantity, live price and total value. Cash-like
// rows carry a unit price of 1. Values come from m so that the table and the
// NAV always agree.
func Breakdown(params model.TreasuryParameters, prices model.MarketPrices, m model.Metrics) []model.BreakdownRow {
	one := decimal.NewFromInt(1)
	btcPrice := prices.BTCPrice
	if !(btcPrice > 0) {
		btcPrice = 0
	}

	return []model.BreakdownRow{
		{
			Asset:      "ETH",
			Quantity:   decimal.NewFromFloat(params.ETHHolding).Round(QuantityScale),
			Price:      money(prices.ETHPrice),
			TotalValue: money(m.ETHValue),
		},
		{
			Asset:      "BTC",
			Quantity:   decimal.NewFromFloat(params.BTCHolding).Round(QuantityScale),
			Price:      money(btcPrice),
			TotalValue: money(m.BTCValue),
		},
		{
			Asset:      "Cash",
			Quantity:   money(params.CashReserve),
			Price:      one,
			TotalValue: money(params.CashReserve),
		},
		{
			Asset:      "Other assets",
			Quantity:   money(params.OtherAssetValue),
			Price:      one,
			TotalValue: money(params.OtherAssetValue),
		},
	}
}

// Total sums the TotalValue column.
func Total(rows []model.BreakdownRow) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.TotalValue)
	}
	return sum
}

func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(MoneyScale)
}
