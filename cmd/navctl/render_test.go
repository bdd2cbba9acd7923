package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mnavtrack/nav-engine/internal/band"
	"github.com/mnavtrack/nav-engine/internal/model"
	"github.com/mnavtrack/nav-engine/internal/valuation"
)

func sampleReport(t *testing.T) Report {
	t.Helper()
	params := model.TreasuryParameters{
		Name:              "BitMine",
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
	}
	prices := model.MarketPrices{EquityPrice: 50, ETHPrice: 3000, BTCPrice: 90000}
	m, err := valuation.Compute(params, prices)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	return Report{
		Treasury:  params,
		Prices:    prices,
		Metrics:   m,
		Breakdown: valuation.Breakdown(params, prices, m),
		Band:      band.Premium,
		AsOf:      time.Date(2025, 8, 15, 20, 0, 0, 0, time.UTC).In(time.FixedZone("EDT", -4*3600)),
	}
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, sampleReport(t))
	out := buf.String()

	for _, want := range []string{
		"BitMine (BMNR) as of 2025-08-15 16:00:00 EDT",
		"$13247556000",
		"1.628x",
		"12198186000.00",
		"13247556000.00",
		"PREMIUM",
	} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderTreasury(t *testing.T) {
	var buf bytes.Buffer
	renderTreasury(&buf, sampleReport(t).Treasury)
	out := buf.String()

	for _, want := range []string{"431344812", "4066062", "3%"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}
