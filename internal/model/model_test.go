package model

import (
	"errors"
	"math"
	"testing"
)

func validParams() TreasuryParameters {
	return TreasuryParameters{
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
}

func TestValidate_OK(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Errorf("expected valid params, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *TreasuryParameters)
	}{
		{"zero shares", func(p *TreasuryParameters) { p.SharesOutstanding = 0 }},
		{"infinite shares", func(p *TreasuryParameters) { p.SharesOutstanding = math.Inf(1) }},
		{"negative cash", func(p *TreasuryParameters) { p.CashReserve = -1 }},
		{"NaN eth", func(p *TreasuryParameters) { p.ETHHolding = math.NaN() }},
		{"staked exceeds holding", func(p *TreasuryParameters) { p.ETHStaked = p.ETHHolding + 1 }},
		{"apr above one", func(p *TreasuryParameters) { p.StakingAPR = 1.5 }},
		{"negative apr", func(p *TreasuryParameters) { p.StakingAPR = -0.01 }},
		{"missing symbol", func(p *TreasuryParameters) { p.BTCSymbol = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidTreasury) {
				t.Errorf("expected ErrInvalidTreasury, got %v", err)
			}
		})
	}
}
