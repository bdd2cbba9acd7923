package store

import (
	"context"
	"errors"
	"testing"

	"github.com/mnavtrack/nav-engine/internal/model"
)

func sampleParams() *model.TreasuryParameters {
	return &model.TreasuryParameters{
		Name:              "BMNR",
		EquitySymbol:      "BMNR",
		ETHSymbol:         "ETH-USD",
		BTCSymbol:         "BTC-USD",
		SharesOutstanding: 431_344_812,
		CashReserve:       1_000_000_000,
		ETHHolding:        4_066_062,
	}
}

func TestMemoryStore_EmptyIsNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetTreasury(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_SaveReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p := sampleParams()

	if err := s.SaveTreasury(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.SharesOutstanding = 1 // mutate caller's value after save

	got, err := s.GetTreasury(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SharesOutstanding != 431_344_812 {
		t.Errorf("store should hold its own copy, got shares=%v", got.SharesOutstanding)
	}

	got.CashReserve = 0
	again, _ := s.GetTreasury(ctx)
	if again.CashReserve != 1_000_000_000 {
		t.Errorf("returned value should be a copy, got cash=%v", again.CashReserve)
	}
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seeded, err := Seed(ctx, s, sampleParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seeded.Name != "BMNR" {
		t.Errorf("expected seeded params, got %+v", seeded)
	}

	other := sampleParams()
	other.Name = "OTHER"
	got, err := Seed(ctx, s, other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "BMNR" {
		t.Errorf("seed must not overwrite existing params, got %s", got.Name)
	}
}
