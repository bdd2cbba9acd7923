package band

import (
	"math"
	"testing"
)

func TestNewClassifier_Valid(t *testing.T) {
	c, err := NewClassifier(0.95, 1.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lower != 0.95 || c.Upper != 1.05 {
		t.Errorf("unexpected thresholds: %+v", c)
	}
}

func TestNewClassifier_Invalid(t *testing.T) {
	tests := []struct{ lower, upper float64 }{
		{0, 1},
		{-1, 1},
		{1.2, 1.1},
		{1, math.Inf(1)},
		{math.NaN(), 1},
	}
	for _, tt := range tests {
		if _, err := NewClassifier(tt.lower, tt.upper); err != ErrInvalidThresholds {
			t.Errorf("expected ErrInvalidThresholds for (%v, %v), got %v", tt.lower, tt.upper, err)
		}
	}
}

func TestClassify(t *testing.T) {
	c, _ := NewClassifier(0.95, 1.05)

	tests := []struct {
		mnav float64
		want Band
	}{
		{1.628, Premium},
		{1.05, Par},
		{1.0, Par},
		{0.95, Par},
		{0.9, Discount},
		{0.01, Discount},
		{0, Unknown},
		{-1, Unknown},
		{math.NaN(), Unknown},
		{math.Inf(1), Unknown},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.mnav); got != tt.want {
			t.Errorf("Classify(%v): expected %s, got %s", tt.mnav, tt.want, got)
		}
	}
}

func TestClassify_ZeroWidthWindow(t *testing.T) {
	c, err := NewClassifier(1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Classify(1) != Par {
		t.Error("exactly 1 should be par")
	}
	if c.Classify(1.0001) != Premium {
		t.Error("above 1 should be premium")
	}
}

func TestSpread(t *testing.T) {
	if s := Spread(1.25); math.Abs(s-0.25) > 1e-12 {
		t.Errorf("expected 0.25, got %v", s)
	}
	if s := Spread(0.8); math.Abs(s+0.2) > 1e-12 {
		t.Errorf("expected -0.2, got %v", s)
	}
	if s := Spread(0); s != 0 {
		t.Errorf("expected 0 for invalid multiple, got %v", s)
	}
}
