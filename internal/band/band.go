// Package band classifies the mNAV multiple into premium / par / discount
// bands so the dashboard can flag how the market prices the treasury.
//
// A multiple above 1 means the market values each share above its share of
// treasury assets (premium); below 1 means the shares trade at a discount.
// A tolerance window around 1 is reported as par to avoid flapping between
// bands on small price moves.
package band

import (
	"errors"
	"math"
)

// Band is the classification of one mNAV reading.
type Band string

const (
	Discount Band = "discount"
	Par      Band = "par"
	Premium  Band = "premium"
	Unknown  Band = "unknown"
)

// ErrInvalidThresholds is returned when lower > upper or either is not positive.
var ErrInvalidThresholds = errors.New("band: thresholds must satisfy 0 < lower <= upper")

// Classifier holds the par window [Lower, Upper].
type Classifier struct {
	// Lower is the multiple below which shares trade at a discount.
	Lower float64

	// Upper is the multiple above which shares trade at a premium.
	Upper float64
}

// NewClassifier creates a classifier with the given par window.
func NewClassifier(lower, upper float64) (*Classifier, error) {
	if !(lower > 0) || !(upper >= lower) || math.IsInf(upper, 0) {
		return nil, ErrInvalidThresholds
	}
	return &Classifier{Lower: lower, Upper: upper}, nil
}

// Classify returns the band for an mNAV multiple. Non-positive or non-finite
// readings (no valid valuation yet) are Unknown.
func (c *Classifier) Classify(mnav float64) Band {
	if !(mnav > 0) || math.IsInf(mnav, 0) {
		return Unknown
	}
	switch {
	case mnav < c.Lower:
		return Discount
	case mnav > c.Upper:
		return Premium
	default:
		return Par
	}
}

// Spread returns the premium (positive) or discount (negative) of the
// multiple relative to 1, as a fraction: 1.25 -> 0.25.
func Spread(mnav float64) float64 {
	if !(mnav > 0) || math.IsInf(mnav, 0) {
		return 0
	}
	return mnav - 1
}
