// Package symbol parses and validates the price-feed tickers configured for
// the tracked equity and the two treasury crypto assets.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Supported symbol kinds.
const (
	KindEquity = "EQUITY"
	KindCrypto = "CRYPTO"
)

// equityRegex matches exchange tickers. Class shares use a dot: BRK.B
var equityRegex = regexp.MustCompile(`^([A-Z]{1,5})(\.[A-Z])?$`)

// cryptoRegex matches {base}-{quote} pairs. Example: ETH-USD
var cryptoRegex = regexp.MustCompile(`^([A-Z0-9]{2,10})-([A-Z]{3})$`)

var (
	ErrInvalidSymbol = errors.New("symbol: invalid ticker format")
	ErrWrongKind     = errors.New("symbol: unexpected symbol kind")
)

// Symbol is a parsed feed ticker.
type Symbol struct {
	Ticker string `json:"ticker"`
	Kind   string `json:"kind"`
	Base   string `json:"base"`
	Quote  string `json:"quote,omitempty"` // crypto only
}

// Normalize returns raw trimmed and upper-cased.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Parse normalizes and validates a ticker string.
func Parse(raw string) (*Symbol, error) {
	ticker := Normalize(raw)

	if m := cryptoRegex.FindStringSubmatch(ticker); m != nil {
		return &Symbol{Ticker: ticker, Kind: KindCrypto, Base: m[1], Quote: m[2]}, nil
	}
	if m := equityRegex.FindStringSubmatch(ticker); m != nil {
		return &Symbol{Ticker: ticker, Kind: KindEquity, Base: m[1]}, nil
	}
	return nil, fmt.Errorf("%w: %q (expected TICKER or BASE-QUOTE)", ErrInvalidSymbol, raw)
}

// ParseKind parses raw and checks that it is of the given kind.
func ParseKind(raw, kind string) (*Symbol, error) {
	s, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if s.Kind != kind {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrWrongKind, s.Ticker, s.Kind, kind)
	}
	return s, nil
}

// ValidateSet checks the three symbols a treasury needs: one equity ticker
// and two crypto pairs quoted in the same currency.
func ValidateSet(equity, eth, btc string) error {
	if _, err := ParseKind(equity, KindEquity); err != nil {
		return fmt.Errorf("equity symbol: %w", err)
	}
	e, err := ParseKind(eth, KindCrypto)
	if err != nil {
		return fmt.Errorf("eth symbol: %w", err)
	}
	b, err := ParseKind(btc, KindCrypto)
	if err != nil {
		return fmt.Errorf("btc symbol: %w", err)
	}
	if e.Quote != b.Quote {
		return fmt.Errorf("%w: eth quoted in %s but btc in %s", ErrInvalidSymbol, e.Quote, b.Quote)
	}
	return nil
}
