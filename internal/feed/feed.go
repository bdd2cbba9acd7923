// Package feed supplies live prices for the tracked equity and the treasury
// crypto assets.
//
// Feeds report failures as typed errors. FetchPrices is the single place
// where those errors are folded into the zero-price sentinel the valuation
// engine expects, so transport errors never reach the engine.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mnavtrack/nav-engine/internal/model"
)

var (
	// ErrUnavailable is returned when a price could not be obtained
	// (network failure, bad response, missing or non-positive price).
	ErrUnavailable = errors.New("feed: price unavailable")

	// ErrSymbolNotFound is returned when the upstream does not know the symbol.
	ErrSymbolNotFound = errors.New("feed: symbol not found")
)

// HTTPError carries a non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Feed returns the current price of a symbol.
type Feed interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Availability records which legs of a price snapshot came back from the
// feed. Errors is keyed by symbol.
type Availability struct {
	Equity bool              `json:"equity"`
	ETH    bool              `json:"eth"`
	BTC    bool              `json:"btc"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Complete reports whether all three prices were fetched.
func (a Availability) Complete() bool {
	return a.Equity && a.ETH && a.BTC
}

// FetchPrices fetches the equity, ETH and BTC prices named in params. The
// three reads are independent and run concurrently. A failed read leaves a
// zero price in the result and an entry in Availability.Errors.
func FetchPrices(ctx context.Context, f Feed, params model.TreasuryParameters) (model.MarketPrices, Availability) {
	var (
		prices model.MarketPrices
		avail  = Availability{Errors: map[string]string{}}
		mu     sync.Mutex
		g      errgroup.Group
	)

	legs := []struct {
		symbol string
		price  *float64
		ok     *bool
	}{
		{params.EquitySymbol, &prices.EquityPrice, &avail.Equity},
		{params.ETHSymbol, &prices.ETHPrice, &avail.ETH},
		{params.BTCSymbol, &prices.BTCPrice, &avail.BTC},
	}

	for _, leg := range legs {
		leg := leg
		g.Go(func() error {
			p, err := f.Price(ctx, leg.symbol)
			if err == nil && !(p > 0) {
				err = fmt.Errorf("%w: non-positive price %v", ErrUnavailable, p)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				avail.Errors[leg.symbol] = err.Error()
				return nil
			}
			*leg.price = p
			*leg.ok = true
			return nil
		})
	}
	_ = g.Wait()

	if len(avail.Errors) == 0 {
		avail.Errors = nil
	}
	return prices, avail
}
