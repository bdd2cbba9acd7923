package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultYahooBaseURL is the public Yahoo Finance query host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// userAgent avoids the 429s Yahoo returns to default Go clients.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// YahooFeed reads last-trade prices from the Yahoo Finance chart API.
type YahooFeed struct {
	baseURL string
	client  *http.Client
}

// NewYahooFeed creates a feed against baseURL ("" for the public host) with
// a per-request timeout.
func NewYahooFeed(baseURL string, timeout time.Duration) *YahooFeed {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// --- Yahoo chart API types ---

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
	} `json:"meta"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Price returns the regular-market price of symbol.
func (y *YahooFeed) Price(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", y.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: GET %s: %w", ErrUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: %s: %w", ErrUnavailable, symbol, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		})
	}

	var cr chartResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&cr); err != nil {
		return 0, fmt.Errorf("%w: parse %s: %w", ErrUnavailable, symbol, err)
	}
	if cr.Chart.Error != nil {
		if cr.Chart.Error.Code == "Not Found" {
			return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return 0, fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	price := cr.Chart.Result[0].Meta.RegularMarketPrice
	if !(price > 0) {
		return 0, fmt.Errorf("%w: %s: no market price", ErrUnavailable, symbol)
	}
	return price, nil
}
