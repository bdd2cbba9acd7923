package feed

import (
	"context"
	"fmt"
	"sync"
)

// StaticFeed serves fixed prices. Used for tests and offline runs; symbols
// without a price report ErrUnavailable.
type StaticFeed struct {
	mu     sync.RWMutex
	prices map[string]float64
	calls  map[string]int
}

// NewStaticFeed creates a feed with the given symbol -> price map.
func NewStaticFeed(prices map[string]float64) *StaticFeed {
	p := make(map[string]float64, len(prices))
	for k, v := range prices {
		p[k] = v
	}
	return &StaticFeed{prices: p, calls: make(map[string]int)}
}

func (s *StaticFeed) Price(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[symbol]++
	p, ok := s.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, symbol)
	}
	return p, nil
}

// SetPrice replaces one price. A zero or negative price is served as is so
// callers can exercise the sentinel path.
func (s *StaticFeed) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Remove drops a symbol so subsequent reads fail.
func (s *StaticFeed) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, symbol)
}

// Calls returns how many times symbol was requested.
func (s *StaticFeed) Calls(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[symbol]
}
