// Package tracker keeps the live mNAV snapshot: it refreshes prices on a
// schedule, runs the valuation, serves the result over HTTP and pushes
// every update to WebSocket clients.
package tracker

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mnavtrack/nav-engine/internal/band"
	"github.com/mnavtrack/nav-engine/internal/feed"
	"github.com/mnavtrack/nav-engine/internal/model"
)

// Status is the outcome of one refresh cycle.
type Status string

const (
	// StatusOK means all metrics were computed.
	StatusOK Status = "ok"

	// StatusAwaitingData means a required price was unavailable. The
	// dashboard shows a waiting state instead of numbers.
	StatusAwaitingData Status = "awaiting_data"

	// StatusError means parameters could not be loaded or a divisor was
	// non-positive.
	StatusError Status = "error"
)

// Snapshot is the result of one refresh cycle. Published snapshots are
// shared between readers and must not be modified.
type Snapshot struct {
	ID             string                    `json:"id"`
	UpdatedAt      time.Time                 `json:"updated_at"`
	DisplayTime    string                    `json:"display_time"`
	Params         *model.TreasuryParameters `json:"params,omitempty"`
	Prices         model.MarketPrices        `json:"prices"`
	Availability   feed.Availability         `json:"availability"`
	Metrics        *model.Metrics            `json:"metrics,omitempty"` // nil unless Status is ok
	Breakdown      []model.BreakdownRow      `json:"breakdown,omitempty"`
	BreakdownTotal decimal.Decimal           `json:"breakdown_total"`
	Band           band.Band                 `json:"band"`
	Spread         float64                   `json:"spread"`
	Status         Status                    `json:"status"`
	Error          string                    `json:"error,omitempty"`
}

// displayLayout is the dashboard timestamp format, e.g. "2025-08-15 16:00:00 EDT".
const displayLayout = "2006-01-02 15:04:05 MST"

// FormatDisplayTime renders t in loc using the dashboard timestamp format.
func FormatDisplayTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayLayout)
}

// awaitingSnapshot is served before the first refresh has completed.
func awaitingSnapshot() *Snapshot {
	return &Snapshot{
		Band:   band.Unknown,
		Status: StatusAwaitingData,
		Error:  "no refresh has completed yet",
	}
}
