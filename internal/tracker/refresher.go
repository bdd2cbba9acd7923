package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnavtrack/nav-engine/internal/band"
	"github.com/mnavtrack/nav-engine/internal/feed"
	"github.com/mnavtrack/nav-engine/internal/metrics"
	"github.com/mnavtrack/nav-engine/internal/store"
	"github.com/mnavtrack/nav-engine/internal/valuation"
)

// Refresher runs refresh cycles and holds the latest snapshot.
// Cycles are serialized.
type Refresher struct {
	store      store.Store
	feed       feed.Feed
	classifier *band.Classifier
	hub        *WSHub // optional
	interval   time.Duration
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time

	cycleMu  sync.Mutex
	mu       sync.RWMutex
	latest   *Snapshot
	lastBand band.Band
}

// NewRefresher creates a refresher. Pass nil for hub if WebSocket
// broadcasting is not needed; a nil loc renders display times in UTC.
func NewRefresher(st store.Store, f feed.Feed, classifier *band.Classifier, hub *WSHub, interval time.Duration, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.UTC
	}
	return &Refresher{
		store:      st,
		feed:       f,
		classifier: classifier,
		hub:        hub,
		interval:   interval,
		loc:        loc,
		logger:     slog.Default().With("component", "refresher"),
		now:        time.Now,
	}
}

// Latest returns the most recent snapshot, or nil before the first cycle.
func (r *Refresher) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh runs one cycle: load parameters, fetch prices, compute metrics,
// publish the snapshot and broadcast it. It always returns a snapshot; the
// outcome is in its Status.
func (r *Refresher) Refresh(ctx context.Context) *Snapshot {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	start := time.Now()
	snap := r.build(ctx)

	metrics.RefreshesTotal.WithLabelValues(string(snap.Status)).Inc()
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	r.publish(snap)
	return snap
}

func (r *Refresher) build(ctx context.Context) *Snapshot {
	now := r.now().UTC()
	snap := &Snapshot{
		ID:          uuid.New().String(),
		UpdatedAt:   now,
		DisplayTime: FormatDisplayTime(now, r.loc),
		Band:        band.Unknown,
	}

	params, err := r.store.GetTreasury(ctx)
	if err != nil {
		r.logger.Error("load treasury parameters", "err", err)
		snap.Status = StatusError
		snap.Error = "load treasury parameters: " + err.Error()
		return snap
	}
	snap.Params = params

	prices, avail := feed.FetchPrices(ctx, r.feed, *params)
	snap.Prices = prices
	snap.Availability = avail
	for sym, msg := range avail.Errors {
		metrics.FeedErrorsTotal.WithLabelValues(sym).Inc()
		r.logger.Warn("price unavailable", "symbol", sym, "err", msg)
	}

	m, err := valuation.Compute(*params, prices)
	switch {
	case errors.Is(err, valuation.ErrInvalidInput):
		snap.Status = StatusAwaitingData
		snap.Error = err.Error()
		return snap
	case err != nil:
		r.logger.Error("valuation failed", "err", err)
		snap.Status = StatusError
		snap.Error = err.Error()
		return snap
	}

	snap.Status = StatusOK
	snap.Metrics = &m
	snap.Breakdown = valuation.Breakdown(*params, prices, m)
	snap.BreakdownTotal = valuation.Total(snap.Breakdown)
	snap.Band = r.classifier.Classify(m.MNAVMultiple)
	snap.Spread = band.Spread(m.MNAVMultiple)
	metrics.ObserveValuation(prices, m)

	r.logger.Debug("valuation computed",
		"nav", m.TotalNAV,
		"mnav", m.MNAVMultiple,
		"mnav_ex_cash", m.MNAVMultipleExCash,
		"band", snap.Band,
	)
	return snap
}

// publish stores snap as the latest snapshot and notifies WebSocket clients.
// A band change is only reported between two known bands.
func (r *Refresher) publish(snap *Snapshot) {
	r.mu.Lock()
	r.latest = snap
	prev := r.lastBand
	changed := snap.Band != band.Unknown && prev != "" && prev != snap.Band
	if snap.Band != band.Unknown {
		r.lastBand = snap.Band
	}
	r.mu.Unlock()

	if changed {
		r.logger.Info("mnav band changed", "from", prev, "to", snap.Band, "mnav", snap.Metrics.MNAVMultiple)
	}
	if r.hub == nil {
		return
	}
	r.hub.Broadcast(WSMessage{Type: MsgSnapshot, Snapshot: snap})
	if changed {
		r.hub.Broadcast(WSMessage{
			Type: MsgBandChanged,
			From: prev,
			To:   snap.Band,
			MNAV: snap.Metrics.MNAVMultiple,
		})
	}
}
