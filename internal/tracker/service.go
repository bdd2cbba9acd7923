package tracker

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mnavtrack/nav-engine/internal/feed"
	"github.com/mnavtrack/nav-engine/internal/model"
	"github.com/mnavtrack/nav-engine/internal/store"
	"github.com/mnavtrack/nav-engine/internal/symbol"
)

// Service exposes the latest snapshot and the treasury parameters over HTTP.
type Service struct {
	store     store.Store
	refresher *Refresher
	hub       *WSHub // optional
}

// NewService creates the HTTP service. Pass nil for hub to disable /ws.
func NewService(st store.Store, refresher *Refresher, hub *WSHub) *Service {
	return &Service{store: st, refresher: refresher, hub: hub}
}

// Routes registers the service handlers on r (mounted under /api/v1).
func (s *Service) Routes(r chi.Router) {
	r.Get("/nav", s.GetNAV)
	r.Get("/prices", s.GetPrices)
	r.Get("/treasury", s.GetTreasury)
	r.Put("/treasury", s.PutTreasury)
	r.Post("/refresh", s.PostRefresh)
	if s.hub != nil {
		r.Get("/ws", s.HandleWS)
	}
}

// --- Response types ---

// PricesResponse is the JSON body for GET /prices.
type PricesResponse struct {
	UpdatedAt    time.Time          `json:"updated_at"`
	DisplayTime  string             `json:"display_time"`
	Prices       model.MarketPrices `json:"prices"`
	Availability feed.Availability  `json:"availability"`
}

// TreasuryUpdateResponse is the JSON body returned from PUT /treasury.
type TreasuryUpdateResponse struct {
	Treasury *model.TreasuryParameters `json:"treasury"`
	Snapshot *Snapshot                 `json:"snapshot"`
}

// --- Handlers ---

// GetNAV handles GET /nav. Anything but a complete valuation is served
// with 503.
func (s *Service) GetNAV(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, s.latest())
}

// GetPrices handles GET /prices.
func (s *Service) GetPrices(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Latest()
	if snap == nil {
		writeError(w, "no prices fetched yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, PricesResponse{
		UpdatedAt:    snap.UpdatedAt,
		DisplayTime:  snap.DisplayTime,
		Prices:       snap.Prices,
		Availability: snap.Availability,
	})
}

// GetTreasury handles GET /treasury.
func (s *Service) GetTreasury(w http.ResponseWriter, r *http.Request) {
	params, err := s.store.GetTreasury(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "treasury parameters not configured", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get treasury failed", "err", err)
		writeError(w, "failed to load treasury parameters", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// PutTreasury handles PUT /treasury: validate, replace the stored
// parameters and run a refresh so the response reflects them.
func (s *Service) PutTreasury(w http.ResponseWriter, r *http.Request) {
	var params model.TreasuryParameters
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := normalizeSymbols(&params); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.SaveTreasury(r.Context(), &params); err != nil {
		slog.Error("save treasury failed", "err", err)
		writeError(w, "failed to save treasury parameters", http.StatusInternalServerError)
		return
	}
	slog.Info("treasury parameters updated",
		"name", params.Name,
		"shares", params.SharesOutstanding,
		"eth", params.ETHHolding,
		"btc", params.BTCHolding,
	)

	snap := s.refresher.Refresh(r.Context())
	writeJSON(w, http.StatusOK, TreasuryUpdateResponse{Treasury: &params, Snapshot: snap})
}

// PostRefresh handles POST /refresh: run a cycle now instead of waiting for
// the next tick.
func (s *Service) PostRefresh(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, s.refresher.Refresh(r.Context()))
}

// HandleWS handles WebSocket upgrade requests at GET /ws. New clients
// receive the latest snapshot first.
func (s *Service) HandleWS(w http.ResponseWriter, r *http.Request) {
	var initial *WSMessage
	if snap := s.refresher.Latest(); snap != nil {
		initial = &WSMessage{Type: MsgSnapshot, Snapshot: snap}
	}
	s.hub.Serve(w, r, initial)
}

func (s *Service) latest() *Snapshot {
	if snap := s.refresher.Latest(); snap != nil {
		return snap
	}
	return awaitingSnapshot()
}

// normalizeSymbols validates the three feed symbols and rewrites them in
// canonical (trimmed, upper-case) form.
func normalizeSymbols(p *model.TreasuryParameters) error {
	if err := symbol.ValidateSet(p.EquitySymbol, p.ETHSymbol, p.BTCSymbol); err != nil {
		return err
	}
	for _, f := range []*string{&p.EquitySymbol, &p.ETHSymbol, &p.BTCSymbol} {
		*f = symbol.Normalize(*f)
	}
	return nil
}

func writeSnapshot(w http.ResponseWriter, snap *Snapshot) {
	status := http.StatusOK
	if snap.Status != StatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
