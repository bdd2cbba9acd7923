package tracker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mnavtrack/nav-engine/internal/band"
	"github.com/mnavtrack/nav-engine/internal/feed"
	"github.com/mnavtrack/nav-engine/internal/model"
	"github.com/mnavtrack/nav-engine/internal/store"
	"github.com/mnavtrack/nav-engine/internal/tracker"
)

func testParams() *model.TreasuryParameters {
	return &model.TreasuryParameters{
		Name:              "BMNR",
		EquitySymbol:      "BMNR",
		ETHSymbol:         "ETH-USD",
		BTCSymbol:         "BTC-USD",
		SharesOutstanding: 431_344_812,
		CashReserve:       1_000_000_000,
		OtherAssetValue:   32_000_000,
		BTCHolding:        193,
		ETHHolding:        4_066_062,
		ETHStaked:         342_560,
		StakingAPR:        0.03,
	}
}

type testEnv struct {
	store     *store.MemoryStore
	feed      *feed.StaticFeed
	hub       *tracker.WSHub
	refresher *tracker.Refresher
	router    chi.Router
}

// newTestEnv wires a refresher and service around an in-memory store seeded
// with testParams and a static feed quoting a premium (mNAV ≈ 1.63).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ms := store.NewMemoryStore()
	if err := ms.SaveTreasury(context.Background(), testParams()); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return newTestEnvWithStore(t, ms)
}

func newTestEnvWithStore(t *testing.T, ms *store.MemoryStore) *testEnv {
	t.Helper()
	sf := feed.NewStaticFeed(map[string]float64{
		"BMNR":    50,
		"ETH-USD": 3000,
		"BTC-USD": 90000,
	})
	classifier, err := band.NewClassifier(0.95, 1.05)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	hub := tracker.NewWSHub()
	ref := tracker.NewRefresher(ms, sf, classifier, hub, time.Hour, time.FixedZone("EDT", -4*3600))
	svc := tracker.NewService(ms, ref, hub)

	r := chi.NewRouter()
	r.Route("/api/v1", svc.Routes)

	return &testEnv{store: ms, feed: sf, hub: hub, refresher: ref, router: r}
}

func do(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) tracker.Snapshot {
	t.Helper()
	var snap tracker.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

// --- Refresh cycle ---

func TestRefresh_OK(t *testing.T) {
	env := newTestEnv(t)

	snap := env.refresher.Refresh(context.Background())
	if snap.Status != tracker.StatusOK {
		t.Fatalf("expected status ok, got %s (%s)", snap.Status, snap.Error)
	}
	if snap.Metrics == nil {
		t.Fatal("expected metrics on ok snapshot")
	}
	if snap.Metrics.TotalNAV != 13_247_556_000 {
		t.Errorf("expected total_nav=13247556000, got %f", snap.Metrics.TotalNAV)
	}
	if snap.Band != band.Premium {
		t.Errorf("expected premium band, got %s", snap.Band)
	}
	if len(snap.Breakdown) != 4 {
		t.Errorf("expected 4 breakdown rows, got %d", len(snap.Breakdown))
	}
	if snap.ID == "" {
		t.Error("expected snapshot id")
	}
	if !strings.HasSuffix(snap.DisplayTime, "EDT") {
		t.Errorf("expected display time in EDT, got %q", snap.DisplayTime)
	}
	if env.refresher.Latest() != snap {
		t.Error("Latest should return the published snapshot")
	}
}

func TestRefresh_EquityUnavailableAwaitsData(t *testing.T) {
	env := newTestEnv(t)
	env.feed.Remove("BMNR")

	snap := env.refresher.Refresh(context.Background())
	if snap.Status != tracker.StatusAwaitingData {
		t.Fatalf("expected awaiting_data, got %s", snap.Status)
	}
	if snap.Metrics != nil {
		t.Errorf("expected no metrics, got %+v", snap.Metrics)
	}
	if snap.Prices.EquityPrice != 0 {
		t.Errorf("expected zero sentinel for equity, got %f", snap.Prices.EquityPrice)
	}
	if snap.Availability.Equity {
		t.Error("equity should be reported unavailable")
	}
	if _, ok := snap.Availability.Errors["BMNR"]; !ok {
		t.Errorf("expected an error entry for BMNR, got %v", snap.Availability.Errors)
	}
	if snap.Band != band.Unknown {
		t.Errorf("expected unknown band, got %s", snap.Band)
	}
}

func TestRefresh_MissingBTCStillOK(t *testing.T) {
	env := newTestEnv(t)
	env.feed.Remove("BTC-USD")

	snap := env.refresher.Refresh(context.Background())
	if snap.Status != tracker.StatusOK {
		t.Fatalf("expected ok without BTC, got %s (%s)", snap.Status, snap.Error)
	}
	if snap.Metrics.BTCValue != 0 {
		t.Errorf("expected zero btc value, got %f", snap.Metrics.BTCValue)
	}
}

func TestRefresh_NoParamsIsError(t *testing.T) {
	env := newTestEnvWithStore(t, store.NewMemoryStore())

	snap := env.refresher.Refresh(context.Background())
	if snap.Status != tracker.StatusError {
		t.Fatalf("expected error status, got %s", snap.Status)
	}
	if snap.Params != nil {
		t.Errorf("expected no params, got %+v", snap.Params)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.refresher.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for env.refresher.Latest() == nil {
		if time.Now().After(deadline) {
			t.Fatal("first refresh did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// --- HTTP handlers ---

func TestGetNAV_BeforeFirstRefresh(t *testing.T) {
	env := newTestEnv(t)

	w := do(t, env.router, "GET", "/api/v1/nav", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if snap := decodeSnapshot(t, w); snap.Status != tracker.StatusAwaitingData {
		t.Errorf("expected awaiting_data, got %s", snap.Status)
	}
}

func TestGetNAV_AfterRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.refresher.Refresh(context.Background())

	w := do(t, env.router, "GET", "/api/v1/nav", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if snap.Metrics == nil || snap.Metrics.MNAVMultiple <= 1 {
		t.Errorf("expected premium metrics, got %+v", snap.Metrics)
	}
	if !snap.BreakdownTotal.Equal(snap.BreakdownTotal.Round(2)) {
		t.Errorf("breakdown total should be rounded to cents, got %s", snap.BreakdownTotal)
	}
}

func TestGetPrices(t *testing.T) {
	env := newTestEnv(t)

	if w := do(t, env.router, "GET", "/api/v1/prices", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before refresh, got %d", w.Code)
	}

	env.refresher.Refresh(context.Background())
	w := do(t, env.router, "GET", "/api/v1/prices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp tracker.PricesResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Prices.ETHPrice != 3000 {
		t.Errorf("expected eth price 3000, got %f", resp.Prices.ETHPrice)
	}
	if !resp.Availability.Complete() {
		t.Errorf("expected complete availability, got %+v", resp.Availability)
	}
}

func TestGetTreasury_NotConfigured(t *testing.T) {
	env := newTestEnvWithStore(t, store.NewMemoryStore())

	w := do(t, env.router, "GET", "/api/v1/treasury", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestPutTreasury_UpdatesAndRefreshes(t *testing.T) {
	env := newTestEnv(t)
	env.refresher.Refresh(context.Background())

	update := testParams()
	update.EquitySymbol = " bmnr "
	update.SharesOutstanding *= 2

	w := do(t, env.router, "PUT", "/api/v1/treasury", update)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp tracker.TreasuryUpdateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Treasury.EquitySymbol != "BMNR" {
		t.Errorf("expected normalized symbol BMNR, got %q", resp.Treasury.EquitySymbol)
	}
	if resp.Snapshot.Status != tracker.StatusOK {
		t.Fatalf("expected refreshed ok snapshot, got %s", resp.Snapshot.Status)
	}
	// Doubling the share count halves NAV per share.
	if got, want := resp.Snapshot.Metrics.NAVPerShare, 13_247_556_000/(2*431_344_812.0); got != want {
		t.Errorf("expected nav_per_share=%f, got %f", want, got)
	}

	stored, _ := env.store.GetTreasury(context.Background())
	if stored.SharesOutstanding != 2*431_344_812 {
		t.Errorf("expected stored shares to be updated, got %f", stored.SharesOutstanding)
	}
}

func TestPutTreasury_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"zero shares", func() any { p := testParams(); p.SharesOutstanding = 0; return p }()},
		{"staked above holding", func() any { p := testParams(); p.ETHStaked = p.ETHHolding * 2; return p }()},
		{"bad symbol", func() any { p := testParams(); p.ETHSymbol = "ETH/USD"; return p }()},
		{"mismatched quotes", func() any { p := testParams(); p.BTCSymbol = "BTC-EUR"; return p }()},
		{"unknown field", `{"shares": 10}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := do(t, env.router, "PUT", "/api/v1/treasury", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			stored, _ := env.store.GetTreasury(context.Background())
			if stored.SharesOutstanding != 431_344_812 {
				t.Error("rejected update must not be saved")
			}
		})
	}
}

func TestPostRefresh(t *testing.T) {
	env := newTestEnv(t)

	w := do(t, env.router, "POST", "/api/v1/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	env.feed.Remove("ETH-USD")
	w = do(t, env.router, "POST", "/api/v1/refresh", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without ETH price, got %d", w.Code)
	}
}

// --- WebSocket ---

func readMessage(t *testing.T, conn *websocket.Conn) tracker.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg tracker.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read ws message: %v", err)
	}
	return msg
}

func TestWebSocket_SnapshotAndBandChange(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.hub.Run(ctx)

	env.refresher.Refresh(ctx)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readMessage(t, conn)
	if initial.Type != tracker.MsgSnapshot || initial.Snapshot == nil || initial.Snapshot.Band != band.Premium {
		t.Fatalf("expected initial premium snapshot, got %+v", initial)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// mNAV 20 / 30.71 ≈ 0.65: discount.
	env.feed.SetPrice("BMNR", 20)
	env.refresher.Refresh(ctx)

	snapMsg := readMessage(t, conn)
	if snapMsg.Type != tracker.MsgSnapshot || snapMsg.Snapshot.Band != band.Discount {
		t.Fatalf("expected discount snapshot, got %+v", snapMsg)
	}
	changed := readMessage(t, conn)
	if changed.Type != tracker.MsgBandChanged {
		t.Fatalf("expected band_changed, got %s", changed.Type)
	}
	if changed.From != band.Premium || changed.To != band.Discount {
		t.Errorf("expected premium -> discount, got %s -> %s", changed.From, changed.To)
	}
}
