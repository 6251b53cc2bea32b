package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	icache "FinFuzz/internal/service/cache"
	"FinFuzz/internal/services/features"
	"FinFuzz/internal/usecase"
	applogger "FinFuzz/pkg/logger"
)

type memCandles struct {
	mu   sync.Mutex
	data map[string][]models.Candle
}

func (m *memCandles) GetCandles(_ context.Context, symbol string, from, to time.Time, _ domrepo.Period) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Candle
	for _, c := range m.data[symbol] {
		if !c.Date.Before(from) && !c.Date.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCandles) GetLatestNCandles(_ context.Context, symbol string, n int, _ domrepo.Period) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs := m.data[symbol]
	if len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	return append([]models.Candle(nil), cs...), nil
}

func (m *memCandles) StoreBatch(_ context.Context, symbol string, _ domrepo.Period, candles []models.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[symbol] = append(m.data[symbol], candles...)
	return nil
}

type memSignals struct {
	mu    sync.Mutex
	saved []models.Signal
}

func (m *memSignals) SaveSignal(_ context.Context, s models.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

func (m *memSignals) LatestSignals(_ context.Context, symbol string, _ domrepo.Period, limit int) ([]models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signal
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if m.saved[i].Symbol == symbol {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordCandlesIngested(string, string, int) {}
func (nopMetrics) RecordError(string)                        {}
func (nopMetrics) RecordLastSignal(string, float64)          {}
func (nopMetrics) RecordLatency(string, float64)             {}

// uptrend grows 0.2% per day, which keeps the 5/20 log-ratio well inside the positive sets.
func uptrend(symbol string, n int) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		p := 100 * math.Exp(0.002*float64(i))
		out[i] = models.Candle{Date: start.AddDate(0, 0, i), Symbol: symbol, Open: p, High: p, Low: p, Close: p, Volume: 1000}
	}
	return out
}

type fixture struct {
	e       *echo.Echo
	h       *ExcessDemandHandler
	candles *memCandles
	signals *memSignals
	cache   *icache.TTLCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &memCandles{data: map[string][]models.Candle{"AAA": uptrend("AAA", 120)}}
	signals := &memSignals{}
	defaults := models.FuzzyParams{Column: "close", ShortWindow: 5, LongWindow: 20, Spread: 0.01}
	ed := usecase.NewExcessDemandUseCase(store, features.NewEvaluator(2), nopMetrics{}, defaults, 120)
	refresh := usecase.NewSignalRefresher(ed, signals, nil, nil, nopMetrics{}, nil)
	proc := usecase.NewCandleProcessor(nil, store, refresh, nopMetrics{}, "clickhouse")

	h := NewExcessDemandHandler(ed, usecase.NewScanUseCase(ed), usecase.NewCandlesUseCase(store), proc, signals)
	c := icache.NewTTLCache()
	h.SetCache(c, time.Minute)
	h.SetLogger(applogger.Nop())

	e := echo.New()
	h.RegisterRoutes(e)
	return &fixture{e: e, h: h, candles: store, signals: signals, cache: c}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (body %q)", method, target, err, rec.Body.String())
	}
	if env.Status != rec.Code {
		t.Fatalf("envelope status %d != http status %d", env.Status, rec.Code)
	}
	return rec.Code, env
}

func TestFuzzifyEndpoint(t *testing.T) {
	f := newFixture(t)
	code, env := f.do(t, http.MethodGet, "/api/fuzzify?x=0.003&w=0.01", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var ev struct {
		Signal     float64            `json:"signal"`
		Membership map[string]float64 `json:"membership"`
	}
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if math.Abs(ev.Signal-0.03) > 1e-9 {
		t.Fatalf("expected signal 0.03, got %v", ev.Signal)
	}
	if math.Abs(ev.Membership["AZ"]-0.7) > 1e-9 || math.Abs(ev.Membership["PS"]-0.3) > 1e-9 {
		t.Fatalf("unexpected membership %v", ev.Membership)
	}
}

func TestFuzzifyRejectsBadSpread(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodGet, "/api/fuzzify?x=0.01&w=-1", "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestExplicitZeroParametersAreRejected(t *testing.T) {
	closes := `"closes":[{"date":"2024-01-01","value":1},{"date":"2024-01-02","value":2}]`
	cases := []struct {
		name, method, target, body string
	}{
		{"fuzzify w", http.MethodGet, "/api/fuzzify?x=0.003&w=0", ""},
		{"series w", http.MethodGet, "/api/excess-demand?symbol=AAA&w=0", ""},
		{"series short", http.MethodGet, "/api/excess-demand?symbol=AAA&short=0", ""},
		{"series long", http.MethodGet, "/api/excess-demand?symbol=AAA&long=0", ""},
		{"latest w", http.MethodGet, "/api/excess-demand/latest?symbol=AAA&w=0", ""},
		{"scan w", http.MethodGet, "/api/scan?symbols=AAA&w=0", ""},
		{"evaluate w", http.MethodPost, "/api/excess-demand/evaluate", `{"short":1,"long":2,"w":0,` + closes + `}`},
		{"evaluate short", http.MethodPost, "/api/excess-demand/evaluate", `{"short":0,"long":2,` + closes + `}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			code, env := f.do(t, tc.method, tc.target, tc.body)
			if code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", code, env.Data)
			}
			if !strings.Contains(string(env.Data), "ERR_INVALID_PARAMETER") {
				t.Fatalf("expected ERR_INVALID_PARAMETER, got %s", env.Data)
			}
		})
	}
}

func TestOmittedSpreadUsesConfiguredDefault(t *testing.T) {
	f := newFixture(t)
	code, env := f.do(t, http.MethodGet, "/api/fuzzify?x=0.003", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var ev struct {
		W      float64 `json:"w"`
		Signal float64 `json:"signal"`
	}
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if ev.W != 0.01 || math.Abs(ev.Signal-0.03) > 1e-9 {
		t.Fatalf("expected w=0.01 signal=0.03, got %+v", ev)
	}
}

func TestSeriesDropsInvalidPoints(t *testing.T) {
	f := newFixture(t)
	code, env := f.do(t, http.MethodGet, "/api/excess-demand?symbol=AAA&n=60", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var s models.ExcessDemandSeries
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	// 60 loaded, the long average needs 19 days of warm-up
	if len(s.Points) != 41 {
		t.Fatalf("expected 41 valid points, got %d", len(s.Points))
	}
	for _, pt := range s.Points {
		if !pt.Valid || pt.Signal <= 0 {
			t.Fatalf("expected positive valid points, got %+v", pt)
		}
	}

	_, env = f.do(t, http.MethodGet, "/api/excess-demand?symbol=AAA&n=60&include_invalid=true", "")
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(s.Points) != 60 {
		t.Fatalf("expected 60 points with invalid ones, got %d", len(s.Points))
	}
}

func TestSeriesRejectsWindowOrder(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodGet, "/api/excess-demand?symbol=AAA&short=20&long=10", "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestLatestUsesCache(t *testing.T) {
	f := newFixture(t)
	code, env := f.do(t, http.MethodGet, "/api/excess-demand/latest?symbol=AAA", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var sig models.Signal
	if err := json.Unmarshal(env.Data, &sig); err != nil {
		t.Fatalf("decode signal: %v", err)
	}
	if sig.Symbol != "AAA" || sig.Signal <= 0 || sig.Dominant == "" {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if f.cache.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", f.cache.Len())
	}

	// served from cache even though the store is gone
	f.candles.mu.Lock()
	f.candles.data = map[string][]models.Candle{}
	f.candles.mu.Unlock()
	code, env = f.do(t, http.MethodGet, "/api/excess-demand/latest?symbol=AAA", "")
	if code != http.StatusOK {
		t.Fatalf("expected cached 200, got %d", code)
	}
	var cached models.Signal
	if err := json.Unmarshal(env.Data, &cached); err != nil {
		t.Fatalf("decode cached signal: %v", err)
	}
	if cached.Signal != sig.Signal || !cached.Date.Equal(sig.Date) {
		t.Fatalf("expected cached %+v, got %+v", sig, cached)
	}
}

func TestLatestInsufficientHistory(t *testing.T) {
	f := newFixture(t)
	code, env := f.do(t, http.MethodGet, "/api/excess-demand/latest?symbol=NONE", "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if !strings.Contains(string(env.Data), "ERR_INSUFFICIENT_HISTORY") {
		t.Fatalf("expected ERR_INSUFFICIENT_HISTORY, got %s", env.Data)
	}
}

func TestLatestRateLimited(t *testing.T) {
	f := newFixture(t)
	limited := false
	for i := 0; i < 12; i++ {
		code, _ := f.do(t, http.MethodGet, "/api/excess-demand/latest?symbol=AAA", "")
		if code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatalf("expected a 429 within 12 rapid requests")
	}
}

func TestEvaluateFromClosesWithGap(t *testing.T) {
	f := newFixture(t)
	var b strings.Builder
	b.WriteString(`{"symbol":"X","short":2,"long":4,"w":0.01,"closes":[`)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		v := "null"
		if i != 6 {
			v = jsonFloat(100 * math.Exp(0.002*float64(i)))
		}
		b.WriteString(`{"date":"` + start.AddDate(0, 0, i).Format("2006-01-02") + `","value":` + v + `}`)
	}
	b.WriteString("]}")

	code, env := f.do(t, http.MethodPost, "/api/excess-demand/evaluate", b.String())
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, env.Data)
	}
	var s models.ExcessDemandSeries
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(s.Points) != 12 {
		t.Fatalf("expected 12 points, got %d", len(s.Points))
	}
	// long window of 4 touches the gap at index 6 for indices 6..9
	for i, pt := range s.Points {
		want := i >= 3 && (i < 6 || i > 9)
		if pt.Valid != want {
			t.Fatalf("point %d: expected valid=%v, got %v", i, want, pt.Valid)
		}
	}
}

func TestEvaluateRejectsUnorderedDates(t *testing.T) {
	f := newFixture(t)
	body := `{"short":2,"long":3,"closes":[{"date":"2024-01-02","value":1},{"date":"2024-01-01","value":2}]}`
	code, _ := f.do(t, http.MethodPost, "/api/excess-demand/evaluate", body)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestScanCollectsPerSymbolErrors(t *testing.T) {
	f := newFixture(t)
	code, env := f.do(t, http.MethodGet, "/api/scan?symbols=AAA,ZZZ", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var res models.ScanResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode scan: %v", err)
	}
	if _, ok := res.Signals["AAA"]; !ok {
		t.Fatalf("expected AAA signal, got %+v", res.Signals)
	}
	if _, ok := res.Errors["ZZZ"]; !ok {
		t.Fatalf("expected ZZZ error, got %+v", res.Errors)
	}
}

func TestIngestThenQueryCandles(t *testing.T) {
	f := newFixture(t)
	body := `{"symbol":"BBB","period":"daily","candles":[
		{"date":"2024-02-02T00:00:00Z","close":11},
		{"date":"2024-02-01T00:00:00Z","close":10},
		{"date":"2024-02-02T00:00:00Z","close":12}]}`
	code, env := f.do(t, http.MethodPost, "/api/candles", body)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, env.Data)
	}
	var out struct {
		Ingested int `json:"ingested"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode ingest: %v", err)
	}
	if out.Ingested != 2 {
		t.Fatalf("expected 2 deduplicated candles, got %d", out.Ingested)
	}

	code, env = f.do(t, http.MethodGet, "/api/candles?symbol=BBB&from=20240101&to=20240301", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var res usecase.GetCandlesResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode candles: %v", err)
	}
	if res.Count != 2 || res.Candles[1].Close != 12 {
		t.Fatalf("unexpected candles %+v", res.Candles)
	}
}

func TestIngestRefreshesSignalHistory(t *testing.T) {
	f := newFixture(t)
	batch := models.IngestCandlesRequest{Symbol: "CCC", Period: "daily", Candles: uptrend("CCC", 60)}
	b, _ := json.Marshal(batch)
	if code, env := f.do(t, http.MethodPost, "/api/candles", string(b)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, env.Data)
	}

	code, env := f.do(t, http.MethodGet, "/api/signals/history?symbol=CCC", "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var list struct {
		Rows  []models.Signal `json:"rows"`
		Total int64           `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if list.Total != 1 || list.Rows[0].Symbol != "CCC" || list.Rows[0].Signal <= 0 {
		t.Fatalf("unexpected history %+v", list)
	}
}

func TestHealthReportsFailingDependency(t *testing.T) {
	f := newFixture(t)
	f.h.AddHealthCheck("clickhouse", func(context.Context) error { return nil })
	f.h.AddHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	code, env := f.do(t, http.MethodGet, "/healthz", "")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	var deps map[string]string
	if err := json.Unmarshal(env.Data, &deps); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if deps["clickhouse"] != "ok" || deps["redis"] != "connection refused" {
		t.Fatalf("unexpected health %v", deps)
	}
}

func jsonFloat(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
