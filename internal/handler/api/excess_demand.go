package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	icache "FinFuzz/internal/service/cache"
	"FinFuzz/internal/service/metrics"
	"FinFuzz/internal/service/ratelimit"
	"FinFuzz/internal/services/fuzzy"
	"FinFuzz/internal/usecase"
	xhttp "FinFuzz/pkg/http"
	applogger "FinFuzz/pkg/logger"
	"FinFuzz/pkg/util"
)

const maxScanSymbols = 200

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ExcessDemandHandler serves the excess-demand API.
type ExcessDemandHandler struct {
	ed      *usecase.ExcessDemandUseCase
	scan    *usecase.ScanUseCase
	candles *usecase.CandlesUseCase
	proc    *usecase.CandleProcessor
	signals domrepo.SignalStore

	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	checks   map[string]HealthCheck
	l        *applogger.Logger
}

var _ xhttp.Handler = (*ExcessDemandHandler)(nil)

func NewExcessDemandHandler(
	ed *usecase.ExcessDemandUseCase,
	scan *usecase.ScanUseCase,
	candles *usecase.CandlesUseCase,
	proc *usecase.CandleProcessor,
	signals domrepo.SignalStore,
) *ExcessDemandHandler {
	metrics.Register()
	return &ExcessDemandHandler{
		ed:       ed,
		scan:     scan,
		candles:  candles,
		proc:     proc,
		signals:  signals,
		cacheTTL: 30 * time.Second,
		rl:       ratelimit.New(),
		checks:   map[string]HealthCheck{},
	}
}

// SetCache enables response caching of latest signals.
func (h *ExcessDemandHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

// SetLogger injects a structured logger.
func (h *ExcessDemandHandler) SetLogger(l *applogger.Logger) { h.l = l }

// AddHealthCheck registers a dependency probed by /healthz.
func (h *ExcessDemandHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// SweepLimiter forgets rate-limit buckets of clients idle for longer than idle.
func (h *ExcessDemandHandler) SweepLimiter(idle time.Duration) int { return h.rl.Sweep(idle) }

func (h *ExcessDemandHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/fuzzify", h.Fuzzify)
	g.GET("/excess-demand", h.Series)
	g.GET("/excess-demand/latest", h.Latest)
	g.POST("/excess-demand/evaluate", h.Evaluate)
	g.GET("/scan", h.Scan)
	g.GET("/candles", h.Candles)
	g.POST("/candles", h.IngestCandles)
	g.GET("/signals/history", h.SignalHistory)
}

// Fuzzify evaluates a single log-ratio value.
func (h *ExcessDemandHandler) Fuzzify(c echo.Context) error {
	defer observe("fuzzify", time.Now())
	req := &models.FuzzifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "fuzzify", verr)
	}
	w := h.ed.Defaults().Spread
	if req.Spread != nil {
		w = *req.Spread
	}
	ev, err := fuzzy.Evaluate(req.X, w)
	if err != nil {
		return h.fail(c, "fuzzify", err)
	}
	return xhttp.SuccessResponse(c, ev)
}

// Series returns the per-date excess-demand series of a symbol.
func (h *ExcessDemandHandler) Series(c echo.Context) error {
	defer observe("series", time.Now())
	req := &models.ExcessDemandRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "series", verr)
	}
	p, aerr := h.seriesParams(req)
	if aerr != nil {
		return h.fail(c, "series", aerr)
	}

	res, err := h.ed.Series(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, "series", err)
	}
	if !req.IncludeInvalid {
		valid := make([]models.ExcessDemandPoint, 0, len(res.Points))
		for _, pt := range res.Points {
			if pt.Valid {
				valid = append(valid, pt)
			}
		}
		res.Points = valid
	}
	return xhttp.SuccessResponse(c, res)
}

// Latest returns the last valid signal of a symbol, served from cache when possible.
func (h *ExcessDemandHandler) Latest(c echo.Context) error {
	defer observe("latest", time.Now())
	req := &models.ExcessDemandRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "latest", verr)
	}
	if !h.rl.Allow(c.RealIP()+":latest", 5, 2) {
		h.warn("api.latest rate_limited", applogger.String("remote", c.RealIP()))
		return h.fail(c, "latest", xhttp.TooManyRequestsError("rate limited"))
	}
	p, aerr := h.seriesParams(req)
	if aerr != nil {
		return h.fail(c, "latest", aerr)
	}

	ctx := c.Request().Context()
	key := latestCacheKey(p)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(ctx, key); err != nil {
			h.warn("api.latest cache_get_error", applogger.Error(err))
		} else if ok {
			metrics.CacheResults.WithLabelValues("latest", "hit").Inc()
			return xhttp.RawDataResponse(c, http.StatusOK, b)
		}
		metrics.CacheResults.WithLabelValues("latest", "miss").Inc()
	}

	sig, err := h.ed.Latest(ctx, p)
	if err != nil {
		return h.fail(c, "latest", err)
	}
	b, err := json.Marshal(sig)
	if err != nil {
		return h.fail(c, "latest", err)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(ctx, key, b, h.cacheTTL); err != nil {
			h.warn("api.latest cache_set_error", applogger.Error(err))
		}
	}
	return xhttp.RawDataResponse(c, http.StatusOK, b)
}

// Evaluate runs the pipeline over caller-supplied closes without touching storage.
func (h *ExcessDemandHandler) Evaluate(c echo.Context) error {
	defer observe("evaluate", time.Now())
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "evaluate", verr)
	}

	series := make(models.Series, len(req.Closes))
	for i, cp := range req.Closes {
		d, ok := util.ParseTime(cp.Date)
		if !ok {
			return h.fail(c, "evaluate", xhttp.NewAppError("ERR_INVALID_DATE", "closes", "invalid date: "+cp.Date, http.StatusBadRequest))
		}
		if i > 0 && !d.After(series[i-1].Date) {
			return h.fail(c, "evaluate", xhttp.NewAppError("ERR_INVALID_PARAMETER", "closes", "dates must be strictly increasing", http.StatusBadRequest))
		}
		series[i] = models.Point{Date: d}
		if cp.Value != nil {
			series[i].Value = *cp.Value
			series[i].Valid = true
		}
	}

	fp := h.fuzzyParams("close", req.Short, req.Long, req.Spread)
	res, err := h.ed.EvaluateSeries(req.Symbol, series, *fp)
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Scan returns the latest signal of several symbols.
func (h *ExcessDemandHandler) Scan(c echo.Context) error {
	defer observe("scan", time.Now())
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "scan", verr)
	}
	if !h.rl.Allow(c.RealIP()+":scan", 2, 0.5) {
		return h.fail(c, "scan", xhttp.TooManyRequestsError("rate limited"))
	}
	symbols := util.SplitSymbols(req.Symbols)
	if len(symbols) > maxScanSymbols {
		return h.fail(c, "scan", xhttp.BadRequestErrorf("at most %d symbols per scan", maxScanSymbols))
	}

	res, err := h.scan.Scan(c.Request().Context(), usecase.ScanParams{
		Symbols: symbols,
		Period:  domrepo.NormalizePeriod(req.Period),
		Fuzzy:   h.fuzzyParams(req.Column, req.Short, req.Long, req.Spread),
	})
	if err != nil {
		return h.fail(c, "scan", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Candles returns stored candles of a symbol in a date range.
func (h *ExcessDemandHandler) Candles(c echo.Context) error {
	defer observe("candles", time.Now())
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "candles", verr)
	}

	now := time.Now().UTC()
	to := util.ParseTimeDefault(req.To, now)
	from := util.ParseTimeDefault(req.From, to.AddDate(-5, 0, 0))
	from, to = util.AlignFromTo(from, to, req.Period)

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol: req.Symbol,
		From:   from,
		To:     to,
		Period: domrepo.NormalizePeriod(req.Period),
		Limit:  req.Limit,
	})
	if err != nil {
		return h.fail(c, "candles", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// IngestCandles routes a candle batch to the configured backend.
func (h *ExcessDemandHandler) IngestCandles(c echo.Context) error {
	defer observe("ingest", time.Now())
	if h.proc == nil {
		return h.fail(c, "ingest", xhttp.ServiceUnavailableError("ingestion disabled"))
	}
	req := &models.IngestCandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "ingest", verr)
	}

	n, err := h.proc.Process(c.Request().Context(), models.CandleBatch{
		Symbol:  req.Symbol,
		Period:  req.Period,
		Candles: req.Candles,
	})
	if err != nil {
		return h.fail(c, "ingest", err)
	}
	out := map[string]interface{}{
		"symbol":   req.Symbol,
		"period":   req.Period,
		"ingested": n,
		"backend":  h.proc.Backend(),
	}
	if h.proc.Backend() == "kafka" {
		return xhttp.AcceptedResponse(c, out)
	}
	return xhttp.SuccessResponse(c, out)
}

// SignalHistory lists persisted signals of a symbol, newest first.
func (h *ExcessDemandHandler) SignalHistory(c echo.Context) error {
	defer observe("signal_history", time.Now())
	if h.signals == nil {
		return h.fail(c, "signal_history", xhttp.ServiceUnavailableError("signal store disabled"))
	}
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.invalid(c, "signal_history", verr)
	}

	rows, err := h.signals.LatestSignals(c.Request().Context(), req.Symbol, domrepo.NormalizePeriod(req.Period), req.Limit)
	if err != nil {
		return h.fail(c, "signal_history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health probes the registered dependencies.
func (h *ExcessDemandHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return xhttp.DataResponse(c, status, deps)
}

// fuzzyParams overlays the supplied fields on the configured defaults.
// Explicit zeros are kept so the evaluator rejects them.
func (h *ExcessDemandHandler) fuzzyParams(column string, short, long *int, spread *float64) *models.FuzzyParams {
	fp := h.ed.Defaults()
	if column != "" {
		fp.Column = column
	}
	if short != nil {
		fp.ShortWindow = *short
	}
	if long != nil {
		fp.LongWindow = *long
	}
	if spread != nil {
		fp.Spread = *spread
	}
	return &fp
}

func (h *ExcessDemandHandler) seriesParams(req *models.ExcessDemandRequest) (usecase.SeriesParams, *xhttp.AppError) {
	p := usecase.SeriesParams{
		Symbol: req.Symbol,
		Period: domrepo.NormalizePeriod(req.Period),
		N:      req.N,
		Fuzzy:  h.fuzzyParams(req.Column, req.Short, req.Long, req.Spread),
	}
	if req.Start == "" && req.End == "" {
		return p, nil
	}
	from, ok := util.ParseTime(req.Start)
	if req.Start != "" && !ok {
		return p, xhttp.NewAppError("ERR_INVALID_DATE", "start", "invalid start: "+req.Start, http.StatusBadRequest)
	}
	to, ok := util.ParseTime(req.End)
	if req.End != "" && !ok {
		return p, xhttp.NewAppError("ERR_INVALID_DATE", "end", "invalid end: "+req.End, http.StatusBadRequest)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(-10, 0, 0)
	}
	p.From, p.To = util.AlignFromTo(from, to, string(p.Period))
	return p, nil
}

func latestCacheKey(p usecase.SeriesParams) string {
	return fmt.Sprintf("latest:%s:%s:%s:%d:%d:%s:%d:%d",
		p.Symbol, p.Period, p.Fuzzy.Column, p.Fuzzy.ShortWindow, p.Fuzzy.LongWindow,
		strconv.FormatFloat(p.Fuzzy.Spread, 'g', -1, 64), p.From.Unix(), p.To.Unix())
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *ExcessDemandHandler) invalid(c echo.Context, endpoint string, verr interface{}) error {
	metrics.APIErrors.WithLabelValues(endpoint, "ERR_VALIDATION").Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func (h *ExcessDemandHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if h.l != nil {
		fields := []applogger.Field{
			applogger.String("endpoint", endpoint),
			applogger.String("code", appErr.Code),
			applogger.Error(err),
		}
		if appErr.Status >= http.StatusInternalServerError {
			h.l.Error("api request failed", fields...)
		} else {
			h.l.Debug("api request rejected", fields...)
		}
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *ExcessDemandHandler) warn(msg string, fields ...applogger.Field) {
	if h.l != nil {
		h.l.Warn(msg, fields...)
	}
}
