package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	models "CryptoSign/internal/domain/models"
	apimetrics "CryptoSign/internal/service/metrics"
	"CryptoSign/internal/service/ratelimit"
	"CryptoSign/internal/services/signals"
	"CryptoSign/internal/usecase"
	xhttp "CryptoSign/pkg/http"
	xlogger "CryptoSign/pkg/logger"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// Limits bounds the ranges the API accepts.
type Limits struct {
	Earliest     time.Time // earliest start date; zero disables the guard
	MaxRangeDays int       // zero disables the guard
}

// SignalsEchoHandler serves the signal calendar and backtests over Echo.
type SignalsEchoHandler struct {
	logger  *xlogger.Logger
	cal     *usecase.SignalCalendar
	bt      *usecase.Backtester
	limiter *ratelimit.Limiter
	limits  Limits
	health  map[string]HealthCheck
}

// NewSignalsEchoHandler wires the handler. bt may be nil when no bar source is configured;
// /api/backtest then answers 503.
func NewSignalsEchoHandler(logger *xlogger.Logger, cal *usecase.SignalCalendar, bt *usecase.Backtester, limiter *ratelimit.Limiter, limits Limits) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{logger: logger, cal: cal, bt: bt, limiter: limiter, limits: limits, health: map[string]HealthCheck{}}
}

// AddHealthCheck registers a dependency probed by /healthz.
func (h *SignalsEchoHandler) AddHealthCheck(name string, check HealthCheck) {
	h.health[name] = check
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.POST("/signals/publish", h.Publish, h.rateLimited)
	g.GET("/classify", h.Classify)
	g.GET("/hours", h.Hours)
	g.GET("/backtest", h.Backtest, h.rateLimited)
	g.POST("/backtest", h.Backtest, h.rateLimited)
}

func (h *SignalsEchoHandler) rateLimited(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP()) {
			apimetrics.APIErrors.WithLabelValues(strings.TrimPrefix(c.Path(), "/api/"), "ERR_TOO_MANY_REQUESTS").Inc()
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
		return next(c)
	}
}

func (h *SignalsEchoHandler) loc() *time.Location { return h.cal.Generator().Location() }

func (h *SignalsEchoHandler) date(s string) (time.Time, error) {
	return xhttp.ParseDate(s, h.loc())
}

// earliest pins the configured calendar date to the generator location.
func (h *SignalsEchoHandler) earliest() time.Time {
	y, m, d := h.limits.Earliest.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, h.loc())
}

// dateRange parses and guards a request range.
func (h *SignalsEchoHandler) dateRange(start, end string) (models.DateRange, *xhttp.AppError) {
	from, err := h.date(start)
	if err != nil {
		return models.DateRange{}, xhttp.UnprocessableError("ERR_DATETIME", "start", err.Error())
	}
	to, err := h.date(end)
	if err != nil {
		return models.DateRange{}, xhttp.UnprocessableError("ERR_DATETIME", "end", err.Error())
	}
	rng := models.DateRange{Start: from, End: to}
	if err := rng.Validate(); err != nil {
		return rng, xhttp.NewAppError("ERR_INVALID_RANGE", "end", err.Error(), http.StatusBadRequest)
	}
	if !h.limits.Earliest.IsZero() && models.CivilDate(from).Before(h.earliest()) {
		return rng, xhttp.NewAppError("ERR_RANGE_TOO_EARLY", "start", "start is before the earliest supported date", http.StatusBadRequest).
			WithParam("earliest", h.limits.Earliest.Format(time.DateOnly))
	}
	if h.limits.MaxRangeDays > 0 && rng.Days() > h.limits.MaxRangeDays {
		return rng, xhttp.NewAppError("ERR_RANGE_TOO_LONG", "end", "range is too long", http.StatusBadRequest).
			WithParam("max_days", h.limits.MaxRangeDays)
	}
	return rng, nil
}

// fail maps domain errors onto AppErrors.
func (h *SignalsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, models.ErrInvalidRange):
		appErr = xhttp.NewAppError("ERR_INVALID_RANGE", "", err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrNoBars):
		appErr = xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrPublisherDisabled):
		appErr = xhttp.UnavailableError(err.Error())
	case errors.Is(err, models.ErrConfiguration):
		h.logger.Error("configuration error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.NewAppError("ERR_CONFIGURATION", "", err.Error(), http.StatusInternalServerError)
	default:
		h.logger.Error("usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.InternalError("Something went wrong").WithError(err)
	}
	apimetrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	return xhttp.AppErrorResponse(c, appErr)
}

type signalsData struct {
	Range   xhttp.DateRangeData       `json:"range"`
	Rule    models.ClassificationRule `json:"rule"`
	Records []models.SignalRecord     `json:"records"`
}

func (h *SignalsEchoHandler) Signals(c echo.Context) error {
	start := time.Now()
	defer apimetrics.ObserveSince("signals", start)

	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rng, aerr := h.dateRange(req.Start, req.End)
	if aerr != nil {
		return h.fail(c, "signals", aerr)
	}
	apimetrics.RangeDays.WithLabelValues("signals").Observe(float64(rng.Days()))

	recs, err := h.cal.Calendar(c.Request().Context(), rng)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	if req.Format == "text" {
		return xhttp.TextResponse(c, signals.Format(recs))
	}
	return xhttp.SuccessResponse(c, signalsData{
		Range:   xhttp.DateRangeData{Start: rng.Start, End: rng.End, Days: rng.Days()},
		Rule:    h.cal.Generator().Rule(),
		Records: recs,
	})
}

type publishData struct {
	Range     xhttp.DateRangeData `json:"range"`
	Published int                 `json:"published"`
}

// Publish sends the calendar of a range to the signals topic.
func (h *SignalsEchoHandler) Publish(c echo.Context) error {
	defer apimetrics.ObserveSince("publish", time.Now())

	req := &models.PublishRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rng, aerr := h.dateRange(req.Start, req.End)
	if aerr != nil {
		return h.fail(c, "publish", aerr)
	}
	n, err := h.cal.Publish(c.Request().Context(), rng)
	if err != nil {
		return h.fail(c, "publish", err)
	}
	return xhttp.SuccessResponse(c, publishData{
		Range:     xhttp.DateRangeData{Start: rng.Start, End: rng.End, Days: rng.Days()},
		Published: n,
	})
}

type classifyData struct {
	models.SignalRecord
	Signal string `json:"signal"`
}

func (h *SignalsEchoHandler) Classify(c echo.Context) error {
	defer apimetrics.ObserveSince("classify", time.Now())

	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	d, err := h.date(req.Date)
	if err != nil {
		return h.fail(c, "classify", xhttp.UnprocessableError("ERR_DATETIME", "date", err.Error()))
	}
	rec := h.cal.Record(d)
	return xhttp.SuccessResponse(c, classifyData{SignalRecord: rec, Signal: signals.SignalText(rec)})
}

type hoursData struct {
	Date     string              `json:"date"`
	Anchored int                 `json:"anchored_code"`
	Hours    []models.HourSignal `json:"hours"`
}

func (h *SignalsEchoHandler) Hours(c echo.Context) error {
	defer apimetrics.ObserveSince("hours", time.Now())

	req := &models.HoursRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	d, err := h.date(req.Date)
	if err != nil {
		return h.fail(c, "hours", xhttp.UnprocessableError("ERR_DATETIME", "date", err.Error()))
	}
	rec := h.cal.Record(d)
	return xhttp.SuccessResponse(c, hoursData{
		Date:     d.Format(time.DateOnly),
		Anchored: rec.Codes.AnchoredCode,
		Hours:    h.cal.Hours(d),
	})
}

func (h *SignalsEchoHandler) Backtest(c echo.Context) error {
	defer apimetrics.ObserveSince("backtest", time.Now())

	if h.bt == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("backtesting is not configured"))
	}
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rng, aerr := h.dateRange(req.Start, req.End)
	if aerr != nil {
		return h.fail(c, "backtest", aerr)
	}
	apimetrics.RangeDays.WithLabelValues("backtest").Observe(float64(rng.Days()))

	rep, err := h.bt.Run(c.Request().Context(), usecase.BacktestParams{
		Symbol:      req.Symbol,
		Range:       rng,
		Mode:        models.SimulationMode(req.Mode),
		Granularity: models.Granularity(req.Granularity),
		Persist:     req.Persist,
		Publish:     true,
	})
	if err != nil {
		return h.fail(c, "backtest", err)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	status := map[string]string{}
	healthy := true
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}
