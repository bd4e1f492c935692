package api

import (
	"context"
	"errors"
	"time"

	models "VolTune/internal/domain/models"
	domrepo "VolTune/internal/domain/repository"
	"VolTune/internal/repository"
	"VolTune/internal/service/ratelimit"
	"VolTune/internal/usecase"
	xhttp "VolTune/pkg/http"
	xlogger "VolTune/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RunsHandler exposes the tuning run API: submit a run, poll its state, read
// the full metric table, stream progress over WebSocket.
type RunsHandler struct {
	logger   *xlogger.Logger
	runner   *usecase.TuneRunner
	registry *usecase.RunRegistry
	cache    domrepo.ReportCache
	store    domrepo.DatasetStore
	ws       *RunsWSHandler
	limiter  *ratelimit.Limiter
}

func NewRunsHandler(
	logger *xlogger.Logger,
	runner *usecase.TuneRunner,
	registry *usecase.RunRegistry,
	cache domrepo.ReportCache,
	store domrepo.DatasetStore,
	ws *RunsWSHandler,
) *RunsHandler {
	return &RunsHandler{
		logger:   logger,
		runner:   runner,
		registry: registry,
		cache:    cache,
		store:    store,
		ws:       ws,
		limiter:  ratelimit.New(),
	}
}

// submissions are expensive; a burst of 5 with slow refill per client
const (
	submitBurst  = 5
	submitRefill = 0.2
)

func (h *RunsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/runs", h.Submit)
	g.GET("/runs/:id", h.Get)
	g.GET("/runs/:id/records", h.Records)
	e.GET("/ws/runs/:id", h.ws.Stream)
	e.GET("/healthz", h.Health)
}

func (h *RunsHandler) Submit(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP(), submitBurst, submitRefill) {
		return xhttp.TooManyRequestsResponse(c, "run submission rate exceeded")
	}

	req := &models.SubmitRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	tuneReq := models.TuneRequest{
		RunID:    uuid.NewString(),
		From:     xhttp.ParseTimeDefault(req.From, time.Time{}),
		To:       xhttp.ParseTimeDefault(req.To, now),
		Lookback: req.Lookback,
		Assess:   req.Assess,
		Step:     req.Step,
		Size:     req.Size,
		Seed:     req.Seed,
		Metric:   req.Metric,
	}

	if err := h.runner.Submit(c.Request().Context(), tuneReq); err != nil {
		h.logger.Error("submit run", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.CreatedResponse(c, &models.SubmitRunResponse{
		RunID:  tuneReq.RunID,
		Status: models.RunQueued,
	})
}

func (h *RunsHandler) Get(c echo.Context) error {
	runID := c.Param("id")

	state := h.registry.Get(runID)
	if state == nil && h.cache != nil {
		cached, err := h.cache.GetRun(c.Request().Context(), runID)
		if err != nil && !errors.Is(err, repository.ErrRunNotFound) {
			h.logger.Error("read cached run", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		state = cached
	}
	if state == nil {
		return xhttp.NotFoundResponse(c, "run not found")
	}
	return xhttp.SuccessResponse(c, state)
}

func (h *RunsHandler) Records(c echo.Context) error {
	runID := c.Param("id")

	records := h.registry.Records(runID)
	if records == nil {
		if h.registry.Get(runID) == nil {
			return xhttp.NotFoundResponse(c, "run not found")
		}
		// run known but still evaluating
		records = []models.MetricRecord{}
	}
	return xhttp.ListResponse(c, records, int64(len(records)))
}

func (h *RunsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		return xhttp.ServiceUnavailableResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
