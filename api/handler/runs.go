package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/jobscout/cache"
	"github.com/use-agent/jobscout/models"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, q models.SearchQuery, maxResults int) *models.RunResult
}

// Gate admits one run at a time.
type Gate struct {
	running atomic.Bool
}

// TryEnter claims the gate, reporting false if a run already holds it.
func (g *Gate) TryEnter() bool { return g.running.CompareAndSwap(false, true) }

// Leave releases the gate.
func (g *Gate) Leave() { g.running.Store(false) }

// Running reports whether a run holds the gate.
func (g *Gate) Running() bool { return g.running.Load() }

// PostRun returns a handler for POST /api/v1/runs.
//
// The body is optional; empty fields fall back to defaults and maxResults.
// The run executes synchronously and the result is kept in store for
// GET /api/v1/runs/:id.
func PostRun(runner Runner, gate *Gate, store *cache.Cache, defaults models.SearchQuery, maxResults int) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), nil), nil)
			return
		}
		req.Keyword = strings.TrimSpace(req.Keyword)
		req.Location = strings.TrimSpace(req.Location)
		req.Defaults(defaults, maxResults)

		// ── 2. One run at a time ────────────────────────────────────
		if !gate.TryEnter() {
			respondError(c, models.NewScrapeError(models.ErrCodeRunInProgress, "another run is in progress", nil), nil)
			return
		}
		defer gate.Leave()

		// ── 3. Run and remember ─────────────────────────────────────
		run := runner.Run(c.Request.Context(), req.Query(), *req.MaxResults)
		store.Set(run)

		if !run.Success {
			var se *models.ScrapeError
			if !errors.As(run.Err(), &se) {
				se = models.NewScrapeError(models.ErrCodeInternal, "run failed", run.Err())
			}
			respondError(c, se, run)
			return
		}

		slog.Info("run served", "run_id", run.RunID, "records", len(run.Records))
		c.JSON(http.StatusOK, models.RunResponse{Success: true, Run: run})
	}
}

// GetRun returns a handler for GET /api/v1/runs/:id.
func GetRun(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := store.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.RunResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNotFound,
					Message: "run not found or expired",
				},
			})
			return
		}
		c.JSON(http.StatusOK, models.RunResponse{Success: run.Success, Run: run, Error: run.Error})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, e *models.ScrapeError, run *models.RunResult) {
	c.JSON(mapErrorToStatus(e), models.RunResponse{
		Success: false,
		Run:     run,
		Error:   e.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeNavTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeExtraction:
		return http.StatusBadGateway // 502
	case models.ErrCodeLaunch, models.ErrCodeSessionConfig:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRunInProgress:
		return http.StatusConflict // 409
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
