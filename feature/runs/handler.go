package runs

import (
	"context"
	"errors"

	"event-catalog/core/logger"
	"event-catalog/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler exposes run control over HTTP.
type Handler struct {
	runner *Runner
	base   context.Context
	logger *zap.Logger
}

// NewHandler creates a handler. Runs started in the background use base, so
// they outlive the request that triggered them.
func NewHandler(base context.Context, runner *Runner, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, base: base, logger: logger}
}

// RegisterRoutes registers the run routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/runs")
	group.Post("/", h.HandleTrigger)
	group.Get("/latest", h.HandleLatest)
}

// HandleTrigger starts a reconciliation run.
// @Summary Trigger Run
// @Description Starts a reconciliation run in the background. With wait=true the request blocks and returns the run summary.
// @Tags runs
// @Produce json
// @Param wait query bool false "Wait for the run to finish"
// @Success 200 {object} reconcile.Summary
// @Success 202 {object} map[string]string
// @Failure 409 {object} map[string]string "Run in progress on another replica"
// @Failure 503 {object} map[string]string "Catalog unavailable"
// @Router /runs [post]
func (h *Handler) HandleTrigger(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	if !c.QueryBool("wait") {
		if h.runner.Running() {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "running"})
		}
		l.Info("Run triggered")
		go func() {
			if _, err := h.runner.Trigger(h.base); err != nil && !errors.Is(err, ErrBusy) {
				h.logger.Error("Triggered run failed", zap.Error(err))
			}
		}()
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
	}

	l.Info("Run triggered, waiting for completion")
	summary, err := h.runner.Trigger(c.Context())
	switch {
	case err == nil:
		return c.JSON(summary)
	case errors.Is(err, ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, reconcile.ErrStoreUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		l.Error("Run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// HandleLatest returns the most recent run.
// @Summary Latest Run
// @Description Returns the summary of the most recent run completed by this instance.
// @Tags runs
// @Produce json
// @Success 200 {object} Status
// @Failure 404 {object} map[string]string "No run yet"
// @Router /runs/latest [get]
func (h *Handler) HandleLatest(c *fiber.Ctx) error {
	st := h.runner.Status()
	if st.Summary == nil && st.Error == "" && !st.Running {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no runs yet"})
	}
	return c.JSON(st)
}
