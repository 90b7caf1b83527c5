package integrity

import (
	"event-catalog/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/redis", h.HandleRedisCheck)
}

func status(ok bool) int {
	if ok {
		return fiber.StatusOK
	}
	return fiber.StatusServiceUnavailable
}

// HandleIntegrityCheck runs all checks.
// @Summary Run All Integrity Checks
// @Description Verifies the catalog schema, the storage bucket folders and Redis.
// @Tags integrity
// @Produce json
// @Param fix query bool false "Create missing storage folders"
// @Success 200 {object} Report
// @Failure 503 {object} Report "A check failed"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	report := h.service.Run(c.Context(), c.QueryBool("fix"))
	if !report.OK() {
		l.Warn("Integrity check failed",
			zap.String("catalog", report.Catalog.Status),
			zap.String("storage", report.Storage.Status),
			zap.String("redis", report.Redis.Status))
	}
	return c.Status(status(report.OK())).JSON(report)
}

// HandleSchemaCheck verifies the catalog schema.
// @Summary Check Catalog Schema
// @Tags integrity
// @Produce json
// @Success 200 {object} database.SchemaReport
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	report, section := h.service.CheckSchema()
	if report == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(section)
	}
	return c.Status(status(section.Status == StatusOK)).JSON(report)
}

// HandleStorageCheck verifies the storage folders.
// @Summary Check Storage
// @Tags integrity
// @Produce json
// @Param fix query bool false "Create missing folders"
// @Success 200 {object} Section
// @Router /integrity/storage [get]
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	section := h.service.CheckStorage(c.Context(), c.QueryBool("fix"))
	return c.Status(status(section.Status == StatusOK || section.Status == StatusDisabled)).JSON(section)
}

// HandleRedisCheck pings Redis.
// @Summary Check Redis
// @Tags integrity
// @Produce json
// @Success 200 {object} Section
// @Router /integrity/redis [get]
func (h *Handler) HandleRedisCheck(c *fiber.Ctx) error {
	section := h.service.CheckRedis(c.Context())
	return c.Status(status(section.Status != StatusError)).JSON(section)
}
