package events

import (
	"errors"
	"strings"
	"time"

	"event-catalog/core/catalog"
	"event-catalog/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the events catalog.
type Handler struct {
	service     *Service
	defaultCity string
	location    *time.Location
}

// NewHandler creates a new HTTP handler. Dates in queries without an offset
// are read in loc.
func NewHandler(service *Service, defaultCity string, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, defaultCity: defaultCity, location: loc}
}

// RegisterRoutes registers the events routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/events")
	group.Get("/", h.HandleList)
	group.Get("/:id", h.HandleGet)
	group.Post("/:id/claim", h.HandleClaim)
	group.Post("/:id/import", h.HandleClaim)
	group.Post("/:id/unclaim", h.HandleUnclaim)
}

// ClaimRequest is the body of a claim.
type ClaimRequest struct {
	Actor       string `json:"actor"`
	Notes       string `json:"notes"`
	ImportNotes string `json:"importNotes"`
}

// HandleList lists events.
// @Summary List Events
// @Description Lists catalog events ordered by date. Retired events are hidden unless status=inactive or includeInactive=true.
// @Tags events
// @Produce json
// @Param city query string false "City (defaults to the configured city, 'all' for every city)"
// @Param status query string false "new, updated, inactive or imported"
// @Param search query string false "Case-insensitive match on title, venue and description"
// @Param from query string false "Earliest date (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Latest date (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} Page
// @Failure 400 {object} map[string]string "Invalid query"
// @Router /events [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	f := catalog.Filter{
		City:            c.Query("city", h.defaultCity),
		Status:          catalog.Status(c.Query("status")),
		IncludeInactive: c.QueryBool("includeInactive"),
		Search:          strings.TrimSpace(c.Query("search")),
		Page:            c.QueryInt("page", 1),
		Limit:           c.QueryInt("limit", 50),
	}
	if strings.EqualFold(f.City, "all") {
		f.City = ""
	}
	if f.Status != "" && !f.Status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}

	var err error
	if f.From, err = h.parseDate(c.Query("from"), false); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid from date"})
	}
	if f.To, err = h.parseDate(c.Query("to"), true); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid to date"})
	}

	page, err := h.service.List(c.Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}

// HandleGet returns one event.
// @Summary Get Event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} catalog.Event
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	ev, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ev)
}

// HandleClaim imports an event.
// @Summary Claim Event
// @Description Marks the event as imported. Reconciliation will no longer change its status or content.
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param body body ClaimRequest false "Claim details"
// @Success 200 {object} catalog.Event
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events/{id}/claim [post]
func (h *Handler) HandleClaim(c *fiber.Ctx) error {
	var req ClaimRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
	}
	notes := req.Notes
	if notes == "" {
		notes = req.ImportNotes
	}

	ev, err := h.service.Claim(c.Context(), c.Params("id"), strings.TrimSpace(req.Actor), notes)
	if err != nil {
		return h.fail(c, err)
	}
	logger.WithRayID(h.service.logger, c).Debug("Claim request served", zap.String("event_id", ev.ID))
	return c.JSON(ev)
}

// HandleUnclaim returns an event to automated management.
// @Summary Unclaim Event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} catalog.Event
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events/{id}/unclaim [post]
func (h *Handler) HandleUnclaim(c *fiber.Ctx) error {
	ev, err := h.service.Unclaim(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ev)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event not found"})
	case errors.Is(err, catalog.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "catalog unavailable"})
	}
	logger.WithRayID(h.service.logger, c).Error("Events request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// parseDate accepts RFC3339 or a bare day. A bare "to" day covers the whole day.
func (h *Handler) parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, h.location)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}
