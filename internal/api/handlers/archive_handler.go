package handlers

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/api/response"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"github.com/welldanyogia/paperboy/internal/validator"
)

// ArchiveHandler handles email archive HTTP requests
type ArchiveHandler struct {
	service ArchiveService
	now     func() time.Time
}

// NewArchiveHandler creates a new ArchiveHandler
func NewArchiveHandler(service ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{service: service, now: time.Now}
}

// TagsRequest represents the request body for tagging an archived email
type TagsRequest struct {
	Tags []string `json:"tags"`
}

// List handles GET /api/archive
func (h *ArchiveHandler) List(c echo.Context) error {
	limit, _ := validator.ValidatePagination(queryInt(c, "limit", 0), 0)
	filter := repository.ArchiveFilter{
		Type:   models.EmailType(strings.ToLower(c.QueryParam("type"))),
		Sender: strings.TrimSpace(c.QueryParam("sender")),
		Limit:  limit,
	}
	if days := queryInt(c, "days", 0); days > 0 {
		since := h.now().AddDate(0, 0, -days)
		filter.Since = &since
	}

	items, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return failure(c, err, "failed to list archived emails")
	}
	return response.Success(c, items)
}

// Get handles GET /api/archive/:id
func (h *ArchiveHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid archive ID")
	}

	email, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return failure(c, err, "failed to get archived email")
	}
	return response.Success(c, email)
}

// Stats handles GET /api/archive/stats
func (h *ArchiveHandler) Stats(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return failure(c, err, "failed to get archive statistics")
	}
	return response.Success(c, stats)
}

// Replay handles POST /api/archive/:id/replay
func (h *ArchiveHandler) Replay(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid archive ID")
	}

	outcome, err := h.service.Replay(c.Request().Context(), id)
	if err != nil {
		return failure(c, err, "failed to replay email")
	}
	return response.Success(c, outcome)
}

// AddTags handles POST /api/archive/:id/tags
func (h *ArchiveHandler) AddTags(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid archive ID")
	}

	var req TagsRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	tags, err := validator.NormalizeTags(req.Tags)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	if len(tags) == 0 {
		return response.BadRequest(c, "tags is required")
	}

	stored, err := h.service.AddTags(c.Request().Context(), id, tags)
	if err != nil {
		return failure(c, err, "failed to tag email")
	}
	return response.Success(c, map[string]string{"tags": stored})
}
