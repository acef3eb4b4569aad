package handlers

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/api/response"
	"github.com/welldanyogia/paperboy/internal/validator"
)

// DigestHandler handles weekly digest HTTP requests
type DigestHandler struct {
	service DigestService
	now     func() time.Time
}

// NewDigestHandler creates a new DigestHandler
func NewDigestHandler(service DigestService) *DigestHandler {
	return &DigestHandler{service: service, now: time.Now}
}

// Generate handles POST /api/digests
func (h *DigestHandler) Generate(c echo.Context) error {
	d, err := h.service.Generate(c.Request().Context(), h.now())
	if err != nil {
		return failure(c, err, "failed to generate digest")
	}
	if d == nil {
		return response.SuccessWithMessage(c, nil, "no processed articles this week")
	}
	return response.Created(c, d)
}

// List handles GET /api/digests
func (h *DigestHandler) List(c echo.Context) error {
	limit, _ := validator.ValidatePagination(queryInt(c, "limit", 0), 0)

	digests, err := h.service.List(c.Request().Context(), limit)
	if err != nil {
		return failure(c, err, "failed to list digests")
	}
	return response.Success(c, digests)
}

// Send handles POST /api/digests/send
func (h *DigestHandler) Send(c echo.Context) error {
	d, err := h.service.SendLatest(c.Request().Context())
	if err != nil {
		return failure(c, err, "failed to send digest")
	}
	return response.SuccessWithMessage(c, d, "digest sent")
}
