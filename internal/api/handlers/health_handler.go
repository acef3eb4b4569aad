package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// BacklogCounter reports how many spooled emails are waiting for the poller
type BacklogCounter interface {
	CountUnseen(ctx context.Context) (int64, error)
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db      *gorm.DB
	backlog BacklogCounter
}

// NewHealthHandler creates a new HealthHandler. backlog may be nil.
func NewHealthHandler(db *gorm.DB, backlog BacklogCounter) *HealthHandler {
	return &HealthHandler{db: db, backlog: backlog}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Services     map[string]string `json:"services"`
	InboxBacklog *int64            `json:"inbox_backlog,omitempty"`
}

func (h *HealthHandler) ping(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	resp := HealthResponse{Status: "healthy", Services: map[string]string{}}

	if err := h.ping(ctx); err != nil {
		resp.Services["database"] = "unhealthy"
		resp.Status = "unhealthy"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Services["database"] = "healthy"

	if h.backlog != nil {
		if n, err := h.backlog.CountUnseen(ctx); err == nil {
			resp.InboxBacklog = &n
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	if _, err := h.db.DB(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database connection failed",
		})
	}

	if err := h.ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}
