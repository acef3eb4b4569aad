package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/api/response"
	"github.com/welldanyogia/paperboy/internal/logger"
)

// DefaultMaxEmailSize caps raw emails posted to the ingest endpoint
const DefaultMaxEmailSize int64 = 25 * 1024 * 1024

// IngestResult is returned after a posted email has been archived
type IngestResult struct {
	ArchiveID uint   `json:"archive_id"`
	Type      string `json:"type"`
	Processed bool   `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// EmailHandler accepts raw emails over HTTP
type EmailHandler struct {
	processor RawEmailHandler
	maxSize   int64
	security  *logger.SecurityLogger
}

// NewEmailHandler creates a new EmailHandler. maxSize <= 0 uses DefaultMaxEmailSize.
func NewEmailHandler(processor RawEmailHandler, maxSize int64, security *logger.SecurityLogger) *EmailHandler {
	if maxSize <= 0 {
		maxSize = DefaultMaxEmailSize
	}
	return &EmailHandler{processor: processor, maxSize: maxSize, security: security}
}

// Ingest handles POST /api/email/ingest. The body is the raw RFC 5322 message.
func (h *EmailHandler) Ingest(c echo.Context) error {
	req := c.Request()
	raw, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, h.maxSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			if h.security != nil {
				h.security.OversizedPayload(c.RealIP(), req.URL.Path, h.maxSize)
			}
			return response.TooLarge(c, "email exceeds size limit")
		}
		return response.BadRequest(c, "failed to read request body")
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return response.BadRequest(c, "email body is required")
	}

	id, outcome, err := h.processor.HandleRaw(req.Context(), raw)
	if err != nil && id == 0 {
		return failure(c, err, "failed to archive email")
	}

	result := IngestResult{
		ArchiveID: id,
		Type:      string(outcome.Type),
		Processed: outcome.Processed,
		Error:     outcome.Error,
	}
	return response.Created(c, result)
}

// FeedHandler imports RSS and Atom feeds
type FeedHandler struct {
	importer FeedImporter
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(importer FeedImporter) *FeedHandler {
	return &FeedHandler{importer: importer}
}

// FeedImportRequest represents the request body for a feed import
type FeedImportRequest struct {
	URL string `json:"url"`
}

// Import handles POST /api/feeds/import
func (h *FeedHandler) Import(c echo.Context) error {
	var req FeedImportRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return response.BadRequest(c, "url is required")
	}

	result, err := h.importer.Import(c.Request().Context(), req.URL)
	if err != nil {
		return failure(c, err, "failed to import feed")
	}
	return response.Success(c, result)
}
