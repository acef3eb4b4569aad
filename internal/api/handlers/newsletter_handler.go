package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/api/response"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/validator"
)

// NewsletterHandler handles newsletter-related HTTP requests
type NewsletterHandler struct {
	service NewsletterService
}

// NewNewsletterHandler creates a new NewsletterHandler
func NewNewsletterHandler(service NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{service: service}
}

// CreateNewsletterRequest represents the request body for submitting a newsletter
type CreateNewsletterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Subject    string `json:"subject"`
	Sender     string `json:"sender"`
	RawContent string `json:"raw_content"`
}

// Create handles POST /api/newsletters
func (h *NewsletterHandler) Create(c echo.Context) error {
	var req CreateNewsletterRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	name := validator.SanitizeString(req.Name, validator.MaxAuthorLength)
	if name == "" {
		return response.BadRequest(c, "name is required")
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if strings.TrimSpace(req.RawContent) == "" {
		return response.BadRequest(c, "raw_content is required")
	}

	n := &models.Newsletter{
		Name:       name,
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Subject:    validator.SanitizeString(req.Subject, validator.MaxTitleLength),
		Sender:     validator.SanitizeString(req.Sender, validator.MaxAuthorLength),
		RawContent: req.RawContent,
	}
	if err := h.service.CreateNewsletter(c.Request().Context(), n); err != nil {
		return failure(c, err, "failed to create newsletter")
	}
	return response.Accepted(c, n, "newsletter queued for processing")
}

// List handles GET /api/newsletters
func (h *NewsletterHandler) List(c echo.Context) error {
	limit, offset := validator.ValidatePagination(queryInt(c, "limit", 0), queryInt(c, "offset", 0))

	newsletters, total, err := h.service.ListNewsletters(c.Request().Context(), limit, offset)
	if err != nil {
		return failure(c, err, "failed to list newsletters")
	}
	return response.Paginated(c, newsletters, total, limit, offset)
}

// Get handles GET /api/newsletters/:id
func (h *NewsletterHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid newsletter ID")
	}

	n, err := h.service.GetNewsletter(c.Request().Context(), id)
	if err != nil {
		return failure(c, err, "failed to get newsletter")
	}
	return response.Success(c, n)
}

// Process handles POST /api/newsletters/:id/process
func (h *NewsletterHandler) Process(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid newsletter ID")
	}

	created, err := h.service.ProcessNewsletter(c.Request().Context(), id)
	if err != nil {
		return failure(c, err, "failed to process newsletter")
	}
	return response.Success(c, map[string]int{"created": created})
}
