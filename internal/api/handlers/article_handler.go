package handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/api/response"
	"github.com/welldanyogia/paperboy/internal/ingest"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"github.com/welldanyogia/paperboy/internal/validator"
)

// ArticleHandler handles article-related HTTP requests
type ArticleHandler struct {
	service ArticleService
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(service ArticleService) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// ImportRequest represents the request body for importing a URL
type ImportRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Deliver bool   `json:"deliver"`
}

// UpdateArticleRequest represents the request body for editing an article
type UpdateArticleRequest struct {
	Title   *string  `json:"title"`
	Author  *string  `json:"author"`
	Summary *string  `json:"summary"`
	Tags    []string `json:"tags"`
}

// RegenerateRequest represents the request body for summary regeneration
type RegenerateRequest struct {
	IDs []uint `json:"ids"`
}

// Import handles POST /api/articles
func (h *ArticleHandler) Import(c echo.Context) error {
	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return response.BadRequest(c, "url is required")
	}

	source := models.SourceURL
	if req.Source != "" {
		source = models.ArticleSource(strings.ToLower(req.Source))
		if !source.Valid() {
			return response.BadRequest(c, "invalid source")
		}
	}

	article, created, err := h.service.ImportFromURL(c.Request().Context(), req.URL, ingest.ImportOptions{
		Source:  source,
		Title:   validator.SanitizeString(req.Title, validator.MaxTitleLength),
		Deliver: req.Deliver,
	})
	if err != nil {
		return failure(c, err, "failed to import article")
	}

	if !created {
		return response.SuccessWithMessage(c, article, "article already exists")
	}
	return response.Accepted(c, article, "article queued for extraction")
}

// List handles GET /api/articles
func (h *ArticleHandler) List(c echo.Context) error {
	limit, offset := validator.ValidatePagination(queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	filter := repository.ArticleFilter{Limit: limit, Offset: offset}

	if v := c.QueryParam("status"); v != "" {
		filter.Status = models.ArticleStatus(strings.ToLower(v))
		if !filter.Status.Valid() {
			return response.BadRequest(c, "invalid status")
		}
	}
	if v := c.QueryParam("source"); v != "" {
		filter.Source = models.ArticleSource(strings.ToLower(v))
		if !filter.Source.Valid() {
			return response.BadRequest(c, "invalid source")
		}
	}
	if v := c.QueryParam("processed"); v != "" {
		processed, err := strconv.ParseBool(v)
		if err != nil {
			return response.BadRequest(c, "invalid processed flag")
		}
		filter.Processed = &processed
	}

	articles, total, err := h.service.ListArticles(c.Request().Context(), filter)
	if err != nil {
		return failure(c, err, "failed to list articles")
	}
	return response.Paginated(c, articles, total, limit, offset)
}

// Get handles GET /api/articles/:id
func (h *ArticleHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid article ID")
	}

	article, err := h.service.GetArticle(c.Request().Context(), id)
	if err != nil {
		return failure(c, err, "failed to get article")
	}
	return response.Success(c, article)
}

// Search handles GET /api/articles/search
func (h *ArticleHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return response.BadRequest(c, "q is required")
	}
	inContent, _ := strconv.ParseBool(c.QueryParam("content"))

	articles, err := h.service.Search(c.Request().Context(), q, inContent)
	if err != nil {
		return failure(c, err, "failed to search articles")
	}
	return response.Success(c, articles)
}

// Stats handles GET /api/articles/stats
func (h *ArticleHandler) Stats(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return failure(c, err, "failed to get statistics")
	}
	return response.Success(c, stats)
}

// Sync handles POST /api/articles/sync
func (h *ArticleHandler) Sync(c echo.Context) error {
	result, err := h.service.SyncWithFiles(c.Request().Context())
	if err != nil {
		return failure(c, err, "failed to sync articles")
	}
	return response.Success(c, result)
}

// Cleanup handles POST /api/articles/cleanup
func (h *ArticleHandler) Cleanup(c echo.Context) error {
	result, err := h.service.Cleanup(c.Request().Context())
	if err != nil {
		return failure(c, err, "failed to clean up storage")
	}
	return response.Success(c, result)
}

// RegenerateSummaries handles POST /api/articles/summaries/regenerate
func (h *ArticleHandler) RegenerateSummaries(c echo.Context) error {
	var req RegenerateRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return response.BadRequest(c, "ids is required")
	}

	result, err := h.service.RegenerateSummaries(c.Request().Context(), req.IDs)
	if err != nil {
		return failure(c, err, "failed to regenerate summaries")
	}
	return response.Success(c, result)
}

// Update handles PATCH /api/articles/:id
func (h *ArticleHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid article ID")
	}

	var req UpdateArticleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	upd := ingest.ArticleUpdate{Summary: req.Summary}
	if req.Title != nil {
		title := validator.SanitizeString(*req.Title, validator.MaxTitleLength)
		if title == "" {
			return response.BadRequest(c, "title cannot be empty")
		}
		upd.Title = &title
	}
	if req.Author != nil {
		author := validator.SanitizeString(*req.Author, validator.MaxAuthorLength)
		upd.Author = &author
	}
	if req.Tags != nil {
		tags, err := validator.NormalizeTags(req.Tags)
		if err != nil {
			return response.BadRequest(c, err.Error())
		}
		upd.Tags = tags
	}

	article, err := h.service.Update(c.Request().Context(), id, upd)
	if err != nil {
		return failure(c, err, "failed to update article")
	}
	return response.Success(c, article)
}

// Delete handles DELETE /api/articles/:id
func (h *ArticleHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid article ID")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return failure(c, err, "failed to delete article")
	}
	return response.NoContent(c)
}

// Extract handles POST /api/articles/:id/extract
func (h *ArticleHandler) Extract(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid article ID")
	}
	deliver, _ := strconv.ParseBool(c.QueryParam("deliver"))

	ctx := c.Request().Context()
	if err := h.service.ExtractArticle(ctx, id, deliver); err != nil {
		return failure(c, err, "failed to extract article")
	}

	article, err := h.service.GetArticle(ctx, id)
	if err != nil {
		return failure(c, err, "failed to get article")
	}
	return response.Success(c, article)
}

// Send handles POST /api/articles/:id/send
func (h *ArticleHandler) Send(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid article ID")
	}

	article, err := h.service.SendToDevice(c.Request().Context(), id)
	if err != nil {
		return failure(c, err, "failed to send article")
	}
	return response.SuccessWithMessage(c, article, "article sent")
}

// Archive handles POST /api/articles/:id/archive
func (h *ArticleHandler) Archive(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid article ID")
	}

	article, err := h.service.ArchiveArticle(c.Request().Context(), id)
	if err != nil {
		return failure(c, err, "failed to archive article")
	}
	return response.Success(c, article)
}
