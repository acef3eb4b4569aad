package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/api/response"
	"github.com/welldanyogia/paperboy/internal/archive"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/feeds"
	"github.com/welldanyogia/paperboy/internal/ingest"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
)

// ArticleService is the article side of the ingest service
type ArticleService interface {
	ImportFromURL(ctx context.Context, rawURL string, opts ingest.ImportOptions) (*models.Article, bool, error)
	ListArticles(ctx context.Context, filter repository.ArticleFilter) ([]models.Article, int64, error)
	GetArticle(ctx context.Context, id uint) (*models.Article, error)
	Search(ctx context.Context, query string, inContent bool) ([]models.Article, error)
	Statistics(ctx context.Context) (*ingest.Statistics, error)
	SyncWithFiles(ctx context.Context) (*ingest.SyncResult, error)
	Cleanup(ctx context.Context) (*ingest.CleanupResult, error)
	RegenerateSummaries(ctx context.Context, ids []uint) (*ingest.RegenerateResult, error)
	Update(ctx context.Context, id uint, upd ingest.ArticleUpdate) (*models.Article, error)
	Delete(ctx context.Context, id uint) error
	ExtractArticle(ctx context.Context, id uint, deliver bool) error
	SendToDevice(ctx context.Context, id uint) (*models.Article, error)
	ArchiveArticle(ctx context.Context, id uint) (*models.Article, error)
}

// NewsletterService is the newsletter side of the ingest service
type NewsletterService interface {
	CreateNewsletter(ctx context.Context, n *models.Newsletter) error
	GetNewsletter(ctx context.Context, id uint) (*models.Newsletter, error)
	ListNewsletters(ctx context.Context, limit, offset int) ([]models.Newsletter, int64, error)
	ProcessNewsletter(ctx context.Context, id uint) (int, error)
}

// ArchiveService reads and replays archived emails
type ArchiveService interface {
	List(ctx context.Context, filter repository.ArchiveFilter) ([]models.EmailArchiveListItem, error)
	Get(ctx context.Context, id uint) (*models.EmailArchive, error)
	Replay(ctx context.Context, id uint) (models.ProcessingOutcome, error)
	AddTags(ctx context.Context, id uint, tags []string) (string, error)
	Statistics(ctx context.Context) (*archive.Statistics, error)
}

// RawEmailHandler archives and routes one raw email
type RawEmailHandler interface {
	HandleRaw(ctx context.Context, raw []byte) (uint, models.ProcessingOutcome, error)
}

// FeedImporter imports the items of a feed
type FeedImporter interface {
	Import(ctx context.Context, feedURL string) (*feeds.Result, error)
}

// DigestService generates, lists and sends weekly digests
type DigestService interface {
	Generate(ctx context.Context, now time.Time) (*models.WeeklyDigest, error)
	List(ctx context.Context, limit int) ([]models.WeeklyDigest, error)
	SendLatest(ctx context.Context) (*models.WeeklyDigest, error)
}

// parseID reads a positive numeric path parameter
func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an integer query parameter, returning def when absent or malformed
func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

// failure writes err with its mapped status. Storage and unknown errors are
// reported with internalMessage instead of err's text.
func failure(c echo.Context, err error, internalMessage string) error {
	switch apperrors.GetErrorCode(err) {
	case apperrors.CodeInternalError, apperrors.CodePersistenceFailure:
		c.Logger().Error(err)
		return response.InternalError(c, internalMessage)
	}
	return response.Error(c, err)
}
