package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/paperboy/internal/archive"
	"github.com/welldanyogia/paperboy/internal/feeds"
	"github.com/welldanyogia/paperboy/internal/ingest"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
)

// MockArticleService implements ArticleService
type MockArticleService struct {
	mock.Mock
}

func (m *MockArticleService) ImportFromURL(ctx context.Context, rawURL string, opts ingest.ImportOptions) (*models.Article, bool, error) {
	args := m.Called(ctx, rawURL, opts)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Article), args.Bool(1), args.Error(2)
}

func (m *MockArticleService) ListArticles(ctx context.Context, filter repository.ArticleFilter) ([]models.Article, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Article), args.Get(1).(int64), args.Error(2)
}

func (m *MockArticleService) GetArticle(ctx context.Context, id uint) (*models.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleService) Search(ctx context.Context, query string, inContent bool) ([]models.Article, error) {
	args := m.Called(ctx, query, inContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Article), args.Error(1)
}

func (m *MockArticleService) Statistics(ctx context.Context) (*ingest.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Statistics), args.Error(1)
}

func (m *MockArticleService) SyncWithFiles(ctx context.Context) (*ingest.SyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.SyncResult), args.Error(1)
}

func (m *MockArticleService) Cleanup(ctx context.Context) (*ingest.CleanupResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.CleanupResult), args.Error(1)
}

func (m *MockArticleService) RegenerateSummaries(ctx context.Context, ids []uint) (*ingest.RegenerateResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.RegenerateResult), args.Error(1)
}

func (m *MockArticleService) Update(ctx context.Context, id uint, upd ingest.ArticleUpdate) (*models.Article, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleService) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArticleService) ExtractArticle(ctx context.Context, id uint, deliver bool) error {
	args := m.Called(ctx, id, deliver)
	return args.Error(0)
}

func (m *MockArticleService) SendToDevice(ctx context.Context, id uint) (*models.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

func (m *MockArticleService) ArchiveArticle(ctx context.Context, id uint) (*models.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}

// MockNewsletterService implements NewsletterService
type MockNewsletterService struct {
	mock.Mock
}

func (m *MockNewsletterService) CreateNewsletter(ctx context.Context, n *models.Newsletter) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNewsletterService) GetNewsletter(ctx context.Context, id uint) (*models.Newsletter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Newsletter), args.Error(1)
}

func (m *MockNewsletterService) ListNewsletters(ctx context.Context, limit, offset int) ([]models.Newsletter, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Newsletter), args.Get(1).(int64), args.Error(2)
}

func (m *MockNewsletterService) ProcessNewsletter(ctx context.Context, id uint) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

// MockArchiveService implements ArchiveService
type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) List(ctx context.Context, filter repository.ArchiveFilter) ([]models.EmailArchiveListItem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailArchiveListItem), args.Error(1)
}

func (m *MockArchiveService) Get(ctx context.Context, id uint) (*models.EmailArchive, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailArchive), args.Error(1)
}

func (m *MockArchiveService) Replay(ctx context.Context, id uint) (models.ProcessingOutcome, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.ProcessingOutcome), args.Error(1)
}

func (m *MockArchiveService) AddTags(ctx context.Context, id uint, tags []string) (string, error) {
	args := m.Called(ctx, id, tags)
	return args.String(0), args.Error(1)
}

func (m *MockArchiveService) Statistics(ctx context.Context) (*archive.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*archive.Statistics), args.Error(1)
}

// MockRawEmailHandler implements RawEmailHandler
type MockRawEmailHandler struct {
	mock.Mock
}

func (m *MockRawEmailHandler) HandleRaw(ctx context.Context, raw []byte) (uint, models.ProcessingOutcome, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(uint), args.Get(1).(models.ProcessingOutcome), args.Error(2)
}

// MockFeedImporter implements FeedImporter
type MockFeedImporter struct {
	mock.Mock
}

func (m *MockFeedImporter) Import(ctx context.Context, feedURL string) (*feeds.Result, error) {
	args := m.Called(ctx, feedURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feeds.Result), args.Error(1)
}

// MockDigestService implements DigestService
type MockDigestService struct {
	mock.Mock
}

func (m *MockDigestService) Generate(ctx context.Context, now time.Time) (*models.WeeklyDigest, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyDigest), args.Error(1)
}

func (m *MockDigestService) List(ctx context.Context, limit int) ([]models.WeeklyDigest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WeeklyDigest), args.Error(1)
}

func (m *MockDigestService) SendLatest(ctx context.Context) (*models.WeeklyDigest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeeklyDigest), args.Error(1)
}
