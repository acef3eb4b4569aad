// Package ingest drives URLs, newsletters and emails through extraction,
// summarization, storage and delivery.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/extractor"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"github.com/welldanyogia/paperboy/internal/storage"
	"github.com/welldanyogia/paperboy/internal/summarizer"
)

// Event types published while articles move through the pipeline
const (
	EventArticleCreated   = "article_created"
	EventArticleProcessed = "article_processed"
)

// ContentExtractor fetches and extracts an article page
type ContentExtractor interface {
	Extract(ctx context.Context, rawURL string) (*extractor.Result, error)
}

// Summarizer produces AI summary variants
type Summarizer interface {
	GenerateSummaries(ctx context.Context, text, title string) (*summarizer.Summaries, error)
}

// Deliverer sends an article to the reading device
type Deliverer interface {
	DeliverArticle(ctx context.Context, a *models.Article) error
}

// LinkExtractor finds candidate article URLs in an email or newsletter body
type LinkExtractor interface {
	ExtractURLs(raw string) []string
}

// Publisher broadcasts pipeline events
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Observer receives pipeline counters
type Observer interface {
	ArticleImported(source models.ArticleSource)
	EmailRouted(emailType models.EmailType)
	SummarizationFailed()
	DeliveryAttempted(ok bool)
}

// Config holds dependencies for the Service
type Config struct {
	Articles    repository.ArticleRepository
	Newsletters repository.NewsletterRepository
	Store       *storage.Store
	Extractor   ContentExtractor
	Links       LinkExtractor
	// Summarizer and Deliverer are optional
	Summarizer Summarizer
	Deliverer  Deliverer
	// Pool runs extraction in the background. Without one, work runs inline.
	Pool     *Pool
	Events   Publisher
	Observer Observer
	Logger   *slog.Logger
}

// Service owns article ingestion and the article lifecycle
type Service struct {
	articles    repository.ArticleRepository
	newsletters repository.NewsletterRepository
	store       *storage.Store
	extractor   ContentExtractor
	links       LinkExtractor
	summarizer  Summarizer
	deliverer   Deliverer
	pool        *Pool
	events      Publisher
	observer    Observer
	logger      *slog.Logger
}

// NewService creates a new Service
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		articles:    cfg.Articles,
		newsletters: cfg.Newsletters,
		store:       cfg.Store,
		extractor:   cfg.Extractor,
		links:       cfg.Links,
		summarizer:  cfg.Summarizer,
		deliverer:   cfg.Deliverer,
		pool:        cfg.Pool,
		events:      cfg.Events,
		observer:    cfg.Observer,
		logger:      logger.With("component", "ingest"),
	}
}

// ImportOptions describe where an imported URL came from
type ImportOptions struct {
	Source       models.ArticleSource
	NewsletterID *uint
	// Origin names the placeholder title; defaults to the URL host
	Origin string
	// Title overrides the placeholder title
	Title string
	// Deliver sends the article to the device once extracted
	Deliver bool
}

// ArticleEvent is the payload of article events
type ArticleEvent struct {
	ID     uint                 `json:"id"`
	URL    string               `json:"url"`
	Title  string               `json:"title"`
	Source models.ArticleSource `json:"source"`
	Status models.ArticleStatus `json:"status"`
}

func articleEvent(a *models.Article) ArticleEvent {
	return ArticleEvent{ID: a.ID, URL: a.URL, Title: a.Title, Source: a.Source, Status: a.Status}
}

func (s *Service) publish(eventType string, payload interface{}) {
	if s.events != nil {
		s.events.Publish(eventType, payload)
	}
}

// validateURL accepts absolute http(s) URLs only
func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an absolute http(s) URL: %q", apperrors.ErrInvalidInput, raw)
	}
	return u, nil
}

// ImportFromURL creates a placeholder article for rawURL and schedules its
// extraction. An existing article for the URL is returned with created=false.
func (s *Service) ImportFromURL(ctx context.Context, rawURL string, opts ImportOptions) (*models.Article, bool, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return nil, false, err
	}
	normalized := u.String()

	if existing, err := s.articles.GetByURL(ctx, normalized); err == nil {
		s.logger.Info("article already exists", slog.String("url", normalized), slog.Any("id", existing.ID))
		return existing, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	if opts.Source == "" {
		opts.Source = models.SourceURL
	}
	title := opts.Title
	if title == "" {
		origin := opts.Origin
		if origin == "" {
			origin = u.Host
		}
		title = "Article from " + origin
	}

	article := &models.Article{
		URL:          normalized,
		Title:        title,
		Source:       opts.Source,
		Status:       models.StatusInbox,
		NewsletterID: opts.NewsletterID,
	}
	if err := s.articles.Create(ctx, article); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// a concurrent import won the race
			existing, getErr := s.articles.GetByURL(ctx, normalized)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.logger.Info("article imported",
		slog.Any("id", article.ID),
		slog.String("url", normalized),
		slog.String("source", string(article.Source)))
	if s.observer != nil {
		s.observer.ArticleImported(article.Source)
	}
	s.publish(EventArticleCreated, articleEvent(article))

	id, deliver := article.ID, opts.Deliver
	if err := s.schedule(ctx, "extract_article", normalized, func(ctx context.Context) error {
		return s.ExtractArticle(ctx, id, deliver)
	}); err != nil {
		s.logger.Error("failed to schedule extraction", slog.Any("id", id), slog.Any("error", err))
	}
	return article, true, nil
}

// schedule runs fn on the pool, or inline when there is none or when a
// pool job finds the queue full. Inline failures are logged, not returned.
func (s *Service) schedule(ctx context.Context, name, ref string, fn func(ctx context.Context) error) error {
	if s.pool != nil {
		_, err := s.pool.Submit(ctx, name, ref, fn)
		if !errors.Is(err, ErrQueueFull) {
			return err
		}
	}
	if err := fn(ctx); err != nil {
		s.logger.Error("job failed", slog.String("job", name), slog.String("ref", ref), slog.Any("error", err))
	}
	return nil
}

// ExtractArticle fetches the article's content, summarizes it, writes it to
// the processed stage and optionally delivers it. On extraction failure the
// placeholder row is left untouched.
func (s *Service) ExtractArticle(ctx context.Context, id uint, deliver bool) error {
	article, err := s.getArticle(ctx, id)
	if err != nil {
		return err
	}

	res, err := s.extractor.Extract(ctx, article.URL)
	if err != nil {
		s.logger.Error("extraction failed",
			slog.Any("id", id),
			slog.String("stage", "extract"),
			slog.String("url", article.URL),
			slog.Any("error", err))
		return apperrors.NewStageError("extract", article.URL, err)
	}

	article.Content = res.Text
	if res.Title != "" {
		article.Title = res.Title
	}
	if res.Author != "" {
		article.Author = res.Author
	}
	if res.PublicationDate != nil {
		article.PublicationDate = res.PublicationDate
	}
	article.Summary = extractor.BasicSummary(res.Text, extractor.DefaultSummaryWords)
	article.Processed = true
	article.Status = models.StatusProcessed

	s.applySummaries(ctx, article)

	if err := s.persistWithFile(ctx, article, storage.StageProcessed); err != nil {
		return apperrors.NewStageError("store", article.URL, err)
	}

	s.logger.Info("article processed",
		slog.Any("id", id),
		slog.String("title", article.Title),
		slog.String("stage", res.Stage))
	s.publish(EventArticleProcessed, articleEvent(article))

	if deliver {
		if _, err := s.SendToDevice(ctx, id); err != nil {
			s.logger.Warn("delivery failed after extraction", slog.Any("id", id), slog.Any("error", err))
		}
	}
	return nil
}

// applySummaries fills AI summary fields. Failure leaves them absent.
func (s *Service) applySummaries(ctx context.Context, article *models.Article) {
	if s.summarizer == nil {
		return
	}
	sums, err := s.summarizer.GenerateSummaries(ctx, article.Content, article.Title)
	if err != nil {
		s.logger.Warn("summarization failed",
			slog.Any("id", article.ID),
			slog.String("stage", "summarize"),
			slog.Any("error", err))
		if s.observer != nil {
			s.observer.SummarizationFailed()
		}
		return
	}
	article.AISummaryBrief = sums.Brief
	article.AISummaryStandard = sums.Standard
	article.AISummaryDetailed = sums.Detailed
	article.AISummaryProvider = sums.Provider
	article.AISummaryModel = sums.Model
	generated := sums.GeneratedAt
	article.AISummaryGeneratedAt = &generated
}

// persistWithFile writes the article file into stage, then the row. A failed
// row write removes the new file again.
func (s *Service) persistWithFile(ctx context.Context, article *models.Article, stage storage.Stage) error {
	oldPath := article.FilePath
	meta := metadataFromArticle(article)
	newPath, err := s.store.Save(meta, article.Content, stage)
	if err != nil {
		return err
	}

	article.FilePath = newPath
	article.MarkdownContent = article.Content
	if err := s.articles.Save(ctx, article); err != nil {
		if newPath != oldPath {
			_ = s.store.Delete(newPath)
		}
		article.FilePath = oldPath
		return err
	}

	if oldPath != "" && oldPath != newPath {
		if err := s.store.Delete(oldPath); err != nil {
			s.logger.Warn("failed to remove previous article file", slog.String("path", oldPath), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) getArticle(ctx context.Context, id uint) (*models.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrArticleNotFound
		}
		return nil, err
	}
	return article, nil
}

// GetArticle returns one article
func (s *Service) GetArticle(ctx context.Context, id uint) (*models.Article, error) {
	return s.getArticle(ctx, id)
}

// ListArticles returns a page of articles and the total count
func (s *Service) ListArticles(ctx context.Context, filter repository.ArticleFilter) ([]models.Article, int64, error) {
	return s.articles.List(ctx, filter)
}

// CreateNewsletter stores a newsletter and schedules its processing
func (s *Service) CreateNewsletter(ctx context.Context, n *models.Newsletter) error {
	if strings.TrimSpace(n.Name) == "" || strings.TrimSpace(n.Email) == "" {
		return fmt.Errorf("%w: newsletter name and email are required", apperrors.ErrInvalidInput)
	}
	if err := s.newsletters.Create(ctx, n); err != nil {
		return err
	}

	id := n.ID
	return s.schedule(ctx, "process_newsletter", strconv.FormatUint(uint64(id), 10), func(ctx context.Context) error {
		_, err := s.ProcessNewsletter(ctx, id)
		return err
	})
}

// GetNewsletter returns a newsletter with its articles
func (s *Service) GetNewsletter(ctx context.Context, id uint) (*models.Newsletter, error) {
	n, err := s.newsletters.GetWithArticles(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrNewsletterNotFound
		}
		return nil, err
	}
	return n, nil
}

// ListNewsletters returns a page of newsletters and the total count
func (s *Service) ListNewsletters(ctx context.Context, limit, offset int) ([]models.Newsletter, int64, error) {
	return s.newsletters.List(ctx, limit, offset)
}

// ProcessNewsletter imports every article link of a newsletter and marks it
// processed. It returns the number of newly created articles.
func (s *Service) ProcessNewsletter(ctx context.Context, id uint) (int, error) {
	n, err := s.newsletters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperrors.ErrNewsletterNotFound
		}
		return 0, err
	}

	urls := s.links.ExtractURLs(n.RawContent)
	created := 0
	for _, u := range urls {
		_, isNew, err := s.ImportFromURL(ctx, u, ImportOptions{
			Source:       models.SourceNewsletter,
			NewsletterID: &n.ID,
			Origin:       n.Name,
		})
		if err != nil {
			s.logger.Warn("newsletter link import failed",
				slog.Any("newsletter_id", id),
				slog.String("url", u),
				slog.Any("error", err))
			continue
		}
		if isNew {
			created++
		}
	}

	if err := s.newsletters.MarkProcessed(ctx, id); err != nil {
		return created, err
	}
	s.logger.Info("newsletter processed",
		slog.Any("id", id),
		slog.Int("urls", len(urls)),
		slog.Int("created", created))
	return created, nil
}

func statusForStage(stage storage.Stage) models.ArticleStatus {
	switch stage {
	case storage.StageProcessed:
		return models.StatusProcessed
	case storage.StageSent:
		return models.StatusSent
	case storage.StageArchive:
		return models.StatusArchived
	}
	return models.StatusInbox
}

func metadataFromArticle(a *models.Article) *storage.Metadata {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &storage.Metadata{
		Title:                a.Title,
		URL:                  a.URL,
		Author:               a.Author,
		PublicationDate:      a.PublicationDate,
		CreatedAt:            created,
		UpdatedAt:            time.Now().UTC(),
		Processed:            a.Processed,
		SentToDevice:         a.SentToDevice,
		Source:               string(a.Source),
		Tags:                 a.TagList(),
		Summary:              a.Summary,
		AISummaryBrief:       a.AISummaryBrief,
		AISummaryStandard:    a.AISummaryStandard,
		AISummaryDetailed:    a.AISummaryDetailed,
		AISummaryProvider:    a.AISummaryProvider,
		AISummaryModel:       a.AISummaryModel,
		AISummaryGeneratedAt: a.AISummaryGeneratedAt,
		NewsletterID:         a.NewsletterID,
	}
}

// applyMetadata copies file metadata onto a row
func applyMetadata(a *models.Article, meta *storage.Metadata, body, path string, stage storage.Stage) {
	a.Title = meta.Title
	a.URL = meta.URL
	a.Author = meta.Author
	a.PublicationDate = meta.PublicationDate
	a.Processed = meta.Processed
	a.SentToDevice = meta.SentToDevice
	if src := models.ArticleSource(meta.Source); src.Valid() {
		a.Source = src
	} else if a.Source == "" {
		a.Source = models.SourceURL
	}
	a.Status = statusForStage(stage)
	a.SetTags(meta.Tags)
	a.Summary = meta.Summary
	a.AISummaryBrief = meta.AISummaryBrief
	a.AISummaryStandard = meta.AISummaryStandard
	a.AISummaryDetailed = meta.AISummaryDetailed
	a.AISummaryProvider = meta.AISummaryProvider
	a.AISummaryModel = meta.AISummaryModel
	a.AISummaryGeneratedAt = meta.AISummaryGeneratedAt
	a.NewsletterID = meta.NewsletterID
	a.Content = body
	a.MarkdownContent = body
	a.FilePath = path
	a.UpdatedAt = meta.UpdatedAt
}
