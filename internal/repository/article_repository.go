package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/gorm"
)

// ArticleFilter narrows List results. Zero values mean "any".
type ArticleFilter struct {
	Status    models.ArticleStatus
	Source    models.ArticleSource
	Processed *bool
	Limit     int
	Offset    int
}

// ArticleStats aggregates the article index
type ArticleStats struct {
	Total     int64            `json:"total"`
	Processed int64            `json:"processed"`
	Sent      int64            `json:"sent_to_device"`
	ByStatus  map[string]int64 `json:"by_status"`
	BySource  map[string]int64 `json:"by_source"`
}

// ArticleRepository defines the interface for article data access
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id uint) (*models.Article, error)
	GetByURL(ctx context.Context, url string) (*models.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]models.Article, int64, error)
	Search(ctx context.Context, query string, inContent bool, limit int) ([]models.Article, error)
	ListProcessedBetween(ctx context.Context, start, end time.Time) ([]models.Article, error)
	ListWithFiles(ctx context.Context) ([]models.Article, error)
	Save(ctx context.Context, article *models.Article) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (*ArticleStats, error)
}

// articleRepository implements ArticleRepository using GORM
type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new ArticleRepository instance
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// Create inserts an article. A URL that already exists yields ErrDuplicateEntry.
func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	if article.URL == "" {
		return ErrInvalidInput
	}
	if article.Status == "" {
		article.Status = models.StatusInbox
	}
	return mapError(r.db.WithContext(ctx).Create(article).Error, "create article")
}

// GetByID retrieves an article by its ID
func (r *articleRepository) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := r.db.WithContext(ctx).First(&article, id).Error; err != nil {
		return nil, mapError(err, "get article by ID")
	}
	return &article, nil
}

// GetByURL retrieves an article by its canonical URL
func (r *articleRepository) GetByURL(ctx context.Context, url string) (*models.Article, error) {
	var article models.Article
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&article).Error; err != nil {
		return nil, mapError(err, "get article by URL")
	}
	return &article, nil
}

// List retrieves articles newest first with the total matching count
func (r *articleRepository) List(ctx context.Context, filter ArticleFilter) ([]models.Article, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Article{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "count articles")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var articles []models.Article
	if err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&articles).Error; err != nil {
		return nil, 0, mapError(err, "list articles")
	}
	return articles, total, nil
}

// Search matches title, author and summary, plus the body when inContent is set
func (r *articleRepository) Search(ctx context.Context, query string, inContent bool, limit int) ([]models.Article, error) {
	pattern := "%" + lower(query) + "%"
	cond := "LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(summary) LIKE ?"
	args := []interface{}{pattern, pattern, pattern}
	if inContent {
		cond += " OR LOWER(content) LIKE ?"
		args = append(args, pattern)
	}
	if limit <= 0 {
		limit = 50
	}

	var articles []models.Article
	err := r.db.WithContext(ctx).Where(cond, args...).Order("created_at DESC").Limit(limit).Find(&articles).Error
	if err != nil {
		return nil, mapError(err, "search articles")
	}
	return articles, nil
}

// ListProcessedBetween returns processed articles created in [start, end)
func (r *articleRepository) ListProcessedBetween(ctx context.Context, start, end time.Time) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.WithContext(ctx).
		Where("processed = ? AND created_at >= ? AND created_at < ?", true, start, end).
		Order("created_at DESC").
		Find(&articles).Error
	if err != nil {
		return nil, mapError(err, "list processed articles")
	}
	return articles, nil
}

// ListWithFiles returns every article that points at a markdown file
func (r *articleRepository) ListWithFiles(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	if err := r.db.WithContext(ctx).Where("file_path <> ''").Find(&articles).Error; err != nil {
		return nil, mapError(err, "list articles with files")
	}
	return articles, nil
}

// Save writes every column of an existing article
func (r *articleRepository) Save(ctx context.Context, article *models.Article) error {
	if article.ID == 0 {
		return ErrInvalidInput
	}
	return mapError(r.db.WithContext(ctx).Save(article).Error, "save article")
}

// UpdateFields updates selected columns of an article
func (r *articleRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return mapError(result.Error, "update article")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes an article by its ID
func (r *articleRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Article{}, id)
	if result.Error != nil {
		return mapError(result.Error, "delete article")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates counts over the whole index
func (r *articleRepository) Stats(ctx context.Context) (*ArticleStats, error) {
	db := r.db.WithContext(ctx).Model(&models.Article{})
	stats := &ArticleStats{}

	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, mapError(err, "count articles")
	}
	if err := r.db.WithContext(ctx).Model(&models.Article{}).Where("processed = ?", true).Count(&stats.Processed).Error; err != nil {
		return nil, mapError(err, "count processed articles")
	}
	if err := r.db.WithContext(ctx).Model(&models.Article{}).Where("sent_to_device = ?", true).Count(&stats.Sent).Error; err != nil {
		return nil, mapError(err, "count sent articles")
	}

	var byStatus, bySource []groupCount
	if err := r.db.WithContext(ctx).Model(&models.Article{}).
		Select("status AS name, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group articles by status: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Article{}).
		Select("source AS name, COUNT(*) AS count").Group("source").Scan(&bySource).Error; err != nil {
		return nil, fmt.Errorf("failed to group articles by source: %w", err)
	}
	stats.ByStatus = toCountMap(byStatus)
	stats.BySource = toCountMap(bySource)
	return stats, nil
}
