package repository

import (
	"context"

	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/gorm"
)

// NewsletterRepository defines the interface for newsletter data access
type NewsletterRepository interface {
	Create(ctx context.Context, newsletter *models.Newsletter) error
	GetByID(ctx context.Context, id uint) (*models.Newsletter, error)
	GetWithArticles(ctx context.Context, id uint) (*models.Newsletter, error)
	List(ctx context.Context, limit, offset int) ([]models.Newsletter, int64, error)
	MarkProcessed(ctx context.Context, id uint) error
}

// newsletterRepository implements NewsletterRepository using GORM
type newsletterRepository struct {
	db *gorm.DB
}

// NewNewsletterRepository creates a new NewsletterRepository instance
func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepository{db: db}
}

// Create creates a new newsletter
func (r *newsletterRepository) Create(ctx context.Context, newsletter *models.Newsletter) error {
	return mapError(r.db.WithContext(ctx).Create(newsletter).Error, "create newsletter")
}

// GetByID retrieves a newsletter without its articles
func (r *newsletterRepository) GetByID(ctx context.Context, id uint) (*models.Newsletter, error) {
	var newsletter models.Newsletter
	if err := r.db.WithContext(ctx).First(&newsletter, id).Error; err != nil {
		return nil, mapError(err, "get newsletter by ID")
	}
	return &newsletter, nil
}

// GetWithArticles retrieves a newsletter with its extracted articles preloaded
func (r *newsletterRepository) GetWithArticles(ctx context.Context, id uint) (*models.Newsletter, error) {
	var newsletter models.Newsletter
	if err := r.db.WithContext(ctx).Preload("Articles").First(&newsletter, id).Error; err != nil {
		return nil, mapError(err, "get newsletter with articles")
	}
	return &newsletter, nil
}

// List retrieves newsletters newest first, omitting raw bodies
func (r *newsletterRepository) List(ctx context.Context, limit, offset int) ([]models.Newsletter, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Newsletter{}).Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "count newsletters")
	}
	if limit <= 0 {
		limit = 50
	}

	var newsletters []models.Newsletter
	err := r.db.WithContext(ctx).
		Omit("raw_content").
		Order("received_at DESC").
		Limit(limit).Offset(offset).
		Find(&newsletters).Error
	if err != nil {
		return nil, 0, mapError(err, "list newsletters")
	}
	return newsletters, total, nil
}

// MarkProcessed flags a newsletter whose links have been walked
func (r *newsletterRepository) MarkProcessed(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Newsletter{}).Where("id = ?", id).Update("processed", true)
	if result.Error != nil {
		return mapError(result.Error, "mark newsletter processed")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
