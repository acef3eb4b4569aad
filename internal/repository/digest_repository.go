package repository

import (
	"context"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/gorm"
)

// DigestRepository defines the interface for weekly digest data access
type DigestRepository interface {
	Create(ctx context.Context, digest *models.WeeklyDigest) error
	ExistsOverlapping(ctx context.Context, since time.Time) (bool, error)
	Latest(ctx context.Context) (*models.WeeklyDigest, error)
	List(ctx context.Context, limit int) ([]models.WeeklyDigest, error)
	MarkSent(ctx context.Context, id uint, at time.Time) error
}

// digestRepository implements DigestRepository using GORM
type digestRepository struct {
	db *gorm.DB
}

// NewDigestRepository creates a new DigestRepository instance
func NewDigestRepository(db *gorm.DB) DigestRepository {
	return &digestRepository{db: db}
}

// Create creates a new digest
func (r *digestRepository) Create(ctx context.Context, digest *models.WeeklyDigest) error {
	return mapError(r.db.WithContext(ctx).Create(digest).Error, "create weekly digest")
}

// ExistsOverlapping reports whether a digest window reaches past since
func (r *digestRepository) ExistsOverlapping(ctx context.Context, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WeeklyDigest{}).Where("week_end > ?", since).Count(&count).Error
	if err != nil {
		return false, mapError(err, "check weekly digest window")
	}
	return count > 0, nil
}

// Latest returns the digest with the most recent window
func (r *digestRepository) Latest(ctx context.Context) (*models.WeeklyDigest, error) {
	var digest models.WeeklyDigest
	if err := r.db.WithContext(ctx).Order("week_start DESC").First(&digest).Error; err != nil {
		return nil, mapError(err, "get latest weekly digest")
	}
	return &digest, nil
}

// List returns digests newest first
func (r *digestRepository) List(ctx context.Context, limit int) ([]models.WeeklyDigest, error) {
	if limit <= 0 {
		limit = 20
	}
	var digests []models.WeeklyDigest
	if err := r.db.WithContext(ctx).Order("week_start DESC").Limit(limit).Find(&digests).Error; err != nil {
		return nil, mapError(err, "list weekly digests")
	}
	return digests, nil
}

// MarkSent flags a digest as delivered
func (r *digestRepository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.WeeklyDigest{}).Where("id = ?", id).
		Updates(map[string]interface{}{"sent": true, "sent_at": at})
	if result.Error != nil {
		return mapError(result.Error, "mark weekly digest sent")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
