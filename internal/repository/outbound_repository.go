package repository

import (
	"context"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/gorm"
)

// OutboundRepository records delivery attempts
type OutboundRepository interface {
	Create(ctx context.Context, email *models.OutboundEmail) error
	MarkSent(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, message string) error
	List(ctx context.Context, limit int) ([]models.OutboundEmail, error)
}

// outboundRepository implements OutboundRepository using GORM
type outboundRepository struct {
	db *gorm.DB
}

// NewOutboundRepository creates a new OutboundRepository instance
func NewOutboundRepository(db *gorm.DB) OutboundRepository {
	return &outboundRepository{db: db}
}

// Create records a pending delivery
func (r *outboundRepository) Create(ctx context.Context, email *models.OutboundEmail) error {
	return mapError(r.db.WithContext(ctx).Create(email).Error, "create outbound email")
}

// MarkSent records a successful delivery
func (r *outboundRepository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{"sent": true, "sent_at": at, "error_message": ""})
}

// MarkFailed records the transport error of a delivery
func (r *outboundRepository) MarkFailed(ctx context.Context, id uint, message string) error {
	return r.update(ctx, id, map[string]interface{}{"sent": false, "error_message": message})
}

func (r *outboundRepository) update(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.OutboundEmail{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return mapError(result.Error, "update outbound email")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns delivery attempts newest first
func (r *outboundRepository) List(ctx context.Context, limit int) ([]models.OutboundEmail, error) {
	if limit <= 0 {
		limit = 50
	}
	var emails []models.OutboundEmail
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&emails).Error; err != nil {
		return nil, mapError(err, "list outbound emails")
	}
	return emails, nil
}
