package repository

import (
	"context"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/gorm"
)

// InboundRepository is the spool between the SMTP listener and the inbox poller
type InboundRepository interface {
	Create(ctx context.Context, msg *models.InboundMessage) error
	PollUnseen(ctx context.Context, limit int) ([]models.InboundMessage, error)
	MarkSeen(ctx context.Context, id uint) error
	CountUnseen(ctx context.Context) (int64, error)
}

// inboundRepository implements InboundRepository using GORM
type inboundRepository struct {
	db *gorm.DB
}

// NewInboundRepository creates a new InboundRepository instance
func NewInboundRepository(db *gorm.DB) InboundRepository {
	return &inboundRepository{db: db}
}

// Create stores a raw message as unseen
func (r *inboundRepository) Create(ctx context.Context, msg *models.InboundMessage) error {
	if len(msg.Raw) == 0 {
		return ErrInvalidInput
	}
	msg.Seen = false
	return mapError(r.db.WithContext(ctx).Create(msg).Error, "spool inbound message")
}

// PollUnseen returns up to limit unseen messages, oldest first
func (r *inboundRepository) PollUnseen(ctx context.Context, limit int) ([]models.InboundMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []models.InboundMessage
	err := r.db.WithContext(ctx).Where("seen = ?", false).Order("received_at ASC, id ASC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, mapError(err, "poll unseen messages")
	}
	return msgs, nil
}

// MarkSeen flags a spooled message as consumed
func (r *inboundRepository) MarkSeen(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.InboundMessage{}).Where("id = ?", id).
		Updates(map[string]interface{}{"seen": true, "seen_at": now})
	if result.Error != nil {
		return mapError(result.Error, "mark message seen")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnseen returns the spool backlog
func (r *inboundRepository) CountUnseen(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InboundMessage{}).Where("seen = ?", false).Count(&count).Error; err != nil {
		return 0, mapError(err, "count unseen messages")
	}
	return count, nil
}
