package repository

import (
	"context"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ArchiveFilter narrows archive listings. Zero values mean "any".
type ArchiveFilter struct {
	Type   models.EmailType
	Sender string
	Since  *time.Time
	Limit  int
}

// ArchiveCounts holds raw aggregate numbers over the archive
type ArchiveCounts struct {
	Total      int64
	Processed  int64
	ByType     map[string]int64
	RecentWeek int64
}

// ArchiveRepository defines the interface for email archive data access
type ArchiveRepository interface {
	Create(ctx context.Context, archive *models.EmailArchive) error
	GetByID(ctx context.Context, id uint) (*models.EmailArchive, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.EmailArchive, error)
	List(ctx context.Context, filter ArchiveFilter) ([]models.EmailArchiveListItem, error)
	RecordOutcome(ctx context.Context, id uint, emailType models.EmailType, processed bool, result datatypes.JSON) error
	RecordReplay(ctx context.Context, id uint, processed bool, result datatypes.JSON, at time.Time) error
	MergeTags(ctx context.Context, id uint, merge func(current string) string) (string, error)
	Counts(ctx context.Context, recentSince time.Time) (*ArchiveCounts, error)
}

// archiveRepository implements ArchiveRepository using GORM
type archiveRepository struct {
	db *gorm.DB
}

// NewArchiveRepository creates a new ArchiveRepository instance
func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{db: db}
}

// Create inserts an archive row. An existing message id yields ErrDuplicateEntry.
func (r *archiveRepository) Create(ctx context.Context, archive *models.EmailArchive) error {
	if archive.MessageID == "" {
		return ErrInvalidInput
	}
	return mapError(r.db.WithContext(ctx).Create(archive).Error, "create email archive")
}

// GetByID retrieves a full archive record
func (r *archiveRepository) GetByID(ctx context.Context, id uint) (*models.EmailArchive, error) {
	var archive models.EmailArchive
	if err := r.db.WithContext(ctx).First(&archive, id).Error; err != nil {
		return nil, mapError(err, "get email archive by ID")
	}
	return &archive, nil
}

// GetByMessageID retrieves an archive record by its message identifier
func (r *archiveRepository) GetByMessageID(ctx context.Context, messageID string) (*models.EmailArchive, error) {
	var archive models.EmailArchive
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&archive).Error; err != nil {
		return nil, mapError(err, "get email archive by message ID")
	}
	return &archive, nil
}

// List returns archive summaries ordered by received time, newest first
func (r *archiveRepository) List(ctx context.Context, filter ArchiveFilter) ([]models.EmailArchiveListItem, error) {
	query := r.db.WithContext(ctx).Model(&models.EmailArchive{})
	if filter.Type != "" {
		query = query.Where("email_type = ?", filter.Type)
	}
	if filter.Sender != "" {
		query = query.Where("LOWER(sender) LIKE ?", "%"+lower(filter.Sender)+"%")
	}
	if filter.Since != nil {
		query = query.Where("received_at >= ?", *filter.Since)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var items []models.EmailArchiveListItem
	err := query.
		Select("id, message_id, sender, subject, email_type, received_at, processed, replay_count, tags").
		Order("received_at DESC").
		Limit(limit).
		Scan(&items).Error
	if err != nil {
		return nil, mapError(err, "list email archives")
	}
	return items, nil
}

// RecordOutcome stores the result of the first routing pass
func (r *archiveRepository) RecordOutcome(ctx context.Context, id uint, emailType models.EmailType, processed bool, result datatypes.JSON) error {
	res := r.db.WithContext(ctx).Model(&models.EmailArchive{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email_type":        emailType,
		"processed":         processed,
		"processing_result": result,
	})
	if res.Error != nil {
		return mapError(res.Error, "record archive outcome")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordReplay bumps the replay counter and stores the replay result.
// raw_email is never part of the update.
func (r *archiveRepository) RecordReplay(ctx context.Context, id uint, processed bool, result datatypes.JSON, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.EmailArchive{}).Where("id = ?", id).Updates(map[string]interface{}{
		"replay_count":      gorm.Expr("replay_count + ?", 1),
		"last_replayed_at":  at,
		"processing_result": result,
		"processed":         processed,
	})
	if res.Error != nil {
		return mapError(res.Error, "record archive replay")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MergeTags rewrites the tag string inside a transaction and returns the stored value
func (r *archiveRepository) MergeTags(ctx context.Context, id uint, merge func(current string) string) (string, error) {
	var stored string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var archive models.EmailArchive
		if err := tx.Select("id", "tags").First(&archive, id).Error; err != nil {
			return err
		}
		stored = merge(archive.Tags)
		return tx.Model(&models.EmailArchive{}).Where("id = ?", id).Update("tags", stored).Error
	})
	if err != nil {
		return "", mapError(err, "merge archive tags")
	}
	return stored, nil
}

// Counts aggregates the archive for statistics
func (r *archiveRepository) Counts(ctx context.Context, recentSince time.Time) (*ArchiveCounts, error) {
	counts := &ArchiveCounts{}
	model := func() *gorm.DB { return r.db.WithContext(ctx).Model(&models.EmailArchive{}) }

	if err := model().Count(&counts.Total).Error; err != nil {
		return nil, mapError(err, "count archives")
	}
	if err := model().Where("processed = ?", true).Count(&counts.Processed).Error; err != nil {
		return nil, mapError(err, "count processed archives")
	}
	if err := model().Where("received_at >= ?", recentSince).Count(&counts.RecentWeek).Error; err != nil {
		return nil, mapError(err, "count recent archives")
	}

	var byType []groupCount
	if err := model().Select("email_type AS name, COUNT(*) AS count").Group("email_type").Scan(&byType).Error; err != nil {
		return nil, mapError(err, "group archives by type")
	}
	counts.ByType = toCountMap(byType)
	return counts, nil
}
