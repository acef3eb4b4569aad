// Package archive keeps a verbatim copy of every inbound email and can replay
// any of them through the ingest router.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"github.com/welldanyogia/paperboy/internal/mail"
	"github.com/welldanyogia/paperboy/internal/models"
	"github.com/welldanyogia/paperboy/internal/repository"
	"gorm.io/datatypes"
)

const (
	syntheticIDPrefix = "no-id-"
	defaultListLimit  = 50
	recentWindow      = 7 * 24 * time.Hour
)

// Router routes a decoded email through the ingest pipeline
type Router interface {
	Route(ctx context.Context, email *mail.ParsedEmail) models.ProcessingOutcome
}

// Observer is notified about archive activity
type Observer interface {
	EmailArchived(id uint, emailType models.EmailType)
	EmailReplayed(id uint, outcome models.ProcessingOutcome)
}

// Observers fans archive notifications out to several observers
type Observers []Observer

// EmailArchived implements Observer
func (o Observers) EmailArchived(id uint, emailType models.EmailType) {
	for _, obs := range o {
		obs.EmailArchived(id, emailType)
	}
}

// EmailReplayed implements Observer
func (o Observers) EmailReplayed(id uint, outcome models.ProcessingOutcome) {
	for _, obs := range o {
		obs.EmailReplayed(id, outcome)
	}
}

// Statistics summarises the archive
type Statistics struct {
	Total          int64            `json:"total_emails"`
	Processed      int64            `json:"processed_emails"`
	ProcessingRate string           `json:"processing_rate"`
	ByType         map[string]int64 `json:"by_type"`
	RecentWeek     int64            `json:"recent_week"`
}

// Config holds dependencies for the Engine
type Config struct {
	Repo     repository.ArchiveRepository
	Router   Router
	Observer Observer
	Logger   *slog.Logger
}

// Engine archives raw emails and replays them on demand
type Engine struct {
	repo     repository.ArchiveRepository
	router   Router
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new Engine
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		repo:     cfg.Repo,
		router:   cfg.Router,
		observer: cfg.Observer,
		logger:   logger.With("component", "archive"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SyntheticMessageID builds an identifier for messages without a Message-ID.
// Identifiers sort by creation time.
func SyntheticMessageID(t time.Time) string {
	return syntheticIDPrefix + ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// Archive stores raw under its message id and returns the row id. A message
// that is already archived returns the existing id.
func (e *Engine) Archive(ctx context.Context, raw []byte, hint models.EmailType) (uint, error) {
	parsed, err := mail.Parse(raw)
	if err != nil {
		e.logger.Warn("archiving undecodable email", slog.Any("error", err))
	}

	messageID := parsed.MessageID
	if messageID == "" {
		messageID = SyntheticMessageID(e.now())
	} else if existing, err := e.repo.GetByMessageID(ctx, messageID); err == nil {
		e.logger.Info("email already archived", slog.String("message_id", messageID), slog.Any("id", existing.ID))
		return existing.ID, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}

	if hint == "" {
		hint = models.EmailTypeUnknown
	}

	record := &models.EmailArchive{
		MessageID:  messageID,
		Sender:     parsed.Sender(),
		Recipient:  parsed.Recipient(),
		Subject:    parsed.Subject,
		RawEmail:   string(raw),
		Headers:    toJSON(parsed.Headers),
		BodyText:   parsed.Text,
		BodyHTML:   parsed.HTML,
		EmailType:  hint,
		ReceivedAt: e.now(),
	}
	if len(parsed.Attachments) > 0 {
		record.Attachments = toJSON(parsed.Attachments)
	}

	if err := e.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// lost a race with a concurrent archive of the same message
			existing, getErr := e.repo.GetByMessageID(ctx, messageID)
			if getErr != nil {
				return 0, getErr
			}
			return existing.ID, nil
		}
		return 0, err
	}

	e.logger.Info("email archived",
		slog.Any("id", record.ID),
		slog.String("message_id", messageID),
		slog.String("sender", record.Sender))
	if e.observer != nil {
		e.observer.EmailArchived(record.ID, hint)
	}
	return record.ID, nil
}

// RecordOutcome stores the result of the first routing pass
func (e *Engine) RecordOutcome(ctx context.Context, id uint, outcome models.ProcessingOutcome) error {
	return e.repo.RecordOutcome(ctx, id, outcome.Type, outcome.Processed, toJSON(outcome))
}

// List returns archive summaries, newest first
func (e *Engine) List(ctx context.Context, filter repository.ArchiveFilter) ([]models.EmailArchiveListItem, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return e.repo.List(ctx, filter)
}

// Get returns the full archive record
func (e *Engine) Get(ctx context.Context, id uint) (*models.EmailArchive, error) {
	record, err := e.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrArchiveNotFound
		}
		return nil, err
	}
	return record, nil
}

// Replay decodes the stored raw email again and routes it. Routing failures
// are part of the outcome, not an error.
func (e *Engine) Replay(ctx context.Context, id uint) (models.ProcessingOutcome, error) {
	record, err := e.Get(ctx, id)
	if err != nil {
		return models.ProcessingOutcome{}, err
	}

	var outcome models.ProcessingOutcome
	parsed, err := mail.Parse([]byte(record.RawEmail))
	switch {
	case err != nil:
		outcome = models.ProcessingOutcome{Type: models.EmailTypeError, Error: err.Error()}
	case e.router == nil:
		outcome = models.ProcessingOutcome{Type: models.EmailTypeError, Error: "no router configured"}
	default:
		outcome = e.router.Route(ctx, parsed)
	}

	if err := e.repo.RecordReplay(ctx, id, true, toJSON(outcome), e.now()); err != nil {
		return outcome, fmt.Errorf("record replay: %w", err)
	}

	e.logger.Info("email replayed",
		slog.Any("id", id),
		slog.String("type", string(outcome.Type)),
		slog.Bool("processed", outcome.Processed))
	if e.observer != nil {
		e.observer.EmailReplayed(id, outcome)
	}
	return outcome, nil
}

// AddTags merges tags into the stored set and returns the stored string
func (e *Engine) AddTags(ctx context.Context, id uint, tags []string) (string, error) {
	stored, err := e.repo.MergeTags(ctx, id, func(current string) string {
		return models.JoinTags(append(models.SplitTags(current), tags...))
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.ErrArchiveNotFound
		}
		return "", err
	}
	return stored, nil
}

// Statistics aggregates the archive
func (e *Engine) Statistics(ctx context.Context) (*Statistics, error) {
	counts, err := e.repo.Counts(ctx, e.now().Add(-recentWindow))
	if err != nil {
		return nil, err
	}

	rate := "0%"
	if counts.Total > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(counts.Processed)/float64(counts.Total)*100)
	}
	byType := counts.ByType
	if byType == nil {
		byType = map[string]int64{}
	}
	delete(byType, "")

	return &Statistics{
		Total:          counts.Total,
		Processed:      counts.Processed,
		ProcessingRate: rate,
		ByType:         byType,
		RecentWeek:     counts.RecentWeek,
	}, nil
}

func toJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}
