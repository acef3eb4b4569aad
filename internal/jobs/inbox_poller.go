package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/welldanyogia/paperboy/internal/mail"
	"github.com/welldanyogia/paperboy/internal/models"
)

// RawHandler archives and routes one raw message. A zero id means the
// message was not archived.
type RawHandler interface {
	HandleRaw(ctx context.Context, raw []byte) (uint, models.ProcessingOutcome, error)
}

// InboxPollerConfig holds configuration for the inbox poller
type InboxPollerConfig struct {
	// Interval is how often the inbox is polled
	Interval time.Duration
	// Batch caps the messages handled per poll
	Batch int
	// Timeout bounds a single poll
	Timeout time.Duration
}

// InboxPoller moves unseen messages from the inbox into the archive
type InboxPoller struct {
	*loop
	inbox   mail.Inbox
	handler RawHandler
	config  InboxPollerConfig
	logger  *slog.Logger
}

// NewInboxPoller creates a new inbox poller
func NewInboxPoller(inbox mail.Inbox, handler RawHandler, config InboxPollerConfig, logger *slog.Logger) *InboxPoller {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.Batch <= 0 {
		config.Batch = 50
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &InboxPoller{
		inbox:   inbox,
		handler: handler,
		config:  config,
		logger:  logger.With("component", "inbox_poller"),
	}
	p.loop = newLoop("inbox_poller", config.Interval, p.tick, logger)
	return p
}

func (p *InboxPoller) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	if _, err := p.PollOnce(ctx); err != nil {
		p.logger.Error("inbox poll failed", slog.Any("error", err))
	}
}

// PollOnce handles one batch of unseen messages and returns how many were
// marked seen. A message is marked seen once it is archived, even when
// routing it failed; messages that could not be archived stay unseen.
func (p *InboxPoller) PollOnce(ctx context.Context) (int, error) {
	msgs, err := p.inbox.PollUnseen(ctx, p.config.Batch)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	seen := 0
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return seen, ctx.Err()
		}

		id, outcome, err := p.handler.HandleRaw(ctx, msg.Raw)
		if id == 0 {
			p.logger.Error("failed to archive message",
				slog.Uint64("inbound_id", uint64(msg.ID)),
				slog.Any("error", err))
			continue
		}
		if err != nil {
			p.logger.Warn("message archived with errors",
				slog.Uint64("archive_id", uint64(id)),
				slog.Any("error", err))
		}

		if err := p.inbox.MarkSeen(ctx, msg.ID); err != nil {
			p.logger.Error("failed to mark message seen",
				slog.Uint64("inbound_id", uint64(msg.ID)),
				slog.Any("error", err))
			continue
		}
		seen++

		p.logger.Info("message processed",
			slog.Uint64("archive_id", uint64(id)),
			slog.String("type", string(outcome.Type)),
			slog.Bool("processed", outcome.Processed))
	}
	return seen, nil
}
