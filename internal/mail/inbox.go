package mail

import (
	"context"

	"github.com/welldanyogia/paperboy/internal/models"
)

// Inbox is a source of received messages that have not been handled yet
type Inbox interface {
	PollUnseen(ctx context.Context, limit int) ([]models.InboundMessage, error)
	MarkSeen(ctx context.Context, id uint) error
}
