package message

import (
	"context"

	"github.com/google/uuid"
)

// MessageRepository is the persistence boundary for messages. PurgeForUser
// removes every message the user sent or received.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	ListByReceiver(ctx context.Context, receiverID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Message, int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	CountUnseen(ctx context.Context, receiverID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	PurgeForUser(ctx context.Context, userID uuid.UUID) error
}
