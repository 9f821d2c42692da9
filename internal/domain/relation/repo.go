package relation

import (
	"context"

	"github.com/google/uuid"
)

// RequestRepository is the persistence boundary for pending relationship
// requests.
//
// FindPending looks for a request of the given kind between the two users in
// either direction, ignoring the seen flag. PurgeForUser removes every
// request the user sent or received, feeding the account-deletion cascade.
type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	FindPending(ctx context.Context, a, b uuid.UUID, kind Kind) (*Request, error)
	ListBetween(ctx context.Context, a, b uuid.UUID) ([]*Request, error)
	ListByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*Request, error)
	ListBySender(ctx context.Context, senderID uuid.UUID) ([]*Request, error)
	MarkSeen(ctx context.Context, id uuid.UUID) error
	MarkAllSeen(ctx context.Context, receiverID uuid.UUID) error
	CountUnseen(ctx context.Context, receiverID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	PurgeForUser(ctx context.Context, userID uuid.UUID) error
}
