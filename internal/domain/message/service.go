package message

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/FabFari/recipex-app-engine/internal/domain/measurement"
	"github.com/FabFari/recipex-app-engine/internal/domain/user"
	"github.com/FabFari/recipex-app-engine/internal/platform/auth"
	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// UserDirectory resolves user ids for participant checks. *user.Service
// satisfies it.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// MeasurementSource resolves measurement references attached to messages.
// The measurement repository satisfies it.
type MeasurementSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*measurement.Measurement, error)
}

// Service provides business logic for the message domain. Messaging is
// receiver-owned: listing, reading and deleting act on the receiver's inbox.
type Service struct {
	messages     MessageRepository
	users        UserDirectory
	measurements MeasurementSource
}

// NewService creates a new message domain service.
func NewService(messages MessageRepository, users UserDirectory, measurements MeasurementSource) *Service {
	return &Service{messages: messages, users: users, measurements: measurements}
}

func (s *Service) authorize(ctx context.Context, userID uuid.UUID) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	subject := auth.SubjectFromContext(ctx)
	if subject == "" || !strings.EqualFold(subject, u.Email) {
		return apperror.Unauthorized("caller is not %s", u.Email)
	}
	return nil
}

// Send delivers a message into the receiver's inbox. An attached measurement
// must belong to the receiver: the flow is a caregiver commenting on their
// patient's recorded measurement.
func (s *Service) Send(ctx context.Context, m *Message) error {
	if m.Body == "" {
		return apperror.BadRequest("message body is required")
	}
	if m.SenderID == m.ReceiverID {
		return apperror.BadRequest("cannot send a message to yourself")
	}
	if err := s.authorize(ctx, m.SenderID); err != nil {
		return err
	}
	if _, err := s.users.Get(ctx, m.ReceiverID); err != nil {
		return err
	}
	if m.MeasurementID != nil {
		meas, err := s.measurements.GetByID(ctx, *m.MeasurementID)
		if err != nil {
			return err
		}
		if meas.UserID != m.ReceiverID {
			return apperror.PreconditionFailed("measurement does not belong to the receiver")
		}
	}
	m.HasRead = false
	return s.messages.Create(ctx, m)
}

// Inbox lists a user's received messages, optionally only the unread ones.
func (s *Service) Inbox(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Message, int, error) {
	if err := s.authorize(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.messages.ListByReceiver(ctx, userID, unreadOnly, limit, offset)
}

// Get returns one of the user's received messages and marks it read.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Message, error) {
	if err := s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ReceiverID != userID {
		return nil, apperror.NotFound("message not found")
	}
	if !m.HasRead {
		if err := s.messages.MarkRead(ctx, m.ID); err != nil {
			return nil, err
		}
		m.HasRead = true
	}
	return m, nil
}

// MarkRead flags one of the user's received messages as read without
// returning it.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.authorize(ctx, userID); err != nil {
		return err
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.ReceiverID != userID {
		return apperror.NotFound("message not found")
	}
	return s.messages.MarkRead(ctx, id)
}

// Delete removes one of the user's received messages.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.authorize(ctx, userID); err != nil {
		return err
	}
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.ReceiverID != userID {
		return apperror.NotFound("message not found")
	}
	return s.messages.Delete(ctx, id)
}
