package measurement

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/FabFari/recipex-app-engine/internal/domain/user"
	"github.com/FabFari/recipex-app-engine/internal/platform/auth"
	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// UserDirectory resolves user ids for ownership checks. *user.Service
// satisfies it.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Service provides business logic for the measurement domain. Writes are
// owner-only; reads are open to the owner's care network via the message
// sharing flow, which goes through the message domain.
type Service struct {
	measurements MeasurementRepository
	users        UserDirectory
}

// NewService creates a new measurement domain service.
func NewService(measurements MeasurementRepository, users UserDirectory) *Service {
	return &Service{measurements: measurements, users: users}
}

func (s *Service) authorizeOwner(ctx context.Context, ownerID uuid.UUID) error {
	owner, err := s.users.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	subject := auth.SubjectFromContext(ctx)
	if subject == "" || !strings.EqualFold(subject, owner.Email) {
		return apperror.Unauthorized("caller is not %s", owner.Email)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, m *Measurement) error {
	if err := s.authorizeOwner(ctx, m.UserID); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	return s.measurements.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Measurement, error) {
	if err := s.authorizeOwner(ctx, userID); err != nil {
		return nil, err
	}
	m, err := s.measurements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, apperror.NotFound("measurement not found")
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*Measurement, int, error) {
	if err := s.authorizeOwner(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.measurements.ListByUser(ctx, userID, f, limit, offset)
}

// Update rewrites a measurement's values in place. The kind is immutable;
// changing what was measured means recording a new measurement.
func (s *Service) Update(ctx context.Context, m *Measurement) (*Measurement, error) {
	existing, err := s.measurements.GetByID(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, existing.UserID); err != nil {
		return nil, err
	}
	if m.UserID != existing.UserID {
		return nil, apperror.NotFound("measurement not found")
	}
	m.Kind = existing.Kind
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.measurements.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.measurements.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return apperror.NotFound("measurement not found")
	}
	if err := s.authorizeOwner(ctx, existing.UserID); err != nil {
		return err
	}
	return s.measurements.Delete(ctx, id)
}
