package measurement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a measurement listing. Zero values mean "no filter".
type ListFilter struct {
	Kind  Kind
	Since time.Time
}

// MeasurementRepository is the persistence boundary for measurements.
type MeasurementRepository interface {
	Create(ctx context.Context, m *Measurement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Measurement, error)
	Update(ctx context.Context, m *Measurement) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*Measurement, int, error)
	PurgeForUser(ctx context.Context, userID uuid.UUID) error
}
