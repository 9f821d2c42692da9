package prescription

import (
	"context"

	"github.com/google/uuid"
)

// IngredientRepository is the persistence boundary for the active-ingredient
// catalog.
type IngredientRepository interface {
	Create(ctx context.Context, ai *ActiveIngredient) error
	GetByID(ctx context.Context, id uuid.UUID) (*ActiveIngredient, error)
	GetByName(ctx context.Context, name string) (*ActiveIngredient, error)
	List(ctx context.Context, limit, offset int) ([]*ActiveIngredient, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PrescriptionRepository is the persistence boundary for prescriptions.
type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	MarkSeen(ctx context.Context, id uuid.UUID) error
	CountUnseen(ctx context.Context, userID uuid.UUID) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	PurgeForUser(ctx context.Context, userID uuid.UUID) error
}
