package user

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository is the persistence boundary for user rows.
//
// Update writes profile fields only. UpdateRelations writes the relationship
// columns (pc_physician, visiting_nurse, relatives, caregivers, to_remove)
// with a compare-and-swap on the version column and fails with a Conflict
// error when the row changed underneath the caller.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdateRelations(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}

// CaregiverRepository is the persistence boundary for caregiver records.
// UpdatePatients is the CAS counterpart of UserRepository.UpdateRelations.
type CaregiverRepository interface {
	Create(ctx context.Context, cg *Caregiver) error
	GetByID(ctx context.Context, id uuid.UUID) (*Caregiver, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Caregiver, error)
	Update(ctx context.Context, cg *Caregiver) error
	UpdatePatients(ctx context.Context, cg *Caregiver) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Purger removes one domain's rows tied to a user. Each domain repository
// implements it so account deletion can cascade without the user package
// importing the other domains.
type Purger interface {
	PurgeForUser(ctx context.Context, userID uuid.UUID) error
}

// UnseenSource counts one domain's unseen items for a user, feeding the
// new-activity badge.
type UnseenSource interface {
	CountUnseen(ctx context.Context, userID uuid.UUID) (int, error)
}
