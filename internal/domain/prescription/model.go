package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// Kind enumerates the supported prescription forms.
type Kind string

const (
	KindPill   Kind = "PILL"
	KindSachet Kind = "SACHET"
	KindVial   Kind = "VIAL"
	KindCream  Kind = "CREAM"
	KindOther  Kind = "OTHER"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPill, KindSachet, KindVial, KindCream, KindOther:
		return true
	}
	return false
}

// ActiveIngredient maps to the active_ingredients table: a shared catalog of
// ingredient names prescriptions point into.
type ActiveIngredient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Prescription maps to the prescriptions table. The ingredient name is
// denormalized onto the row at write time. caregiver_id attributes the
// prescription to the patient's caregiver who issued it; seen starts false
// only for attributed prescriptions, driving the patient's badge.
type Prescription struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	UserID               uuid.UUID  `db:"user_id" json:"user_id"`
	Name                 string     `db:"name" json:"name"`
	ActiveIngredientID   uuid.UUID  `db:"active_ingredient_id" json:"active_ingredient_id"`
	ActiveIngredientName string     `db:"active_ingredient_name" json:"active_ingredient_name"`
	Kind                 Kind       `db:"kind" json:"kind"`
	Dose                 int        `db:"dose" json:"dose"`
	Units                string     `db:"units" json:"units"`
	Quantity             int        `db:"quantity" json:"quantity"`
	Recipe               bool       `db:"recipe" json:"recipe"`
	PIL                  *string    `db:"pil" json:"pil,omitempty"`
	CaregiverID          *uuid.UUID `db:"caregiver_id" json:"caregiver_id,omitempty"`
	Seen                 bool       `db:"seen" json:"seen"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// Validate checks the field-level prescription rules.
func (p *Prescription) Validate() error {
	if p.Name == "" {
		return apperror.BadRequest("name is required")
	}
	if !p.Kind.Valid() {
		return apperror.BadRequest("unrecognized prescription kind %q", p.Kind)
	}
	if p.Dose <= 0 {
		return apperror.BadRequest("dose must be positive")
	}
	if p.Units == "" {
		return apperror.BadRequest("units are required")
	}
	if p.Quantity <= 0 {
		return apperror.BadRequest("quantity must be positive")
	}
	return nil
}

// View is a Prescription enriched with the issuing caregiver's identity and
// their current job for this patient, resolved at read time.
type View struct {
	Prescription
	CaregiverName *string `json:"caregiver_name,omitempty"`
	CaregiverJob  *string `json:"caregiver_job,omitempty"`
}
