package relation

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the relationship channels between two users.
type Kind string

const (
	KindRelative      Kind = "RELATIVE"
	KindCaregiver     Kind = "CAREGIVER"
	KindPCPhysician   Kind = "PC_PHYSICIAN"
	KindVisitingNurse Kind = "V_NURSE"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRelative, KindCaregiver, KindPCPhysician, KindVisitingNurse:
		return true
	}
	return false
}

// Role says which side of a caregiving relationship the sender is offering
// to take. It is required for every kind except RELATIVE.
type Role string

const (
	RolePatient   Role = "PATIENT"
	RoleCaregiver Role = "CAREGIVER"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleCaregiver
}

// Request maps to the requests table: a pending solicitation from sender to
// receiver to establish one relationship channel. Requests are one-shot:
// answering or deleting one removes the row, nothing is kept as history.
// caregiver_id carries the Caregiver record resolved at send time (nil for
// RELATIVE); seen only drives the new-request badge and never affects the
// duplicate check.
type Request struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	SenderID    uuid.UUID  `db:"sender_id" json:"sender_id"`
	ReceiverID  uuid.UUID  `db:"receiver_id" json:"receiver_id"`
	Kind        Kind       `db:"kind" json:"kind"`
	Role        *Role      `db:"role" json:"role,omitempty"`
	CaregiverID *uuid.UUID `db:"caregiver_id" json:"caregiver_id,omitempty"`
	Message     *string    `db:"message" json:"message,omitempty"`
	CalendarRef *string    `db:"calendar_ref" json:"calendar_ref,omitempty"`
	Seen        bool       `db:"seen" json:"seen"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Status reports, per relationship channel, whether the channel between two
// users is established or has a request pending in either direction. The two
// bits of a channel are mutually exclusive: an established channel never
// reports a pending request.
type Status struct {
	IsRelative             bool `json:"is_relative"`
	IsRelativeRequest      bool `json:"is_relative_request"`
	IsPCPhysician          bool `json:"is_pc_physician"`
	IsPCPhysicianRequest   bool `json:"is_pc_physician_request"`
	IsVisitingNurse        bool `json:"is_visiting_nurse"`
	IsVisitingNurseRequest bool `json:"is_visiting_nurse_request"`
	IsCaregiver            bool `json:"is_caregiver"`
	IsCaregiverRequest     bool `json:"is_caregiver_request"`
}
