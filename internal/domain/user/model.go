package user

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. The relationship collections are stored
// denormalized on the row itself: relatives holds peer user ids, caregivers
// maps a caregiver's user id to their Caregiver record id, and pc_physician /
// visiting_nurse reference Caregiver records directly. Every edge is mirrored
// on the other party's row; the relation engine keeps the two sides in sync.
type User struct {
	ID            uuid.UUID               `db:"id" json:"id"`
	Email         string                  `db:"email" json:"email"`
	Name          string                  `db:"name" json:"name"`
	Surname       string                  `db:"surname" json:"surname"`
	Birth         time.Time               `db:"birth" json:"birth"`
	Sex           string                  `db:"sex" json:"sex"`
	Pic           string                  `db:"pic" json:"pic"`
	City          *string                 `db:"city" json:"city,omitempty"`
	Address       *string                 `db:"address" json:"address,omitempty"`
	PersonalNum   *string                 `db:"personal_num" json:"personal_num,omitempty"`
	CalendarID    *string                 `db:"calendar_id" json:"calendar_id,omitempty"`
	PCPhysician   *uuid.UUID              `db:"pc_physician" json:"pc_physician,omitempty"`
	VisitingNurse *uuid.UUID              `db:"visiting_nurse" json:"visiting_nurse,omitempty"`
	Relatives     map[uuid.UUID]uuid.UUID `db:"relatives" json:"relatives"`
	Caregivers    map[uuid.UUID]uuid.UUID `db:"caregivers" json:"caregivers"`
	ToRemove      []string                `db:"to_remove" json:"-"`
	Version       int64                   `db:"version" json:"-"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at" json:"updated_at"`
}

// Caregiver maps to the caregivers table. A record exists only for users who
// registered with a specialization; its presence makes the owner eligible as
// relative caregiver, PC physician or visiting nurse. patients mirrors the
// patient side of every caregiving edge, whatever its channel.
type Caregiver struct {
	ID          uuid.UUID               `db:"id" json:"id"`
	UserID      uuid.UUID               `db:"user_id" json:"user_id"`
	Field       string                  `db:"field" json:"field"`
	YearsExp    *int                    `db:"years_exp" json:"years_exp,omitempty"`
	Place       *string                 `db:"place" json:"place,omitempty"`
	BusinessNum *string                 `db:"business_num" json:"business_num,omitempty"`
	Bio         *string                 `db:"bio" json:"bio,omitempty"`
	Available   *string                 `db:"available" json:"available,omitempty"`
	Patients    map[uuid.UUID]uuid.UUID `db:"patients" json:"patients"`
	Version     int64                   `db:"version" json:"-"`
	CreatedAt   time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time               `db:"updated_at" json:"updated_at"`
}

// PersonRef is a compact view of a user embedded in expanded profiles.
type PersonRef struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Surname string    `json:"surname"`
	Pic     string    `json:"pic"`
}

// CaregiverRef is a compact view of a caregiver embedded in expanded profiles.
type CaregiverRef struct {
	PersonRef
	CaregiverID uuid.UUID `json:"caregiver_id"`
	Field       string    `json:"field"`
}

// Profile is the expanded read model for a single user: the row itself plus
// the resolved peers on every relationship channel.
type Profile struct {
	User          *User          `json:"user"`
	Caregiver     *Caregiver     `json:"caregiver,omitempty"`
	Relatives     []PersonRef    `json:"relatives"`
	Caregivers    []CaregiverRef `json:"caregivers"`
	PCPhysician   *CaregiverRef  `json:"pc_physician,omitempty"`
	VisitingNurse *CaregiverRef  `json:"visiting_nurse,omitempty"`
	Patients      []PersonRef    `json:"patients,omitempty"`
}

// UnseenInfo carries the new-activity badge counts for a user.
type UnseenInfo struct {
	Messages      int `json:"messages"`
	Requests      int `json:"requests"`
	Prescriptions int `json:"prescriptions"`
}

func (u *User) Ref() PersonRef {
	return PersonRef{ID: u.ID, Email: u.Email, Name: u.Name, Surname: u.Surname, Pic: u.Pic}
}

// HasRelationWith reports whether any relationship channel links u to the
// given peer user, taking the peer's side into account for the directional
// channels (u may be the caregiver rather than the patient).
func (u *User) HasRelationWith(peer *User, peerCG *Caregiver) bool {
	if _, ok := u.Relatives[peer.ID]; ok {
		return true
	}
	if _, ok := u.Caregivers[peer.ID]; ok {
		return true
	}
	if peerCG != nil {
		if u.PCPhysician != nil && *u.PCPhysician == peerCG.ID {
			return true
		}
		if u.VisitingNurse != nil && *u.VisitingNurse == peerCG.ID {
			return true
		}
		if _, ok := peerCG.Patients[u.ID]; ok {
			return true
		}
	}
	return false
}
