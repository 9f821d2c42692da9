package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/FabFari/recipex-app-engine/internal/platform/auth"
	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// casRetries bounds the reload-and-retry loop around optimistic relationship
// writes. Contention on a single person's row is rare; hitting the bound is
// surfaced as a Conflict.
const casRetries = 5

type namedPurger struct {
	name   string
	purger Purger
}

// Service provides business logic for the user domain, including the
// cascading account deletion and the optimistic-concurrency helpers the
// relation engine builds on.
type Service struct {
	users      UserRepository
	caregivers CaregiverRepository
	purgers    []namedPurger

	unreadMessages      UnseenSource
	pendingRequests     UnseenSource
	unseenPrescriptions UnseenSource

	log zerolog.Logger
}

// NewService creates a new user domain service.
func NewService(users UserRepository, caregivers CaregiverRepository, log zerolog.Logger) *Service {
	return &Service{users: users, caregivers: caregivers, log: log}
}

// RegisterPurger adds a domain purger to the account-deletion cascade.
func (s *Service) RegisterPurger(name string, p Purger) {
	s.purgers = append(s.purgers, namedPurger{name: name, purger: p})
}

// SetUnseenSources wires the badge counters. Any of them may be nil.
func (s *Service) SetUnseenSources(messages, requests, prescriptions UnseenSource) {
	s.unreadMessages = messages
	s.pendingRequests = requests
	s.unseenPrescriptions = prescriptions
}

// authorize checks that the authenticated caller is the given user.
func (s *Service) authorize(ctx context.Context, u *User) error {
	subject := auth.SubjectFromContext(ctx)
	if subject == "" || !strings.EqualFold(subject, u.Email) {
		return apperror.Unauthorized("caller is not %s", u.Email)
	}
	return nil
}

// Register creates a user and, when a specialization is supplied, the
// caregiver record that makes them eligible for caregiving relationships.
// A duplicate email returns the existing profile alongside a
// PreconditionFailed error so the client can recover the account id.
func (s *Service) Register(ctx context.Context, u *User, cg *Caregiver) (*User, error) {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return nil, apperror.BadRequest("a valid email is required")
	}
	if u.Name == "" || u.Surname == "" {
		return nil, apperror.BadRequest("name and surname are required")
	}
	if u.Birth.IsZero() {
		return nil, apperror.BadRequest("birth date is required")
	}
	if u.Sex == "" {
		return nil, apperror.BadRequest("sex is required")
	}

	if existing, err := s.users.GetByEmail(ctx, u.Email); err == nil {
		return existing, apperror.PreconditionFailed("user %s already exists", u.Email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if cg != nil && cg.Field != "" {
		cg.UserID = u.ID
		if err := s.caregivers.Create(ctx, cg); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, email)
}

func (s *Service) CaregiverByID(ctx context.Context, id uuid.UUID) (*Caregiver, error) {
	return s.caregivers.GetByID(ctx, id)
}

func (s *Service) CaregiverByUserID(ctx context.Context, userID uuid.UUID) (*Caregiver, error) {
	return s.caregivers.GetByUserID(ctx, userID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// Profile resolves the user's row into the expanded read model, following
// every relationship reference to its peer.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: u, Relatives: []PersonRef{}, Caregivers: []CaregiverRef{}}

	if own, err := s.caregivers.GetByUserID(ctx, id); err == nil {
		p.Caregiver = own
		p.Patients = []PersonRef{}
		for patientID := range own.Patients {
			patient, err := s.users.GetByID(ctx, patientID)
			if err != nil {
				continue
			}
			p.Patients = append(p.Patients, patient.Ref())
		}
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	for peerID := range u.Relatives {
		peer, err := s.users.GetByID(ctx, peerID)
		if err != nil {
			continue
		}
		p.Relatives = append(p.Relatives, peer.Ref())
	}
	for ownerID, cgID := range u.Caregivers {
		ref, err := s.caregiverRef(ctx, ownerID, cgID)
		if err != nil {
			continue
		}
		p.Caregivers = append(p.Caregivers, *ref)
	}
	if u.PCPhysician != nil {
		if ref, err := s.caregiverRefByRecord(ctx, *u.PCPhysician); err == nil {
			p.PCPhysician = ref
		}
	}
	if u.VisitingNurse != nil {
		if ref, err := s.caregiverRefByRecord(ctx, *u.VisitingNurse); err == nil {
			p.VisitingNurse = ref
		}
	}
	return p, nil
}

func (s *Service) caregiverRef(ctx context.Context, ownerID, cgID uuid.UUID) (*CaregiverRef, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	cg, err := s.caregivers.GetByID(ctx, cgID)
	if err != nil {
		return nil, err
	}
	return &CaregiverRef{PersonRef: owner.Ref(), CaregiverID: cg.ID, Field: cg.Field}, nil
}

func (s *Service) caregiverRefByRecord(ctx context.Context, cgID uuid.UUID) (*CaregiverRef, error) {
	cg, err := s.caregivers.GetByID(ctx, cgID)
	if err != nil {
		return nil, err
	}
	owner, err := s.users.GetByID(ctx, cg.UserID)
	if err != nil {
		return nil, err
	}
	return &CaregiverRef{PersonRef: owner.Ref(), CaregiverID: cg.ID, Field: cg.Field}, nil
}

// UpdateProfile writes the user's profile fields and, when the user owns a
// caregiver record and caregiver fields were supplied, that record too.
// Relationship fields are never touched here.
func (s *Service) UpdateProfile(ctx context.Context, u *User, cg *Caregiver) (*User, error) {
	existing, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, existing); err != nil {
		return nil, err
	}
	u.Email = existing.Email
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	if cg != nil {
		own, err := s.caregivers.GetByUserID(ctx, u.ID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.PreconditionFailed("user %s is not a caregiver", u.ID)
			}
			return nil, err
		}
		cg.ID = own.ID
		if cg.Field == "" {
			cg.Field = own.Field
		}
		if err := s.caregivers.Update(ctx, cg); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// MutateRelations applies fn to a freshly loaded user row and writes the
// relationship columns back under optimistic concurrency, retrying on
// version conflicts. fn must be side-effect free so it can run again.
func (s *Service) MutateRelations(ctx context.Context, id uuid.UUID, fn func(*User) error) (*User, error) {
	for i := 0; i < casRetries; i++ {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(u); err != nil {
			return nil, err
		}
		err = s.users.UpdateRelations(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
	}
	return nil, apperror.Conflict("user %s kept changing concurrently", id)
}

// MutatePatients is the caregiver-record counterpart of MutateRelations.
func (s *Service) MutatePatients(ctx context.Context, id uuid.UUID, fn func(*Caregiver) error) (*Caregiver, error) {
	for i := 0; i < casRetries; i++ {
		cg, err := s.caregivers.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(cg); err != nil {
			return nil, err
		}
		err = s.caregivers.UpdatePatients(ctx, cg)
		if err == nil {
			return cg, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
	}
	return nil, apperror.Conflict("caregiver %s kept changing concurrently", id)
}

// Delete cascades an account deletion: un-mirror the user from every peer,
// purge the data they own or exchanged, drop their caregiver record, and
// remove the user row last. Every step is idempotent so the whole operation
// can be retried after a partial failure; failures are logged and the user
// row is kept so the retry has something to start from.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, u); err != nil {
		return err
	}

	var firstErr error
	fail := func(step string, err error) {
		s.log.Error().Err(err).Str("user_id", id.String()).Str("step", step).
			Msg("account deletion step failed, peers may hold dangling references")
		if firstErr == nil {
			firstErr = err
		}
	}

	// Caregiver records that list u as a patient, from every channel.
	caring := map[uuid.UUID]struct{}{}
	if u.PCPhysician != nil {
		caring[*u.PCPhysician] = struct{}{}
	}
	if u.VisitingNurse != nil {
		caring[*u.VisitingNurse] = struct{}{}
	}
	for _, cgID := range u.Caregivers {
		caring[cgID] = struct{}{}
	}
	for cgID := range caring {
		_, err := s.MutatePatients(ctx, cgID, func(cg *Caregiver) error {
			delete(cg.Patients, id)
			return nil
		})
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			fail("unmirror caregiver", err)
		}
	}

	for peerID := range u.Relatives {
		_, err := s.MutateRelations(ctx, peerID, func(peer *User) error {
			delete(peer.Relatives, id)
			return nil
		})
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			fail("unmirror relative", err)
		}
	}

	for _, p := range s.purgers {
		if err := p.purger.PurgeForUser(ctx, id); err != nil {
			fail("purge "+p.name, err)
		}
	}

	if own, err := s.caregivers.GetByUserID(ctx, id); err == nil {
		for patientID := range own.Patients {
			_, err := s.MutateRelations(ctx, patientID, func(patient *User) error {
				delete(patient.Caregivers, id)
				if patient.PCPhysician != nil && *patient.PCPhysician == own.ID {
					patient.PCPhysician = nil
				}
				if patient.VisitingNurse != nil && *patient.VisitingNurse == own.ID {
					patient.VisitingNurse = nil
				}
				return nil
			})
			if err != nil && !errors.Is(err, apperror.ErrNotFound) {
				fail("unmirror patient", err)
			}
		}
		if err := s.caregivers.Delete(ctx, own.ID); err != nil {
			fail("delete caregiver record", err)
		}
	} else if !errors.Is(err, apperror.ErrNotFound) {
		fail("load caregiver record", err)
	}

	if firstErr != nil {
		return apperror.Wrap(apperror.KindConflict, firstErr, "account deletion incomplete, retry")
	}
	return s.users.Delete(ctx, id)
}

// DrainToRemove returns and clears the queued calendar-removal emails.
// The read is destructive; downstream consumers must tolerate duplicates
// since a crash after the response can replay entries.
func (s *Service) DrainToRemove(ctx context.Context, id uuid.UUID) ([]string, error) {
	var drained []string
	_, err := s.MutateRelations(ctx, id, func(u *User) error {
		if err := s.authorize(ctx, u); err != nil {
			return err
		}
		drained = u.ToRemove
		u.ToRemove = []string{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if drained == nil {
		drained = []string{}
	}
	return drained, nil
}

// Unseen reports the new-activity badge counts for a user.
func (s *Service) Unseen(ctx context.Context, id uuid.UUID) (*UnseenInfo, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, u); err != nil {
		return nil, err
	}
	info := &UnseenInfo{}
	if s.unreadMessages != nil {
		if info.Messages, err = s.unreadMessages.CountUnseen(ctx, id); err != nil {
			return nil, err
		}
	}
	if s.pendingRequests != nil {
		if info.Requests, err = s.pendingRequests.CountUnseen(ctx, id); err != nil {
			return nil, err
		}
	}
	if s.unseenPrescriptions != nil {
		if info.Prescriptions, err = s.unseenPrescriptions.CountUnseen(ctx, id); err != nil {
			return nil, err
		}
	}
	return info, nil
}
