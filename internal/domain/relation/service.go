package relation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/FabFari/recipex-app-engine/internal/domain/user"
	"github.com/FabFari/recipex-app-engine/internal/platform/auth"
	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// Directory is the slice of the user domain the relation engine needs:
// lookups plus the optimistic mutation helpers for the mirrored relationship
// collections. *user.Service satisfies it.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	CaregiverByID(ctx context.Context, id uuid.UUID) (*user.Caregiver, error)
	CaregiverByUserID(ctx context.Context, userID uuid.UUID) (*user.Caregiver, error)
	MutateRelations(ctx context.Context, id uuid.UUID, fn func(*user.User) error) (*user.User, error)
	MutatePatients(ctx context.Context, id uuid.UUID, fn func(*user.Caregiver) error) (*user.Caregiver, error)
}

// Service implements the relationship engine: the request lifecycle that
// establishes an edge, the teardown that severs one, and the status query.
// Each logical edge is stored redundantly on both entities, so every
// operation here is a sequence of single-entity writes ordered to keep the
// mirrors consistent, with no cross-entity transaction.
type Service struct {
	requests RequestRepository
	users    Directory
	log      zerolog.Logger
}

// NewService creates a new relation engine.
func NewService(requests RequestRepository, users Directory, log zerolog.Logger) *Service {
	return &Service{requests: requests, users: users, log: log}
}

func (s *Service) authorize(ctx context.Context, u *user.User) error {
	subject := auth.SubjectFromContext(ctx)
	if subject == "" || !strings.EqualFold(subject, u.Email) {
		return apperror.Unauthorized("caller is not %s", u.Email)
	}
	return nil
}

// SendInput carries the parameters of a new relationship request.
type SendInput struct {
	SenderID    uuid.UUID
	ReceiverID  uuid.UUID
	Kind        Kind
	Role        *Role
	Message     *string
	CalendarRef *string
}

// resolveParties decides who is the patient and who owns the caregiver
// record for a non-RELATIVE request, per the sender's declared role, and
// loads that record. Role PATIENT means the sender is asking to be cared for.
func (s *Service) resolveParties(ctx context.Context, sender, receiver *user.User, role Role) (patient *user.User, cgOwner *user.User, cg *user.Caregiver, err error) {
	if role == RolePatient {
		patient, cgOwner = sender, receiver
	} else {
		patient, cgOwner = receiver, sender
	}
	cg, err = s.users.CaregiverByUserID(ctx, cgOwner.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		if role == RolePatient {
			return nil, nil, nil, apperror.PreconditionFailed("receiver is not a caregiver")
		}
		return nil, nil, nil, apperror.PreconditionFailed("sender is not a caregiver")
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return patient, cgOwner, cg, nil
}

// SendRequest validates and persists a pending relationship request. It
// fails when an equivalent request is already pending in either direction or
// when the relationship already exists on the targeted channel.
func (s *Service) SendRequest(ctx context.Context, in SendInput) (*Request, error) {
	if !in.Kind.Valid() {
		return nil, apperror.BadRequest("unrecognized relationship kind %q", in.Kind)
	}
	if in.Kind != KindRelative {
		if in.Role == nil || !in.Role.Valid() {
			return nil, apperror.BadRequest("a role is required for %s requests", in.Kind)
		}
	}
	if in.SenderID == in.ReceiverID {
		return nil, apperror.BadRequest("cannot send a relationship request to yourself")
	}

	sender, err := s.users.Get(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, sender); err != nil {
		return nil, err
	}
	receiver, err := s.users.Get(ctx, in.ReceiverID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requests.FindPending(ctx, in.SenderID, in.ReceiverID, in.Kind); err == nil {
		return nil, apperror.PreconditionFailed("a %s request between these users is already pending", in.Kind)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	req := &Request{
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		Kind:        in.Kind,
		Role:        in.Role,
		Message:     in.Message,
		CalendarRef: in.CalendarRef,
	}

	if in.Kind == KindRelative {
		if _, ok := receiver.Relatives[sender.ID]; ok {
			return nil, apperror.PreconditionFailed("users are already relatives")
		}
	} else {
		patient, cgOwner, cg, err := s.resolveParties(ctx, sender, receiver, *in.Role)
		if err != nil {
			return nil, err
		}
		switch in.Kind {
		case KindCaregiver:
			if _, ok := patient.Caregivers[cgOwner.ID]; ok {
				return nil, apperror.PreconditionFailed("caregiver relationship already exists")
			}
		case KindPCPhysician:
			if patient.PCPhysician != nil && *patient.PCPhysician == cg.ID {
				return nil, apperror.PreconditionFailed("pc physician relationship already exists")
			}
		case KindVisitingNurse:
			if patient.VisitingNurse != nil && *patient.VisitingNurse == cg.ID {
				return nil, apperror.PreconditionFailed("visiting nurse relationship already exists")
			}
		}
		req.CaregiverID = &cg.ID
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// AnswerRequest resolves a pending request. Only the receiver may answer.
// Rejection deletes the request without touching any entity; acceptance
// writes both sides of the edge, patient row first, then deletes the
// request. The stored calendar reference is returned either way for the
// calendar side-channel.
func (s *Service) AnswerRequest(ctx context.Context, userID, requestID uuid.UUID, accept bool) (*string, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != userID {
		return nil, apperror.PreconditionFailed("caller is not the receiver of this request")
	}
	receiver, err := s.users.Get(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, receiver); err != nil {
		return nil, err
	}

	if accept {
		if err := s.establish(ctx, req, receiver); err != nil {
			return nil, err
		}
	}
	if err := s.requests.Delete(ctx, requestID); err != nil {
		return nil, err
	}
	return req.CalendarRef, nil
}

func (s *Service) establish(ctx context.Context, req *Request, receiver *user.User) error {
	sender, err := s.users.Get(ctx, req.SenderID)
	if err != nil {
		return err
	}

	if req.Kind == KindRelative {
		if _, err := s.users.MutateRelations(ctx, sender.ID, func(u *user.User) error {
			u.Relatives[receiver.ID] = receiver.ID
			return nil
		}); err != nil {
			return err
		}
		_, err := s.users.MutateRelations(ctx, receiver.ID, func(u *user.User) error {
			u.Relatives[sender.ID] = sender.ID
			return nil
		})
		return err
	}

	role := RoleCaregiver
	if req.Role != nil {
		role = *req.Role
	}
	patient, cgOwner, cg, err := s.resolveParties(ctx, sender, receiver, role)
	if err != nil {
		return err
	}
	if req.CaregiverID != nil && *req.CaregiverID != cg.ID {
		// The owner re-registered their caregiver record since the request
		// was sent; trust the current record.
		s.log.Warn().Str("request_id", req.ID.String()).Msg("caregiver record changed since request was sent")
	}

	if _, err := s.users.MutateRelations(ctx, patient.ID, func(u *user.User) error {
		switch req.Kind {
		case KindCaregiver:
			u.Caregivers[cgOwner.ID] = cg.ID
		case KindPCPhysician:
			id := cg.ID
			u.PCPhysician = &id
		case KindVisitingNurse:
			id := cg.ID
			u.VisitingNurse = &id
		}
		return nil
	}); err != nil {
		return err
	}
	_, err = s.users.MutatePatients(ctx, cg.ID, func(c *user.Caregiver) error {
		c.Patients[patient.ID] = patient.ID
		return nil
	})
	return err
}

// DeleteRequest withdraws a pending request. The caller must be the
// receiver, and expectedSender must name the request's actual sender so a
// stale client cannot delete somebody else's request by id reuse.
func (s *Service) DeleteRequest(ctx context.Context, userID, requestID, expectedSender uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ReceiverID != userID {
		return apperror.PreconditionFailed("caller is not the receiver of this request")
	}
	if req.SenderID != expectedSender {
		return apperror.PreconditionFailed("request sender does not match")
	}
	receiver, err := s.users.Get(ctx, req.ReceiverID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, receiver); err != nil {
		return err
	}
	return s.requests.Delete(ctx, requestID)
}

// SeverRelation tears down one relationship channel between the caller and a
// peer. Removals are idempotent: severing an absent relationship is a no-op,
// not an error. When the peer ends up with no surviving relationship to the
// caller on any channel, the caller's email is queued on the peer's
// calendar-removal list for the side-channel to drain later.
func (s *Service) SeverRelation(ctx context.Context, userID, peerID uuid.UUID, kind Kind, role *Role) (uuid.UUID, error) {
	if !kind.Valid() {
		return uuid.Nil, apperror.BadRequest("unrecognized relationship kind %q", kind)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.authorize(ctx, u); err != nil {
		return uuid.Nil, err
	}
	peer, err := s.users.Get(ctx, peerID)
	if err != nil {
		return uuid.Nil, err
	}

	if kind == KindRelative {
		if _, err := s.users.MutateRelations(ctx, userID, func(u *user.User) error {
			delete(u.Relatives, peerID)
			return nil
		}); err != nil {
			return uuid.Nil, err
		}
		if _, err := s.users.MutateRelations(ctx, peerID, func(p *user.User) error {
			delete(p.Relatives, userID)
			return nil
		}); err != nil {
			return uuid.Nil, err
		}
	} else {
		// Role PATIENT: the peer owns the caregiver record. Role CAREGIVER
		// or absent: the caller does, mirroring the resolution at request
		// time.
		patientID, ownerID := peerID, userID
		if role != nil && *role == RolePatient {
			patientID, ownerID = userID, peerID
		}
		cg, err := s.users.CaregiverByUserID(ctx, ownerID)
		if errors.Is(err, apperror.ErrNotFound) {
			return uuid.Nil, apperror.PreconditionFailed("no caregiver record to sever")
		}
		if err != nil {
			return uuid.Nil, err
		}

		patient, err := s.users.MutateRelations(ctx, patientID, func(p *user.User) error {
			switch kind {
			case KindCaregiver:
				delete(p.Caregivers, ownerID)
			case KindPCPhysician:
				if p.PCPhysician != nil && *p.PCPhysician == cg.ID {
					p.PCPhysician = nil
				}
			case KindVisitingNurse:
				if p.VisitingNurse != nil && *p.VisitingNurse == cg.ID {
					p.VisitingNurse = nil
				}
			}
			return nil
		})
		if err != nil {
			return uuid.Nil, err
		}

		// The patients mirror entry stays as long as any channel with this
		// caregiver survives; it is re-derived here, not blindly deleted.
		if !patientHasRoleWith(patient, ownerID, cg) {
			if _, err := s.users.MutatePatients(ctx, cg.ID, func(c *user.Caregiver) error {
				delete(c.Patients, patient.ID)
				return nil
			}); err != nil {
				return uuid.Nil, err
			}
		}
	}

	if err := s.queueRemovalIfEstranged(ctx, u, peer); err != nil {
		return uuid.Nil, err
	}
	return peerID, nil
}

// patientHasRoleWith reports whether the patient still holds any active role
// with the given caregiver record.
func patientHasRoleWith(p *user.User, ownerID uuid.UUID, cg *user.Caregiver) bool {
	if _, ok := p.Caregivers[ownerID]; ok {
		return true
	}
	if p.PCPhysician != nil && *p.PCPhysician == cg.ID {
		return true
	}
	if p.VisitingNurse != nil && *p.VisitingNurse == cg.ID {
		return true
	}
	return false
}

// queueRemovalIfEstranged appends u's email to the peer's calendar-removal
// queue when no relationship between the two survives on any channel, in
// either direction. Delivery downstream is at-least-once.
func (s *Service) queueRemovalIfEstranged(ctx context.Context, u, peer *user.User) error {
	fresh, err := s.users.Get(ctx, u.ID)
	if err != nil {
		return err
	}
	freshPeer, err := s.users.Get(ctx, peer.ID)
	if err != nil {
		return err
	}
	var uCG, peerCG *user.Caregiver
	if cg, err := s.users.CaregiverByUserID(ctx, u.ID); err == nil {
		uCG = cg
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	if cg, err := s.users.CaregiverByUserID(ctx, peer.ID); err == nil {
		peerCG = cg
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	if fresh.HasRelationWith(freshPeer, peerCG) || freshPeer.HasRelationWith(fresh, uCG) {
		return nil
	}
	_, err = s.users.MutateRelations(ctx, peer.ID, func(p *user.User) error {
		p.ToRemove = append(p.ToRemove, fresh.Email)
		return nil
	})
	return err
}

// RelationStatus reports the state of every relationship channel between two
// users. Both caregiver records are consulted because caregiving status can
// be asserted from either direction, and pending requests in either
// direction surface as the channel's request bit when the channel is not
// already established.
func (s *Service) RelationStatus(ctx context.Context, userID, peerID uuid.UUID) (*Status, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, u); err != nil {
		return nil, err
	}
	peer, err := s.users.Get(ctx, peerID)
	if err != nil {
		return nil, err
	}
	var uCG, peerCG *user.Caregiver
	if cg, err := s.users.CaregiverByUserID(ctx, userID); err == nil {
		uCG = cg
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	if cg, err := s.users.CaregiverByUserID(ctx, peerID); err == nil {
		peerCG = cg
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	st := &Status{}
	_, st.IsRelative = u.Relatives[peerID]
	if _, ok := u.Caregivers[peerID]; ok {
		st.IsCaregiver = true
	}
	if _, ok := peer.Caregivers[userID]; ok {
		st.IsCaregiver = true
	}
	if peerCG != nil {
		if u.PCPhysician != nil && *u.PCPhysician == peerCG.ID {
			st.IsPCPhysician = true
		}
		if u.VisitingNurse != nil && *u.VisitingNurse == peerCG.ID {
			st.IsVisitingNurse = true
		}
	}
	if uCG != nil {
		if peer.PCPhysician != nil && *peer.PCPhysician == uCG.ID {
			st.IsPCPhysician = true
		}
		if peer.VisitingNurse != nil && *peer.VisitingNurse == uCG.ID {
			st.IsVisitingNurse = true
		}
	}

	pending, err := s.requests.ListBetween(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	for _, req := range pending {
		switch req.Kind {
		case KindRelative:
			if !st.IsRelative {
				st.IsRelativeRequest = true
			}
		case KindCaregiver:
			if !st.IsCaregiver {
				st.IsCaregiverRequest = true
			}
		case KindPCPhysician:
			if !st.IsPCPhysician {
				st.IsPCPhysicianRequest = true
			}
		case KindVisitingNurse:
			if !st.IsVisitingNurse {
				st.IsVisitingNurseRequest = true
			}
		}
	}
	return st, nil
}

// Received lists a user's incoming requests and marks them all seen, which
// resets the new-request badge.
func (s *Service) Received(ctx context.Context, userID uuid.UUID) ([]*Request, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, u); err != nil {
		return nil, err
	}
	items, err := s.requests.ListByReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requests.MarkAllSeen(ctx, userID); err != nil {
		return nil, err
	}
	return items, nil
}

// Sent lists a user's outgoing requests.
func (s *Service) Sent(ctx context.Context, userID uuid.UUID) ([]*Request, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, u); err != nil {
		return nil, err
	}
	return s.requests.ListBySender(ctx, userID)
}

// Get returns a single request visible to the caller (sender or receiver)
// and marks it seen when the caller is the receiver.
func (s *Service) Get(ctx context.Context, userID, requestID uuid.UUID) (*Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.SenderID != userID && req.ReceiverID != userID {
		return nil, apperror.Unauthorized("caller is not a participant of this request")
	}
	caller, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller); err != nil {
		return nil, err
	}
	if req.ReceiverID == userID && !req.Seen {
		if err := s.requests.MarkSeen(ctx, req.ID); err != nil {
			return nil, err
		}
		req.Seen = true
	}
	return req, nil
}
