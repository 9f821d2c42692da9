package prescription

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/FabFari/recipex-app-engine/internal/domain/user"
	"github.com/FabFari/recipex-app-engine/internal/platform/auth"
	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// UserDirectory is the slice of the user domain the prescription service
// needs. *user.Service satisfies it.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	CaregiverByID(ctx context.Context, id uuid.UUID) (*user.Caregiver, error)
}

// Service provides business logic for the active-ingredient catalog and the
// prescriptions that reference it.
type Service struct {
	ingredients   IngredientRepository
	prescriptions PrescriptionRepository
	users         UserDirectory
}

// NewService creates a new prescription domain service.
func NewService(ingredients IngredientRepository, prescriptions PrescriptionRepository, users UserDirectory) *Service {
	return &Service{ingredients: ingredients, prescriptions: prescriptions, users: users}
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

// AddIngredient registers a catalog entry, rejecting duplicates by name.
func (s *Service) AddIngredient(ctx context.Context, ai *ActiveIngredient) error {
	if ai.Name == "" {
		return apperror.BadRequest("name is required")
	}
	if existing, err := s.ingredients.GetByName(ctx, ai.Name); err == nil {
		return apperror.PreconditionFailed("active ingredient %q already exists as %s", existing.Name, existing.ID)
	} else if !apperror.IsNotFound(err) {
		return err
	}
	return s.ingredients.Create(ctx, ai)
}

func (s *Service) GetIngredient(ctx context.Context, id uuid.UUID) (*ActiveIngredient, error) {
	return s.ingredients.GetByID(ctx, id)
}

func (s *Service) ListIngredients(ctx context.Context, limit, offset int) ([]*ActiveIngredient, int, error) {
	return s.ingredients.List(ctx, limit, offset)
}

func (s *Service) DeleteIngredient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.ingredients.GetByID(ctx, id); err != nil {
		return err
	}
	return s.ingredients.Delete(ctx, id)
}

// Create records a prescription for a patient. When attributed to a
// caregiver, the caregiver must actually have the patient in their patients
// map, and the prescription starts unseen so the patient's badge lights up.
func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if err := s.authorize(ctx, p.UserID); err != nil {
		if !apperror.IsUnauthorized(err) {
			return err
		}
		// Not the patient: an attributed prescription may be written by the
		// caregiver it names.
		if p.CaregiverID == nil {
			return err
		}
		cg, cgErr := s.users.CaregiverByID(ctx, *p.CaregiverID)
		if cgErr != nil {
			return cgErr
		}
		if authErr := s.authorize(ctx, cg.UserID); authErr != nil {
			return authErr
		}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	ai, err := s.ingredients.GetByID(ctx, p.ActiveIngredientID)
	if err != nil {
		return err
	}
	p.ActiveIngredientName = ai.Name

	p.Seen = true
	if p.CaregiverID != nil {
		cg, err := s.users.CaregiverByID(ctx, *p.CaregiverID)
		if err != nil {
			return err
		}
		if _, ok := cg.Patients[p.UserID]; !ok {
			return apperror.PreconditionFailed("caregiver does not care for this patient")
		}
		p.Seen = false
	}
	return s.prescriptions.Create(ctx, p)
}

// Get returns one of the patient's prescriptions as an enriched view and
// marks it seen.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*View, error) {
	if err := s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, apperror.NotFound("prescription not found")
	}
	if !p.Seen {
		if err := s.prescriptions.MarkSeen(ctx, p.ID); err != nil {
			return nil, err
		}
		p.Seen = true
	}
	return s.view(ctx, p)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*View, int, error) {
	if err := s.authorize(ctx, userID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.prescriptions.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*View, 0, len(items))
	for _, p := range items {
		v, err := s.view(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, v)
	}
	return views, total, nil
}

// view resolves the issuing caregiver's name and their current job for the
// patient. A severed or deleted caregiver leaves both fields empty.
func (s *Service) view(ctx context.Context, p *Prescription) (*View, error) {
	v := &View{Prescription: *p}
	if p.CaregiverID == nil {
		return v, nil
	}
	cg, err := s.users.CaregiverByID(ctx, *p.CaregiverID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return v, nil
		}
		return nil, err
	}
	owner, err := s.users.Get(ctx, cg.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return v, nil
		}
		return nil, err
	}
	name := owner.Name + " " + owner.Surname
	v.CaregiverName = &name

	patient, err := s.users.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	var job string
	switch {
	case patient.PCPhysician != nil && *patient.PCPhysician == cg.ID:
		job = "PC_PHYSICIAN"
	case patient.VisitingNurse != nil && *patient.VisitingNurse == cg.ID:
		job = "V_NURSE"
	default:
		if _, ok := patient.Caregivers[cg.UserID]; ok {
			job = "CAREGIVER"
		}
	}
	if job != "" {
		v.CaregiverJob = &job
	}
	return v, nil
}

func (s *Service) Update(ctx context.Context, p *Prescription) (*Prescription, error) {
	existing, err := s.prescriptions.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if p.UserID != existing.UserID {
		return nil, apperror.NotFound("prescription not found")
	}
	if err := s.authorize(ctx, existing.UserID); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ai, err := s.ingredients.GetByID(ctx, p.ActiveIngredientID)
	if err != nil {
		return nil, err
	}
	p.ActiveIngredientName = ai.Name
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return apperror.NotFound("prescription not found")
	}
	if err := s.authorize(ctx, userID); err != nil {
		return err
	}
	return s.prescriptions.Delete(ctx, id)
}
