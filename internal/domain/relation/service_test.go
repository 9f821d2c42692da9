package relation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/FabFari/recipex-app-engine/internal/domain/user"
	"github.com/FabFari/recipex-app-engine/internal/platform/auth"
	"github.com/FabFari/recipex-app-engine/pkg/apperror"
)

// =========== Mock Request Repository ===========

type mockRequestRepo struct {
	store map[uuid.UUID]*Request
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{store: make(map[uuid.UUID]*Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *Request) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.store[r.ID] = r
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, apperror.NotFound("request not found")
	}
	return r, nil
}

func (m *mockRequestRepo) FindPending(_ context.Context, a, b uuid.UUID, kind Kind) (*Request, error) {
	for _, r := range m.store {
		if r.Kind != kind {
			continue
		}
		if (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a) {
			return r, nil
		}
	}
	return nil, apperror.NotFound("request not found")
}

func (m *mockRequestRepo) ListBetween(_ context.Context, a, b uuid.UUID) ([]*Request, error) {
	var items []*Request
	for _, r := range m.store {
		if (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a) {
			items = append(items, r)
		}
	}
	return items, nil
}

func (m *mockRequestRepo) ListByReceiver(_ context.Context, receiverID uuid.UUID) ([]*Request, error) {
	var items []*Request
	for _, r := range m.store {
		if r.ReceiverID == receiverID {
			items = append(items, r)
		}
	}
	return items, nil
}

func (m *mockRequestRepo) ListBySender(_ context.Context, senderID uuid.UUID) ([]*Request, error) {
	var items []*Request
	for _, r := range m.store {
		if r.SenderID == senderID {
			items = append(items, r)
		}
	}
	return items, nil
}

func (m *mockRequestRepo) MarkSeen(_ context.Context, id uuid.UUID) error {
	if r, ok := m.store[id]; ok {
		r.Seen = true
	}
	return nil
}

func (m *mockRequestRepo) MarkAllSeen(_ context.Context, receiverID uuid.UUID) error {
	for _, r := range m.store {
		if r.ReceiverID == receiverID {
			r.Seen = true
		}
	}
	return nil
}

func (m *mockRequestRepo) CountUnseen(_ context.Context, receiverID uuid.UUID) (int, error) {
	n := 0
	for _, r := range m.store {
		if r.ReceiverID == receiverID && !r.Seen {
			n++
		}
	}
	return n, nil
}

func (m *mockRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockRequestRepo) PurgeForUser(_ context.Context, userID uuid.UUID) error {
	for id, r := range m.store {
		if r.SenderID == userID || r.ReceiverID == userID {
			delete(m.store, id)
		}
	}
	return nil
}

// =========== Mock Directory ===========

type mockDirectory struct {
	users      map[uuid.UUID]*user.User
	caregivers map[uuid.UUID]*user.Caregiver
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users:      make(map[uuid.UUID]*user.User),
		caregivers: make(map[uuid.UUID]*user.Caregiver),
	}
}

func (m *mockDirectory) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return u, nil
}

func (m *mockDirectory) CaregiverByID(_ context.Context, id uuid.UUID) (*user.Caregiver, error) {
	cg, ok := m.caregivers[id]
	if !ok {
		return nil, apperror.NotFound("caregiver not found")
	}
	return cg, nil
}

func (m *mockDirectory) CaregiverByUserID(_ context.Context, userID uuid.UUID) (*user.Caregiver, error) {
	for _, cg := range m.caregivers {
		if cg.UserID == userID {
			return cg, nil
		}
	}
	return nil, apperror.NotFound("caregiver not found")
}

func (m *mockDirectory) MutateRelations(ctx context.Context, id uuid.UUID, fn func(*user.User) error) (*user.User, error) {
	u, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.Version++
	return u, nil
}

func (m *mockDirectory) MutatePatients(ctx context.Context, id uuid.UUID, fn func(*user.Caregiver) error) (*user.Caregiver, error) {
	cg, err := m.CaregiverByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(cg); err != nil {
		return nil, err
	}
	cg.Version++
	return cg, nil
}

// =========== Helpers ===========

type testEnv struct {
	svc  *Service
	dir  *mockDirectory
	reqs *mockRequestRepo
}

func newTestEnv() *testEnv {
	dir := newMockDirectory()
	reqs := newMockRequestRepo()
	return &testEnv{
		svc:  NewService(reqs, dir, zerolog.Nop()),
		dir:  dir,
		reqs: reqs,
	}
}

func (e *testEnv) addUser(email string) *user.User {
	u := &user.User{
		ID:         uuid.New(),
		Email:      email,
		Name:       "Test",
		Surname:    "User",
		Relatives:  map[uuid.UUID]uuid.UUID{},
		Caregivers: map[uuid.UUID]uuid.UUID{},
	}
	e.dir.users[u.ID] = u
	return u
}

func (e *testEnv) addCaregiver(owner *user.User, field string) *user.Caregiver {
	cg := &user.Caregiver{
		ID:       uuid.New(),
		UserID:   owner.ID,
		Field:    field,
		Patients: map[uuid.UUID]uuid.UUID{},
	}
	e.dir.caregivers[cg.ID] = cg
	return cg
}

func ctxAs(email string) context.Context {
	return context.WithValue(context.Background(), auth.SubjectKey, email)
}

func rolePtr(r Role) *Role { return &r }

// =========== SendRequest Tests ===========

func TestSendRequest_Relative(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID == uuid.Nil {
		t.Fatal("expected a persisted request id")
	}
	if req.CaregiverID != nil {
		t.Error("relative requests must not carry a caregiver reference")
	}
	if req.Seen {
		t.Error("new requests start unseen")
	}
}

func TestSendRequest_UnrecognizedKind(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: Kind("FRIEND")})
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestSendRequest_RoleRequiredForCaregiving(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindCaregiver})
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestSendRequest_ToSelf(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: a.ID, Kind: KindRelative})
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestSendRequest_CallerMustBeSender(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	_, err := e.svc.SendRequest(ctxAs(b.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSendRequest_DuplicatePending(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	if _, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestSendRequest_DuplicatePendingReverseDirection(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	if _, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	_, err := e.svc.SendRequest(ctxAs(b.Email), SendInput{SenderID: b.ID, ReceiverID: a.ID, Kind: KindRelative})
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed for reverse duplicate, got %v", err)
	}
}

func TestSendRequest_ReceiverNotACaregiver(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindCaregiver, Role: rolePtr(RolePatient),
	})
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestSendRequest_SenderNotACaregiver(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindCaregiver, Role: rolePtr(RoleCaregiver),
	})
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestSendRequest_AlreadyRelatives(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	a.Relatives[b.ID] = b.ID
	b.Relatives[a.ID] = a.ID

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestSendRequest_CaregiverRelationshipExists(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "Nursing")
	a.Caregivers[b.ID] = g.ID
	g.Patients[a.ID] = a.ID

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindCaregiver, Role: rolePtr(RolePatient),
	})
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestSendRequest_PCPhysicianRelationshipExists(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "General Medicine")
	a.PCPhysician = &g.ID
	g.Patients[a.ID] = a.ID

	_, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindPCPhysician, Role: rolePtr(RolePatient),
	})
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

// =========== AnswerRequest Tests ===========

func TestAnswerRequest_AcceptRelative_Symmetric(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := e.svc.AnswerRequest(ctxAs(b.Email), b.ID, req.ID, true); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if _, ok := a.Relatives[b.ID]; !ok {
		t.Error("sender must list receiver as relative")
	}
	if _, ok := b.Relatives[a.ID]; !ok {
		t.Error("receiver must list sender as relative")
	}
	if _, err := e.reqs.GetByID(context.Background(), req.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("request must be deleted after resolution")
	}
}

func TestAnswerRequest_Reject_NoMutation(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	if _, err := e.svc.AnswerRequest(ctxAs(b.Email), b.ID, req.ID, false); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if len(a.Relatives) != 0 || len(b.Relatives) != 0 {
		t.Error("rejection must not mutate either user")
	}
	if _, err := e.reqs.GetByID(context.Background(), req.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("rejected request must be deleted")
	}
}

func TestAnswerRequest_CallerMustBeReceiver(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	_, err := e.svc.AnswerRequest(ctxAs(a.Email), a.ID, req.ID, true)
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestAnswerRequest_AcceptCaregiver_EstablishesMirror(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "Nursing")

	req, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindCaregiver, Role: rolePtr(RolePatient),
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if req.CaregiverID == nil || *req.CaregiverID != g.ID {
		t.Fatal("request must carry the resolved caregiver reference")
	}
	if _, err := e.svc.AnswerRequest(ctxAs(b.Email), b.ID, req.ID, true); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if a.Caregivers[b.ID] != g.ID {
		t.Error("patient must map the caregiver's user id to the caregiver record")
	}
	if _, ok := g.Patients[a.ID]; !ok {
		t.Error("caregiver record must mirror the patient")
	}
	if _, err := e.reqs.GetByID(context.Background(), req.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("request must be deleted after resolution")
	}
}

func TestAnswerRequest_AcceptPCPhysician(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "General Medicine")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindPCPhysician, Role: rolePtr(RolePatient),
	})
	if _, err := e.svc.AnswerRequest(ctxAs(b.Email), b.ID, req.ID, true); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if a.PCPhysician == nil || *a.PCPhysician != g.ID {
		t.Error("patient's pc_physician must reference the caregiver record")
	}
	if _, ok := g.Patients[a.ID]; !ok {
		t.Error("caregiver record must mirror the patient")
	}
}

func TestAnswerRequest_AcceptVisitingNurse_SenderIsCaregiver(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(a, "Home Care")

	req, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindVisitingNurse, Role: rolePtr(RoleCaregiver),
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := e.svc.AnswerRequest(ctxAs(b.Email), b.ID, req.ID, true); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if b.VisitingNurse == nil || *b.VisitingNurse != g.ID {
		t.Error("receiver is the patient and must reference the sender's caregiver record")
	}
	if _, ok := g.Patients[b.ID]; !ok {
		t.Error("caregiver record must mirror the patient")
	}
}

func TestAnswerRequest_ReturnsCalendarRef(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	ref := "calendar-123"

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{
		SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative, CalendarRef: &ref,
	})
	got, err := e.svc.AnswerRequest(ctxAs(b.Email), b.ID, req.ID, true)
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if got == nil || *got != ref {
		t.Errorf("expected calendar ref %q, got %v", ref, got)
	}
}

// =========== DeleteRequest Tests ===========

func TestDeleteRequest(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	if err := e.svc.DeleteRequest(ctxAs(b.Email), b.ID, req.ID, a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := e.reqs.GetByID(context.Background(), req.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("request must be gone")
	}
}

func TestDeleteRequest_SenderMismatch(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	err := e.svc.DeleteRequest(ctxAs(b.Email), b.ID, req.ID, uuid.New())
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestDeleteRequest_CallerMustBeReceiver(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	err := e.svc.DeleteRequest(ctxAs(a.Email), a.ID, req.ID, a.ID)
	if !errors.Is(err, apperror.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

// =========== SeverRelation Tests ===========

func relatives(e *testEnv, a, b *user.User) {
	a.Relatives[b.ID] = b.ID
	b.Relatives[a.ID] = a.ID
}

func TestSeverRelation_Relative_Symmetric(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	relatives(e, a, b)

	if _, err := e.svc.SeverRelation(ctxAs(a.Email), a.ID, b.ID, KindRelative, nil); err != nil {
		t.Fatalf("sever failed: %v", err)
	}
	if len(a.Relatives) != 0 || len(b.Relatives) != 0 {
		t.Error("both relatives maps must be empty after severance")
	}
}

func TestSeverRelation_Idempotent(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	relatives(e, a, b)

	if _, err := e.svc.SeverRelation(ctxAs(a.Email), a.ID, b.ID, KindRelative, nil); err != nil {
		t.Fatalf("first sever failed: %v", err)
	}
	queued := len(b.ToRemove)
	if _, err := e.svc.SeverRelation(ctxAs(a.Email), a.ID, b.ID, KindRelative, nil); err != nil {
		t.Fatalf("second sever must be a no-op, got %v", err)
	}
	if len(a.Relatives) != 0 || len(b.Relatives) != 0 {
		t.Error("state must be unchanged after the repeated sever")
	}
	if len(b.ToRemove) != queued+1 {
		t.Errorf("repeated sever may queue again (at-least-once), got %d entries", len(b.ToRemove))
	}
}

func TestSeverRelation_PCPhysician_GuardKeepsMirror(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "General Medicine")

	// A has B both as PC physician and as generic caregiver.
	a.PCPhysician = &g.ID
	a.Caregivers[b.ID] = g.ID
	g.Patients[a.ID] = a.ID

	if _, err := e.svc.SeverRelation(ctxAs(a.Email), a.ID, b.ID, KindPCPhysician, rolePtr(RolePatient)); err != nil {
		t.Fatalf("sever failed: %v", err)
	}

	if a.PCPhysician != nil {
		t.Error("pc_physician must be cleared")
	}
	if _, ok := g.Patients[a.ID]; !ok {
		t.Error("patients mirror must survive while the generic caregiver role holds")
	}
	if len(b.ToRemove) != 0 {
		t.Error("no removal may be queued while a relationship survives")
	}
}

func TestSeverRelation_LastRole_RemovesMirrorAndQueues(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "Nursing")

	a.Caregivers[b.ID] = g.ID
	g.Patients[a.ID] = a.ID

	if _, err := e.svc.SeverRelation(ctxAs(a.Email), a.ID, b.ID, KindCaregiver, rolePtr(RolePatient)); err != nil {
		t.Fatalf("sever failed: %v", err)
	}

	if _, ok := a.Caregivers[b.ID]; ok {
		t.Error("caregivers entry must be removed")
	}
	if _, ok := g.Patients[a.ID]; ok {
		t.Error("patients mirror must be removed when no role survives")
	}
	if len(b.ToRemove) != 1 || b.ToRemove[0] != a.Email {
		t.Errorf("peer must have the user's email queued for calendar removal, got %v", b.ToRemove)
	}
}

func TestSeverRelation_NoQueueWhileStillRelatives(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "Nursing")
	relatives(e, a, b)

	a.Caregivers[b.ID] = g.ID
	g.Patients[a.ID] = a.ID

	if _, err := e.svc.SeverRelation(ctxAs(a.Email), a.ID, b.ID, KindCaregiver, rolePtr(RolePatient)); err != nil {
		t.Fatalf("sever failed: %v", err)
	}
	if len(b.ToRemove) != 0 {
		t.Error("no removal may be queued while the relative channel survives")
	}
}

func TestSeverRelation_CaregiverSide_DefaultRole(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(a, "Home Care")

	// A (caregiver-owner) severs their patient B; no role means the caller
	// owns the record.
	b.Caregivers[a.ID] = g.ID
	g.Patients[b.ID] = b.ID

	if _, err := e.svc.SeverRelation(ctxAs(a.Email), a.ID, b.ID, KindCaregiver, nil); err != nil {
		t.Fatalf("sever failed: %v", err)
	}
	if _, ok := b.Caregivers[a.ID]; ok {
		t.Error("patient's caregivers entry must be removed")
	}
	if _, ok := g.Patients[b.ID]; ok {
		t.Error("patients mirror must be removed")
	}
}

// =========== RelationStatus Tests ===========

func TestRelationStatus_Established(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(b, "General Medicine")
	relatives(e, a, b)
	a.PCPhysician = &g.ID
	g.Patients[a.ID] = a.ID

	st, err := e.svc.RelationStatus(ctxAs(a.Email), a.ID, b.ID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !st.IsRelative || !st.IsPCPhysician {
		t.Errorf("expected relative and pc physician established, got %+v", st)
	}
	if st.IsRelativeRequest || st.IsPCPhysicianRequest {
		t.Error("established channels must not report pending requests")
	}
	if st.IsCaregiver || st.IsVisitingNurse {
		t.Error("unrelated channels must be absent")
	}
}

func TestRelationStatus_PendingFromEitherDirection(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	if _, err := e.svc.SendRequest(ctxAs(b.Email), SendInput{SenderID: b.ID, ReceiverID: a.ID, Kind: KindRelative}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	st, err := e.svc.RelationStatus(ctxAs(a.Email), a.ID, b.ID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !st.IsRelativeRequest {
		t.Error("a pending request from the peer must surface as the request bit")
	}
	if st.IsRelative {
		t.Error("a pending channel is not established")
	}
}

func TestRelationStatus_CaregivingAssertedFromOwnRecord(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	g := e.addCaregiver(a, "Home Care")

	// A's own caregiver record is B's visiting nurse.
	b.VisitingNurse = &g.ID
	g.Patients[b.ID] = b.ID

	st, err := e.svc.RelationStatus(ctxAs(a.Email), a.ID, b.ID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !st.IsVisitingNurse {
		t.Error("visiting nurse status must be asserted from the caller's own record")
	}
}

// =========== Inbox Tests ===========

func TestReceived_MarksAllSeen(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	if _, err := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	items, err := e.svc.Received(ctxAs(b.Email), b.ID)
	if err != nil {
		t.Fatalf("received failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 request, got %d", len(items))
	}
	n, _ := e.reqs.CountUnseen(context.Background(), b.ID)
	if n != 0 {
		t.Errorf("expected 0 unseen after listing, got %d", n)
	}
}

func TestGet_MarksSeenForReceiverOnly(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})

	got, err := e.svc.Get(ctxAs(a.Email), a.ID, req.ID)
	if err != nil {
		t.Fatalf("sender get failed: %v", err)
	}
	if got.Seen {
		t.Error("a sender read must not mark the request seen")
	}

	got, err = e.svc.Get(ctxAs(b.Email), b.ID, req.ID)
	if err != nil {
		t.Fatalf("receiver get failed: %v", err)
	}
	if !got.Seen {
		t.Error("a receiver read must mark the request seen")
	}
}

func TestGet_OutsiderRejected(t *testing.T) {
	e := newTestEnv()
	a := e.addUser("a@recipex.test")
	b := e.addUser("b@recipex.test")
	c := e.addUser("c@recipex.test")

	req, _ := e.svc.SendRequest(ctxAs(a.Email), SendInput{SenderID: a.ID, ReceiverID: b.ID, Kind: KindRelative})
	_, err := e.svc.Get(ctxAs(c.Email), c.ID, req.ID)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
