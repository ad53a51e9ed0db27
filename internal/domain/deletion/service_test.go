package deletion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// mockRepo is a map-backed Repository with the same conditional-update
// semantics as the Postgres implementation.
type mockRepo struct {
	byID map[uuid.UUID]*Request
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[uuid.UUID]*Request{}}
}

func (m *mockRepo) Create(_ context.Context, r *Request) error {
	for _, existing := range m.byID {
		if existing.MedicalRecordID == r.MedicalRecordID && existing.Status == StatusPending {
			return ErrDuplicatePending
		}
	}
	r.ID = uuid.New()
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) MarkUserResponded(_ context.Context, id uuid.UUID, next Status, respondedAt time.Time, comment string) (*Request, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.Status != StatusPending {
		return nil, ErrAlreadyResponded
	}
	r.Status = next
	r.UserRespondedAt = &respondedAt
	r.PatientResponse = &comment
	cp := *r
	return &cp, nil
}

func (m *mockRepo) MarkAdminConfirmed(_ context.Context, id uuid.UUID, next Status, confirmedAt time.Time, comment string) (*Request, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.Status != StatusUserApproved {
		return nil, ErrNotAwaitingAdmin
	}
	r.Status = next
	r.AdminConfirmedAt = &confirmedAt
	r.AdminFinalResponse = &comment
	cp := *r
	return &cp, nil
}

func (m *mockRepo) MarkDismissed(_ context.Context, id uuid.UUID, dismissedAt time.Time) (*Request, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if r.DismissedByPatient {
		return nil, ErrAlreadyDismissed
	}
	r.DismissedByPatient = true
	r.DismissedAt = &dismissedAt
	cp := *r
	return &cp, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, indexNo string) ([]*Request, error) {
	var items []*Request
	for _, r := range m.byID {
		if r.PatientIndexNo == indexNo && !r.DismissedByPatient {
			items = append(items, r)
		}
	}
	return items, nil
}

func (m *mockRepo) ListAll(_ context.Context) ([]*Request, error) {
	var items []*Request
	for _, r := range m.byID {
		items = append(items, r)
	}
	return items, nil
}

func (m *mockRepo) ListPendingAdminConfirmation(_ context.Context) ([]*Request, error) {
	var items []*Request
	for _, r := range m.byID {
		if r.Status == StatusUserApproved {
			items = append(items, r)
		}
	}
	return items, nil
}

func (m *mockRepo) CountPending(_ context.Context, indexNo string) (int, error) {
	count := 0
	for _, r := range m.byID {
		if r.PatientIndexNo == indexNo && r.Status == StatusPending && !r.DismissedByPatient {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) DeleteByStatuses(_ context.Context, statuses []Status) (int64, error) {
	var n int64
	for id, r := range m.byID {
		for _, s := range statuses {
			if r.Status == s {
				delete(m.byID, id)
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return ErrRequestNotFound
	}
	delete(m.byID, id)
	return nil
}

// mockRecordStore records delete calls and can be told to fail them.
type mockRecordStore struct {
	patients map[string]*PatientInfo

	recordDeletes  []uuid.UUID
	patientDeletes []string

	failRecordDelete bool
}

func newMockRecordStore(patients ...*PatientInfo) *mockRecordStore {
	m := &mockRecordStore{patients: map[string]*PatientInfo{}}
	for _, p := range patients {
		m.patients[p.IndexNo] = p
	}
	return m
}

func (m *mockRecordStore) FindPatientByIndex(_ context.Context, indexNo string) (*PatientInfo, error) {
	p, ok := m.patients[indexNo]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *mockRecordStore) EnsureMedicalRecord(_ context.Context, rawRef, _ string) (uuid.UUID, error) {
	if id, err := uuid.Parse(rawRef); err == nil {
		return id, nil
	}
	return uuid.New(), nil
}

func (m *mockRecordStore) DeleteMedicalRecord(_ context.Context, id uuid.UUID) error {
	if m.failRecordDelete {
		return errors.New("record store unavailable")
	}
	m.recordDeletes = append(m.recordDeletes, id)
	return nil
}

func (m *mockRecordStore) DeletePatientByIndex(_ context.Context, indexNo string) (int64, error) {
	m.patientDeletes = append(m.patientDeletes, indexNo)
	if _, ok := m.patients[indexNo]; !ok {
		return 0, nil
	}
	delete(m.patients, indexNo)
	return 1, nil
}

type emitted struct{ recipient, category, typ, sourceID string }

type mockNotifier struct {
	events []emitted
	fail   bool
}

func (m *mockNotifier) Emit(_ context.Context, recipient, category, typ, sourceID, _ string) error {
	if m.fail {
		return errors.New("sink down")
	}
	m.events = append(m.events, emitted{recipient, category, typ, sourceID})
	return nil
}

func (m *mockNotifier) count(typ string) int {
	n := 0
	for _, e := range m.events {
		if e.typ == typ {
			n++
		}
	}
	return n
}

func newTestService(store *mockRecordStore, notifier *mockNotifier) (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, store, notifier, zerolog.Nop())
	return svc, repo
}

func testPatient() *PatientInfo {
	return &PatientInfo{IndexNo: "S20001", Name: "Sam Perera", Email: "sam@example.com"}
}

func TestCreateRequiresReason(t *testing.T) {
	svc, _ := newTestService(newMockRecordStore(testPatient()), &mockNotifier{})
	_, err := svc.Create(context.Background(), CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001", AdminID: "a1", AdminName: "Admin",
	})
	if !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

func TestCreateUnknownPatient(t *testing.T) {
	svc, _ := newTestService(newMockRecordStore(), &mockNotifier{})
	_, err := svc.Create(context.Background(), CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S99999", AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestCreateSnapshotsAndNotifies(t *testing.T) {
	notifier := &mockNotifier{}
	svc, _ := newTestService(newMockRecordStore(testPatient()), notifier)

	req, err := svc.Create(context.Background(), CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Dr. Admin", Reason: "duplicate entry",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.PatientEmail != "sam@example.com" {
		t.Fatalf("expected denormalized email, got %q", req.PatientEmail)
	}
	if notifier.count(NotifyRequestReceived) != 1 || notifier.count(NotifyRequestAdmin) != 1 {
		t.Fatalf("expected one patient and one admin notification, got %+v", notifier.events)
	}
}

// Single pending invariant: a second request for the same record while the
// first is still pending must fail and leave the first untouched.
func TestSinglePendingPerRecord(t *testing.T) {
	svc, repo := newTestService(newMockRecordStore(testPatient()), &mockNotifier{})
	ctx := context.Background()
	recordRef := uuid.NewString()

	first, err := svc.Create(ctx, CreateParams{
		RecordRef: recordRef, PatientIndexNo: "S20001", AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err = svc.Create(ctx, CreateParams{
		RecordRef: recordRef, PatientIndexNo: "S20001", AdminID: "a1", AdminName: "Admin", Reason: "dup again",
	})
	if !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}

	got, _ := repo.GetByID(ctx, first.ID)
	if got.Status != StatusPending || got.Reason != "dup" {
		t.Fatalf("first request was mutated: %+v", got)
	}

	// Once resolved, a new request for the same record is allowed again.
	if _, err := svc.Respond(ctx, first.ID, "rejected", "", ""); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if _, err := svc.Create(ctx, CreateParams{
		RecordRef: recordRef, PatientIndexNo: "S20001", AdminID: "a1", AdminName: "Admin", Reason: "retry",
	}); err != nil {
		t.Fatalf("Create after terminal: %v", err)
	}
}

// Full happy path: pending → user_approved → admin_confirmed, with both
// destructive deletes invoked exactly once.
func TestFullApprovalFlow(t *testing.T) {
	store := newMockRecordStore(testPatient())
	notifier := &mockNotifier{}
	svc, _ := newTestService(store, notifier)
	ctx := context.Background()

	req, err := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "duplicate entry",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req, err = svc.Respond(ctx, req.ID, "approved", "", "S20001")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if req.Status != StatusUserApproved || req.UserRespondedAt == nil {
		t.Fatalf("expected user_approved with timestamp, got %+v", req)
	}

	req, err = svc.AdminConfirm(ctx, req.ID, "confirm", "")
	if err != nil {
		t.Fatalf("AdminConfirm: %v", err)
	}
	if req.Status != StatusAdminConfirmed || req.AdminConfirmedAt == nil {
		t.Fatalf("expected admin_confirmed with timestamp, got %+v", req)
	}
	if *req.AdminFinalResponse != "Deletion confirmed" {
		t.Fatalf("expected default confirm comment, got %q", *req.AdminFinalResponse)
	}

	if len(store.recordDeletes) != 1 || store.recordDeletes[0] != req.MedicalRecordID {
		t.Fatalf("expected exactly one record delete, got %v", store.recordDeletes)
	}
	if len(store.patientDeletes) != 1 || store.patientDeletes[0] != "S20001" {
		t.Fatalf("expected exactly one patient delete, got %v", store.patientDeletes)
	}
	if notifier.count(NotifyCompleted) != 1 {
		t.Fatalf("expected completion notification, got %+v", notifier.events)
	}
}

func TestUserRejectionIsTerminal(t *testing.T) {
	store := newMockRecordStore(testPatient())
	svc, _ := newTestService(store, &mockNotifier{})
	ctx := context.Background()

	req, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})

	req, err := svc.Respond(ctx, req.ID, "rejected", "I disagree", "S20001")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if req.Status != StatusUserRejected {
		t.Fatalf("expected user_rejected, got %s", req.Status)
	}
	if req.PatientResponse == nil || *req.PatientResponse != "I disagree" {
		t.Fatalf("expected patient comment, got %v", req.PatientResponse)
	}

	if _, err := svc.AdminConfirm(ctx, req.ID, "confirm", ""); !errors.Is(err, ErrNotAwaitingAdmin) {
		t.Fatalf("expected ErrNotAwaitingAdmin, got %v", err)
	}
	if len(store.recordDeletes) != 0 {
		t.Fatalf("no delete should occur, got %v", store.recordDeletes)
	}
}

func TestAdminRejectionSkipsDeletes(t *testing.T) {
	store := newMockRecordStore(testPatient())
	notifier := &mockNotifier{}
	svc, _ := newTestService(store, notifier)
	ctx := context.Background()

	req, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})
	req, _ = svc.Respond(ctx, req.ID, "approved", "", "S20001")

	req, err := svc.AdminConfirm(ctx, req.ID, "reject", "insufficient grounds")
	if err != nil {
		t.Fatalf("AdminConfirm: %v", err)
	}
	if req.Status != StatusAdminRejected {
		t.Fatalf("expected admin_rejected, got %s", req.Status)
	}
	if *req.AdminFinalResponse != "insufficient grounds" {
		t.Fatalf("expected comment kept, got %q", *req.AdminFinalResponse)
	}
	if len(store.recordDeletes) != 0 || len(store.patientDeletes) != 0 {
		t.Fatal("destructive deletes must not run on rejection")
	}
	if notifier.count(NotifyCancelled) != 1 {
		t.Fatalf("expected cancellation notification, got %+v", notifier.events)
	}
}

// Set-once: a second user response or admin confirmation must fail rather
// than overwrite the first transition's data.
func TestTransitionsAreSetOnce(t *testing.T) {
	svc, repo := newTestService(newMockRecordStore(testPatient()), &mockNotifier{})
	ctx := context.Background()

	req, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})

	first, err := svc.Respond(ctx, req.ID, "approved", "ok", "S20001")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if _, err := svc.Respond(ctx, req.ID, "rejected", "changed my mind", "S20001"); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
	got, _ := repo.GetByID(ctx, req.ID)
	if !got.UserRespondedAt.Equal(*first.UserRespondedAt) || *got.PatientResponse != "ok" {
		t.Fatalf("first response was overwritten: %+v", got)
	}

	confirmed, err := svc.AdminConfirm(ctx, req.ID, "confirm", "")
	if err != nil {
		t.Fatalf("AdminConfirm: %v", err)
	}
	if _, err := svc.AdminConfirm(ctx, req.ID, "reject", ""); !errors.Is(err, ErrNotAwaitingAdmin) {
		t.Fatalf("expected ErrNotAwaitingAdmin, got %v", err)
	}
	got, _ = repo.GetByID(ctx, req.ID)
	if got.Status != StatusAdminConfirmed || !got.AdminConfirmedAt.Equal(*confirmed.AdminConfirmedAt) {
		t.Fatalf("confirmation was overwritten: %+v", got)
	}
}

func TestRespondOwnershipCheck(t *testing.T) {
	svc, repo := newTestService(newMockRecordStore(testPatient()), &mockNotifier{})
	ctx := context.Background()

	req, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})

	if _, err := svc.Respond(ctx, req.ID, "approved", "", "S99999"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	got, _ := repo.GetByID(ctx, req.ID)
	if got.Status != StatusPending {
		t.Fatalf("failed ownership check must not transition, got %s", got.Status)
	}
}

func TestRespondInvalidInput(t *testing.T) {
	svc, _ := newTestService(newMockRecordStore(testPatient()), &mockNotifier{})
	ctx := context.Background()

	if _, err := svc.Respond(ctx, uuid.New(), "maybe", "", ""); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if _, err := svc.Respond(ctx, uuid.New(), "approved", "", ""); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

// Confirm ordering: even when the record store delete fails, the request
// stays admin_confirmed and the caller sees success.
func TestConfirmSurvivesFailingRecordStore(t *testing.T) {
	store := newMockRecordStore(testPatient())
	store.failRecordDelete = true
	svc, repo := newTestService(store, &mockNotifier{})
	ctx := context.Background()

	req, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})
	req, _ = svc.Respond(ctx, req.ID, "approved", "", "S20001")

	req, err := svc.AdminConfirm(ctx, req.ID, "confirm", "")
	if err != nil {
		t.Fatalf("AdminConfirm must not fail on delete errors, got %v", err)
	}
	got, _ := repo.GetByID(ctx, req.ID)
	if got.Status != StatusAdminConfirmed {
		t.Fatalf("expected admin_confirmed despite failing delete, got %s", got.Status)
	}
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	notifier := &mockNotifier{fail: true}
	svc, _ := newTestService(newMockRecordStore(testPatient()), notifier)

	req, err := svc.Create(context.Background(), CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})
	if err != nil {
		t.Fatalf("Create must succeed when the sink is down, got %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
}

func TestDismissal(t *testing.T) {
	svc, _ := newTestService(newMockRecordStore(testPatient()), &mockNotifier{})
	ctx := context.Background()

	req, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})

	// Non-owner cannot dismiss.
	if _, err := svc.Dismiss(ctx, req.ID, "S99999"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	dismissed, err := svc.Dismiss(ctx, req.ID, "S20001")
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if !dismissed.DismissedByPatient || dismissed.DismissedAt == nil {
		t.Fatalf("expected dismissal recorded, got %+v", dismissed)
	}
	if dismissed.Status != StatusPending {
		t.Fatalf("dismissal must not change status, got %s", dismissed.Status)
	}

	if _, err := svc.Dismiss(ctx, req.ID, "S20001"); !errors.Is(err, ErrAlreadyDismissed) {
		t.Fatalf("expected ErrAlreadyDismissed, got %v", err)
	}

	// Hidden from the patient's list, still visible in the admin history.
	mine, _ := svc.ListForPatient(ctx, "S20001")
	if len(mine) != 0 {
		t.Fatalf("dismissed request must not appear in patient list, got %d", len(mine))
	}
	all, _ := svc.ListAll(ctx)
	if len(all) != 1 || !all[0].DismissedByPatient {
		t.Fatalf("admin history must keep the dismissed request, got %+v", all)
	}
}

func TestQueries(t *testing.T) {
	svc, _ := newTestService(newMockRecordStore(testPatient(),
		&PatientInfo{IndexNo: "S20002", Name: "Other", Email: "o@example.com"}), &mockNotifier{})
	ctx := context.Background()

	a, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})
	if _, err := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20002",
		AdminID: "a1", AdminName: "Admin", Reason: "stale",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if n, _ := svc.CountPending(ctx, "S20001"); n != 1 {
		t.Fatalf("expected 1 pending for S20001, got %d", n)
	}

	if _, err := svc.Respond(ctx, a.ID, "approved", "", "S20001"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	awaiting, _ := svc.ListPendingAdminConfirmation(ctx)
	if len(awaiting) != 1 || awaiting[0].ID != a.ID {
		t.Fatalf("expected one request awaiting admin, got %+v", awaiting)
	}
	if n, _ := svc.CountPending(ctx, "S20001"); n != 0 {
		t.Fatalf("approved request no longer counts as pending, got %d", n)
	}
}

func TestCleanupAndRemove(t *testing.T) {
	svc, repo := newTestService(newMockRecordStore(testPatient()), &mockNotifier{})
	ctx := context.Background()

	req, _ := svc.Create(ctx, CreateParams{
		RecordRef: uuid.NewString(), PatientIndexNo: "S20001",
		AdminID: "a1", AdminName: "Admin", Reason: "dup",
	})

	// Seed two legacy rows directly.
	for _, s := range []Status{StatusLegacyApproved, StatusLegacyRejected} {
		legacy := &Request{
			MedicalRecordID: uuid.New(), PatientIndexNo: "S20001",
			Reason: "old", Status: s, RequestedAt: time.Now(),
		}
		legacy.ID = uuid.New()
		repo.byID[legacy.ID] = legacy
	}

	n, err := svc.CleanupLegacyRequests(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 legacy rows removed, got n=%d err=%v", n, err)
	}
	if _, err := repo.GetByID(ctx, req.ID); err != nil {
		t.Fatalf("active request must survive cleanup: %v", err)
	}

	if err := svc.RemoveRequest(ctx, req.ID); err != nil {
		t.Fatalf("RemoveRequest: %v", err)
	}
	if err := svc.RemoveRequest(ctx, req.ID); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}
