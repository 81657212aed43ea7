package encounter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chartstack/chartstack/internal/domain/organization"
	"github.com/chartstack/chartstack/internal/domain/patient"
	"github.com/chartstack/chartstack/internal/domain/procedure"
)

type mockRepo struct {
	encounters map[uuid.UUID]*Encounter
	lineItems  map[uuid.UUID][]*LineItem
	diagnoses  map[uuid.UUID][]*Diagnosis
	vitals     map[uuid.UUID]*Vitals
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		encounters: make(map[uuid.UUID]*Encounter),
		lineItems:  make(map[uuid.UUID][]*LineItem),
		diagnoses:  make(map[uuid.UUID][]*Diagnosis),
		vitals:     make(map[uuid.UUID]*Vitals),
	}
}

func (m *mockRepo) Create(ctx context.Context, e *Encounter) error {
	e.ID = uuid.New()
	m.encounters[e.ID] = e
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*Encounter, error) {
	e, ok := m.encounters[id]
	if !ok || e.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockRepo) Update(ctx context.Context, e *Encounter) error {
	m.encounters[e.ID] = e
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	delete(m.encounters, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if e.OrganizationID == orgID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, orgID, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if e.OrganizationID == orgID && e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListNeedingSignature(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if e.OrganizationID == orgID && e.Status == StatusCompleted {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListSignedByPatient(ctx context.Context, orgID, patientID uuid.UUID, limit int) ([]*Encounter, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if e.OrganizationID == orgID && e.PatientID == patientID &&
			(e.Status == StatusSigned || e.Status == StatusAmended) {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepo) AddLineItem(ctx context.Context, li *LineItem) error {
	for _, existing := range m.lineItems[li.EncounterID] {
		if existing.ProcedureID == li.ProcedureID {
			return ErrDuplicateLineItem
		}
	}
	li.ID = uuid.New()
	m.lineItems[li.EncounterID] = append(m.lineItems[li.EncounterID], li)
	return nil
}

func (m *mockRepo) ListLineItems(ctx context.Context, encounterID uuid.UUID) ([]*LineItem, error) {
	return m.lineItems[encounterID], nil
}

func (m *mockRepo) RemoveLineItem(ctx context.Context, encounterID, id uuid.UUID) error {
	return nil
}

func (m *mockRepo) AddDiagnosis(ctx context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	m.diagnoses[d.EncounterID] = append(m.diagnoses[d.EncounterID], d)
	return nil
}

func (m *mockRepo) ListDiagnoses(ctx context.Context, encounterID uuid.UUID) ([]*Diagnosis, error) {
	return m.diagnoses[encounterID], nil
}

func (m *mockRepo) RemoveDiagnosis(ctx context.Context, encounterID, id uuid.UUID) error {
	return nil
}

func (m *mockRepo) UpsertVitals(ctx context.Context, v *Vitals) error {
	m.vitals[v.EncounterID] = v
	return nil
}

func (m *mockRepo) GetVitals(ctx context.Context, encounterID uuid.UUID) (*Vitals, error) {
	v, ok := m.vitals[encounterID]
	if !ok {
		return nil, ErrVitalsNotFound
	}
	return v, nil
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Get(ctx context.Context, orgID, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.OrganizationID != orgID {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type mockOrgs struct {
	org       *organization.Organization
	providers map[uuid.UUID]*organization.Provider
}

func (m *mockOrgs) Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	if m.org != nil && m.org.ID == id {
		return m.org, nil
	}
	return nil, organization.ErrNotFound
}

func (m *mockOrgs) GetProvider(ctx context.Context, orgID, id uuid.UUID) (*organization.Provider, error) {
	p, ok := m.providers[id]
	if !ok || p.OrganizationID != orgID {
		return nil, organization.ErrProviderNotFound
	}
	return p, nil
}

type mockResolver struct {
	procedures map[string]*procedure.Procedure
}

func (m *mockResolver) Resolve(ctx context.Context, orgID uuid.UUID, input string) (*procedure.Procedure, bool, error) {
	code, err := procedure.ExtractCode(input)
	if err != nil {
		return nil, false, err
	}
	if p, ok := m.procedures[code]; ok {
		return p, false, nil
	}
	p := &procedure.Procedure{ID: uuid.New(), OrganizationID: orgID, Code: code, Name: "Custom Procedure " + code}
	m.procedures[code] = p
	return p, true, nil
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	orgID    uuid.UUID
	patID    uuid.UUID
	provID   uuid.UUID
	resolver *mockResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orgID := uuid.New()
	pat := &patient.Patient{ID: uuid.New(), OrganizationID: orgID, FirstName: "Maria", LastName: "Gonzalez"}
	prov := &organization.Provider{ID: uuid.New(), OrganizationID: orgID, FirstName: "Ana", LastName: "Smith", NPI: "1234567890"}

	repo := newMockRepo()
	resolver := &mockResolver{procedures: make(map[string]*procedure.Procedure)}
	svc := NewService(repo,
		&mockPatients{patients: map[uuid.UUID]*patient.Patient{pat.ID: pat}},
		&mockOrgs{
			org:       &organization.Organization{ID: orgID, Name: "Sunrise Family Practice", NPI: "9876543210"},
			providers: map[uuid.UUID]*organization.Provider{prov.ID: prov},
		},
		resolver, nil)
	svc.now = func() time.Time { return time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, repo: repo, orgID: orgID, patID: pat.ID, provID: prov.ID, resolver: resolver}
}

func (f *fixture) createEncounter(t *testing.T) *Encounter {
	t.Helper()
	e := &Encounter{OrganizationID: f.orgID, PatientID: f.patID, ProviderID: f.provID}
	if err := f.svc.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func TestCreate_DefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)

	if e.Status != StatusDraft {
		t.Errorf("status = %s, want draft", e.Status)
	}
	if e.VisitDate.IsZero() {
		t.Error("expected visit date defaulted")
	}

	bad := &Encounter{OrganizationID: f.orgID, PatientID: uuid.New(), ProviderID: f.provID}
	if err := f.svc.Create(context.Background(), bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown patient, got %v", err)
	}
}

func TestUpdateStatus_Workflow(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)
	ctx := context.Background()

	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusInProgress); err != nil {
		t.Fatalf("draft -> in_progress: %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusDraft); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected backward transition rejected, got %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusSigned); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected plain update into signed rejected, got %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusAmended); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected amended from in_progress rejected, got %v", err)
	}
}

func TestUpdateStatus_AmendFromCompleted(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)
	ctx := context.Background()

	completeNote(t, f, e)
	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusAmended); err != nil {
		t.Fatalf("completed -> amended: %v", err)
	}
	got, _ := f.svc.Get(ctx, f.orgID, e.ID)
	if got.Status != StatusAmended {
		t.Errorf("status = %s, want amended", got.Status)
	}
}

func completeNote(t *testing.T, f *fixture, e *Encounter) {
	t.Helper()
	ctx := context.Background()
	e.Subjective, e.Objective, e.Assessment, e.Plan = "s", "o", "a", "p"
	if err := f.svc.Update(ctx, e); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusCompleted); err != nil {
		t.Fatalf("-> completed: %v", err)
	}
}

func TestSign(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)
	ctx := context.Background()

	// Not signable while draft
	signed, err := f.svc.Sign(ctx, f.orgID, e.ID, "dr-smith")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed {
		t.Error("draft note must not sign")
	}

	completeNote(t, f, e)
	signed, err = f.svc.Sign(ctx, f.orgID, e.ID, "dr-smith")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !signed {
		t.Fatal("expected note signed")
	}

	got, _ := f.svc.Get(ctx, f.orgID, e.ID)
	if got.Status != StatusSigned {
		t.Errorf("status = %s, want signed", got.Status)
	}
	if got.SignedAt == nil || got.SignedBy != "dr-smith" {
		t.Errorf("missing attestation: at=%v by=%q", got.SignedAt, got.SignedBy)
	}

	// Signed notes are immutable until amended
	got.Subjective = "edited"
	if err := f.svc.Update(ctx, got); !errors.Is(err, ErrSigned) {
		t.Errorf("expected ErrSigned on edit, got %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusAmended); err != nil {
		t.Fatalf("signed -> amended: %v", err)
	}
	got, _ = f.svc.Get(ctx, f.orgID, e.ID)
	got.Subjective = "edited"
	if err := f.svc.Update(ctx, got); err != nil {
		t.Errorf("amended note should accept edits, got %v", err)
	}
}

func TestSign_IncompleteNote(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)
	ctx := context.Background()

	e.Subjective, e.Objective, e.Assessment = "s", "o", "a" // no plan
	if err := f.svc.Update(ctx, e); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := f.svc.UpdateStatus(ctx, f.orgID, e.ID, StatusCompleted); err != nil {
		t.Fatalf("-> completed: %v", err)
	}

	signed, err := f.svc.Sign(ctx, f.orgID, e.ID, "dr-smith")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed {
		t.Error("incomplete SOAP must not sign")
	}
}

func TestAddLineItem(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)
	ctx := context.Background()

	// Blank input is skipped silently
	li, err := f.svc.AddLineItem(ctx, f.orgID, e.ID, LineItemInput{Procedure: ""})
	if err != nil || li != nil {
		t.Errorf("blank input: li=%v err=%v", li, err)
	}

	// Fee schedule price applies when no charge given
	f.resolver.procedures["99213"] = &procedure.Procedure{
		ID: uuid.New(), OrganizationID: f.orgID, Code: "99213", Name: "Office Visit", Price: 125,
	}
	li, err = f.svc.AddLineItem(ctx, f.orgID, e.ID, LineItemInput{Procedure: "99213 - Office Visit ($125.00)"})
	if err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if li.Charge() != 125 {
		t.Errorf("charge = %v, want fee schedule 125", li.Charge())
	}
	if li.Units != 1 {
		t.Errorf("units = %d, want default 1", li.Units)
	}

	// Explicit zero sticks
	zero := 0.0
	li, err = f.svc.AddLineItem(ctx, f.orgID, e.ID, LineItemInput{Procedure: "36415", ChargeAmount: &zero})
	if err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if li.Charge() != 0 {
		t.Errorf("explicit zero charge overridden: %v", li.Charge())
	}

	// Same procedure twice is rejected
	if _, err := f.svc.AddLineItem(ctx, f.orgID, e.ID, LineItemInput{Procedure: "99213"}); !errors.Is(err, ErrDuplicateLineItem) {
		t.Errorf("expected ErrDuplicateLineItem, got %v", err)
	}

	total, err := f.svc.TotalCharges(ctx, f.orgID, e.ID)
	if err != nil {
		t.Fatalf("TotalCharges: %v", err)
	}
	if total != 125 {
		t.Errorf("total = %v, want 125", total)
	}
}

func TestSaveVitals_DerivesBMI(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)
	ctx := context.Background()

	height, weight := 70.0, 185.0
	stale := 99.0
	v := &Vitals{HeightInches: &height, WeightPounds: &weight, BMI: &stale}
	if err := f.svc.SaveVitals(ctx, f.orgID, e.ID, v); err != nil {
		t.Fatalf("SaveVitals: %v", err)
	}
	if v.BMI == nil || *v.BMI != 26.5 {
		t.Errorf("BMI = %v, want 26.5", v.BMI)
	}

	// Without both measurements no BMI is stored
	v2 := &Vitals{HeightInches: &height}
	if err := f.svc.SaveVitals(ctx, f.orgID, e.ID, v2); err != nil {
		t.Fatalf("SaveVitals: %v", err)
	}
	if v2.BMI != nil {
		t.Errorf("expected no BMI, got %v", *v2.BMI)
	}
}

func TestRecentNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	signedAt := time.Now()
	for i := 0; i < 3; i++ {
		e := f.createEncounter(t)
		stored := f.repo.encounters[e.ID]
		stored.Status = StatusSigned
		stored.SignedAt = &signedAt
		stored.Assessment = "stable"
	}
	f.createEncounter(t) // draft, excluded

	notes, err := f.svc.RecentNotes(ctx, f.orgID, f.patID, 5)
	if err != nil {
		t.Fatalf("RecentNotes: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 signed notes, got %d", len(notes))
	}
	if notes[0].Provider != "Dr. Smith" {
		t.Errorf("provider = %q, want Dr. Smith", notes[0].Provider)
	}
	if notes[0].Assessment != "stable" {
		t.Errorf("assessment = %q", notes[0].Assessment)
	}
}

func TestDocumentData(t *testing.T) {
	f := newFixture(t)
	e := f.createEncounter(t)
	ctx := context.Background()

	f.resolver.procedures["99213"] = &procedure.Procedure{
		ID: uuid.New(), OrganizationID: f.orgID, Code: "99213", Name: "Office Visit", Price: 125,
	}
	if _, err := f.svc.AddLineItem(ctx, f.orgID, e.ID, LineItemInput{Procedure: "99213"}); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := f.svc.AddDiagnosis(ctx, f.orgID, e.ID, &Diagnosis{ICDCode: "I10", Description: "Hypertension"}); err != nil {
		t.Fatalf("AddDiagnosis: %v", err)
	}

	sb, lastName, err := f.svc.SuperbillData(ctx, f.orgID, e.ID)
	if err != nil {
		t.Fatalf("SuperbillData: %v", err)
	}
	if lastName != "Gonzalez" {
		t.Errorf("last name = %q", lastName)
	}
	if sb.Total != 125 {
		t.Errorf("superbill total = %v, want 125", sb.Total)
	}
	if len(sb.Diagnoses) != 1 || sb.Diagnoses[0].Code != "I10" {
		t.Errorf("unexpected diagnoses: %+v", sb.Diagnoses)
	}

	claim, err := f.svc.ClaimData(ctx, f.orgID, e.ID)
	if err != nil {
		t.Fatalf("ClaimData: %v", err)
	}
	if claim.EncounterID != e.ID {
		t.Error("claim encounter id mismatch")
	}
	if len(claim.Lines) != 1 || claim.Lines[0].Charge != 125 {
		t.Errorf("unexpected claim lines: %+v", claim.Lines)
	}
	if claim.BillingNPI != "9876543210" || claim.RenderingNPI != "1234567890" {
		t.Errorf("unexpected NPIs: billing=%q rendering=%q", claim.BillingNPI, claim.RenderingNPI)
	}
}
