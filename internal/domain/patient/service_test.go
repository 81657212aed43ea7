package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chartstack/chartstack/internal/domain/organization"
	"github.com/chartstack/chartstack/internal/platform/ccda"
)

type mockRepo struct {
	patients    map[uuid.UUID]*Patient
	allergies   map[uuid.UUID][]*Allergy
	conditions  map[uuid.UUID][]*Condition
	medications map[uuid.UUID][]*Medication
	labs        map[uuid.UUID][]*Lab
	dmes        map[uuid.UUID][]*DME
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients:    make(map[uuid.UUID]*Patient),
		allergies:   make(map[uuid.UUID][]*Allergy),
		conditions:  make(map[uuid.UUID][]*Condition),
		medications: make(map[uuid.UUID][]*Medication),
		labs:        make(map[uuid.UUID][]*Lab),
		dmes:        make(map[uuid.UUID][]*DME),
	}
}

func (m *mockRepo) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Update(ctx context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Search(ctx context.Context, orgID uuid.UUID, term string, limit int) ([]*Patient, error) {
	out, _, _ := m.List(ctx, orgID, limit, 0)
	return out, nil
}

func (m *mockRepo) ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	return m.allergies[patientID], nil
}

func (m *mockRepo) AddAllergy(ctx context.Context, a *Allergy) error {
	a.ID = uuid.New()
	m.allergies[a.PatientID] = append(m.allergies[a.PatientID], a)
	return nil
}

func (m *mockRepo) RemoveAllergy(ctx context.Context, patientID, id uuid.UUID) error {
	return nil
}

func (m *mockRepo) ListConditions(ctx context.Context, patientID uuid.UUID) ([]*Condition, error) {
	return m.conditions[patientID], nil
}

func (m *mockRepo) AddCondition(ctx context.Context, c *Condition) error {
	c.ID = uuid.New()
	m.conditions[c.PatientID] = append(m.conditions[c.PatientID], c)
	return nil
}

func (m *mockRepo) RemoveCondition(ctx context.Context, patientID, id uuid.UUID) error {
	return nil
}

func (m *mockRepo) ListMedications(ctx context.Context, patientID uuid.UUID) ([]*Medication, error) {
	return m.medications[patientID], nil
}

func (m *mockRepo) AddMedication(ctx context.Context, med *Medication) error {
	med.ID = uuid.New()
	m.medications[med.PatientID] = append(m.medications[med.PatientID], med)
	return nil
}

func (m *mockRepo) RemoveMedication(ctx context.Context, patientID, id uuid.UUID) error {
	return nil
}

func (m *mockRepo) ListLabs(ctx context.Context, patientID uuid.UUID) ([]*Lab, error) {
	return m.labs[patientID], nil
}

func (m *mockRepo) AddLab(ctx context.Context, l *Lab) error {
	l.ID = uuid.New()
	m.labs[l.PatientID] = append(m.labs[l.PatientID], l)
	return nil
}

func (m *mockRepo) RemoveLab(ctx context.Context, patientID, id uuid.UUID) error {
	return nil
}

func (m *mockRepo) ListDMEs(ctx context.Context, patientID uuid.UUID) ([]*DME, error) {
	return m.dmes[patientID], nil
}

func (m *mockRepo) AddDME(ctx context.Context, d *DME) error {
	d.ID = uuid.New()
	m.dmes[d.PatientID] = append(m.dmes[d.PatientID], d)
	return nil
}

func (m *mockRepo) RemoveDME(ctx context.Context, patientID, id uuid.UUID) error {
	return nil
}

type mockOrgs struct {
	org *organization.Organization
}

func (m *mockOrgs) Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	if m.org != nil && m.org.ID == id {
		return m.org, nil
	}
	return nil, organization.ErrNotFound
}

type mockNotes struct {
	notes []ccda.EncounterNote
}

func (m *mockNotes) RecentNotes(ctx context.Context, orgID, patientID uuid.UUID, limit int) ([]ccda.EncounterNote, error) {
	if limit < len(m.notes) {
		return m.notes[:limit], nil
	}
	return m.notes, nil
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), &mockOrgs{})

	if err := svc.Create(context.Background(), &Patient{FirstName: "A", LastName: "B"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid without organization, got %v", err)
	}
	if err := svc.Create(context.Background(), &Patient{OrganizationID: uuid.New()}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid without names, got %v", err)
	}
}

func TestGet_OrganizationScoped(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockOrgs{})
	orgA, orgB := uuid.New(), uuid.New()

	p := &Patient{OrganizationID: orgA, FirstName: "Maria", LastName: "Gonzalez"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(context.Background(), orgB, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound across organizations, got %v", err)
	}
	if _, err := svc.Get(context.Background(), orgA, p.ID); err != nil {
		t.Errorf("expected chart visible in its own organization, got %v", err)
	}
}

func TestFullName(t *testing.T) {
	p := &Patient{FirstName: "Maria", LastName: "Gonzalez"}
	if got := p.FullName(); got != "Gonzalez, Maria" {
		t.Errorf("FullName = %q", got)
	}
}

func TestSummary_AssemblesChart(t *testing.T) {
	repo := newMockRepo()
	orgID := uuid.New()
	orgs := &mockOrgs{org: &organization.Organization{ID: orgID, Name: "Sunrise Family Practice"}}
	svc := NewService(repo, orgs)

	dob := time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)
	p := &Patient{OrganizationID: orgID, FirstName: "Maria", LastName: "Gonzalez", Gender: "female", BirthDate: &dob}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.AddAllergy(context.Background(), orgID, &Allergy{PatientID: p.ID, Substance: "Penicillin"}); err != nil {
		t.Fatalf("AddAllergy: %v", err)
	}
	if err := svc.AddMedication(context.Background(), orgID, &Medication{PatientID: p.ID, Name: "Lisinopril"}); err != nil {
		t.Fatalf("AddMedication: %v", err)
	}

	notes := make([]ccda.EncounterNote, 7)
	for i := range notes {
		notes[i] = ccda.EncounterNote{Date: time.Now(), Provider: "Dr. Smith"}
	}
	svc.SetNoteSource(&mockNotes{notes: notes})

	summary, err := svc.Summary(context.Background(), orgID, p.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.OrganizationName != "Sunrise Family Practice" {
		t.Errorf("organization name = %q", summary.OrganizationName)
	}
	if len(summary.Allergies) != 1 || summary.Allergies[0].Substance != "Penicillin" {
		t.Errorf("unexpected allergies: %+v", summary.Allergies)
	}
	if len(summary.Medications) != 1 {
		t.Errorf("unexpected medications: %+v", summary.Medications)
	}
	if len(summary.Encounters) != 5 {
		t.Errorf("expected recent notes capped at 5, got %d", len(summary.Encounters))
	}
}

func TestSummary_UnknownPatient(t *testing.T) {
	svc := NewService(newMockRepo(), &mockOrgs{})
	if _, err := svc.Summary(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
