package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chartstack/chartstack/internal/domain/organization"
	"github.com/chartstack/chartstack/internal/platform/ccda"
)

var (
	ErrNotFound = errors.New("patient not found")
	ErrInvalid  = errors.New("invalid patient data")
)

// recentNoteLimit caps how many visit notes a CCD carries.
const recentNoteLimit = 5

// NoteSource supplies signed visit notes for the CCD encounters section.
type NoteSource interface {
	RecentNotes(ctx context.Context, orgID, patientID uuid.UUID, limit int) ([]ccda.EncounterNote, error)
}

// OrgSource looks up the practice a chart belongs to.
type OrgSource interface {
	Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
}

type Service struct {
	repo  Repository
	orgs  OrgSource
	notes NoteSource
}

func NewService(repo Repository, orgs OrgSource) *Service {
	return &Service{repo: repo, orgs: orgs}
}

// SetNoteSource attaches the visit note supplier. Wired after construction
// because the encounter service depends on this package's charts.
func (s *Service) SetNoteSource(notes NoteSource) {
	s.notes = notes
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.OrganizationID == uuid.Nil {
		return fmt.Errorf("%w: organization_id is required", ErrInvalid)
	}
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrInvalid)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, orgID, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, p.OrganizationID, p.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repo.Delete(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, orgID, limit, offset)
}

func (s *Service) Search(ctx context.Context, orgID uuid.UUID, term string, limit int) ([]*Patient, error) {
	return s.repo.Search(ctx, orgID, term, limit)
}

func (s *Service) ListAllergies(ctx context.Context, orgID, patientID uuid.UUID) ([]*Allergy, error) {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListAllergies(ctx, patientID)
}

func (s *Service) AddAllergy(ctx context.Context, orgID uuid.UUID, a *Allergy) error {
	if a.Substance == "" {
		return fmt.Errorf("%w: substance is required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, orgID, a.PatientID); err != nil {
		return err
	}
	return s.repo.AddAllergy(ctx, a)
}

func (s *Service) RemoveAllergy(ctx context.Context, orgID, patientID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return err
	}
	return s.repo.RemoveAllergy(ctx, patientID, id)
}

func (s *Service) ListConditions(ctx context.Context, orgID, patientID uuid.UUID) ([]*Condition, error) {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListConditions(ctx, patientID)
}

func (s *Service) AddCondition(ctx context.Context, orgID uuid.UUID, c *Condition) error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, orgID, c.PatientID); err != nil {
		return err
	}
	return s.repo.AddCondition(ctx, c)
}

func (s *Service) RemoveCondition(ctx context.Context, orgID, patientID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return err
	}
	return s.repo.RemoveCondition(ctx, patientID, id)
}

func (s *Service) ListMedications(ctx context.Context, orgID, patientID uuid.UUID) ([]*Medication, error) {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListMedications(ctx, patientID)
}

func (s *Service) AddMedication(ctx context.Context, orgID uuid.UUID, m *Medication) error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, orgID, m.PatientID); err != nil {
		return err
	}
	return s.repo.AddMedication(ctx, m)
}

func (s *Service) RemoveMedication(ctx context.Context, orgID, patientID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return err
	}
	return s.repo.RemoveMedication(ctx, patientID, id)
}

func (s *Service) ListLabs(ctx context.Context, orgID, patientID uuid.UUID) ([]*Lab, error) {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListLabs(ctx, patientID)
}

func (s *Service) AddLab(ctx context.Context, orgID uuid.UUID, l *Lab) error {
	if l.TestName == "" {
		return fmt.Errorf("%w: test_name is required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, orgID, l.PatientID); err != nil {
		return err
	}
	return s.repo.AddLab(ctx, l)
}

func (s *Service) RemoveLab(ctx context.Context, orgID, patientID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return err
	}
	return s.repo.RemoveLab(ctx, patientID, id)
}

func (s *Service) ListDMEs(ctx context.Context, orgID, patientID uuid.UUID) ([]*DME, error) {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListDMEs(ctx, patientID)
}

func (s *Service) AddDME(ctx context.Context, orgID uuid.UUID, d *DME) error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, orgID, d.PatientID); err != nil {
		return err
	}
	return s.repo.AddDME(ctx, d)
}

func (s *Service) RemoveDME(ctx context.Context, orgID, patientID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, orgID, patientID); err != nil {
		return err
	}
	return s.repo.RemoveDME(ctx, patientID, id)
}

// Summary assembles the chart data a CCD is built from: demographics, the
// clinical lists, and the patient's most recent signed visit notes.
func (s *Service) Summary(ctx context.Context, orgID, patientID uuid.UUID) (*ccda.PatientSummary, error) {
	p, err := s.repo.GetByID(ctx, orgID, patientID)
	if err != nil {
		return nil, err
	}

	summary := &ccda.PatientSummary{
		PatientID: p.ID.String(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Gender:    p.Gender,
		BirthDate: p.BirthDate,
		Phone:     p.Phone,
		Street:    p.Street,
		City:      p.City,
		State:     p.State,
		Zip:       p.Zip,
	}

	if org, err := s.orgs.Get(ctx, orgID); err == nil {
		summary.OrganizationName = org.Name
	}

	allergies, err := s.repo.ListAllergies(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, a := range allergies {
		summary.Allergies = append(summary.Allergies, ccda.AllergyEntry{
			Substance: a.Substance, Reaction: a.Reaction, Severity: a.Severity,
		})
	}

	meds, err := s.repo.ListMedications(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, m := range meds {
		summary.Medications = append(summary.Medications, ccda.MedicationEntry{
			Name: m.Name, Dosage: m.Dosage, Frequency: m.Frequency,
		})
	}

	conditions, err := s.repo.ListConditions(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, c := range conditions {
		summary.Problems = append(summary.Problems, ccda.ProblemEntry{
			Name: c.Name, Code: c.Code, CodeSystem: c.CodeSystem, Onset: c.OnsetDate,
		})
	}

	labs, err := s.repo.ListLabs(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, l := range labs {
		summary.Labs = append(summary.Labs, ccda.LabEntry{
			Test: l.TestName, Result: l.Result, Date: l.ResultedAt,
		})
	}

	if s.notes != nil {
		notes, err := s.notes.RecentNotes(ctx, orgID, patientID, recentNoteLimit)
		if err != nil {
			return nil, err
		}
		summary.Encounters = notes
	}
	return summary, nil
}
