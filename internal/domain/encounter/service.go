package encounter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chartstack/chartstack/internal/domain/organization"
	"github.com/chartstack/chartstack/internal/domain/patient"
	"github.com/chartstack/chartstack/internal/domain/procedure"
	"github.com/chartstack/chartstack/internal/platform/ccda"
	"github.com/chartstack/chartstack/internal/platform/metrics"
)

var (
	ErrNotFound          = errors.New("encounter not found")
	ErrVitalsNotFound    = errors.New("vitals not recorded")
	ErrInvalid           = errors.New("invalid encounter data")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSigned            = errors.New("encounter is signed")
	ErrDuplicateLineItem = errors.New("procedure already billed on encounter")
)

// PatientSource verifies chart membership and supplies demographics.
type PatientSource interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*patient.Patient, error)
}

// OrgSource supplies practice and provider details for documents.
type OrgSource interface {
	Get(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
	GetProvider(ctx context.Context, orgID, id uuid.UUID) (*organization.Provider, error)
}

// ProcedureResolver turns charge entry input into fee schedule rows.
type ProcedureResolver interface {
	Resolve(ctx context.Context, orgID uuid.UUID, input string) (*procedure.Procedure, bool, error)
}

type Service struct {
	repo     Repository
	patients PatientSource
	orgs     OrgSource
	resolver ProcedureResolver
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(repo Repository, patients PatientSource, orgs OrgSource, resolver ProcedureResolver, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		orgs:     orgs,
		resolver: resolver,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, e *Encounter) error {
	if e.OrganizationID == uuid.Nil {
		return fmt.Errorf("%w: organization_id is required", ErrInvalid)
	}
	if _, err := s.patients.Get(ctx, e.OrganizationID, e.PatientID); err != nil {
		return fmt.Errorf("%w: unknown patient", ErrInvalid)
	}
	if _, err := s.orgs.GetProvider(ctx, e.OrganizationID, e.ProviderID); err != nil {
		return fmt.Errorf("%w: unknown provider", ErrInvalid)
	}
	if e.Status == "" {
		e.Status = StatusDraft
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrInvalid, e.Status)
	}
	if e.VisitDate.IsZero() {
		e.VisitDate = s.now().UTC()
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, orgID, id)
}

// Update rewrites the note documentation. A signed note is immutable; it
// must be moved to amended before further edits.
func (s *Service) Update(ctx context.Context, e *Encounter) error {
	current, err := s.repo.GetByID(ctx, e.OrganizationID, e.ID)
	if err != nil {
		return err
	}
	if current.Status == StatusSigned {
		return ErrSigned
	}
	e.Status = current.Status
	e.SignedAt = current.SignedAt
	e.SignedBy = current.SignedBy
	if e.ProviderID == uuid.Nil {
		e.ProviderID = current.ProviderID
	}
	if e.VisitDate.IsZero() {
		e.VisitDate = current.VisitDate
	}
	return s.repo.Update(ctx, e)
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	if current.Status == StatusSigned || current.Status == StatusAmended {
		return ErrSigned
	}
	return s.repo.Delete(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, orgID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, orgID, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListByPatient(ctx, orgID, patientID, limit, offset)
}

// ListNeedingSignature returns completed notes awaiting attestation.
func (s *Service) ListNeedingSignature(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListNeedingSignature(ctx, orgID, limit, offset)
}

// UpdateStatus advances the workflow. Signing is not reachable here; it
// carries an attestation and goes through Sign.
func (s *Service) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, next Status) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if next == StatusSigned {
		return fmt.Errorf("%w: signing requires attestation", ErrInvalidTransition)
	}
	e, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, next)
	}
	if next == StatusAmended && e.Status != StatusSigned && e.Status != StatusCompleted {
		return fmt.Errorf("%w: only a completed or signed note can be amended", ErrInvalidTransition)
	}
	e.Status = next
	return s.repo.Update(ctx, e)
}

// Sign attests the note. It reports false without error when the note is
// not ready so callers can distinguish "not yet" from a failure.
func (s *Service) Sign(ctx context.Context, orgID, id uuid.UUID, userID string) (bool, error) {
	e, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return false, err
	}
	if !e.CanBeSigned() {
		return false, nil
	}
	now := s.now().UTC()
	e.Status = StatusSigned
	e.SignedAt = &now
	e.SignedBy = userID
	if err := s.repo.Update(ctx, e); err != nil {
		return false, err
	}
	log.Info().
		Str("encounter_id", e.ID.String()).
		Str("signed_by", userID).
		Msg("encounter signed")
	if s.metrics != nil {
		s.metrics.EncountersSigned.Inc()
	}
	return true, nil
}

// LineItemInput is one charge entry row as submitted. Procedure carries
// either a bare code or a search result like "99213 - Office Visit".
type LineItemInput struct {
	Procedure    string   `json:"procedure"`
	ChargeAmount *float64 `json:"charge_amount,omitempty"`
	Units        int      `json:"units,omitempty"`
	Modifiers    string   `json:"modifiers,omitempty"`
}

// AddLineItem bills a procedure on the visit. Blank input is skipped
// without error so sparse charge rows from the UI are harmless. The charge
// defaults to the fee schedule price only when no explicit amount was
// given; an explicit zero sticks.
func (s *Service) AddLineItem(ctx context.Context, orgID, encounterID uuid.UUID, in LineItemInput) (*LineItem, error) {
	if in.Procedure == "" {
		return nil, nil
	}
	e, err := s.repo.GetByID(ctx, orgID, encounterID)
	if err != nil {
		return nil, err
	}
	if e.Status == StatusSigned {
		return nil, ErrSigned
	}

	proc, _, err := s.resolver.Resolve(ctx, orgID, in.Procedure)
	if err != nil {
		return nil, err
	}

	charge := in.ChargeAmount
	if charge == nil {
		price := proc.Price
		charge = &price
	}
	units := in.Units
	if units <= 0 {
		units = 1
	}
	li := &LineItem{
		EncounterID:  encounterID,
		ProcedureID:  proc.ID,
		Code:         proc.Code,
		Description:  proc.Name,
		ChargeAmount: charge,
		Units:        units,
		Modifiers:    in.Modifiers,
	}
	if err := s.repo.AddLineItem(ctx, li); err != nil {
		return nil, err
	}
	return li, nil
}

func (s *Service) ListLineItems(ctx context.Context, orgID, encounterID uuid.UUID) ([]*LineItem, error) {
	if _, err := s.repo.GetByID(ctx, orgID, encounterID); err != nil {
		return nil, err
	}
	return s.repo.ListLineItems(ctx, encounterID)
}

func (s *Service) RemoveLineItem(ctx context.Context, orgID, encounterID, id uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, orgID, encounterID)
	if err != nil {
		return err
	}
	if e.Status == StatusSigned {
		return ErrSigned
	}
	return s.repo.RemoveLineItem(ctx, encounterID, id)
}

// TotalCharges sums the visit's line totals. Zero-charge lines count as
// zero rather than being excluded.
func (s *Service) TotalCharges(ctx context.Context, orgID, encounterID uuid.UUID) (float64, error) {
	items, err := s.ListLineItems(ctx, orgID, encounterID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, li := range items {
		total += li.TotalCharge()
	}
	return total, nil
}

func (s *Service) AddDiagnosis(ctx context.Context, orgID, encounterID uuid.UUID, d *Diagnosis) error {
	if d.ICDCode == "" {
		return fmt.Errorf("%w: icd_code is required", ErrInvalid)
	}
	e, err := s.repo.GetByID(ctx, orgID, encounterID)
	if err != nil {
		return err
	}
	if e.Status == StatusSigned {
		return ErrSigned
	}
	d.EncounterID = encounterID
	return s.repo.AddDiagnosis(ctx, d)
}

func (s *Service) ListDiagnoses(ctx context.Context, orgID, encounterID uuid.UUID) ([]*Diagnosis, error) {
	if _, err := s.repo.GetByID(ctx, orgID, encounterID); err != nil {
		return nil, err
	}
	return s.repo.ListDiagnoses(ctx, encounterID)
}

func (s *Service) RemoveDiagnosis(ctx context.Context, orgID, encounterID, id uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, orgID, encounterID)
	if err != nil {
		return err
	}
	if e.Status == StatusSigned {
		return ErrSigned
	}
	return s.repo.RemoveDiagnosis(ctx, encounterID, id)
}

// SaveVitals records the visit's measurement set, deriving BMI whenever
// both height and weight are present. A stored BMI is never accepted from
// the caller.
func (s *Service) SaveVitals(ctx context.Context, orgID, encounterID uuid.UUID, v *Vitals) error {
	e, err := s.repo.GetByID(ctx, orgID, encounterID)
	if err != nil {
		return err
	}
	if e.Status == StatusSigned {
		return ErrSigned
	}
	v.EncounterID = encounterID
	v.BMI = nil
	if v.HeightInches != nil && v.WeightPounds != nil {
		if bmi, ok := ComputeBMI(*v.HeightInches, *v.WeightPounds); ok {
			v.BMI = &bmi
		}
	}
	return s.repo.UpsertVitals(ctx, v)
}

func (s *Service) GetVitals(ctx context.Context, orgID, encounterID uuid.UUID) (*Vitals, error) {
	if _, err := s.repo.GetByID(ctx, orgID, encounterID); err != nil {
		return nil, err
	}
	return s.repo.GetVitals(ctx, encounterID)
}

// RecentNotes supplies the CCD encounters section: the patient's most
// recent signed visits with the attending provider and assessment.
func (s *Service) RecentNotes(ctx context.Context, orgID, patientID uuid.UUID, limit int) ([]ccda.EncounterNote, error) {
	encs, err := s.repo.ListSignedByPatient(ctx, orgID, patientID, limit)
	if err != nil {
		return nil, err
	}
	notes := make([]ccda.EncounterNote, 0, len(encs))
	for _, e := range encs {
		note := ccda.EncounterNote{Date: e.VisitDate, Assessment: e.Assessment}
		if prov, err := s.orgs.GetProvider(ctx, orgID, e.ProviderID); err == nil {
			note.Provider = prov.FullName()
		}
		notes = append(notes, note)
	}
	return notes, nil
}
