package encounter

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists visit notes and their billing attachments.
type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Encounter, error)
	Update(ctx context.Context, e *Encounter) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	ListByPatient(ctx context.Context, orgID, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	ListNeedingSignature(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	ListSignedByPatient(ctx context.Context, orgID, patientID uuid.UUID, limit int) ([]*Encounter, error)

	AddLineItem(ctx context.Context, li *LineItem) error
	ListLineItems(ctx context.Context, encounterID uuid.UUID) ([]*LineItem, error)
	RemoveLineItem(ctx context.Context, encounterID, id uuid.UUID) error

	AddDiagnosis(ctx context.Context, d *Diagnosis) error
	ListDiagnoses(ctx context.Context, encounterID uuid.UUID) ([]*Diagnosis, error)
	RemoveDiagnosis(ctx context.Context, encounterID, id uuid.UUID) error

	UpsertVitals(ctx context.Context, v *Vitals) error
	GetVitals(ctx context.Context, encounterID uuid.UUID) (*Vitals, error)
}
