package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patient charts and their clinical lists.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, orgID uuid.UUID, term string, limit int) ([]*Patient, error)

	ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error)
	AddAllergy(ctx context.Context, a *Allergy) error
	RemoveAllergy(ctx context.Context, patientID, id uuid.UUID) error

	ListConditions(ctx context.Context, patientID uuid.UUID) ([]*Condition, error)
	AddCondition(ctx context.Context, c *Condition) error
	RemoveCondition(ctx context.Context, patientID, id uuid.UUID) error

	ListMedications(ctx context.Context, patientID uuid.UUID) ([]*Medication, error)
	AddMedication(ctx context.Context, m *Medication) error
	RemoveMedication(ctx context.Context, patientID, id uuid.UUID) error

	ListLabs(ctx context.Context, patientID uuid.UUID) ([]*Lab, error)
	AddLab(ctx context.Context, l *Lab) error
	RemoveLab(ctx context.Context, patientID, id uuid.UUID) error

	ListDMEs(ctx context.Context, patientID uuid.UUID) ([]*DME, error)
	AddDME(ctx context.Context, d *DME) error
	RemoveDME(ctx context.Context, patientID, id uuid.UUID) error
}
