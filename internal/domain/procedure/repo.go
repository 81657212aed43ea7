package procedure

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists an organization's fee schedule.
type Repository interface {
	Create(ctx context.Context, p *Procedure) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*Procedure, error)
	GetByCode(ctx context.Context, orgID uuid.UUID, code string) (*Procedure, error)
	Update(ctx context.Context, p *Procedure) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Procedure, int, error)
	Search(ctx context.Context, orgID uuid.UUID, term string, limit int) ([]*Procedure, error)
}

// CptRepository reads the shared CPT reference table.
type CptRepository interface {
	GetByCode(ctx context.Context, code string) (*CptCode, error)
	Search(ctx context.Context, term string, limit int) ([]*CptCode, error)
}
