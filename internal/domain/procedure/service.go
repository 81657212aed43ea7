package procedure

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("procedure not found")
	ErrDuplicateCode       = errors.New("procedure code already exists for organization")
	ErrEmptyCode           = errors.New("procedure code is empty")
	ErrMissingOrganization = errors.New("organization is required")
	ErrInvalid             = errors.New("invalid procedure data")
)

type Service struct {
	repo Repository
	cpt  CptRepository
}

func NewService(repo Repository, cpt CptRepository) *Service {
	return &Service{repo: repo, cpt: cpt}
}

func (s *Service) Create(ctx context.Context, p *Procedure) error {
	if p.OrganizationID == uuid.Nil {
		return ErrMissingOrganization
	}
	if p.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalid)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*Procedure, error) {
	return s.repo.GetByID(ctx, orgID, id)
}

func (s *Service) Update(ctx context.Context, p *Procedure) error {
	if p.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalid)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, p.OrganizationID, p.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repo.Delete(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Procedure, int, error) {
	return s.repo.List(ctx, orgID, limit, offset)
}

const searchLimit = 20

// Search backs the charge entry typeahead. Results combine the
// organization's fee schedule with the CPT reference table, fee schedule
// rows first so practice pricing wins.
func (s *Service) Search(ctx context.Context, orgID uuid.UUID, term string) ([]string, error) {
	if term == "" {
		return nil, nil
	}

	procs, err := s.repo.Search(ctx, orgID, term, searchLimit)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := make(map[string]bool)
	for _, p := range procs {
		out = append(out, p.DisplayName())
		seen[p.Code] = true
	}

	if s.cpt != nil && len(out) < searchLimit {
		masters, err := s.cpt.Search(ctx, term, searchLimit-len(out))
		if err != nil {
			return nil, err
		}
		for _, m := range masters {
			if seen[m.Code] {
				continue
			}
			out = append(out, m.Code+" - "+m.Description)
		}
	}
	return out, nil
}

