package organization

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("organization not found")
	ErrProviderNotFound = errors.New("provider not found")
	ErrInvalid          = errors.New("invalid organization data")
)

var npiPattern = regexp.MustCompile(`^\d{10}$`)

type Service struct {
	repo      Repository
	providers ProviderRepository
}

func NewService(repo Repository, providers ProviderRepository) *Service {
	return &Service{repo: repo, providers: providers}
}

func (s *Service) Create(ctx context.Context, org *Organization) error {
	if org.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if org.Slug == "" {
		org.Slug = slugify(org.Name)
	}
	return s.repo.Create(ctx, org)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) Update(ctx context.Context, org *Organization) error {
	if org.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := s.repo.GetByID(ctx, org.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, org)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.OrganizationID == uuid.Nil {
		return fmt.Errorf("%w: organization_id is required", ErrInvalid)
	}
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrInvalid)
	}
	if p.NPI != "" && !npiPattern.MatchString(p.NPI) {
		return fmt.Errorf("%w: npi must be 10 digits", ErrInvalid)
	}
	return s.providers.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, orgID, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, orgID, id)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	if p.NPI != "" && !npiPattern.MatchString(p.NPI) {
		return fmt.Errorf("%w: npi must be 10 digits", ErrInvalid)
	}
	if _, err := s.providers.GetByID(ctx, p.OrganizationID, p.ID); err != nil {
		return err
	}
	return s.providers.Update(ctx, p)
}

func (s *Service) DeleteProvider(ctx context.Context, orgID, id uuid.UUID) error {
	return s.providers.Delete(ctx, orgID, id)
}

func (s *Service) ListProviders(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Provider, int, error) {
	return s.providers.ListByOrganization(ctx, orgID, limit, offset)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(s, "_")
}
