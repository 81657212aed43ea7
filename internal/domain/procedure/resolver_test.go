package procedure

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	byOrgCode map[string]*Procedure
	createErr error
	creates   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{byOrgCode: make(map[string]*Procedure)}
}

func key(orgID uuid.UUID, code string) string {
	return orgID.String() + "/" + code
}

func (m *mockRepo) Create(ctx context.Context, p *Procedure) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byOrgCode[key(p.OrganizationID, p.Code)]; ok {
		return ErrDuplicateCode
	}
	p.ID = uuid.New()
	m.byOrgCode[key(p.OrganizationID, p.Code)] = p
	m.creates++
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, orgID, id uuid.UUID) (*Procedure, error) {
	for _, p := range m.byOrgCode {
		if p.OrganizationID == orgID && p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByCode(ctx context.Context, orgID uuid.UUID, code string) (*Procedure, error) {
	if p, ok := m.byOrgCode[key(orgID, code)]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, p *Procedure) error {
	m.byOrgCode[key(p.OrganizationID, p.Code)] = p
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	for k, p := range m.byOrgCode {
		if p.OrganizationID == orgID && p.ID == id {
			delete(m.byOrgCode, k)
			return nil
		}
	}
	return nil
}

func (m *mockRepo) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Procedure, int, error) {
	var out []*Procedure
	for _, p := range m.byOrgCode {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Search(ctx context.Context, orgID uuid.UUID, term string, limit int) ([]*Procedure, error) {
	procs, _, _ := m.List(ctx, orgID, limit, 0)
	return procs, nil
}

type mockCpt struct {
	byCode map[string]*CptCode
}

func (m *mockCpt) GetByCode(ctx context.Context, code string) (*CptCode, error) {
	if c, ok := m.byCode[code]; ok {
		return c, nil
	}
	return nil, ErrNotFound
}

func (m *mockCpt) Search(ctx context.Context, term string, limit int) ([]*CptCode, error) {
	var out []*CptCode
	for _, c := range m.byCode {
		out = append(out, c)
	}
	return out, nil
}

func TestExtractCode(t *testing.T) {
	cases := map[string]string{
		"99213":                                        "99213",
		"99213 - Office Visit, Established ($125.00)":  "99213",
		"  99213  ":                                    "99213",
		"93000 - Electrocardiogram - routine":          "93000",
	}
	for in, want := range cases {
		got, err := ExtractCode(in)
		if err != nil {
			t.Errorf("ExtractCode(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ExtractCode(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ExtractCode("   "); !errors.Is(err, ErrEmptyCode) {
		t.Errorf("expected ErrEmptyCode, got %v", err)
	}
}

func TestResolve_CreatesThenReuses(t *testing.T) {
	repo := newMockRepo()
	cpt := &mockCpt{byCode: map[string]*CptCode{
		"99213": {Code: "99213", Description: "Office Visit, Established"},
	}}
	r := NewResolver(repo, cpt, nil)
	orgID := uuid.New()

	p, created, err := r.Resolve(context.Background(), orgID, "99213 - Office Visit, Established ($125.00)")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !created {
		t.Error("expected first resolve to create")
	}
	if p.Name != "Office Visit, Established" {
		t.Errorf("expected name from reference table, got %q", p.Name)
	}
	if p.Price != 0 {
		t.Errorf("expected new row priced at zero, got %v", p.Price)
	}

	again, created, err := r.Resolve(context.Background(), orgID, "99213")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if created {
		t.Error("expected second resolve to reuse")
	}
	if again.ID != p.ID {
		t.Error("expected the same row on reuse")
	}
	if repo.creates != 1 {
		t.Errorf("expected one create, got %d", repo.creates)
	}
}

func TestResolve_UnknownCodeGetsPlaceholderName(t *testing.T) {
	r := NewResolver(newMockRepo(), &mockCpt{byCode: map[string]*CptCode{}}, nil)

	p, created, err := r.Resolve(context.Background(), uuid.New(), "X9999")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !created {
		t.Error("expected create")
	}
	if p.Name != "Custom Procedure X9999" {
		t.Errorf("unexpected placeholder name: %q", p.Name)
	}
}

func TestResolve_OrganizationsAreIndependent(t *testing.T) {
	repo := newMockRepo()
	r := NewResolver(repo, nil, nil)
	orgA, orgB := uuid.New(), uuid.New()

	a, _, err := r.Resolve(context.Background(), orgA, "99213")
	if err != nil {
		t.Fatalf("orgA: %v", err)
	}
	b, createdB, err := r.Resolve(context.Background(), orgB, "99213")
	if err != nil {
		t.Fatalf("orgB: %v", err)
	}
	if !createdB {
		t.Error("expected a fresh row for the second organization")
	}
	if a.ID == b.ID {
		t.Error("expected distinct rows per organization")
	}
}

func TestResolve_DuplicateRaceReadsWinner(t *testing.T) {
	repo := newMockRepo()
	orgID := uuid.New()
	winner := &Procedure{ID: uuid.New(), OrganizationID: orgID, Code: "99213", Name: "Office Visit"}

	// Simulate losing the insert race: Create reports a duplicate and the
	// winner's row is readable afterwards.
	repo.createErr = ErrDuplicateCode
	repo.byOrgCode[key(orgID, "99213")] = winner
	getCalls := 0
	r := NewResolver(&racingRepo{mockRepo: repo, getCalls: &getCalls}, nil, nil)

	p, created, err := r.Resolve(context.Background(), orgID, "99213")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if created {
		t.Error("race loser must not report created")
	}
	if p.ID != winner.ID {
		t.Error("expected the winner's row")
	}
}

// racingRepo misses the first GetByCode so Resolve proceeds to Create and
// hits the duplicate path.
type racingRepo struct {
	*mockRepo
	getCalls *int
}

func (r *racingRepo) GetByCode(ctx context.Context, orgID uuid.UUID, code string) (*Procedure, error) {
	*r.getCalls++
	if *r.getCalls == 1 {
		return nil, ErrNotFound
	}
	return r.mockRepo.GetByCode(ctx, orgID, code)
}

func TestResolve_RequiresOrganization(t *testing.T) {
	r := NewResolver(newMockRepo(), nil, nil)
	if _, _, err := r.Resolve(context.Background(), uuid.Nil, "99213"); !errors.Is(err, ErrMissingOrganization) {
		t.Errorf("expected ErrMissingOrganization, got %v", err)
	}
}
