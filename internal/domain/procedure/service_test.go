package procedure

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	orgID := uuid.New()

	cases := []struct {
		name string
		proc Procedure
		want error
	}{
		{"missing org", Procedure{Code: "99213", Name: "Office Visit"}, ErrMissingOrganization},
		{"missing code", Procedure{OrganizationID: orgID, Name: "Office Visit"}, ErrInvalid},
		{"missing name", Procedure{OrganizationID: orgID, Code: "99213"}, ErrInvalid},
		{"negative price", Procedure{OrganizationID: orgID, Code: "99213", Name: "Office Visit", Price: -1}, ErrInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.proc
			if err := svc.Create(context.Background(), &p); !errors.Is(err, tc.want) {
				t.Errorf("Create = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	orgID := uuid.New()

	first := &Procedure{OrganizationID: orgID, Code: "99213", Name: "Office Visit", Price: 125}
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &Procedure{OrganizationID: orgID, Code: "99213", Name: "Other", Price: 10}
	if err := svc.Create(context.Background(), dup); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	p := &Procedure{Code: "99213", Name: "Office Visit, Established", Price: 125}
	if got := p.DisplayName(); got != "99213 - Office Visit, Established ($125.00)" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestSearch_FeeScheduleBeforeReference(t *testing.T) {
	repo := newMockRepo()
	repo.byOrgCode = map[string]*Procedure{}
	orgID := uuid.New()
	repo.byOrgCode[key(orgID, "99213")] = &Procedure{
		ID: uuid.New(), OrganizationID: orgID, Code: "99213", Name: "Office Visit", Price: 125,
	}
	cpt := &mockCpt{byCode: map[string]*CptCode{
		"99214": {Code: "99214", Description: "Office Visit, Detailed"},
	}}
	svc := NewService(repo, cpt)

	results, err := svc.Search(context.Background(), orgID, "992")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(results), results)
	}
	if !strings.Contains(results[0], "$125.00") {
		t.Errorf("expected fee schedule row first with price, got %q", results[0])
	}
	if results[1] != "99214 - Office Visit, Detailed" {
		t.Errorf("unexpected reference result: %q", results[1])
	}
}

func TestSearch_EmptyTerm(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	results, err := svc.Search(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results for empty term, got %v", results)
	}
}
