package procedure

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chartstack/chartstack/internal/platform/auth"
	"github.com/chartstack/chartstack/internal/platform/metrics"
)

// Resolver turns free-text procedure input into fee schedule rows,
// auto-creating a row the first time an organization bills a code.
type Resolver struct {
	repo    Repository
	cpt     CptRepository
	metrics *metrics.Metrics
}

func NewResolver(repo Repository, cpt CptRepository, m *metrics.Metrics) *Resolver {
	return &Resolver{repo: repo, cpt: cpt, metrics: m}
}

// ExtractCode pulls the bare code out of typeahead input. Search results
// look like "99213 - Office Visit, Established ($125.00)"; the code is
// everything before the first " - ".
func ExtractCode(input string) (string, error) {
	code, _, _ := strings.Cut(input, " - ")
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyCode
	}
	return code, nil
}

// Resolve finds the organization's fee schedule row for the given input,
// creating one when the code has never been billed before. The created flag
// reports whether a new row was written.
func (r *Resolver) Resolve(ctx context.Context, orgID uuid.UUID, input string) (*Procedure, bool, error) {
	if orgID == uuid.Nil {
		return nil, false, ErrMissingOrganization
	}
	code, err := ExtractCode(input)
	if err != nil {
		return nil, false, err
	}

	p, err := r.repo.GetByCode(ctx, orgID, code)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	p = &Procedure{
		OrganizationID: orgID,
		Code:           code,
		Name:           r.lookupName(ctx, code),
		Price:          0.00,
	}
	if err := r.repo.Create(ctx, p); err != nil {
		// Two requests billing the same new code race on the unique
		// index; the loser reads the winner's row.
		if errors.Is(err, ErrDuplicateCode) {
			existing, getErr := r.repo.GetByCode(ctx, orgID, code)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	log.Info().
		Str("organization_id", orgID.String()).
		Str("code", code).
		Str("actor", auth.UserIDFromContext(ctx)).
		Msg("auto-created fee schedule entry")
	if r.metrics != nil {
		r.metrics.ProceduresAutoCreated.Inc()
	}
	return p, true, nil
}

// lookupName names a new row from the CPT reference table when the code is
// known; unknown codes get a placeholder the practice can rename later.
func (r *Resolver) lookupName(ctx context.Context, code string) string {
	if r.cpt != nil {
		if master, err := r.cpt.GetByCode(ctx, code); err == nil && master.Description != "" {
			return master.Description
		}
	}
	return "Custom Procedure " + code
}
