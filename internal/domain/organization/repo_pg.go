package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chartstack/chartstack/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orgCols = `id, name, slug, street, city, state, zip, phone, npi, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, org *Organization) error {
	org.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organizations (id, name, slug, street, city, state, zip, phone, npi)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		org.ID, org.Name, org.Slug, org.Street, org.City, org.State, org.Zip, org.Phone, org.NPI,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx, `SELECT `+orgCols+` FROM organizations WHERE id = $1`, id))
}

func (r *repoPG) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx, `SELECT `+orgCols+` FROM organizations WHERE slug = $1`, slug))
}

func (r *repoPG) Update(ctx context.Context, org *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET
			name=$2, slug=$3, street=$4, city=$5, state=$6, zip=$7, phone=$8, npi=$9, updated_at=NOW()
		WHERE id = $1`,
		org.ID, org.Name, org.Slug, org.Street, org.City, org.State, org.Zip, org.Phone, org.NPI,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+orgCols+` FROM organizations ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.Street, &o.City, &o.State, &o.Zip, &o.Phone, &o.NPI, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, &o)
	}
	return orgs, total, nil
}

func scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Street, &o.City, &o.State, &o.Zip, &o.Phone, &o.NPI, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type providerRepoPG struct {
	pool *pgxpool.Pool
}

func NewProviderRepo(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepoPG{pool: pool}
}

func (r *providerRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const providerCols = `id, organization_id, first_name, last_name, npi, license_number, specialty, email, created_at, updated_at`

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO providers (id, organization_id, first_name, last_name, npi, license_number, specialty, email)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.OrganizationID, p.FirstName, p.LastName, p.NPI, p.LicenseNumber, p.Specialty, p.Email,
	)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, orgID, id uuid.UUID) (*Provider, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx,
		`SELECT `+providerCols+` FROM providers WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE providers SET
			first_name=$3, last_name=$4, npi=$5, license_number=$6, specialty=$7, email=$8, updated_at=NOW()
		WHERE organization_id = $1 AND id = $2`,
		p.OrganizationID, p.ID, p.FirstName, p.LastName, p.NPI, p.LicenseNumber, p.Specialty, p.Email,
	)
	return err
}

func (r *providerRepoPG) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM providers WHERE organization_id = $1 AND id = $2`, orgID, id)
	return err
}

func (r *providerRepoPG) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Provider, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM providers WHERE organization_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+providerCols+` FROM providers WHERE organization_id = $1 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.FirstName, &p.LastName, &p.NPI, &p.LicenseNumber, &p.Specialty, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		providers = append(providers, &p)
	}
	return providers, total, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.OrganizationID, &p.FirstName, &p.LastName, &p.NPI, &p.LicenseNumber, &p.Specialty, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
