package procedure

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

const procCols = `id, organization_id, code, name, price, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Procedure) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO procedures (id, organization_id, code, name, price)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.OrganizationID, p.Code, p.Name, p.Price,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, orgID, id uuid.UUID) (*Procedure, error) {
	return scanProc(r.conn(ctx).QueryRow(ctx,
		`SELECT `+procCols+` FROM procedures WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (r *repoPG) GetByCode(ctx context.Context, orgID uuid.UUID, code string) (*Procedure, error) {
	return scanProc(r.conn(ctx).QueryRow(ctx,
		`SELECT `+procCols+` FROM procedures WHERE organization_id = $1 AND code = $2`, orgID, code))
}

func (r *repoPG) Update(ctx context.Context, p *Procedure) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE procedures SET code=$3, name=$4, price=$5, updated_at=NOW()
		WHERE organization_id = $1 AND id = $2`,
		p.OrganizationID, p.ID, p.Code, p.Name, p.Price,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM procedures WHERE organization_id = $1 AND id = $2`, orgID, id)
	return err
}

func (r *repoPG) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Procedure, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM procedures WHERE organization_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+procCols+` FROM procedures WHERE organization_id = $1 ORDER BY code LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var procs []*Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Code, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		procs = append(procs, &p)
	}
	return procs, total, nil
}

func (r *repoPG) Search(ctx context.Context, orgID uuid.UUID, term string, limit int) ([]*Procedure, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+procCols+` FROM procedures
		WHERE organization_id = $1 AND (code ILIKE $2 || '%' OR name ILIKE '%' || $2 || '%')
		ORDER BY code LIMIT $3`, orgID, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var procs []*Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Code, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		procs = append(procs, &p)
	}
	return procs, nil
}

func scanProc(row pgx.Row) (*Procedure, error) {
	var p Procedure
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Code, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type cptRepoPG struct {
	pool *pgxpool.Pool
}

func NewCptRepo(pool *pgxpool.Pool) CptRepository {
	return &cptRepoPG{pool: pool}
}

func (r *cptRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *cptRepoPG) GetByCode(ctx context.Context, code string) (*CptCode, error) {
	var c CptCode
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, code, description FROM cpt_codes WHERE code = $1`, code).
		Scan(&c.ID, &c.Code, &c.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cptRepoPG) Search(ctx context.Context, term string, limit int) ([]*CptCode, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, code, description FROM cpt_codes
		WHERE code ILIKE $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY code LIMIT $2`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []*CptCode
	for rows.Next() {
		var c CptCode
		if err := rows.Scan(&c.ID, &c.Code, &c.Description); err != nil {
			return nil, err
		}
		codes = append(codes, &c)
	}
	return codes, nil
}
