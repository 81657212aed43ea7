package patient

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

const patientCols = `id, organization_id, first_name, last_name, middle_initial,
	birth_date, gender, phone, email, street, city, state, zip, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (
			id, organization_id, first_name, last_name, middle_initial,
			birth_date, gender, phone, email, street, city, state, zip
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.OrganizationID, p.FirstName, p.LastName, p.MiddleInitial,
		p.BirthDate, p.Gender, p.Phone, p.Email, p.Street, p.City, p.State, p.Zip,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, orgID, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			first_name=$3, last_name=$4, middle_initial=$5, birth_date=$6, gender=$7,
			phone=$8, email=$9, street=$10, city=$11, state=$12, zip=$13, updated_at=NOW()
		WHERE organization_id = $1 AND id = $2`,
		p.OrganizationID, p.ID, p.FirstName, p.LastName, p.MiddleInitial, p.BirthDate, p.Gender,
		p.Phone, p.Email, p.Street, p.City, p.State, p.Zip,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM patients WHERE organization_id = $1 AND id = $2`, orgID, id)
	return err
}

func (r *repoPG) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE organization_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE organization_id = $1
		 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	patients, err := collectPatients(rows)
	return patients, total, err
}

func (r *repoPG) Search(ctx context.Context, orgID uuid.UUID, term string, limit int) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE organization_id = $1 AND (last_name ILIKE $2 || '%' OR first_name ILIKE $2 || '%')
		ORDER BY last_name, first_name LIMIT $3`, orgID, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.FirstName, &p.LastName, &p.MiddleInitial,
		&p.BirthDate, &p.Gender, &p.Phone, &p.Email, &p.Street, &p.City, &p.State, &p.Zip,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	var patients []*Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.OrganizationID, &p.FirstName, &p.LastName, &p.MiddleInitial,
			&p.BirthDate, &p.Gender, &p.Phone, &p.Email, &p.Street, &p.City, &p.State, &p.Zip,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		patients = append(patients, &p)
	}
	return patients, nil
}

func (r *repoPG) ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, substance, reaction, severity, created_at
		FROM allergies WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Substance, &a.Reaction, &a.Severity, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *repoPG) AddAllergy(ctx context.Context, a *Allergy) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO allergies (id, patient_id, substance, reaction, severity)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.PatientID, a.Substance, a.Reaction, a.Severity,
	)
	return err
}

func (r *repoPG) RemoveAllergy(ctx context.Context, patientID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM allergies WHERE patient_id = $1 AND id = $2`, patientID, id)
	return err
}

func (r *repoPG) ListConditions(ctx context.Context, patientID uuid.UUID) ([]*Condition, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, code, code_system, onset_date, created_at
		FROM conditions WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Condition
	for rows.Next() {
		var c Condition
		if err := rows.Scan(&c.ID, &c.PatientID, &c.Name, &c.Code, &c.CodeSystem, &c.OnsetDate, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, nil
}

func (r *repoPG) AddCondition(ctx context.Context, c *Condition) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO conditions (id, patient_id, name, code, code_system, onset_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.PatientID, c.Name, c.Code, c.CodeSystem, c.OnsetDate,
	)
	return err
}

func (r *repoPG) RemoveCondition(ctx context.Context, patientID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM conditions WHERE patient_id = $1 AND id = $2`, patientID, id)
	return err
}

func (r *repoPG) ListMedications(ctx context.Context, patientID uuid.UUID) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, dosage, frequency, created_at
		FROM medications WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Frequency, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, nil
}

func (r *repoPG) AddMedication(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medications (id, patient_id, name, dosage, frequency)
		VALUES ($1,$2,$3,$4,$5)`,
		m.ID, m.PatientID, m.Name, m.Dosage, m.Frequency,
	)
	return err
}

func (r *repoPG) RemoveMedication(ctx context.Context, patientID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM medications WHERE patient_id = $1 AND id = $2`, patientID, id)
	return err
}

func (r *repoPG) ListLabs(ctx context.Context, patientID uuid.UUID) ([]*Lab, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, test_name, result, resulted_at, created_at
		FROM labs WHERE patient_id = $1 ORDER BY resulted_at DESC NULLS LAST`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Lab
	for rows.Next() {
		var l Lab
		if err := rows.Scan(&l.ID, &l.PatientID, &l.TestName, &l.Result, &l.ResultedAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, nil
}

func (r *repoPG) AddLab(ctx context.Context, l *Lab) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO labs (id, patient_id, test_name, result, resulted_at)
		VALUES ($1,$2,$3,$4,$5)`,
		l.ID, l.PatientID, l.TestName, l.Result, l.ResultedAt,
	)
	return err
}

func (r *repoPG) RemoveLab(ctx context.Context, patientID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM labs WHERE patient_id = $1 AND id = $2`, patientID, id)
	return err
}

func (r *repoPG) ListDMEs(ctx context.Context, patientID uuid.UUID) ([]*DME, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, status, prescribed_date, created_at
		FROM dmes WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DME
	for rows.Next() {
		var d DME
		if err := rows.Scan(&d.ID, &d.PatientID, &d.Name, &d.Status, &d.PrescribedDate, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, nil
}

func (r *repoPG) AddDME(ctx context.Context, d *DME) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dmes (id, patient_id, name, status, prescribed_date)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.PatientID, d.Name, d.Status, d.PrescribedDate,
	)
	return err
}

func (r *repoPG) RemoveDME(ctx context.Context, patientID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM dmes WHERE patient_id = $1 AND id = $2`, patientID, id)
	return err
}
