package encounter

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

const encCols = `id, organization_id, patient_id, provider_id, appointment_id, visit_date, status,
	subjective, objective, assessment, plan, signed_at, signed_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, e *Encounter) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounters (
			id, organization_id, patient_id, provider_id, appointment_id, visit_date, status,
			subjective, objective, assessment, plan
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.OrganizationID, e.PatientID, e.ProviderID, e.AppointmentID, e.VisitDate, e.Status,
		e.Subjective, e.Objective, e.Assessment, e.Plan,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, orgID, id uuid.UUID) (*Encounter, error) {
	return scanEnc(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encCols+` FROM encounters WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (r *repoPG) Update(ctx context.Context, e *Encounter) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounters SET
			provider_id=$3, appointment_id=$4, visit_date=$5, status=$6,
			subjective=$7, objective=$8, assessment=$9, plan=$10,
			signed_at=$11, signed_by=$12, updated_at=NOW()
		WHERE organization_id = $1 AND id = $2`,
		e.OrganizationID, e.ID, e.ProviderID, e.AppointmentID, e.VisitDate, e.Status,
		e.Subjective, e.Objective, e.Assessment, e.Plan,
		e.SignedAt, e.SignedBy,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM encounters WHERE organization_id = $1 AND id = $2`, orgID, id)
	return err
}

func (r *repoPG) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounters WHERE organization_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encCols+` FROM encounters WHERE organization_id = $1
		 ORDER BY visit_date DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	encs, err := collectEncs(rows)
	return encs, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, orgID, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounters WHERE organization_id = $1 AND patient_id = $2`,
		orgID, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encCols+` FROM encounters WHERE organization_id = $1 AND patient_id = $2
		 ORDER BY visit_date DESC LIMIT $3 OFFSET $4`, orgID, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	encs, err := collectEncs(rows)
	return encs, total, err
}

func (r *repoPG) ListNeedingSignature(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounters WHERE organization_id = $1 AND status = 'completed'`,
		orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encCols+` FROM encounters WHERE organization_id = $1 AND status = 'completed'
		 ORDER BY visit_date DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	encs, err := collectEncs(rows)
	return encs, total, err
}

func (r *repoPG) ListSignedByPatient(ctx context.Context, orgID, patientID uuid.UUID, limit int) ([]*Encounter, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encCols+` FROM encounters
		 WHERE organization_id = $1 AND patient_id = $2 AND status IN ('signed','amended')
		 ORDER BY visit_date DESC LIMIT $3`, orgID, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEncs(rows)
}

func scanEnc(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(
		&e.ID, &e.OrganizationID, &e.PatientID, &e.ProviderID, &e.AppointmentID, &e.VisitDate, &e.Status,
		&e.Subjective, &e.Objective, &e.Assessment, &e.Plan,
		&e.SignedAt, &e.SignedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEncs(rows pgx.Rows) ([]*Encounter, error) {
	var encs []*Encounter
	for rows.Next() {
		var e Encounter
		err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.PatientID, &e.ProviderID, &e.AppointmentID, &e.VisitDate, &e.Status,
			&e.Subjective, &e.Objective, &e.Assessment, &e.Plan,
			&e.SignedAt, &e.SignedBy, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		encs = append(encs, &e)
	}
	return encs, nil
}

func (r *repoPG) AddLineItem(ctx context.Context, li *LineItem) error {
	li.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter_procedures (id, encounter_id, procedure_id, code, description, charge_amount, units, modifiers)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		li.ID, li.EncounterID, li.ProcedureID, li.Code, li.Description, li.ChargeAmount, li.Units, li.Modifiers,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateLineItem
	}
	return err
}

func (r *repoPG) ListLineItems(ctx context.Context, encounterID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, procedure_id, code, description, charge_amount, units, modifiers, created_at
		FROM encounter_procedures WHERE encounter_id = $1 ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.EncounterID, &li.ProcedureID, &li.Code, &li.Description,
			&li.ChargeAmount, &li.Units, &li.Modifiers, &li.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &li)
	}
	return items, nil
}

func (r *repoPG) RemoveLineItem(ctx context.Context, encounterID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM encounter_procedures WHERE encounter_id = $1 AND id = $2`, encounterID, id)
	return err
}

func (r *repoPG) AddDiagnosis(ctx context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter_diagnoses (id, encounter_id, icd_code, description)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.EncounterID, d.ICDCode, d.Description,
	)
	return err
}

func (r *repoPG) ListDiagnoses(ctx context.Context, encounterID uuid.UUID) ([]*Diagnosis, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, icd_code, description, created_at
		FROM encounter_diagnoses WHERE encounter_id = $1 ORDER BY created_at`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diags []*Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.EncounterID, &d.ICDCode, &d.Description, &d.CreatedAt); err != nil {
			return nil, err
		}
		diags = append(diags, &d)
	}
	return diags, nil
}

func (r *repoPG) RemoveDiagnosis(ctx context.Context, encounterID, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM encounter_diagnoses WHERE encounter_id = $1 AND id = $2`, encounterID, id)
	return err
}

func (r *repoPG) UpsertVitals(ctx context.Context, v *Vitals) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals (
			id, encounter_id, height_inches, weight_pounds, bmi,
			systolic_bp, diastolic_bp, pulse_bpm, temperature_f, respiratory_rate, o2_sat
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (encounter_id) DO UPDATE SET
			height_inches=EXCLUDED.height_inches, weight_pounds=EXCLUDED.weight_pounds,
			bmi=EXCLUDED.bmi, systolic_bp=EXCLUDED.systolic_bp, diastolic_bp=EXCLUDED.diastolic_bp,
			pulse_bpm=EXCLUDED.pulse_bpm, temperature_f=EXCLUDED.temperature_f,
			respiratory_rate=EXCLUDED.respiratory_rate, o2_sat=EXCLUDED.o2_sat, updated_at=NOW()`,
		v.ID, v.EncounterID, v.HeightInches, v.WeightPounds, v.BMI,
		v.SystolicBP, v.DiastolicBP, v.PulseBPM, v.TemperatureF, v.RespiratoryRate, v.O2Sat,
	)
	return err
}

func (r *repoPG) GetVitals(ctx context.Context, encounterID uuid.UUID) (*Vitals, error) {
	var v Vitals
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, encounter_id, height_inches, weight_pounds, bmi,
			systolic_bp, diastolic_bp, pulse_bpm, temperature_f, respiratory_rate, o2_sat,
			created_at, updated_at
		FROM vitals WHERE encounter_id = $1`, encounterID).
		Scan(&v.ID, &v.EncounterID, &v.HeightInches, &v.WeightPounds, &v.BMI,
			&v.SystolicBP, &v.DiastolicBP, &v.PulseBPM, &v.TemperatureF, &v.RespiratoryRate,
			&v.O2Sat, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVitalsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
