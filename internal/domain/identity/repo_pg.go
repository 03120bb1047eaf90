package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, uhid, full_name, dob, sex, phone, created_at`

func (r *repoPG) CreatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, uhid, full_name, dob, sex, phone)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.UHID, p.FullName, p.DOB, p.Sex, p.Phone,
	)
	return err
}

func (r *repoPG) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetPatientByUHID(ctx context.Context, uhid string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE uhid = $1`, uhid))
}

func (r *repoPG) SearchPatients(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + query + "%"
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE uhid ILIKE $1 OR full_name ILIKE $1`,
		pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE uhid ILIKE $1 OR full_name ILIKE $1
		ORDER BY full_name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.UHID, &p.FullName, &p.DOB, &p.Sex, &p.Phone, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		patients = append(patients, &p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

const hospitalCols = `id, code, name, city, created_at`

func (r *repoPG) CreateHospital(ctx context.Context, h *Hospital) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hospitals (id, code, name, city)
		VALUES ($1,$2,$3,$4)`,
		h.ID, h.Code, h.Name, h.City,
	)
	return err
}

func (r *repoPG) GetHospitalByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id))
}

func (r *repoPG) GetHospitalByCode(ctx context.Context, code string) (*Hospital, error) {
	return scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE code = $1`, code))
}

func (r *repoPG) ListHospitals(ctx context.Context) ([]*Hospital, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalCols+` FROM hospitals ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hospitals []*Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Code, &h.Name, &h.City, &h.CreatedAt); err != nil {
			return nil, err
		}
		hospitals = append(hospitals, &h)
	}
	return hospitals, rows.Err()
}

func (r *repoPG) HospitalExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM hospitals WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Timeline joins encounters with their hosting hospital and newest version.
// Ordered newest first so the first entry is the patient's current episode.
func (r *repoPG) Timeline(ctx context.Context, patientID uuid.UUID) ([]*TimelineEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT e.id, e.encounter_type, e.started_at, h.code, h.name,
		       (SELECT v.id FROM ehr_versions v
		        WHERE v.encounter_id = e.id
		        ORDER BY v.created_at DESC, v.id DESC LIMIT 1),
		       (SELECT COUNT(*) FROM ehr_versions v WHERE v.encounter_id = e.id)
		FROM encounters e
		JOIN hospitals h ON h.id = e.hospital_id
		WHERE e.patient_id = $1
		ORDER BY e.started_at DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*TimelineEntry
	for rows.Next() {
		var t TimelineEntry
		if err := rows.Scan(&t.EncounterID, &t.EncounterType, &t.StartedAt,
			&t.HospitalCode, &t.HospitalName, &t.LatestVersionID, &t.VersionCount); err != nil {
			return nil, err
		}
		entries = append(entries, &t)
	}
	return entries, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UHID, &p.FullName, &p.DOB, &p.Sex, &p.Phone, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Code, &h.Name, &h.City, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
