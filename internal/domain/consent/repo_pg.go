package consent

import (
	"context"

	"github.com/google/uuid"
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

func (r *repoPG) Upsert(ctx context.Context, patientID, hospitalID uuid.UUID, scope string, granted bool) (*Consent, error) {
	var c Consent
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consents (id, patient_id, hospital_id, scope, granted)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (patient_id, hospital_id, scope)
		DO UPDATE SET granted = EXCLUDED.granted, updated_at = NOW()
		RETURNING id, patient_id, hospital_id, scope, granted, updated_at`,
		uuid.New(), patientID, hospitalID, scope, granted,
	).Scan(&c.ID, &c.PatientID, &c.HospitalID, &c.Scope, &c.Granted, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*View, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.patient_id, c.hospital_id, c.scope, c.granted, c.updated_at,
		       h.code, h.name
		FROM consents c
		JOIN hospitals h ON h.id = c.hospital_id
		WHERE c.patient_id = $1
		ORDER BY h.code, c.scope`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []*View
	for rows.Next() {
		var v View
		if err := rows.Scan(&v.ID, &v.PatientID, &v.HospitalID, &v.Scope, &v.Granted,
			&v.UpdatedAt, &v.HospitalCode, &v.HospitalName); err != nil {
			return nil, err
		}
		views = append(views, &v)
	}
	return views, rows.Err()
}

// Granted reports the current state of the grant. A row that was never
// created is the same as one toggled off.
func (r *repoPG) Granted(ctx context.Context, patientID, hospitalID uuid.UUID, scope string) (bool, error) {
	var granted bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT granted FROM consents
			 WHERE patient_id = $1 AND hospital_id = $2 AND scope = $3),
			FALSE)`,
		patientID, hospitalID, scope).Scan(&granted)
	return granted, err
}
