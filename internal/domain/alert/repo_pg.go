package alert

import (
	"context"
	"errors"
	"time"

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

const alertCols = `a.id, a.hospital_id, h.code, a.case_id, a.patient_uhid, a.severity, a.title,
	a.message, a.acknowledged, a.acked_by, a.acked_at, a.created_at`

func (r *repoPG) Create(ctx context.Context, a *Alert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO alerts (id, hospital_id, case_id, patient_uhid, severity, title, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.HospitalID, a.CaseID, a.PatientUHID, a.Severity, a.Title, a.Message,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return scanAlert(r.conn(ctx).QueryRow(ctx, `
		SELECT `+alertCols+` FROM alerts a
		JOIN hospitals h ON h.id = a.hospital_id
		WHERE a.id = $1`, id))
}

func (r *repoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+alertCols+` FROM alerts a
		JOIN hospitals h ON h.id = a.hospital_id
		WHERE a.hospital_id = $1
		ORDER BY a.created_at DESC LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.HospitalID, &a.HospitalCode, &a.CaseID, &a.PatientUHID,
			&a.Severity, &a.Title, &a.Message, &a.Acknowledged, &a.AckedBy, &a.AckedAt, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, &a)
	}
	return alerts, total, rows.Err()
}

func (r *repoPG) Acknowledge(ctx context.Context, id, by uuid.UUID, at time.Time) (*Alert, error) {
	// COALESCE keeps the first acknowledger on repeated acks.
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE alerts SET
			acknowledged = TRUE,
			acked_by = COALESCE(acked_by, $2),
			acked_at = COALESCE(acked_at, $3)
		WHERE id = $1`,
		id, by, at)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.HospitalID, &a.HospitalCode, &a.CaseID, &a.PatientUHID,
		&a.Severity, &a.Title, &a.Message, &a.Acknowledged, &a.AckedBy, &a.AckedAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
