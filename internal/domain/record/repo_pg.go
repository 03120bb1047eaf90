package record

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

const encCols = `id, patient_id, hospital_id, encounter_type, started_at, created_by, created_at`

func (r *repoPG) CreateEncounter(ctx context.Context, e *Encounter) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounters (id, patient_id, hospital_id, encounter_type, started_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.PatientID, e.HospitalID, e.EncounterType, e.StartedAt, e.CreatedBy,
	)
	return err
}

func (r *repoPG) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	var e Encounter
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+encCols+` FROM encounters WHERE id = $1`, id,
	).Scan(&e.ID, &e.PatientID, &e.HospitalID, &e.EncounterType, &e.StartedAt, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEncounterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const verCols = `id, encounter_id, patient_id, hospital_id, parent_version_id, commit_message, payload, created_by, created_at`

func (r *repoPG) InsertVersion(ctx context.Context, v *Version) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ehr_versions (id, encounter_id, patient_id, hospital_id, parent_version_id, commit_message, payload, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.EncounterID, v.PatientID, v.HospitalID, v.ParentVersionID, v.CommitMessage, v.Payload, v.CreatedBy,
	)
	return err
}

func (r *repoPG) GetVersion(ctx context.Context, id uuid.UUID) (*Version, error) {
	return scanVersion(r.conn(ctx).QueryRow(ctx,
		`SELECT `+verCols+` FROM ehr_versions WHERE id = $1`, id))
}

func (r *repoPG) ListVersions(ctx context.Context, encounterID uuid.UUID) ([]*VersionMeta, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, encounter_id, parent_version_id, commit_message, created_by, created_at
		FROM ehr_versions
		WHERE encounter_id = $1
		ORDER BY created_at ASC, id ASC`,
		encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []*VersionMeta
	for rows.Next() {
		var m VersionMeta
		if err := rows.Scan(&m.ID, &m.EncounterID, &m.ParentVersionID, &m.CommitMessage,
			&m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		metas = append(metas, &m)
	}
	return metas, rows.Err()
}

func (r *repoPG) LatestVersion(ctx context.Context, encounterID uuid.UUID) (*Version, error) {
	return scanVersion(r.conn(ctx).QueryRow(ctx, `
		SELECT `+verCols+` FROM ehr_versions
		WHERE encounter_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		encounterID))
}

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	err := row.Scan(&v.ID, &v.EncounterID, &v.PatientID, &v.HospitalID, &v.ParentVersionID,
		&v.CommitMessage, &v.Payload, &v.CreatedBy, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
