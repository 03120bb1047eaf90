package triage

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

const caseCols = `id, ambulance_id, submission, classification, status, created_at`

func (r *repoPG) Create(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ambulance_cases (id, ambulance_id, submission, classification, status)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.AmbulanceID, c.Submission, c.Classification, c.Status,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM ambulance_cases WHERE id = $1`, id))
}

func (r *repoPG) ListByAmbulance(ctx context.Context, ambulanceID string, limit, offset int) ([]*Case, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM ambulance_cases WHERE ambulance_id = $1`, ambulanceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseCols+` FROM ambulance_cases WHERE ambulance_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ambulanceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cases []*Case
	for rows.Next() {
		var c Case
		if err := rows.Scan(&c.ID, &c.AmbulanceID, &c.Submission, &c.Classification,
			&c.Status, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		cases = append(cases, &c)
	}
	return cases, total, rows.Err()
}

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.AmbulanceID, &c.Submission, &c.Classification, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
