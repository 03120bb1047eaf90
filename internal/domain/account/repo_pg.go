package account

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

func (r *repoPG) GetByLogin(ctx context.Context, role, loginID string) (*User, error) {
	var u User
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, login_id, role, password_hash, hospital_id, patient_id, created_at
		FROM users WHERE role = $1 AND login_id = $2`,
		role, loginID,
	).Scan(&u.ID, &u.LoginID, &u.Role, &u.PasswordHash, &u.HospitalID, &u.PatientID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, login_id, role, password_hash, hospital_id, patient_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.LoginID, u.Role, u.PasswordHash, u.HospitalID, u.PatientID,
	)
	return err
}
