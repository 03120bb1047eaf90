package account

import "context"

type Repository interface {
	GetByLogin(ctx context.Context, role, loginID string) (*User, error)
	Create(ctx context.Context, u *User) error
}
