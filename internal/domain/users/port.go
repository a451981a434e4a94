package users

import "context"

// Repository port for user accounts. Lookups return domain.ErrNotFound when nothing matches.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
