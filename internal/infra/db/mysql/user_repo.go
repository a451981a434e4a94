package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainusers "github.com/bryanwahyu/rightsdesk/internal/domain/users"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user; a taken email yields domain.ErrConflict
func (r *UserRepository) Create(ctx context.Context, u *domainusers.User) error {
	const q = `
INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
VALUES (?,?,?,?,?,?,?);`
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if isDuplicate(err) {
		return fmt.Errorf("user %s: %w", u.Email, domain.ErrConflict)
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id domainusers.UserID) (*domainusers.User, error) {
	const q = `
SELECT id, email, name, password_hash, role, created_at, updated_at
FROM users WHERE id=? LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domainusers.User, error) {
	const q = `
SELECT id, email, name, password_hash, role, created_at, updated_at
FROM users WHERE email=? LIMIT 1;`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

func scanUser(row *sql.Row) (*domainusers.User, error) {
	var u domainusers.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
