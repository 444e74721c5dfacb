package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/auth"
)

const (
	insertUserSQL = `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	upsertUserSQL = `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (email) DO UPDATE SET
		username      = EXCLUDED.username,
		password_hash = EXCLUDED.password_hash,
		role          = EXCLUDED.role,
		updated_at    = EXCLUDED.updated_at`

	selectUserByEmailSQL = `SELECT id::text, username, email, password_hash, role, created_at, updated_at
	FROM users WHERE email = $1`
)

const usersEmailKey = "users_email_key"

var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository implements auth.UserRepository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new account. A taken email yields auth.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	if _, err := r.pool.Exec(ctx, insertUserSQL,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err, usersEmailKey) {
			return auth.ErrUserExists
		}
		return errors.Wrapf(err, "insert user %q", u.Email)
	}
	return nil
}

// Upsert creates the account or overwrites the credentials and role of the
// account with the same email. Used for seeding administrators.
func (r *UserRepository) Upsert(ctx context.Context, u *auth.User) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
	); err != nil {
		return errors.Wrapf(err, "upsert user %q", u.Email)
	}
	return nil
}

// GetByEmail returns the account registered with email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := r.pool.QueryRow(ctx, selectUserByEmailSQL, email).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Wrapf(err, "get user %q", email)
	}
	u.Role = auth.Role(role)
	return &u, nil
}
