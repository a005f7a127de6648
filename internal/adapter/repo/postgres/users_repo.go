package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// UserRepo persists accounts in PostgreSQL.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo with the given pool.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

// Create inserts a new user and returns its id (generates one if empty).
func (r *UserRepo) Create(ctx domain.Context, u domain.User) (string, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Create")
	defer span.End()
	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO users (id, email, password_hash, full_name, contact_number, role, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.Pool.Exec(ctx, q, id, u.Email, u.PasswordHash, u.FullName, u.ContactNumber, u.Role, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("op=user.create: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=user.create: %w", err)
	}
	return id, nil
}

// GetByEmail loads a user by email.
func (r *UserRepo) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.GetByEmail")
	defer span.End()
	q := `SELECT id, email, password_hash, full_name, contact_number, role, created_at FROM users WHERE email=$1`
	return r.scanUser(r.Pool.QueryRow(ctx, q, email), "user.get_by_email")
}

// Get loads a user by id.
func (r *UserRepo) Get(ctx domain.Context, id string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Get")
	defer span.End()
	q := `SELECT id, email, password_hash, full_name, contact_number, role, created_at FROM users WHERE id=$1`
	return r.scanUser(r.Pool.QueryRow(ctx, q, id), "user.get")
}

// Delete removes a user; dependent rows cascade.
func (r *UserRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=user.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=user.delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) scanUser(row pgx.Row, op string) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.ContactNumber, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=%s: %w", op, err)
	}
	return u, nil
}
