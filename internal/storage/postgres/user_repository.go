package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/eventapi/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `
INSERT INTO users (id, email, password_hash, role, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := conn(ctx, r.pool).Exec(ctx, stmt, user.ID, user.Email, user.PasswordHash, user.Role.String(), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidRole
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`
	return r.getUser(ctx, query, email)
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	if uuid.Validate(userID) != nil {
		return domain.User{}, domain.ErrInvalidID
	}
	const query = `SELECT id, email, password_hash, role, created_at FROM users WHERE id = $1`
	return r.getUser(ctx, query, userID)
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg string) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", u.ID, err)
	}
	return u, nil
}
