package repository

import (
	"context"
	"ctchen222/car-dealership/internal/api/models"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=user_repository.go -destination=mocks/mock_user_repository.go -package=mocks

var tracer = otel.Tracer("repository.user")

// ErrDuplicateUsername is returned by CreateUser when the username is
// already taken at the storage level.
var ErrDuplicateUsername = errors.New("username already exists")

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type sqlUserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a UserRepository over a postgres or sqlite pool.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

// CreateUser inserts user, whose PasswordHash must already be set, and fills
// in the generated ID.
func (r *sqlUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, span := tracer.Start(ctx, "UserRepository.CreateUser")
	defer span.End()

	query := r.db.Rebind(`INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by exact username. A missing user is
// reported as (nil, nil).
func (r *sqlUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserRepository.GetUserByUsername")
	defer span.End()

	var user models.User
	query := r.db.Rebind(`SELECT id, username, password_hash FROM users WHERE username = ?`)
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No user found is not an application error
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite reports "constraint failed: UNIQUE constraint failed: users.username (2067)"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
