package repository

import (
	"context"
	"ctchen222/car-dealership/internal/api/models"
	"ctchen222/car-dealership/internal/config"
	"ctchen222/car-dealership/internal/db"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) UserRepository {
	t.Helper()
	ctx := context.Background()
	pool, dialect, err := db.Connect(ctx, config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "users.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	require.NoError(t, db.InitializeSchema(ctx, pool, dialect))
	return NewUserRepository(pool)
}

func newPostgresMockRepo(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewUserRepository(sqlx.NewDb(mockDB, "pgx")), mock
}

func TestUserRepository_SQLite_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	user := &models.User{Username: "alice", PasswordHash: "hash-1"}
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "hash-1", got.PasswordHash)
}

func TestUserRepository_SQLite_GetMissingUser(t *testing.T) {
	repo := newSQLiteRepo(t)

	got, err := repo.GetUserByUsername(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepository_SQLite_UsernameMatchIsExact(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "h"}))

	got, err := repo.GetUserByUsername(ctx, "alice ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepository_SQLite_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "h1"}))
	err := repo.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "h2"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

// Concurrent inserts of the same username must leave a single row; the
// losers see ErrDuplicateUsername from the unique constraint.
func TestUserRepository_SQLite_ConcurrentInsertsKeepOneRow(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateUser(ctx, &models.User{Username: "racer", PasswordHash: fmt.Sprintf("h%d", i)})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	}
	assert.Equal(t, 1, ok)
}

func TestUserRepository_Postgres_CreateUser(t *testing.T) {
	repo, mock := newPostgresMockRepo(t)

	q := regexp.QuoteMeta(`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`)
	mock.ExpectQuery(q).
		WithArgs("alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	user := &models.User{Username: "alice", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	assert.Equal(t, int64(42), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Postgres_UniqueViolation(t *testing.T) {
	repo, mock := newPostgresMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUserRepository_Postgres_StorageError(t *testing.T) {
	repo, mock := newPostgresMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)
	assert.Contains(t, err.Error(), "failed to create user")
}

func TestUserRepository_Postgres_GetUserByUsername(t *testing.T) {
	repo, mock := newPostgresMockRepo(t)

	q := regexp.QuoteMeta(`SELECT id, username, password_hash FROM users WHERE username = $1`)
	mock.ExpectQuery(q).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(int64(7), "alice", "hash"))

	got, err := repo.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, &models.User{ID: 7, Username: "alice", PasswordHash: "hash"}, got)
}

func TestUserRepository_Postgres_GetUserByUsernameError(t *testing.T) {
	repo, mock := newPostgresMockRepo(t)

	mock.ExpectQuery(`SELECT id, username, password_hash FROM users`).WillReturnError(errors.New("db down"))

	got, err := repo.GetUserByUsername(context.Background(), "alice")
	assert.Nil(t, got)
	assert.ErrorContains(t, err, "db down")
}
