package service

import (
	"context"
	"ctchen222/car-dealership/internal/api/models"
	"ctchen222/car-dealership/internal/api/repository"
	"ctchen222/car-dealership/internal/api/repository/mocks"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

func newServiceWithMock(t *testing.T) (UserService, *mocks.MockUserRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	return NewUserService(repo), repo
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister_Success(t *testing.T) {
	svc, repo := newServiceWithMock(t)
	ctx := context.Background()

	repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, nil)
	repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		assert.Equal(t, "alice", u.Username)
		assert.NotEqual(t, "secret1", u.PasswordHash, "password must not be stored in clear")

		cost, err := bcrypt.Cost([]byte(u.PasswordHash))
		require.NoError(t, err)
		assert.Equal(t, PasswordCost, cost)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))

		u.ID = 1
		return nil
	})

	err := svc.Register(ctx, &models.RegisterRequest{Username: "alice", Password: "secret1", ConfirmPassword: "secret1"})
	assert.NoError(t, err)
}

func TestRegister_ValidationNeverTouchesStorage(t *testing.T) {
	tests := []struct {
		name string
		req  models.RegisterRequest
		want string
	}{
		{
			name: "password of five characters",
			req:  models.RegisterRequest{Username: "alice", Password: "12345", ConfirmPassword: "12345"},
			want: "Password must be at least 6 characters",
		},
		{
			name: "password longer than bcrypt accepts",
			req:  models.RegisterRequest{Username: "alice", Password: strings.Repeat("p", 80), ConfirmPassword: strings.Repeat("p", 80)},
			want: "Password must be at most 72 bytes",
		},
		{
			name: "confirmation differs",
			req:  models.RegisterRequest{Username: "alice", Password: "secret1", ConfirmPassword: "secret2"},
			want: "Passwords must match",
		},
		{
			name: "missing username",
			req:  models.RegisterRequest{Password: "secret1", ConfirmPassword: "secret1"},
			want: "Username is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: any repository call fails the test.
			svc, _ := newServiceWithMock(t)

			err := svc.Register(context.Background(), &tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Error())
		})
	}
}

func TestRegister_ValidationMessagesAreJoined(t *testing.T) {
	svc, _ := newServiceWithMock(t)

	err := svc.Register(context.Background(), &models.RegisterRequest{Password: "abc", ConfirmPassword: "abd"})
	assert.EqualError(t, err, "Username is required, Password must be at least 6 characters, Passwords must match")
}

func TestRegister_DuplicateFromLookup(t *testing.T) {
	svc, repo := newServiceWithMock(t)

	repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(&models.User{ID: 1, Username: "alice"}, nil)

	err := svc.Register(context.Background(), &models.RegisterRequest{Username: "alice", Password: "secret2", ConfirmPassword: "secret2"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_DuplicateFromInsertRace(t *testing.T) {
	svc, repo := newServiceWithMock(t)

	repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, nil)
	repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(repository.ErrDuplicateUsername)

	err := svc.Register(context.Background(), &models.RegisterRequest{Username: "alice", Password: "secret1", ConfirmPassword: "secret1"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_StorageErrors(t *testing.T) {
	dbErr := errors.New("connection refused")

	t.Run("lookup", func(t *testing.T) {
		svc, repo := newServiceWithMock(t)
		repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, dbErr)

		err := svc.Register(context.Background(), &models.RegisterRequest{Username: "alice", Password: "secret1", ConfirmPassword: "secret1"})
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("insert", func(t *testing.T) {
		svc, repo := newServiceWithMock(t)
		repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, nil)
		repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(dbErr)

		err := svc.Register(context.Background(), &models.RegisterRequest{Username: "alice", Password: "secret1", ConfirmPassword: "secret1"})
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestAuthenticate_Success(t *testing.T) {
	svc, repo := newServiceWithMock(t)
	stored := &models.User{ID: 3, Username: "alice", PasswordHash: mustHash(t, "secret1")}

	repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(stored, nil)

	user, err := svc.Authenticate(context.Background(), &models.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, stored, user)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	svc, repo := newServiceWithMock(t)
	stored := &models.User{ID: 3, Username: "alice", PasswordHash: mustHash(t, "secret1")}

	repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(stored, nil)
	repo.EXPECT().GetUserByUsername(gomock.Any(), "mallory").Return(nil, nil)

	_, wrongPassword := svc.Authenticate(context.Background(), &models.LoginRequest{Username: "alice", Password: "nope"})
	_, unknownUser := svc.Authenticate(context.Background(), &models.LoginRequest{Username: "mallory", Password: "secret1"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestAuthenticate_Validation(t *testing.T) {
	svc, _ := newServiceWithMock(t)

	_, err := svc.Authenticate(context.Background(), &models.LoginRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Username is required", "Password is required"}, verr.Messages)
}

func TestAuthenticate_StorageError(t *testing.T) {
	svc, repo := newServiceWithMock(t)
	dbErr := errors.New("timeout")

	repo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(nil, dbErr)

	_, err := svc.Authenticate(context.Background(), &models.LoginRequest{Username: "alice", Password: "secret1"})
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestResultOf(t *testing.T) {
	assert.Equal(t, "ok", resultOf(nil))
	assert.Equal(t, "invalid", resultOf(&ValidationError{Messages: []string{"x"}}))
	assert.Equal(t, "duplicate", resultOf(ErrDuplicateUsername))
	assert.Equal(t, "denied", resultOf(ErrInvalidCredentials))
	assert.Equal(t, "error", resultOf(errors.New("boom")))
}
