package service

import (
	"context"
	"ctchen222/car-dealership/internal/api/models"
	"ctchen222/car-dealership/internal/api/repository"
	"ctchen222/car-dealership/internal/validator"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=user_service.go -destination=mocks/mock_user_service.go -package=mocks

// PasswordCost is the bcrypt work factor for stored password hashes.
const PasswordCost = 10

var (
	tracer = otel.Tracer("service.user")
	meter  = otel.Meter("service.user")
)

var (
	// ErrDuplicateUsername is returned when the username is already registered.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials is returned for an unknown username and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError carries the user-facing messages of a rejected request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// dummyHash is compared against when the username does not exist so that
// both failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dealership-dummy-password"), PasswordCost)

// UserService defines the account operations shared by the JSON API and
// the HTML pages.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) error
	Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error)
}

type userService struct {
	userRepo      repository.UserRepository
	registrations metric.Int64Counter
	logins        metric.Int64Counter
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) UserService {
	registrations, err := meter.Int64Counter("accounts.registrations",
		metric.WithDescription("Registration attempts by result"))
	if err != nil {
		otel.Handle(err)
	}
	logins, err := meter.Int64Counter("accounts.logins",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		otel.Handle(err)
	}
	return &userService{userRepo: userRepo, registrations: registrations, logins: logins}
}

// Register validates req, rejects taken usernames and stores a new user
// with a bcrypt hash of the password.
func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) error {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	err := s.register(ctx, req)
	result := resultOf(err)
	span.SetAttributes(attribute.String("result", result))
	s.count(ctx, s.registrations, result)
	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
	}
	return err
}

func (s *userService) register(ctx context.Context, req *models.RegisterRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	// Check-then-insert is not atomic; the unique index on users.username
	// catches the race and CreateUser reports it as a duplicate.
	existingUser, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if existingUser != nil {
		return ErrDuplicateUsername
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return ErrDuplicateUsername
		}
		return err
	}

	slog.InfoContext(ctx, "User registered", "user.id", user.ID)
	return nil
}

// Authenticate checks the submitted credentials and returns the user on
// success.
func (s *userService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Authenticate")
	defer span.End()

	user, err := s.authenticate(ctx, req)
	result := resultOf(err)
	span.SetAttributes(attribute.String("result", result))
	s.count(ctx, s.logins, result)
	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
	}
	return user, err
}

func (s *userService) authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *userService) count(ctx context.Context, c metric.Int64Counter, result string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func validate(req any) error {
	msgs, err := validator.Messages(req)
	if err != nil {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

func resultOf(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrDuplicateUsername):
		return "duplicate"
	case errors.Is(err, ErrInvalidCredentials):
		return "denied"
	default:
		return "error"
	}
}
