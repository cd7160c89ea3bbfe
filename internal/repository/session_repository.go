package repository

import (
	"context"
	"ctchen222/car-dealership/internal/session"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repository.session")

const sessionKeyPrefix = "session:"

type redisSessionRepository struct {
	rdb *redis.Client
	now func() time.Time
}

// NewSessionRepository creates a Redis-based session.Store. Each session is
// a JSON string under "session:<id>" whose TTL matches the session expiry.
func NewSessionRepository(rdb *redis.Client) session.Store {
	return &redisSessionRepository{
		rdb: rdb,
		now: time.Now,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Get loads a session. Missing and expired keys both yield session.ErrNotFound.
func (r *redisSessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Get")
	defer span.End()

	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis get failed")
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "corrupt session payload")
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Expired(r.now()) {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

// Save writes the session with a TTL up to its expiry. A session that has
// already expired is removed instead.
func (r *redisSessionRepository) Save(ctx context.Context, s *session.Session) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Save", trace.WithAttributes(
		attribute.Bool("session.authenticated", s.IsAuthenticated()),
		attribute.Int("session.flashes", len(s.Flashes)),
	))
	defer span.End()

	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.rdb.Del(ctx, sessionKey(s.ID)).Err()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), data, ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis set failed")
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session; deleting an unknown id is not an error.
func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete")
	defer span.End()

	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redis del failed")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
