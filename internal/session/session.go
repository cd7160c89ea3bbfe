// Package session keeps server-side login sessions and one-shot flash
// messages. Clients only hold a signed cookie carrying the session id.
package session

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -source=session.go -destination=mocks/mock_store.go -package=mocks

// ErrNotFound is returned by a Store for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// FlashKind is the category of a flash message.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a notice shown on the next rendered page only.
type Flash struct {
	Kind FlashKind `json:"kind"`
	Text string    `json:"text"`
}

// Session is the server-side record behind a session cookie. Anonymous
// visitors get one as soon as a flash has to be carried across a redirect.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAuthenticated reports whether a user is bound to the session.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != 0
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
