package session

import (
	"ctchen222/car-dealership/internal/api/models"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const contextKey = "session"

// Options configures a Manager.
type Options struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Manager binds sessions to gin requests through a signed cookie.
type Manager struct {
	store      Store
	codec      *CookieCodec
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
	newID      func() string
}

func NewManager(store Store, opts Options) *Manager {
	return &Manager{
		store:      store,
		codec:      NewCookieCodec(opts.Secret),
		ttl:        opts.TTL,
		cookieName: opts.CookieName,
		secure:     opts.Secure,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Middleware loads the session named by the request cookie into the gin
// context. Invalid cookies and unknown sessions leave the request anonymous.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.load(c)
		c.Next()
	}
}

func (m *Manager) load(c *gin.Context) {
	value, err := c.Cookie(m.cookieName)
	if err != nil || value == "" {
		return
	}
	id, err := m.codec.Decode(value)
	if err != nil {
		slog.DebugContext(c.Request.Context(), "Rejected session cookie", "error", err)
		return
	}
	s, err := m.store.Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.ErrorContext(c.Request.Context(), "Failed to load session", "error", err)
		}
		return
	}
	c.Set(contextKey, s)
}

// Current returns the session loaded for this request, or nil.
func (m *Manager) Current(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}

func (m *Manager) IsAuthenticated(c *gin.Context) bool {
	return m.Current(c).IsAuthenticated()
}

// Login binds user to a session with a fresh id. Any previous session is
// deleted so an id issued before login cannot be reused.
func (m *Manager) Login(c *gin.Context, user *models.User) error {
	ctx := c.Request.Context()
	if old := m.Current(c); old != nil {
		if err := m.store.Delete(ctx, old.ID); err != nil {
			return fmt.Errorf("failed to drop previous session: %w", err)
		}
	}

	s := m.newSession()
	s.UserID = user.ID
	s.Username = user.Username
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := m.writeCookie(c, s); err != nil {
		return err
	}
	c.Set(contextKey, s)
	return nil
}

// Logout deletes the current session and clears the cookie. Without a
// session it does nothing.
func (m *Manager) Logout(c *gin.Context) error {
	s := m.Current(c)
	if s == nil {
		return nil
	}
	if err := m.store.Delete(c.Request.Context(), s.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	c.Set(contextKey, (*Session)(nil))
	m.clearCookie(c)
	return nil
}

// AddFlash queues a message for the next rendered page, starting an
// anonymous session if the request has none.
func (m *Manager) AddFlash(c *gin.Context, kind FlashKind, text string) error {
	s := m.Current(c)
	if s == nil {
		s = m.newSession()
		if err := m.writeCookie(c, s); err != nil {
			return err
		}
		c.Set(contextKey, s)
	}
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Text: text})
	if err := m.store.Save(c.Request.Context(), s); err != nil {
		return fmt.Errorf("failed to save flash: %w", err)
	}
	return nil
}

// Flashes returns and removes the queued messages.
func (m *Manager) Flashes(c *gin.Context) []Flash {
	s := m.Current(c)
	if s == nil || len(s.Flashes) == 0 {
		return nil
	}
	flashes := s.Flashes
	s.Flashes = nil
	if err := m.store.Save(c.Request.Context(), s); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to clear flashes", "error", err)
	}
	return flashes
}

func (m *Manager) newSession() *Session {
	now := m.now()
	return &Session{
		ID:        m.newID(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
}

func (m *Manager) writeCookie(c *gin.Context, s *Session) error {
	value, err := m.codec.Encode(s.ID, s.ExpiresAt)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, int(s.ExpiresAt.Sub(m.now()).Seconds()), "/", "", m.secure, true)
	return nil
}

func (m *Manager) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
