// Package session persists the signed-in user's token and UI preferences.
// The file lives at ~/.config/quire/session.toml unless configured otherwise.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	toml "github.com/pelletier/go-toml/v2"
)

// Session is the persisted state.
type Session struct {
	Token   string    `toml:"token"`
	Email   string    `toml:"email,omitempty"`
	SavedAt time.Time `toml:"saved_at"`
	Theme   string    `toml:"theme,omitempty"`
}

const defaultTheme = "Nord"

// ThemeOrDefault returns the stored theme, or the default when none is set.
func (s Session) ThemeOrDefault() string {
	if strings.TrimSpace(s.Theme) == "" {
		return defaultTheme
	}
	return s.Theme
}

// ExpiresAt reads the exp claim of the token without verifying the
// signature. ok is false when the token is not a JWT or carries no expiry.
func (s Session) ExpiresAt() (time.Time, bool) {
	if s.Token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !now.Before(exp)
}

// Store reads and writes one session file. It implements api.Credentials so
// a client picks up a new token right after login.
type Store struct {
	path string

	mu      sync.Mutex
	cached  *Session
	envOver string
}

// NewStore returns a store for path. A non-empty override token is returned
// by Token instead of the file contents.
func NewStore(path, override string) *Store {
	return &Store{path: path, envOver: strings.TrimSpace(override)}
}

// Path returns the file the store writes to.
func (s *Store) Path() string { return s.path }

// Load reads the session, returning an empty one when the file is missing.
func (s *Store) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (Session, error) {
	if s.cached != nil {
		return *s.cached, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.cached = &Session{}
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := toml.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	sess.Token = strings.TrimSpace(sess.Token)
	s.cached = &sess
	return sess, nil
}

// Save writes sess, creating directories as needed. The file is private to
// the user since it holds a credential.
func (s *Store) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(sess)
}

func (s *Store) saveLocked(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now().UTC().Truncate(time.Second)
	}
	data, err := toml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.cached = &sess
	return nil
}

// SetTheme stores theme and keeps the rest of the session.
func (s *Store) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked()
	if err != nil {
		return err
	}
	sess.Theme = theme
	return s.saveLocked(sess)
}

// Clear forgets the token but keeps preferences.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked()
	if err != nil {
		return err
	}
	return s.saveLocked(Session{Theme: sess.Theme})
}

// Token implements api.Credentials.
func (s *Store) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.envOver != "" {
		return s.envOver, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked()
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}
