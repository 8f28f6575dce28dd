// Package session holds the authenticated back-office session: the current
// user and the bearer token presented to the remote data service.
//
// The session is an explicit object injected into the data-access layer, with
// load/save hooks at process boundaries. Nothing else in the codebase reads
// ambient authentication state.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/poskit/backoffice/internal/catalog"
)

// ErrNotAuthenticated is returned when an operation needs a token and the
// session has none.
var ErrNotAuthenticated = errors.New("session has no bearer token")

// Session is the mutable authentication state for this process.
// Safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	user  catalog.User
	token string
}

// New returns an empty, unauthenticated session.
func New() *Session {
	return &Session{}
}

// persisted is the on-disk shape of a session file.
type persisted struct {
	User  catalog.User `json:"user"`
	Token string       `json:"token"`
}

// Load reads a session from path. A missing file yields an empty session,
// not an error, so first runs work without any setup.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}

	s := New()
	s.SetUser(p.User)
	s.SetToken(p.Token)
	return s, nil
}

// Save writes the session to path with owner-only permissions.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	p := persisted{User: s.user, Token: s.token}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	// Token material: keep the file private.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Token returns the current bearer token, or ErrNotAuthenticated if unset.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

// SetToken replaces the bearer token.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// User returns the current user. The zero value means nobody is signed in.
func (s *Session) User() catalog.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetUser replaces the current user.
func (s *Session) SetUser(u catalog.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// Clear drops the user and token, returning the session to its initial state.
func (s *Session) Clear() {
	s.mu.Lock()
	s.user = catalog.User{}
	s.token = ""
	s.mu.Unlock()
}
