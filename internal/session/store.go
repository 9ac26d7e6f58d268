package session

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/natefinch/atomic"

	"shopscout/internal/domain"
)

// State of the session store. The store starts in StateLoading until the
// persisted session has been read, then settles into one of the other two.
type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

const sessionFileName = "session.json"

// Store holds the current session, persisted to a durable file in the
// workspace. Every component needing identity reads through it; only login
// and logout mutate it.
type Store struct {
	mu       sync.RWMutex
	path     string
	state    State
	session  *domain.Session
	log      *slog.Logger
	validate *validator.Validate
}

// NewStore creates a store rooted at the workspace. Call Load before the
// first read.
func NewStore(workspace string) *Store {
	if workspace == "" {
		workspace = "."
	}
	return &Store{
		path:     filepath.Join(workspace, ".shopscout", sessionFileName),
		state:    StateLoading,
		log:      slog.Default(),
		validate: validator.New(),
	}
}

// Load reads the persisted session. A missing, malformed, or invalid file
// degrades to unauthenticated; Load never returns an error to the caller.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("session file unreadable, treating as logged out", "path", s.path, "err", err)
		}
		s.setUnauthenticatedLocked()
		return
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.Warn("session file malformed, treating as logged out", "path", s.path, "err", err)
		s.setUnauthenticatedLocked()
		return
	}
	if err := s.validate.Struct(sess); err != nil {
		s.log.Warn("persisted session failed validation, treating as logged out", "err", err)
		s.setUnauthenticatedLocked()
		return
	}
	s.session = &sess
	s.state = StateAuthenticated
}

// Login stores the session from a successful login payload, in memory and on
// disk. A persistence failure is logged but the in-memory session stands, so
// the user stays logged in for the process lifetime.
func (s *Store) Login(user domain.User, token string) error {
	sess := domain.Session{User: user, Token: token}
	if err := s.validate.Struct(sess); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sess
	s.state = StateAuthenticated
	if err := s.persistLocked(); err != nil {
		s.log.Warn("session not persisted; login valid for this run only", "err", err)
	}
	return nil
}

// Logout clears memory and the durable file.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUnauthenticatedLocked()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("session file not removed", "path", s.path, "err", err)
	}
}

func (s *Store) setUnauthenticatedLocked() {
	s.session = nil
	s.state = StateUnauthenticated
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s.session, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.path, bytes.NewReader(b))
}

// State reports the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsLoading reports whether the persisted session is still being resolved.
func (s *Store) IsLoading() bool { return s.State() == StateLoading }

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated && s.session != nil
}

// Role returns the session role, or "" when unauthenticated.
func (s *Store) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.User.Role
}

// User returns a copy of the profile, or nil when unauthenticated.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	u := s.session.User
	return &u
}

// Token returns the bearer token, or "" when unauthenticated. It satisfies
// api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}
