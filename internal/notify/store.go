package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shopscout/internal/api"
	"shopscout/internal/domain"
)

// Identity is the slice of the session store the counter depends on.
type Identity interface {
	IsAuthenticated() bool
	Role() string
	User() *domain.User
}

// API is the slice of the HTTP client the counter depends on.
type API interface {
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string) (api.MarkReadResult, error)
}

const adminRole = "admin"

// Store maintains the unread-message counter for the admin role, kept
// roughly in sync with the server by polling. Local increments and decrements
// are optimistic; the next poll reconciles them wholesale.
type Store struct {
	mu       sync.Mutex
	count    int
	client   API
	identity Identity
	interval time.Duration
	log      *slog.Logger

	cron    *cron.Cron
	polling bool
}

// NewStore creates a counter store. Interval governs the poll cadence.
func NewStore(client API, identity Identity, interval time.Duration) *Store {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Store{
		client:   client,
		identity: identity,
		interval: interval,
		log:      slog.Default(),
	}
}

// Count returns the current unread counter.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Refresh replaces the counter with the server value. When the session is
// absent or not an admin the counter resets to zero and no request is made.
// Fetch errors are logged and default the counter to zero; Refresh never
// returns an error.
func (s *Store) Refresh(ctx context.Context) {
	if !s.gateOpen() {
		s.set(0)
		return
	}
	userID := ""
	if u := s.identity.User(); u != nil {
		userID = u.ID
	}
	n, err := s.client.UnreadCount(ctx, userID)
	if err != nil {
		s.log.Warn("unread count refresh failed, defaulting to 0", "err", err)
		s.set(0)
		return
	}
	s.set(n)
}

// Increment bumps the counter by one, ahead of server confirmation.
func (s *Store) Increment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

// Decrement lowers the counter by n (1 when n <= 0), clamped at zero.
func (s *Store) Decrement(n int) {
	if n <= 0 {
		n = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count -= n
	if s.count < 0 {
		s.count = 0
	}
}

// Reset zeroes the counter.
func (s *Store) Reset() { s.set(0) }

func (s *Store) set(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = n
}

// MarkReadByUser marks a user's messages read on the server, then lowers the
// counter by the number the server reports as marked. On failure the counter
// is left unchanged and the error surfaces to the caller.
func (s *Store) MarkReadByUser(ctx context.Context, userID string) error {
	res, err := s.client.MarkRead(ctx, userID)
	if err != nil {
		return err
	}
	if res.Data.Marked > 0 {
		s.Decrement(res.Data.Marked)
	}
	return nil
}

func (s *Store) gateOpen() bool {
	return s.identity.IsAuthenticated() && s.identity.Role() == adminRole
}

// StartPolling begins periodic refreshes. The poll lifecycle is scoped
// strictly to an authenticated admin session: starting without one is
// refused, and a tick that finds the gate closed zeroes the counter and
// tears the schedule down. Callers re-establish polling after login.
func (s *Store) StartPolling(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling {
		return nil
	}
	if !s.identity.IsAuthenticated() || s.identity.Role() != adminRole {
		return fmt.Errorf("polling requires an authenticated admin session")
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if !s.gateOpen() {
			s.set(0)
			s.StopPolling()
			return
		}
		s.Refresh(ctx)
	})
	if err != nil {
		return err
	}
	s.cron = c
	s.polling = true
	c.Start()
	return nil
}

// StopPolling tears the poll schedule down. Safe to call repeatedly.
func (s *Store) StopPolling() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.polling = false
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}
