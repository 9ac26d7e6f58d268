package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopscout/internal/api"
	"shopscout/internal/domain"
)

type fakeIdentity struct {
	authed bool
	role   string
	userID string
}

func (f *fakeIdentity) IsAuthenticated() bool { return f.authed }
func (f *fakeIdentity) Role() string          { return f.role }
func (f *fakeIdentity) User() *domain.User {
	if !f.authed {
		return nil
	}
	return &domain.User{ID: f.userID, Role: f.role}
}

type fakeAPI struct {
	count      int
	countErr   error
	marked     int
	markErr    error
	countCalls int
	lastUserID string
}

func (f *fakeAPI) UnreadCount(_ context.Context, userID string) (int, error) {
	f.countCalls++
	f.lastUserID = userID
	return f.count, f.countErr
}

func (f *fakeAPI) MarkRead(_ context.Context, userID string) (api.MarkReadResult, error) {
	var res api.MarkReadResult
	if f.markErr != nil {
		return res, f.markErr
	}
	res.Success = true
	res.Data.Marked = f.marked
	return res, nil
}

func TestDecrementClampsAtZero(t *testing.T) {
	s := NewStore(&fakeAPI{}, &fakeIdentity{}, time.Second)
	s.Increment()
	s.Increment()
	s.Decrement(5)
	assert.Equal(t, 0, s.Count())
	s.Decrement(0) // defaults to 1, still clamped
	assert.Equal(t, 0, s.Count())
	s.Increment()
	s.Decrement(1)
	assert.Equal(t, 0, s.Count())
}

func TestRefreshResetsWhenNotAdmin(t *testing.T) {
	client := &fakeAPI{count: 9}
	for _, ident := range []*fakeIdentity{
		{authed: false},
		{authed: true, role: "shopper", userID: "u1"},
	} {
		s := NewStore(client, ident, time.Second)
		s.Increment()
		s.Increment()
		s.Refresh(context.Background())
		assert.Equal(t, 0, s.Count())
	}
	assert.Zero(t, client.countCalls, "gate closed must not hit the network")
}

func TestRefreshReplacesWithServerValue(t *testing.T) {
	client := &fakeAPI{count: 7}
	s := NewStore(client, &fakeIdentity{authed: true, role: "admin", userID: "a1"}, time.Second)
	s.Increment() // optimistic local bump, overwritten by poll
	s.Refresh(context.Background())
	assert.Equal(t, 7, s.Count())
	assert.Equal(t, "a1", client.lastUserID)
}

func TestRefreshErrorDefaultsToZero(t *testing.T) {
	client := &fakeAPI{countErr: errors.New("boom")}
	s := NewStore(client, &fakeIdentity{authed: true, role: "admin", userID: "a1"}, time.Second)
	s.Increment()
	s.Refresh(context.Background())
	assert.Equal(t, 0, s.Count())
}

func TestMarkReadDecrementsByServerCount(t *testing.T) {
	client := &fakeAPI{marked: 3}
	s := NewStore(client, &fakeIdentity{authed: true, role: "admin", userID: "a1"}, time.Second)
	for i := 0; i < 5; i++ {
		s.Increment()
	}
	require.NoError(t, s.MarkReadByUser(context.Background(), "u2"))
	assert.Equal(t, 2, s.Count())
}

func TestMarkReadFailureLeavesCounter(t *testing.T) {
	client := &fakeAPI{markErr: errors.New("nope")}
	s := NewStore(client, &fakeIdentity{authed: true, role: "admin", userID: "a1"}, time.Second)
	s.Increment()
	err := s.MarkReadByUser(context.Background(), "u2")
	assert.Error(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestPollingRequiresAdminSession(t *testing.T) {
	s := NewStore(&fakeAPI{}, &fakeIdentity{authed: true, role: "shopper"}, time.Second)
	assert.Error(t, s.StartPolling(context.Background()))

	ident := &fakeIdentity{authed: true, role: "admin", userID: "a1"}
	s = NewStore(&fakeAPI{count: 2}, ident, time.Second)
	require.NoError(t, s.StartPolling(context.Background()))
	require.NoError(t, s.StartPolling(context.Background())) // idempotent
	s.StopPolling()
	s.StopPolling() // safe twice
}
