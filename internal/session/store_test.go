package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopscout/internal/domain"
)

func testUser() domain.User {
	return domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: "admin"}
}

func TestStoreStartsLoadingThenResolves(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.True(t, s.IsLoading())
	s.Load()
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Role())
	assert.Nil(t, s.User())
}

func TestLoginPersistsAndRestores(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	s.Load()
	require.NoError(t, s.Login(testUser(), "tok-123"))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "admin", s.Role())
	assert.Equal(t, "tok-123", s.Token())

	restored := NewStore(dir)
	restored.Load()
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, "tok-123", restored.Token())
	assert.Equal(t, "Ada", restored.User().Name)
}

func TestLogoutClearsMemoryAndDisk(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	s.Load()
	require.NoError(t, s.Login(testUser(), "tok"))
	s.Logout()
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	_, err := os.Stat(filepath.Join(dir, ".shopscout", sessionFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestMalformedSessionFileDegrades(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".shopscout", sessionFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(dir)
	s.Load()
	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestInvalidSessionRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".shopscout", sessionFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	// token missing
	require.NoError(t, os.WriteFile(path, []byte(`{"user":{"id":"u1","email":"a@b.c","role":"shopper"}}`), 0o644))

	s := NewStore(dir)
	s.Load()
	assert.False(t, s.IsAuthenticated())

	// login with invalid payload rejected up front
	err := s.Login(domain.User{ID: "u2"}, "tok")
	assert.Error(t, err)
	assert.False(t, s.IsAuthenticated())
}
