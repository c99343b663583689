package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), []byte("secret"), time.Hour)

	sess, token, err := m.Begin(ctx, "NV001")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "NV001", sess.UserID)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "NV001", got.UserID)

	require.NoError(t, m.End(ctx, sess.ID))
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResolveRejectsForeignTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	issuer := NewManager(store, []byte("one"), time.Hour)
	other := NewManager(store, []byte("two"), time.Hour)

	_, token, err := issuer.Begin(ctx, "NV001")
	require.NoError(t, err)

	_, err = other.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "sid", "NV001", time.Minute))
	uid, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "NV001", uid)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNoSession)
}
