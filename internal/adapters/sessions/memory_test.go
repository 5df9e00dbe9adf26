package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopetreehub/innerspell/internal/domain"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "a")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	data := []byte(`{"id":"a"}`)
	require.NoError(t, s.Put(ctx, "a", data, time.Minute))
	data[0] = 'X'

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a"}`, string(got), "stored bytes are copied")

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, s.Put(ctx, "forever", []byte("2"), 0))

	now = now.Add(2 * time.Minute)
	_, err := s.Get(ctx, "short")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = s.Get(ctx, "forever")
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "other", []byte("3"), time.Minute))
	assert.Equal(t, 2, s.Len())
}
