package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryFixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryFixedWindow()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := s.Allow(ctx, "1.2.3.4", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i+1)
		assert.Equal(t, 9-i, d.Remaining)
	}

	now = now.Add(20 * time.Second)
	d, err := s.Allow(ctx, "1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	other, err := s.Allow(ctx, "5.6.7.8", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(41 * time.Second)
	d, err = s.Allow(ctx, "1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

type failingStrategy struct{}

func (failingStrategy) Allow(context.Context, string, int, time.Duration) (Decision, error) {
	return Decision{}, errors.New("connection refused")
}

func TestManagerFailsOpen(t *testing.T) {
	m := NewManager(failingStrategy{}, "rl:create:", zap.NewNop())
	d := m.Allow(context.Background(), "1.2.3.4", 5, time.Minute)
	assert.True(t, d.Allowed)
	assert.Equal(t, 5, d.Remaining)
}

type recordingStrategy struct{ keys []string }

func (r *recordingStrategy) Allow(_ context.Context, key string, limit int, _ time.Duration) (Decision, error) {
	r.keys = append(r.keys, key)
	return Decision{Allowed: true, Remaining: limit - 1}, nil
}

func TestManagerPrefixesKeys(t *testing.T) {
	rec := &recordingStrategy{}
	m := NewManager(rec, "rl:api:", nil)
	m.Allow(context.Background(), "1.2.3.4", 100, time.Minute)
	assert.Equal(t, []string{"rl:api:1.2.3.4"}, rec.keys)
}
