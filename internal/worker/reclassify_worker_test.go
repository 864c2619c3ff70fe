package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/domain"
)

type fakeTickets struct {
	stale      []domain.Ticket
	listErr    error
	failIDs    map[string]bool
	minAge     time.Duration
	limit      int
	reclassify []string
}

func (f *fakeTickets) ListStaleProcessing(_ context.Context, minAge time.Duration, limit int) ([]domain.Ticket, error) {
	f.minAge, f.limit = minAge, limit
	return f.stale, f.listErr
}

func (f *fakeTickets) Reclassify(_ context.Context, id string) (*domain.Ticket, error) {
	f.reclassify = append(f.reclassify, id)
	if f.failIDs[id] {
		return nil, errors.New("store down")
	}
	return &domain.Ticket{ID: id, Status: domain.TicketStatusNew}, nil
}

func TestRunOnceReclassifiesStaleTickets(t *testing.T) {
	fake := &fakeTickets{
		stale:   []domain.Ticket{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		failIDs: map[string]bool{"b": true},
	}
	w := NewReclassifyWorker(fake, config.SweepConfig{MinAgeSeconds: 120}, zap.NewNop())

	n, err := w.RunOnce(context.Background())
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticket b")
	assert.Equal(t, []string{"a", "b", "c"}, fake.reclassify)
	assert.Equal(t, 2*time.Minute, fake.minAge)
	assert.Equal(t, 50, fake.limit)
}

func TestRunOnceListFailure(t *testing.T) {
	fake := &fakeTickets{listErr: errors.New("db down")}
	w := NewReclassifyWorker(fake, config.SweepConfig{BatchSize: 5}, nil)

	n, err := w.RunOnce(context.Background())
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, fake.reclassify)
}

func TestStartSchedule(t *testing.T) {
	w := NewReclassifyWorker(&fakeTickets{}, config.SweepConfig{}, nil)
	require.NoError(t, w.Start())
	w.Stop(context.Background())

	w = NewReclassifyWorker(&fakeTickets{}, config.SweepConfig{Schedule: "not a schedule"}, nil)
	assert.Error(t, w.Start())

	w = NewReclassifyWorker(&fakeTickets{}, config.SweepConfig{Schedule: "@every 1m"}, nil)
	require.NoError(t, w.Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(ctx)
}
