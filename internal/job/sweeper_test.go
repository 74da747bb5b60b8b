package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/logging"
)

type fakeStore struct {
	mu         sync.Mutex
	markedAt   []time.Time
	cutoffs    []time.Time
	markErr    error
	deleteErr  error
	markedRows int64
}

func (f *fakeStore) MarkExpiredBefore(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedAt = append(f.markedAt, now)
	return f.markedRows, f.markErr
}

func (f *fakeStore) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 1, f.deleteErr
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

type recordingLogger struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
}
func (r *recordingLogger) Debug(_ context.Context, msg string, _ ...any) { r.record(msg) }
func (r *recordingLogger) Info(_ context.Context, msg string, _ ...any)  { r.record(msg) }
func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { r.record(msg) }
func (r *recordingLogger) Error(_ context.Context, msg string, _ ...any) { r.record(msg) }
func (r *recordingLogger) With(...any) logging.Logger                    { return r }

func TestSweepOnce(t *testing.T) {
	store := &fakeStore{markedRows: 3}
	log := &recordingLogger{}
	s := NewSweeper(store, log, time.Minute, 30*time.Minute)
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.SweepOnce(context.Background())

	require.Len(t, store.markedAt, 1)
	assert.Equal(t, now, store.markedAt[0])
	assert.Equal(t, now.Add(-30*time.Minute), store.cutoffs[0])
	assert.Equal(t, []string{"expired_token_marked", "expired_token_deleted"}, log.events)
}

func TestSweepOnce_StepsAreIndependent(t *testing.T) {
	store := &fakeStore{markErr: errors.New("lock wait timeout")}
	log := &recordingLogger{}
	s := NewSweeper(store, log, time.Minute, time.Minute)

	s.SweepOnce(context.Background())
	assert.Equal(t, 1, store.calls(), "delete still runs")
	assert.Equal(t, []string{"mark_tokens_exp_failed", "expired_token_deleted"}, log.events)

	store.markErr, store.deleteErr = nil, errors.New("gone")
	log.events = nil
	s.SweepOnce(context.Background())
	assert.Equal(t, []string{"clean_tokens_failed"}, log.events)
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	s := NewSweeper(store, nil, 5*time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
