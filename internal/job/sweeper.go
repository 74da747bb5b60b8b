// Package job holds background work that runs beside the HTTP server.
package job

import (
	"context"
	"time"

	"github.com/iliyamo/storefront-api/internal/logging"
)

// TokenSweepStore is the slice of the verification token store the
// sweeper needs.
type TokenSweepStore interface {
	MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper marks overdue ACTIVE verification tokens EXPIRED and deletes
// EXPIRED/USED tokens once they are older than the retention period.
type Sweeper struct {
	store     TokenSweepStore
	log       logging.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewSweeper(store TokenSweepStore, log logging.Logger, interval, retention time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Sweeper{store: store, log: log, interval: interval, retention: retention, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs both steps. A failing step is logged and does not stop
// the other.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.now()

	if n, err := s.store.MarkExpiredBefore(ctx, now); err != nil {
		s.log.Error(ctx, "mark_tokens_exp_failed", "error", err)
	} else if n > 0 {
		s.log.Info(ctx, "expired_token_marked", "count", n)
	}

	cutoff := now.Add(-s.retention)
	if n, err := s.store.DeleteStale(ctx, cutoff); err != nil {
		s.log.Error(ctx, "clean_tokens_failed", "error", err)
	} else if n > 0 {
		s.log.Info(ctx, "expired_token_deleted", "count", n, "cutoff", cutoff)
	}
}
