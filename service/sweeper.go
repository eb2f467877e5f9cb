package service

import (
	"context"
	"time"

	"github.com/ANAVHEOBA/dumzfun/internal/logctx"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

// DefaultSweepInterval is how often expired and invalid sessions are
// purged from the store.
const DefaultSweepInterval = time.Hour

// SessionSweeper periodically deletes defunct session rows. Expired
// sessions are already invisible to lookups; the sweeper only keeps the
// table from growing without bound.
type SessionSweeper struct {
	sessions ports.SessionRepository
	interval time.Duration
}

func NewSessionSweeper(sessions ports.SessionRepository, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionSweeper{sessions: sessions, interval: interval}
}

// Run sweeps until ctx is cancelled. One sweep happens immediately on
// start.
func (s *SessionSweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	removed, err := s.sessions.DeleteDefunct(ctx, time.Now())
	if err != nil {
		logctx.From(ctx).Error("session sweep failed", "err", err)
		return
	}
	if removed > 0 {
		logctx.From(ctx).Info("swept defunct sessions", "removed", removed)
	}
}
