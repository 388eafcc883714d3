// Package scheduler runs the learning job on a fixed interval. It is a
// background goroutine that respects context cancellation for graceful
// shutdown; a cycle that overlaps a manually triggered run is skipped
// rather than queued.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/internal/learning"
)

// minInterval is the shortest cycle the scheduler will accept.
const minInterval = time.Minute

// Scheduler triggers periodic learning passes.
type Scheduler struct {
	svc      *learning.Service
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a scheduler that runs the learning job on the given interval.
func New(svc *learning.Service, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval < minInterval {
		interval = time.Hour
	}
	return &Scheduler{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start runs the scheduler loop. It blocks until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("🕐 Learning scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Learning scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	report, err := s.svc.Run(ctx)
	if err != nil {
		if errors.Is(err, learning.ErrAlreadyRunning) {
			s.logger.Debug().Msg("Learning run already in flight, skipping cycle")
			return
		}
		s.logger.Warn().Err(err).Msg("Scheduled learning run failed")
		return
	}

	s.logger.Info().
		Int("adjustments", len(report.AdjustmentsApplied)).
		Str("message", report.Message).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled learning run complete")
}
