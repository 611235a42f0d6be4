// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiredJobCloser closes open jobs whose date has passed.
type ExpiredJobCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	closer ExpiredJobCloser
	logger *slog.Logger
	now    func() time.Time
}

// New registers the expired-job sweep under spec, a standard five-field
// cron expression or a descriptor such as "@hourly".
func New(spec string, closer ExpiredJobCloser, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		closer: closer,
		logger: logger,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.closeExpired); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) closeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := s.now()
	closed, err := s.closer.CloseExpired(ctx, start)
	if err != nil {
		s.logger.Error("close expired jobs failed",
			"operation", "scheduler.close_expired", "outcome", "failure", "error", err)
		return
	}
	s.logger.Info("closed expired jobs",
		"operation", "scheduler.close_expired", "outcome", "success",
		"closed", closed, "duration_ms", time.Since(start).Milliseconds())
}
