package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Vasu1712/algonomic-backend/internal/metrics"
)

// Sweeper periodically discards uploads past their retention window.
type Sweeper struct {
	store   *Store
	cron    *cron.Cron
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewSweeper schedules store sweeps on schedule, a robfig/cron expression such as
// "@every 5m".
func NewSweeper(store *Store, schedule string, log logrus.FieldLogger) (*Sweeper, error) {
	s := &Sweeper{
		store:   store,
		cron:    cron.New(),
		timeout: time.Minute,
		log:     log,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running scheduled sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("retention sweeper started")
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("retention sweeper stopped")
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.store.Sweep(ctx)
	if n > 0 {
		metrics.RecordSwept(n)
		s.log.WithField("removed", n).Info("expired uploads swept")
	}
	if err != nil {
		s.log.WithError(err).Warn("retention sweep incomplete")
	}
}
