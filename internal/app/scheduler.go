package app

import (
	"context"
	"time"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// RequestSource returns the request for the next run. It is consulted
// before every run so reloaded configuration takes effect. An error
// fails that run only.
type RequestSource func(ctx context.Context) (domain.Request, error)

// RunEventEmitter is notified after every scheduled run.
type RunEventEmitter interface {
	OnRunFinished(report Report, err error)
}

// Scheduler repeats a Job on a fixed interval and on demand.
// A failed run is logged and reported but does not stop the loop.
type Scheduler struct {
	interval time.Duration
	job      *Job
	source   RequestSource
	logger   ports.Logger
	emitter  RunEventEmitter
	trigger  chan struct{}
}

// NewScheduler creates a Scheduler. emitter may be nil.
func NewScheduler(interval time.Duration, job *Job, source RequestSource, logger ports.Logger, emitter RunEventEmitter) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
		source:   source,
		logger:   logger,
		emitter:  emitter,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a run as soon as the current one (if any) finishes.
// Requests made while one is already pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run executes one run immediately, then one per interval or trigger,
// until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.trigger:
			ticker.Reset(s.interval)
		}
		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	var report Report
	req, err := s.source(ctx)
	if err == nil {
		report, err = s.job.Execute(ctx, req)
	}
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scheduled run failed", ports.String("run_id", report.RunID), ports.Err(err))
		}
	} else {
		s.logger.Info("scheduled run complete",
			ports.String("run_id", report.RunID),
			ports.Int("images", report.Images),
			ports.Duration("took", report.Took),
			ports.Duration("next_in", s.interval),
		)
	}
	if s.emitter != nil {
		s.emitter.OnRunFinished(report, err)
	}
}
