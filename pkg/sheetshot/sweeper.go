package sheetshot

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/sheetshot/internal/ports"
)

// SweepConfig holds configuration options for removing stale staged files.
// Runs that crash or are killed leave their namespace behind; the sweeper
// deletes every entry older than MaxAge while the instance is scheduled.
type SweepConfig struct {
	// Enabled controls whether sweeping is active. Default: false
	Enabled bool

	// CheckInterval is how often to sweep. Default: MaxAge / 2, at least
	// one second.
	CheckInterval time.Duration

	// MaxAge is the age above which staged files are deleted.
	// Default: Config.SweepAge
	MaxAge time.Duration
}

// WithSweeper enables the stale staging sweeper in scheduled mode.
// It only has an effect when the staging area supports sweeping.
//
// Usage:
//
//	s, err := sheetshot.New(cfg,
//	    sheetshot.WithSweeper(sheetshot.SweepConfig{
//	        Enabled: true,
//	        MaxAge:  6 * time.Hour,
//	    }),
//	)
func WithSweeper(cfg SweepConfig) Option {
	if !cfg.Enabled {
		return func(o *options) {}
	}
	return func(o *options) {
		o.sweep = &cfg
	}
}

// minSweepInterval is the shortest period between two sweeps.
const minSweepInterval = time.Second

// sweepable is implemented by staging areas that can drop old entries.
type sweepable interface {
	Sweep(ctx context.Context, maxAge time.Duration, now time.Time) (int, error)
}

// sweepRunner manages the sweeper goroutine.
type sweepRunner struct {
	checkInterval time.Duration
	maxAge        time.Duration

	target sweepable
	logger ports.Logger
	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSweepRunner(cfg SweepConfig, defaultAge time.Duration, target sweepable, logger ports.Logger) *sweepRunner {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultAge
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = cfg.MaxAge / 2
	}
	if cfg.CheckInterval < minSweepInterval {
		cfg.CheckInterval = minSweepInterval
	}
	return &sweepRunner{
		checkInterval: cfg.CheckInterval,
		maxAge:        cfg.MaxAge,
		target:        target,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *sweepRunner) start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info("staging sweeper enabled",
		ports.Duration("max_age", s.maxAge),
		ports.Duration("interval", s.checkInterval))

	s.wg.Add(1)
	go s.loop(sweepCtx)
}

func (s *sweepRunner) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *sweepRunner) loop(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately on startup
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *sweepRunner) sweepOnce(ctx context.Context) int {
	removed, err := s.target.Sweep(ctx, s.maxAge, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("staging sweep failed", ports.Err(err))
		}
		return removed
	}
	if removed > 0 {
		s.logger.Info("staging sweep completed", ports.Int("removed", removed))
	}
	return removed
}
