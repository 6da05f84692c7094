package sheetshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/sheetshot/internal/adapters/convert"
	httpAdapter "github.com/bft-labs/sheetshot/internal/adapters/http"
	"github.com/bft-labs/sheetshot/internal/adapters/staging"
	"github.com/bft-labs/sheetshot/internal/app"
	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
	"github.com/bft-labs/sheetshot/pkg/log"
	"github.com/bft-labs/sheetshot/pkg/sender"
)

// Sheetshot renders a spreadsheet range into an image album and delivers
// it. Use New() to create an instance, then Run() for a single run or
// Start() for scheduled mode.
type Sheetshot struct {
	opts      options
	lifecycle *app.Lifecycle
	job       *app.Job
	emitter   *eventEmitterWrapper
	logger    ports.Logger

	// Plugin support
	plugins []Plugin

	// Sweeper (config-based, not a plugin)
	sweeper *sweepRunner

	// closers release adapters opened by New, in reverse order.
	closers []io.Closer

	cfgMu  sync.RWMutex
	config Config

	mu        sync.Mutex
	scheduler *app.Scheduler
}

// Report summarizes a finished run.
type Report struct {
	RunID     string
	Images    int
	Delivered bool
	Duration  time.Duration
}

// New creates a new Sheetshot instance with the given configuration.
// The instance is created in StateStopped. Returns an error if the
// configuration is invalid or an adapter cannot be opened; call Close
// to release what New opened.
func New(cfg Config, opts ...Option) (*Sheetshot, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	o := defaultOptions(httpClient)
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	s := &Sheetshot{
		opts:    o,
		emitter: &eventEmitterWrapper{handler: o.eventHandler},
		logger:  logger,
		plugins: o.plugins,
		config:  cfg,
	}
	s.lifecycle = app.NewLifecycle(logger, s.emitter)

	if err := s.build(cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// build wires the adapters and the job.
func (s *Sheetshot) build(cfg Config) error {
	o := s.opts

	conv := o.converter
	if conv == nil {
		c, err := newConverter(cfg, s.logger)
		if err != nil {
			return err
		}
		conv = c
		if closer, ok := c.(io.Closer); ok {
			s.closers = append(s.closers, closer)
		}
	}

	stage := o.staging
	if stage == nil {
		b, err := staging.Open(context.Background(), cfg.StagingURL)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, b)
		stage = b
	}
	if o.sweep != nil {
		if target, ok := stage.(sweepable); ok {
			s.sweeper = newSweepRunner(*o.sweep, cfg.SweepAge, target, s.logger)
		} else {
			s.logger.Warn("staging sweeper disabled: staging area cannot sweep")
		}
	}

	albumSender := o.albumSender
	if albumSender == nil {
		albumSender = telegramAlbumSender{tg: sender.NewTelegramSender(o.httpClient, sender.Options{
			BotToken: cfg.TelegramToken,
			APIURL:   cfg.TelegramURL,
		})}
	}

	var sink app.ArtifactSink
	if cfg.DryRun {
		sink = o.artifactSink
		if sink == nil {
			out, err := staging.OpenDir(cfg.OutputDir)
			if err != nil {
				return err
			}
			s.closers = append(s.closers, out)
			sink = out
		}
	}

	exporter := httpAdapter.NewSheetsExporter(o.httpClient, cfg.ExportURL, s.logger)
	fetcher := app.NewFetcher(cfg.MaxAttempts, cfg.backoffPolicy(), s.logger, s.emitter)
	renderer := app.NewRenderer(app.RendererConfig{
		CallTimeout: cfg.CallTimeout,
		KeepStaging: cfg.KeepStaging,
	}, exporter, conv, stage, fetcher, s.logger)
	pipeline := app.NewPipeline(renderer, s.logger, s.emitter)
	assembler := app.NewAssembler(albumSender, sender.MaxAlbumSize, s.logger)

	s.job = app.NewJob(app.JobConfig{DryRun: cfg.DryRun}, pipeline, assembler, sink, s.logger, s.emitter)
	return nil
}

func newConverter(cfg Config, logger ports.Logger) (ports.Converter, error) {
	switch cfg.Converter {
	case ConverterPdfium:
		return convert.NewPdfiumConverter(cfg.pdfiumConfig(), logger)
	default:
		return convert.NewExecConverter(convert.ExecConfig{DPI: cfg.DPI}, logger), nil
	}
}

// Run performs one run: plan, render every chunk, and deliver the album
// only when every chunk succeeded. It blocks until the run is over.
func (s *Sheetshot) Run(ctx context.Context) (Report, error) {
	report, err := s.job.Execute(ctx, s.Config().request())
	s.emitter.OnRunFinished(report, err)
	return Report{
		RunID:     report.RunID,
		Images:    report.Images,
		Delivered: report.Delivered,
		Duration:  report.Took,
	}, err
}

// nextRequest builds the request of a scheduled run, refreshing the
// configuration first when WithRefresh was given.
func (s *Sheetshot) nextRequest(ctx context.Context) (domain.Request, error) {
	if s.opts.refresh == nil {
		return s.Config().request(), nil
	}
	cfg, err := s.opts.refresh(ctx, s.Config())
	if err != nil {
		return domain.Request{}, fmt.Errorf("refresh configuration: %w", err)
	}
	if err := s.UpdateConfig(cfg); err != nil {
		return domain.Request{}, fmt.Errorf("refresh configuration: %w", err)
	}
	return s.Config().request(), nil
}

// Config returns the configuration used by the next run.
func (s *Sheetshot) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.config
}

// UpdateConfig validates cfg and uses it for subsequent runs. Only the
// fields that describe a run take effect: sheet, rows, columns, chunking,
// caption, chat and concurrency. Adapter settings need a new instance.
func (s *Sheetshot) UpdateConfig(cfg Config) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.config = cfg
	s.cfgMu.Unlock()
	s.logger.Info("configuration updated", ports.Int("last_row", cfg.LastRow))
	return nil
}

// Trigger requests an immediate run in scheduled mode. It is a no-op
// when the instance is not scheduled.
func (s *Sheetshot) Trigger() {
	s.mu.Lock()
	sched := s.scheduler
	s.mu.Unlock()
	if sched != nil {
		sched.Trigger()
	}
}

// Start begins scheduled mode in the background: one run immediately,
// then one every Config.Every. Returns immediately after starting the
// scheduler goroutine. The provided context bounds the whole schedule.
func (s *Sheetshot) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	every := s.Config().Every
	if every <= 0 {
		return fmt.Errorf("%w: scheduled mode needs a positive interval", domain.ErrInvalidConfig)
	}

	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		Config:     s.Config(),
		Logger:     s.logger,
		Controller: s,
	}
	for _, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if s.sweeper != nil {
		s.sweeper.start(runCtx)
	}

	sched := app.NewScheduler(every, s.job, s.nextRequest, s.logger, s.emitter)
	s.scheduler = sched

	s.lifecycle.Go(func() {
		if err := s.lifecycle.TransitionTo(app.StateRunning, "scheduler starting"); err != nil {
			s.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := sched.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("scheduler error", ports.Err(err))
			_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})

	return nil
}

// Stop ends scheduled mode. An in-flight run is cancelled; Stop waits up
// to 30 seconds for it to return. Returns nil on graceful shutdown,
// ErrShutdownTimeout if forced.
func (s *Sheetshot) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lifecycle.Cancel()
	s.scheduler = nil
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	if s.sweeper != nil {
		s.sweeper.stop()
	}

	// Shutdown plugins (in reverse order)
	shutdownCtx := context.Background()
	for i := len(s.plugins) - 1; i >= 0; i-- {
		p := s.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Sheetshot) Status() State {
	return convertState(s.lifecycle.State())
}

// Close releases the converter, staging bucket and output directory
// opened by New. Options supplied by the caller are left open.
func (s *Sheetshot) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	for name, m := range moduleVersionTable() {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
