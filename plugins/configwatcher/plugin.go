// Package configwatcher reloads a scheduled sheetshot instance when its
// configuration files change. Changed files are reloaded after a short
// debounce, the result is swapped in through the instance controller and,
// unless disabled, an immediate run is triggered.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/sheetshot/pkg/sheetshot"
)

// LoadFunc rebuilds the configuration from its sources.
type LoadFunc func(ctx context.Context) (sheetshot.Config, error)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	paths         []string
	load          LoadFunc
	retryInterval time.Duration
	maxRetries    int
	debounceDelay time.Duration
	noTrigger     bool

	// Runtime state
	logger     sheetshot.Logger
	controller sheetshot.Controller
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
	reloads    int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Paths are the files to watch. Their directories are watched so that
	// editors replacing a file by rename are noticed.
	Paths []string

	// Load rebuilds the configuration. Required.
	Load LoadFunc

	// RetryInterval is the delay between attempts when Load fails.
	// Default: 1 second
	RetryInterval time.Duration

	// MaxRetries bounds reload attempts per change. Default: 3
	MaxRetries int

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// NoTrigger swaps the configuration in without starting a run.
	NoTrigger bool
}

// DefaultConfig returns a Config with sensible defaults. Paths and Load
// must still be set.
func DefaultConfig() Config {
	return Config{
		RetryInterval: time.Second,
		MaxRetries:    3,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		paths:         cfg.Paths,
		load:          cfg.Load,
		retryInterval: cfg.RetryInterval,
		maxRetries:    cfg.MaxRetries,
		debounceDelay: cfg.DebounceDelay,
		noTrigger:     cfg.NoTrigger,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts the watcher. With no paths or no loader it logs and
// stays idle.
func (p *Plugin) Initialize(ctx context.Context, cfg sheetshot.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.controller = cfg.Controller
	p.mu.Unlock()

	if len(p.paths) == 0 || p.load == nil {
		p.logger.Warn("config watcher disabled: no paths or loader configured")
		return nil
	}
	if p.controller == nil {
		return errors.New("config watcher: no controller")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	watched := make(map[string]bool)
	for _, path := range p.paths {
		dir := filepath.Dir(path)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("config watcher: watch %s: %w", dir, err)
		}
		watched[dir] = true
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized", sheetshot.LogField{Key: "files", Value: len(p.paths)})

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.debounce = nil
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Reloads returns how many reloads were applied.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	names := make(map[string]bool, len(p.paths))
	for _, path := range p.paths {
		names[filepath.Clean(path)] = true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !names[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", sheetshot.LogField{Key: "error", Value: err})
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A timer stopped before firing never runs its func, so its slot is
	// released here.
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}

	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		p.reloadWithRetry(ctx)
	})
}

// reloadWithRetry loads and applies the configuration. Files caught
// mid-write fail to parse, so a failed load is retried a few times.
func (p *Plugin) reloadWithRetry(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		cfg, err := p.load(ctx)
		if err == nil {
			err = p.controller.UpdateConfig(cfg)
		}
		if err == nil {
			p.mu.Lock()
			p.reloads++
			p.mu.Unlock()
			p.logger.Info("config watcher: configuration reloaded")
			if !p.noTrigger {
				p.controller.Trigger()
			}
			return
		}
		lastErr = err
		if attempt == p.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryInterval):
		}
	}
	p.logger.Error("config watcher: reload failed, keeping previous configuration",
		sheetshot.LogField{Key: "error", Value: lastErr})
}

// Ensure Plugin implements sheetshot.Plugin.
var _ sheetshot.Plugin = (*Plugin)(nil)
