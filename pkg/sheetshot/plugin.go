package sheetshot

import "context"

// Plugin extends a scheduled Sheetshot instance. Plugins are initialized
// by Start in registration order and shut down by Stop in reverse order.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called once per Start. A non-nil error aborts Start
	// and leaves the instance in StateCrashed.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called once per Stop.
	Shutdown(ctx context.Context) error
}

// Controller is the part of a running instance a plugin may drive.
type Controller interface {
	// Config returns the configuration used by the next run.
	Config() Config

	// UpdateConfig validates cfg and swaps it in for subsequent runs.
	UpdateConfig(cfg Config) error

	// Trigger requests an immediate run.
	Trigger()
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	Config     Config
	Logger     Logger
	Controller Controller
}

// BasePlugin implements Plugin with no-ops. Embed it and override Name.
type BasePlugin struct{}

func (BasePlugin) Name() string                                         { return "base" }
func (BasePlugin) Initialize(ctx context.Context, _ PluginConfig) error { return nil }
func (BasePlugin) Shutdown(ctx context.Context) error                   { return nil }
