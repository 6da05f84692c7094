// Package sheetshot provides an embeddable spreadsheet-to-album renderer.
//
// Sheetshot exports a row range of a spreadsheet in chunks, converts every
// chunk into a trimmed image with bounded concurrency, and delivers the
// images as one ordered album. It can be used as a standalone CLI
// application or embedded as a library in other Go programs.
//
// # Basic Usage
//
// A single run:
//
//	cfg := sheetshot.Config{
//	    SpreadsheetID: "1AbC...",
//	    GID:           "0",
//	    LastRow:       120,
//	    Caption:       "Daily report",
//	    AccessToken:   os.Getenv("GOOGLE_TOKEN"),
//	    TelegramToken: os.Getenv("BOT_TOKEN"),
//	    ChatID:        "-1001234567890",
//	}
//
//	s, err := sheetshot.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	report, err := s.Run(ctx)
//
// Either every chunk renders and exactly one album is delivered, or the
// first chunk failure is returned and nothing is delivered.
//
// # Scheduled Mode
//
// Set Config.Every and use Start/Stop instead of Run:
//
//	cfg.Every = time.Hour
//	s, _ := sheetshot.New(cfg, sheetshot.WithSweeper(sheetshot.SweepConfig{Enabled: true}))
//	if err := s.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	// ... run until shutdown signal ...
//	_ = s.Stop()
//
// A failed scheduled run is reported through [EventHandler.OnRunFinished]
// and does not stop the schedule. [Sheetshot.Trigger] requests an extra run.
//
// # Event Handling
//
// Implement [EventHandler] (embed [BaseEventHandler] for no-op defaults)
// and pass it via [WithEventHandler]. Chunk events are called from the
// render goroutines and may arrive concurrently.
//
// # Dependency Injection
//
// For testing, you can inject custom implementations of external dependencies:
//
//	s, err := sheetshot.New(cfg,
//	    sheetshot.WithHTTPClient(mockClient),
//	    sheetshot.WithConverter(fakeConverter),
//	    sheetshot.WithLogger(customLogger),
//	)
//
// # Lifecycle States
//
// A scheduled instance is in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed].
// Use [Sheetshot.Status] to query the current state.
//
// # Plugins
//
//	import "github.com/bft-labs/sheetshot/plugins/configwatcher"
//
//	s, err := sheetshot.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{Path: "job.toml", Load: load}),
//	)
//
// # Version
//
// Use [ModuleVersions] to get versions of all sub-modules and
// [CompatibilityMatrix] to check minimum compatible versions.
package sheetshot
