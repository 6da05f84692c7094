// Package sheetshot renders a spreadsheet range into images and delivers
// them to a chat as a single album.
//
// Example usage:
//
//	cfg := sheetshot.DefaultConfig()
//	cfg.SpreadsheetID = "1AbC..."
//	cfg.TelegramToken = os.Getenv("BOT_TOKEN")
//	cfg.ChatID = "-100123"
//	if err := sheetshot.ResolveSheetInfo(ctx, &cfg); err != nil {
//	    log.Fatal(err)
//	}
//	report, err := sheetshot.Run(ctx, cfg)
//
// For scheduled mode, plugins and custom adapters use pkg/sheetshot.
package sheetshot

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bft-labs/sheetshot/internal/cliconfig"
	logpkg "github.com/bft-labs/sheetshot/pkg/log"
	lib "github.com/bft-labs/sheetshot/pkg/sheetshot"
)

// Config holds the configuration of a single run.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Report summarizes a finished run.
type Report = lib.Report

// DefaultConfig returns a Config with sensible default values.
// At minimum, set SpreadsheetID and either a delivery target or DryRun.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// ResolveSheetInfo reads the last occupied row and, when CaptionCell is
// set, the caption from the workbook. Values already set are kept.
func ResolveSheetInfo(ctx context.Context, cfg *Config) error {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	insp := cliconfig.NewInspector(*cfg, client, logpkg.NewZerologAdapterWithLogger(Logger()))
	return cliconfig.ResolveSheetInfo(ctx, cfg, insp)
}

// Run renders every chunk and delivers the album once. It blocks until
// the run is over and delivers nothing if any chunk fails.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	s, err := lib.New(cfg.ToLibrary(), lib.WithLogger(logpkg.NewZerologAdapterWithLogger(Logger())))
	if err != nil {
		return Report{}, fmt.Errorf("create sheetshot: %w", err)
	}
	defer s.Close()
	return s.Run(ctx)
}

// Logger returns the package-level zerolog logger.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}
