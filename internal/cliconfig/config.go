package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	httpAdapter "github.com/bft-labs/sheetshot/internal/adapters/http"
	"github.com/bft-labs/sheetshot/internal/adapters/staging"
	"github.com/bft-labs/sheetshot/internal/app"
	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/pkg/sender"
	"github.com/bft-labs/sheetshot/pkg/sheetshot"
)

const masked = "*****"

// Config holds CLI configuration for sheetshot.
type Config struct {
	SpreadsheetID string
	GID           string
	SheetName     string
	Columns       string
	LastRow       int

	Caption     string
	CaptionCell string

	MaxRowsPerChunk int
	MergeThreshold  int
	NoMerge         bool
	Concurrency     int

	MaxAttempts   int
	Backoff       string
	BackoffBase   time.Duration
	BackoffJitter time.Duration
	BackoffMax    time.Duration

	CallTimeout time.Duration
	HTTPTimeout time.Duration

	Converter   string
	DPI         int
	StagingURL  string
	KeepStaging bool

	AccessToken   string
	TelegramToken string
	ChatID        string
	TelegramURL   string
	ExportURL     string

	Every    time.Duration
	SweepAge time.Duration

	DryRun    bool
	OutputDir string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Columns:         domain.DefaultColumns,
		MaxRowsPerChunk: domain.DefaultMaxRowsPerChunk,
		MergeThreshold:  domain.DefaultMergeThreshold,
		Concurrency:     domain.DefaultConcurrency,
		MaxAttempts:     app.DefaultMaxAttempts,
		Backoff:         app.BackoffJitter,
		BackoffBase:     app.DefaultBackoffBase,
		BackoffJitter:   app.DefaultBackoffJitter,
		BackoffMax:      app.DefaultBackoffMax,
		CallTimeout:     app.DefaultCallTimeout,
		HTTPTimeout:     sheetshot.DefaultHTTPTimeout,
		Converter:       sheetshot.ConverterExec,
		DPI:             sheetshot.DefaultDPI,
		StagingURL:      staging.DefaultURL,
		TelegramURL:     sender.DefaultAPIURL,
		ExportURL:       httpAdapter.DefaultExportURL,
		SweepAge:        sheetshot.DefaultSweepAge,
		OutputDir:       sheetshot.DefaultOutputDir,
	}
}

// Validate checks the fields the CLI owns and normalizes URLs.
// Everything else is checked by sheetshot.Config.Validate.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet-id is required")
	}
	if c.LastRow < 0 {
		return fmt.Errorf("last-row must not be negative")
	}

	c.TelegramURL = strings.TrimRight(c.TelegramURL, "/")
	c.ExportURL = strings.TrimRight(c.ExportURL, "/")

	if !c.DryRun && (c.TelegramToken == "" || c.ChatID == "") {
		return fmt.Errorf("telegram-token and chat-id are required (or --dry-run)")
	}
	return nil
}

// NeedsInspection reports whether sheet metadata must be read from the
// workbook before a run.
func (c Config) NeedsInspection() bool {
	return c.LastRow == 0 || (c.Caption == "" && c.CaptionCell != "")
}

// ToLibrary converts the CLI configuration to the library configuration.
func (c Config) ToLibrary() sheetshot.Config {
	return sheetshot.Config{
		SpreadsheetID:   c.SpreadsheetID,
		GID:             c.GID,
		SheetName:       c.SheetName,
		Columns:         c.Columns,
		LastRow:         c.LastRow,
		Caption:         c.Caption,
		MaxRowsPerChunk: c.MaxRowsPerChunk,
		MergeThreshold:  c.MergeThreshold,
		NoMerge:         c.NoMerge,
		Concurrency:     c.Concurrency,
		MaxAttempts:     c.MaxAttempts,
		Backoff:         c.Backoff,
		BackoffBase:     c.BackoffBase,
		BackoffJitter:   c.BackoffJitter,
		BackoffMax:      c.BackoffMax,
		CallTimeout:     c.CallTimeout,
		HTTPTimeout:     c.HTTPTimeout,
		Converter:       c.Converter,
		DPI:             c.DPI,
		StagingURL:      c.StagingURL,
		KeepStaging:     c.KeepStaging,
		AccessToken:     c.AccessToken,
		TelegramToken:   c.TelegramToken,
		ChatID:          c.ChatID,
		TelegramURL:     c.TelegramURL,
		ExportURL:       c.ExportURL,
		Every:           c.Every,
		SweepAge:        c.SweepAge,
		DryRun:          c.DryRun,
		OutputDir:       c.OutputDir,
	}
}

// Masked returns a copy safe for logging.
func (c Config) Masked() Config {
	if c.AccessToken != "" {
		c.AccessToken = masked
	}
	if c.TelegramToken != "" {
		c.TelegramToken = masked
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
