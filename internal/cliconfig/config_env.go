package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no env file is named explicitly.
const DefaultEnvFile = ".env"

// LoadDotEnv exports the variables of a .env file into the process
// environment. Variables already set are left alone, so the real
// environment wins over the file. A missing default file is not an error.
func LoadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvConfig applies configuration from environment variables (SHEETSHOT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("spreadsheet-id", os.Getenv("SHEETSHOT_SPREADSHEET_ID"), &cfg.SpreadsheetID)
	s.setString("gid", os.Getenv("SHEETSHOT_GID"), &cfg.GID)
	s.setString("sheet-name", os.Getenv("SHEETSHOT_SHEET_NAME"), &cfg.SheetName)
	s.setString("columns", os.Getenv("SHEETSHOT_COLUMNS"), &cfg.Columns)
	s.setString("caption", os.Getenv("SHEETSHOT_CAPTION"), &cfg.Caption)
	s.setString("caption-cell", os.Getenv("SHEETSHOT_CAPTION_CELL"), &cfg.CaptionCell)
	s.setString("backoff", os.Getenv("SHEETSHOT_BACKOFF"), &cfg.Backoff)
	s.setString("converter", os.Getenv("SHEETSHOT_CONVERTER"), &cfg.Converter)
	s.setString("staging-url", os.Getenv("SHEETSHOT_STAGING_URL"), &cfg.StagingURL)
	s.setString("access-token", os.Getenv("SHEETSHOT_ACCESS_TOKEN"), &cfg.AccessToken)
	s.setString("telegram-token", os.Getenv("SHEETSHOT_TELEGRAM_TOKEN"), &cfg.TelegramToken)
	s.setString("chat-id", os.Getenv("SHEETSHOT_CHAT_ID"), &cfg.ChatID)
	s.setString("telegram-url", os.Getenv("SHEETSHOT_TELEGRAM_URL"), &cfg.TelegramURL)
	s.setString("export-url", os.Getenv("SHEETSHOT_EXPORT_URL"), &cfg.ExportURL)
	s.setString("output-dir", os.Getenv("SHEETSHOT_OUTPUT_DIR"), &cfg.OutputDir)

	ints := []struct {
		flag string
		env  string
		dst  *int
	}{
		{"last-row", "SHEETSHOT_LAST_ROW", &cfg.LastRow},
		{"max-rows", "SHEETSHOT_MAX_ROWS_PER_CHUNK", &cfg.MaxRowsPerChunk},
		{"merge-threshold", "SHEETSHOT_MERGE_THRESHOLD", &cfg.MergeThreshold},
		{"concurrency", "SHEETSHOT_CONCURRENCY", &cfg.Concurrency},
		{"max-attempts", "SHEETSHOT_MAX_ATTEMPTS", &cfg.MaxAttempts},
		{"dpi", "SHEETSHOT_DPI", &cfg.DPI},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, os.Getenv(i.env), i.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		flag string
		env  string
		dst  *time.Duration
	}{
		{"backoff-base", "SHEETSHOT_BACKOFF_BASE", &cfg.BackoffBase},
		{"backoff-jitter", "SHEETSHOT_BACKOFF_JITTER", &cfg.BackoffJitter},
		{"backoff-max", "SHEETSHOT_BACKOFF_MAX", &cfg.BackoffMax},
		{"call-timeout", "SHEETSHOT_CALL_TIMEOUT", &cfg.CallTimeout},
		{"timeout", "SHEETSHOT_HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"every", "SHEETSHOT_EVERY", &cfg.Every},
		{"sweep-age", "SHEETSHOT_SWEEP_AGE", &cfg.SweepAge},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, os.Getenv(d.env), d.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("no-merge", os.Getenv("SHEETSHOT_NO_MERGE"), &cfg.NoMerge)
	s.setBoolFromString("keep-staging", os.Getenv("SHEETSHOT_KEEP_STAGING"), &cfg.KeepStaging)
	s.setBoolFromString("dry-run", os.Getenv("SHEETSHOT_DRY_RUN"), &cfg.DryRun)

	return nil
}
