package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id"`
	GID             string `toml:"gid"`
	SheetName       string `toml:"sheet_name"`
	Columns         string `toml:"columns"`
	LastRow         int    `toml:"last_row"`
	Caption         string `toml:"caption"`
	CaptionCell     string `toml:"caption_cell"`
	MaxRowsPerChunk int    `toml:"max_rows_per_chunk"`
	MergeThreshold  int    `toml:"merge_threshold"`
	NoMerge         *bool  `toml:"no_merge"`
	Concurrency     int    `toml:"concurrency"`
	MaxAttempts     int    `toml:"max_attempts"`
	Backoff         string `toml:"backoff"`
	BackoffBase     string `toml:"backoff_base"`
	BackoffJitter   string `toml:"backoff_jitter"`
	BackoffMax      string `toml:"backoff_max"`
	CallTimeout     string `toml:"call_timeout"`
	HTTPTimeout     string `toml:"http_timeout"`
	Converter       string `toml:"converter"`
	DPI             int    `toml:"dpi"`
	StagingURL      string `toml:"staging_url"`
	KeepStaging     *bool  `toml:"keep_staging"`
	AccessToken     string `toml:"access_token"`
	TelegramToken   string `toml:"telegram_token"`
	ChatID          string `toml:"chat_id"`
	TelegramURL     string `toml:"telegram_url"`
	ExportURL       string `toml:"export_url"`
	Every           string `toml:"every"`
	SweepAge        string `toml:"sweep_age"`
	OutputDir       string `toml:"output_dir"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.sheetshot/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".sheetshot", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("spreadsheet-id", fc.SpreadsheetID, &cfg.SpreadsheetID)
	s.setString("gid", fc.GID, &cfg.GID)
	s.setString("sheet-name", fc.SheetName, &cfg.SheetName)
	s.setString("columns", fc.Columns, &cfg.Columns)
	s.setString("caption", fc.Caption, &cfg.Caption)
	s.setString("caption-cell", fc.CaptionCell, &cfg.CaptionCell)
	s.setString("backoff", fc.Backoff, &cfg.Backoff)
	s.setString("converter", fc.Converter, &cfg.Converter)
	s.setString("staging-url", fc.StagingURL, &cfg.StagingURL)
	s.setString("access-token", fc.AccessToken, &cfg.AccessToken)
	s.setString("telegram-token", fc.TelegramToken, &cfg.TelegramToken)
	s.setString("chat-id", fc.ChatID, &cfg.ChatID)
	s.setString("telegram-url", fc.TelegramURL, &cfg.TelegramURL)
	s.setString("export-url", fc.ExportURL, &cfg.ExportURL)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)

	s.setInt("last-row", fc.LastRow, &cfg.LastRow)
	s.setInt("max-rows", fc.MaxRowsPerChunk, &cfg.MaxRowsPerChunk)
	s.setInt("merge-threshold", fc.MergeThreshold, &cfg.MergeThreshold)
	s.setInt("concurrency", fc.Concurrency, &cfg.Concurrency)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)
	s.setInt("dpi", fc.DPI, &cfg.DPI)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"backoff-base", fc.BackoffBase, &cfg.BackoffBase},
		{"backoff-jitter", fc.BackoffJitter, &cfg.BackoffJitter},
		{"backoff-max", fc.BackoffMax, &cfg.BackoffMax},
		{"call-timeout", fc.CallTimeout, &cfg.CallTimeout},
		{"timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"every", fc.Every, &cfg.Every},
		{"sweep-age", fc.SweepAge, &cfg.SweepAge},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("no-merge", fc.NoMerge, &cfg.NoMerge)
	s.setBool("keep-staging", fc.KeepStaging, &cfg.KeepStaging)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
