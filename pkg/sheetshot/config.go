package sheetshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/sheetshot/internal/adapters/convert"
	httpAdapter "github.com/bft-labs/sheetshot/internal/adapters/http"
	"github.com/bft-labs/sheetshot/internal/adapters/staging"
	"github.com/bft-labs/sheetshot/internal/app"
	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/pkg/sender"
)

// Converter names.
const (
	ConverterExec   = "exec"
	ConverterPdfium = "pdfium"
)

// Config holds the configuration of one rendering job.
// Call SetDefaults to fill zero values, then Validate.
type Config struct {
	// SpreadsheetID identifies the spreadsheet document. Required.
	SpreadsheetID string

	// GID selects the sheet tab for export.
	GID string

	// SheetName labels the images and selects the tab for inspection.
	SheetName string

	// Columns is the exported column span. Default: A:Z
	Columns string

	// LastRow is the last row to render. Required (>= 1); the CLI resolves
	// it from the workbook when unset.
	LastRow int

	// Caption is attached to the first image of the album.
	Caption string

	// MaxRowsPerChunk bounds each chunk. Default: 40
	MaxRowsPerChunk int

	// MergeThreshold folds a shorter final chunk into its predecessor.
	// Default: 9. Zero disables merging once SetDefaults has run; use
	// NoMerge for that.
	MergeThreshold int

	// NoMerge disables tail merging.
	NoMerge bool

	// Concurrency bounds chunk renders in flight. Default: 2
	Concurrency int

	// MaxAttempts bounds export tries per chunk. Default: 5
	MaxAttempts int

	// Backoff selects the retry delay strategy: jitter, linear or exponential.
	// Default: jitter
	Backoff string

	// BackoffBase, BackoffJitter and BackoffMax parameterize the strategy.
	// Defaults: 1s, 2s, 30s
	BackoffBase   time.Duration
	BackoffJitter time.Duration
	BackoffMax    time.Duration

	// CallTimeout bounds each export attempt and each conversion. Default: 2m
	CallTimeout time.Duration

	// HTTPTimeout is the timeout of the default HTTP client. Default: 60s
	HTTPTimeout time.Duration

	// Converter selects the conversion backend: exec or pdfium. Default: exec
	Converter string

	// DPI is the render resolution. Default: 150
	DPI int

	// StagingURL opens the staging bucket. Default: mem://
	StagingURL string

	// KeepStaging leaves staged files in place for inspection.
	KeepStaging bool

	// AccessToken authorizes the export calls.
	AccessToken string

	// TelegramToken and ChatID address the delivery. Required unless DryRun.
	TelegramToken string
	ChatID        string

	// TelegramURL overrides the Bot API base URL.
	TelegramURL string

	// ExportURL overrides the export endpoint base URL.
	ExportURL string

	// Every is the interval of scheduled mode. Zero means one shot.
	Every time.Duration

	// SweepAge is the age after which leftover staged files are removed
	// by the sweeper. Default: 24h
	SweepAge time.Duration

	// DryRun renders without delivering; images go to OutputDir.
	DryRun bool

	// OutputDir receives dry-run images. Default: ./sheetshot-out
	OutputDir string
}

// DefaultOutputDir is where dry-run images are written.
const DefaultOutputDir = "sheetshot-out"

// DefaultSweepAge is the default age of stale staged files.
const DefaultSweepAge = 24 * time.Hour

// DefaultHTTPTimeout is the default HTTP client timeout.
const DefaultHTTPTimeout = 60 * time.Second

// DefaultDPI is the default render resolution.
const DefaultDPI = 150

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Columns == "" {
		c.Columns = domain.DefaultColumns
	}
	if c.MaxRowsPerChunk == 0 {
		c.MaxRowsPerChunk = domain.DefaultMaxRowsPerChunk
	}
	if c.MergeThreshold == 0 && !c.NoMerge {
		c.MergeThreshold = domain.DefaultMergeThreshold
	}
	if c.Concurrency == 0 {
		c.Concurrency = domain.DefaultConcurrency
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = app.DefaultMaxAttempts
	}
	if c.Backoff == "" {
		c.Backoff = app.BackoffJitter
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = app.DefaultBackoffBase
	}
	if c.BackoffJitter == 0 {
		c.BackoffJitter = app.DefaultBackoffJitter
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = app.DefaultBackoffMax
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = app.DefaultCallTimeout
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Converter == "" {
		c.Converter = ConverterExec
	}
	if c.DPI == 0 {
		c.DPI = DefaultDPI
	}
	if c.StagingURL == "" {
		c.StagingURL = staging.DefaultURL
	}
	if c.TelegramURL == "" {
		c.TelegramURL = sender.DefaultAPIURL
	}
	if c.ExportURL == "" {
		c.ExportURL = httpAdapter.DefaultExportURL
	}
	if c.SweepAge == 0 {
		c.SweepAge = DefaultSweepAge
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
}

// Validate checks the configuration. Errors wrap domain.ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.SpreadsheetID == "" {
		add("spreadsheet id is required")
	}
	if c.LastRow < 1 {
		add("last row must be at least 1")
	}
	if c.MaxRowsPerChunk < 1 {
		add("max rows per chunk must be at least 1")
	}
	if c.MergeThreshold < 0 {
		add("merge threshold must not be negative")
	}
	if c.Concurrency < 1 {
		add("concurrency must be at least 1")
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > app.MaxAttemptsLimit {
		add("max attempts must be between 1 and %d", app.MaxAttemptsLimit)
	}
	if err := c.backoffPolicy().Validate(); err != nil {
		add("%v", err)
	}
	if c.CallTimeout < 0 || c.HTTPTimeout < 0 {
		add("timeouts must not be negative")
	}
	switch c.Converter {
	case ConverterExec, ConverterPdfium:
	default:
		add("unknown converter %q", c.Converter)
	}
	if c.DPI < 1 {
		add("dpi must be positive")
	}
	if _, err := httpAdapter.A1Range(c.Columns, domain.RowRange{Start: 1, End: 1}); err != nil {
		add("%v", err)
	}
	if !c.DryRun {
		if c.TelegramToken == "" {
			add("telegram token is required")
		}
		if c.ChatID == "" {
			add("chat id is required")
		}
	}
	if c.Every < 0 {
		add("interval must not be negative")
	}
	if c.SweepAge <= 0 {
		add("sweep age must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) backoffPolicy() app.BackoffPolicy {
	return app.BackoffPolicy{
		Strategy: c.Backoff,
		Base:     c.BackoffBase,
		Jitter:   c.BackoffJitter,
		Max:      c.BackoffMax,
	}
}

// pdfiumConfig sizes the pdfium pool so every concurrent chunk has an
// instance and a render is bounded by CallTimeout.
func (c Config) pdfiumConfig() convert.PdfiumConfig {
	return convert.PdfiumConfig{
		DPI:            c.DPI,
		Workers:        c.Concurrency,
		AcquireTimeout: c.CallTimeout,
	}
}

// request builds the pipeline request for one run.
func (c Config) request() domain.Request {
	return domain.Request{
		SpreadsheetID:   c.SpreadsheetID,
		GID:             c.GID,
		SheetName:       c.SheetName,
		Columns:         c.Columns,
		Rows:            domain.RowRange{Start: 1, End: c.LastRow},
		MaxRowsPerChunk: c.MaxRowsPerChunk,
		MergeThreshold:  c.MergeThreshold,
		Caption:         c.Caption,
		Credential:      c.AccessToken,
		ChatID:          c.ChatID,
		Concurrency:     c.Concurrency,
	}
}
