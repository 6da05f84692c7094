package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// ExecConfig configures the external tool chain.
type ExecConfig struct {
	// Rasterizer renders page 1 of a PDF to PNG. Default: pdftoppm
	Rasterizer string

	// Trimmer crops uniform margins of a PNG. Default: convert
	Trimmer string

	// DPI is the render resolution. Default: 150
	DPI int

	// TempDir is where per-call scratch directories are created.
	// Default: os.TempDir()
	TempDir string
}

// DefaultExecConfig returns an ExecConfig with sensible defaults.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{Rasterizer: "pdftoppm", Trimmer: "convert", DPI: 150}
}

// ExecConverter implements ports.Converter with two external processes.
type ExecConverter struct {
	config ExecConfig
	logger ports.Logger
}

// NewExecConverter creates an ExecConverter, filling zero fields with defaults.
func NewExecConverter(cfg ExecConfig, logger ports.Logger) *ExecConverter {
	def := DefaultExecConfig()
	if cfg.Rasterizer == "" {
		cfg.Rasterizer = def.Rasterizer
	}
	if cfg.Trimmer == "" {
		cfg.Trimmer = def.Trimmer
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	return &ExecConverter{config: cfg, logger: logger}
}

// Convert stages the document in a private scratch directory, which is
// removed before returning.
func (c *ExecConverter) Convert(ctx context.Context, document []byte) ([]byte, error) {
	dir, err := os.MkdirTemp(c.config.TempDir, "sheetshot-convert-*")
	if err != nil {
		return nil, &domain.ConversionError{Stage: domain.StageStart, Err: fmt.Errorf("scratch dir: %w", err)}
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "page.pdf")
	if err := os.WriteFile(in, document, 0o600); err != nil {
		return nil, &domain.ConversionError{Stage: domain.StageStart, Err: fmt.Errorf("stage document: %w", err)}
	}

	rasterRoot := filepath.Join(dir, "raster")
	if err := c.run(ctx, c.config.Rasterizer,
		"-png", "-r", strconv.Itoa(c.config.DPI), "-f", "1", "-l", "1", "-singlefile", in, rasterRoot,
	); err != nil {
		return nil, err
	}

	out := filepath.Join(dir, "trimmed.png")
	if err := c.run(ctx, c.config.Trimmer, rasterRoot+".png", "-trim", "+repage", out); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, &domain.ConversionError{Stage: domain.StageDecode, Err: fmt.Errorf("read output: %w", err)}
	}
	return data, nil
}

// run starts name and waits for it, telling a start failure apart from a
// non-zero exit.
func (c *ExecConverter) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 5 * time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return &domain.ConversionError{Stage: domain.StageStart, Err: fmt.Errorf("%s: %w", name, err)}
	}
	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &domain.ConversionError{Stage: domain.StageExit, Err: fmt.Errorf("%s: %w", name, err)}
	}
	c.logger.Debug("converter step done", ports.String("tool", name), ports.Duration("took", time.Since(started)))
	return nil
}
