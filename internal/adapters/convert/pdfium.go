package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// PdfiumConfig configures the in-process renderer.
type PdfiumConfig struct {
	// DPI is the render resolution. Default: 150
	DPI int

	// Workers is the number of pdfium instances. Size it like the
	// pipeline concurrency so parallel chunks never queue. Default: 1
	Workers int

	// Tolerance is the per-channel distance still treated as margin.
	Tolerance uint8

	// AcquireTimeout bounds the wait for a free instance when the call
	// context has no earlier deadline. Default: 30s
	AcquireTimeout time.Duration
}

// PdfiumConverter implements ports.Converter with go-pdfium.
type PdfiumConverter struct {
	config PdfiumConfig
	pool   pdfium.Pool
	logger ports.Logger
}

// NewPdfiumConverter starts the WebAssembly instance pool. Call Close when done.
func NewPdfiumConverter(cfg PdfiumConfig, logger ports.Logger) (*PdfiumConverter, error) {
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  cfg.Workers,
		MaxTotal: cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("init pdfium: %w", err)
	}
	return &PdfiumConverter{config: cfg, pool: pool, logger: logger}, nil
}

// Convert renders page 1 of document and trims its margins. The wait for
// a free instance and the render itself are both bounded by ctx.
func (c *PdfiumConverter) Convert(ctx context.Context, document []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.ConversionError{Stage: domain.StageStart, Err: err}
	}
	instance, err := c.pool.GetInstance(acquireWait(ctx, c.config.AcquireTimeout))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &domain.ConversionError{Stage: domain.StageStart, Err: fmt.Errorf("acquire pdfium: %w", err)}
	}

	type result struct {
		image []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		// pdfium calls cannot be interrupted; an abandoned render keeps its
		// instance until it returns.
		defer instance.Close()
		image, err := c.render(instance, document)
		done <- result{image, err}
	}()

	select {
	case <-ctx.Done():
		return nil, &domain.ConversionError{Stage: domain.StageExit, Err: fmt.Errorf("render page: %w", ctx.Err())}
	case r := <-done:
		return r.image, r.err
	}
}

func (c *PdfiumConverter) render(instance pdfium.Pdfium, document []byte) ([]byte, error) {
	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &document})
	if err != nil {
		return nil, &domain.ConversionError{Stage: domain.StageDecode, Err: fmt.Errorf("open document: %w", err)}
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	render, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: c.config.DPI,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{Document: doc.Document, Index: 0},
		},
	})
	if err != nil {
		return nil, &domain.ConversionError{Stage: domain.StageExit, Err: fmt.Errorf("render page: %w", err)}
	}
	defer render.Cleanup()
	if render.Result.Image == nil {
		return nil, &domain.ConversionError{Stage: domain.StageExit, Err: errors.New("render page: empty image")}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, TrimImage(render.Result.Image, c.config.Tolerance)); err != nil {
		return nil, &domain.ConversionError{Stage: domain.StageExit, Err: fmt.Errorf("encode png: %w", err)}
	}
	return buf.Bytes(), nil
}

// acquireWait is the time to wait for a free instance: the fallback, or
// less when ctx expires sooner.
func acquireWait(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	if left := time.Until(deadline); left < fallback {
		if left <= 0 {
			return time.Nanosecond
		}
		return left
	}
	return fallback
}

// Close shuts down the instance pool.
func (c *PdfiumConverter) Close() error {
	return c.pool.Close()
}
