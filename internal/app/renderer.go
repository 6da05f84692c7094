package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// DefaultCallTimeout bounds a single export attempt or conversion.
const DefaultCallTimeout = 2 * time.Minute

// RendererConfig configures a Renderer.
type RendererConfig struct {
	// CallTimeout bounds each export attempt and each conversion.
	// Zero means DefaultCallTimeout.
	CallTimeout time.Duration

	// KeepStaging leaves staged documents and images in place after the
	// chunk finishes, for inspection.
	KeepStaging bool
}

// Renderer turns one chunk into one image artifact: export through the
// retrying Fetcher, stage, convert, stage.
type Renderer struct {
	config    RendererConfig
	exporter  ports.Exporter
	converter ports.Converter
	staging   ports.Staging
	fetcher   *Fetcher
	logger    ports.Logger
}

// NewRenderer creates a Renderer. staging may be nil, in which case
// nothing is staged.
func NewRenderer(
	config RendererConfig,
	exporter ports.Exporter,
	converter ports.Converter,
	staging ports.Staging,
	fetcher *Fetcher,
	logger ports.Logger,
) *Renderer {
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}
	return &Renderer{
		config:    config,
		exporter:  exporter,
		converter: converter,
		staging:   staging,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// Render exports and converts one chunk. Any failure is terminal for the
// chunk. Staged entries are released on return whatever the outcome.
func (r *Renderer) Render(ctx context.Context, runID string, req domain.Request, chunk domain.Chunk) (domain.Artifact, error) {
	log := r.logger.With(ports.String("rows", chunk.Rows.String()))
	started := time.Now()

	exportReq := ports.ExportRequest{
		SpreadsheetID: req.SpreadsheetID,
		GID:           req.GID,
		Columns:       req.Columns,
		Rows:          chunk.Rows,
		Credential:    req.Credential,
	}
	doc, err := r.fetcher.Fetch(ctx, chunk.Rows, func(ctx context.Context) ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
		defer cancel()
		return r.exporter.Export(callCtx, exportReq)
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	log.Debug("chunk exported", ports.Int("bytes", len(doc)))

	// The converter and the album read the staged copies, so what
	// KeepStaging retains is exactly what was rendered and delivered.
	doc, release, err := r.stage(ctx, stagingKey(runID, chunk, ".pdf"), doc)
	if err != nil {
		return domain.Artifact{}, err
	}
	defer release()

	convCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
	defer cancel()
	image, err := r.converter.Convert(convCtx, doc)
	if err != nil {
		return domain.Artifact{}, conversionError(chunk.Rows, err)
	}
	if len(image) == 0 {
		return domain.Artifact{}, &domain.ConversionError{Rows: chunk.Rows, Stage: domain.StageDecode,
			Err: errors.New("converter produced no output")}
	}

	image, releaseImage, err := r.stage(ctx, stagingKey(runID, chunk, ".png"), image)
	if err != nil {
		return domain.Artifact{}, err
	}
	defer releaseImage()

	log.Info("chunk rendered",
		ports.Int("image_bytes", len(image)),
		ports.Duration("took", time.Since(started)),
	)

	return domain.Artifact{
		Image:       image,
		Name:        DisplayName(req, chunk),
		SourceStart: chunk.Start(),
		Rows:        chunk.Rows,
	}, nil
}

// stage stores data under key and reads it back. It returns the staged
// bytes and the matching release func. Without staging, data is returned
// as is.
func (r *Renderer) stage(ctx context.Context, key string, data []byte) ([]byte, func(), error) {
	if r.staging == nil {
		return data, func() {}, nil
	}
	if err := r.staging.Put(ctx, key, data); err != nil {
		return nil, nil, fmt.Errorf("stage %s: %w", key, err)
	}
	release := func() {
		// Release must survive cancellation of the run.
		if err := r.staging.Delete(context.WithoutCancel(ctx), key); err != nil {
			r.logger.Warn("release staged entry", ports.String("key", key), ports.Err(err))
		}
	}
	if r.config.KeepStaging {
		release = func() {}
	}
	staged, err := r.staging.Get(ctx, key)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("read staged %s: %w", key, err)
	}
	return staged, release, nil
}

// conversionError stamps the chunk bounds on a converter failure.
func conversionError(rows domain.RowRange, err error) error {
	var cerr *domain.ConversionError
	if errors.As(err, &cerr) {
		return &domain.ConversionError{Rows: rows, Stage: cerr.Stage, Err: cerr.Err}
	}
	return &domain.ConversionError{Rows: rows, Stage: domain.StageExit, Err: err}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DisplayName derives the artifact file name from the sheet and chunk bounds.
func DisplayName(req domain.Request, chunk domain.Chunk) string {
	base := req.SheetName
	if base == "" {
		base = req.GID
	}
	if base == "" {
		base = req.SpreadsheetID
	}
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "sheet"
	}
	return fmt.Sprintf("%s_rows_%d-%d.png", base, chunk.Start(), chunk.End())
}

func stagingKey(runID string, chunk domain.Chunk, ext string) string {
	return path.Join(runID, chunk.Key()+ext)
}
