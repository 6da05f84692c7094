package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// ChunkRenderer renders one chunk. *Renderer satisfies it.
type ChunkRenderer interface {
	Render(ctx context.Context, runID string, req domain.Request, chunk domain.Chunk) (domain.Artifact, error)
}

// ChunkEventEmitter is notified as chunks finish.
type ChunkEventEmitter interface {
	OnChunkRendered(rows domain.RowRange, imageBytes int, took time.Duration)
	OnChunkFailed(rows domain.RowRange, err error)
}

// Pipeline plans a request into chunks, renders them with bounded
// concurrency and returns the artifacts in original row order.
//
// Completion order of the renders is unconstrained. Each render writes
// only its own result slot; the slots are gathered after every render
// has returned.
type Pipeline struct {
	renderer ChunkRenderer
	logger   ports.Logger
	emitter  ChunkEventEmitter
	newRunID func() string
}

// NewPipeline creates a Pipeline. emitter may be nil.
func NewPipeline(renderer ChunkRenderer, logger ports.Logger, emitter ChunkEventEmitter) *Pipeline {
	return &Pipeline{
		renderer: renderer,
		logger:   logger,
		emitter:  emitter,
		newRunID: func() string { return uuid.NewString() },
	}
}

// Run executes one pipeline run. The first chunk failure cancels the
// siblings still in flight; Run returns only after every dispatched
// render has returned, so no work outlives the call.
func (p *Pipeline) Run(ctx context.Context, req domain.Request) (domain.Result, error) {
	chunks, err := PlanChunks(req.LastRow(), req.MaxRowsPerChunk, req.MergeThreshold)
	if err != nil {
		return domain.Result{}, err
	}

	concurrency := req.Concurrency
	if concurrency < 1 {
		concurrency = domain.DefaultConcurrency
	}

	runID := p.newRunID()
	log := p.logger.With(ports.String("run_id", runID))
	log.Info("pipeline started",
		ports.Int("last_row", req.LastRow()),
		ports.Int("chunks", len(chunks)),
		ports.Int("concurrency", concurrency),
	)
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	limiter := semaphore.NewWeighted(int64(concurrency))
	slots := make([]domain.Artifact, len(chunks))

	var dispatchErr error
	for i, chunk := range chunks {
		// Blocks while concurrency renders are in flight.
		if err := limiter.Acquire(gctx, 1); err != nil {
			dispatchErr = err
			break
		}
		i, chunk := i, chunk
		g.Go(func() error {
			defer limiter.Release(1)
			began := time.Now()
			art, err := p.renderer.Render(gctx, runID, req, chunk)
			if err != nil {
				if p.emitter != nil {
					p.emitter.OnChunkFailed(chunk.Rows, err)
				}
				return err
			}
			if p.emitter != nil {
				p.emitter.OnChunkRendered(chunk.Rows, len(art.Image), time.Since(began))
			}
			slots[i] = art
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("pipeline failed", ports.Err(err))
		return domain.Result{RunID: runID}, err
	}
	if dispatchErr != nil {
		return domain.Result{RunID: runID}, fmt.Errorf("dispatch chunks: %w", dispatchErr)
	}

	artifacts := slots
	domain.SortArtifacts(artifacts)

	log.Info("pipeline finished",
		ports.Int("artifacts", len(artifacts)),
		ports.Duration("took", time.Since(started)),
	)
	return domain.Result{RunID: runID, Artifacts: artifacts}, nil
}
