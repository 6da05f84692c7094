package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// ArtifactSink receives rendered images instead of the chat endpoint in
// dry-run mode.
type ArtifactSink interface {
	WriteArtifact(ctx context.Context, runID string, art domain.Artifact) error
}

// DeliveryEventEmitter is notified once per run about delivery.
type DeliveryEventEmitter interface {
	OnDelivered(runID string, images int, took time.Duration)
	OnDeliveryFailed(runID string, err error)
}

// JobConfig contains configuration for one end-to-end run.
type JobConfig struct {
	// DryRun renders and assembles but writes the images to the sink
	// instead of uploading them.
	DryRun bool
}

// Report summarizes a successful run.
type Report struct {
	RunID     string
	Images    int
	Delivered bool
	Took      time.Duration
}

// Job runs the pipeline and, only when every chunk rendered, delivers
// the album.
type Job struct {
	config    JobConfig
	pipeline  *Pipeline
	assembler *Assembler
	sink      ArtifactSink
	logger    ports.Logger
	emitter   DeliveryEventEmitter
}

// NewJob creates a Job. sink is required only for dry runs; emitter may be nil.
func NewJob(config JobConfig, pipeline *Pipeline, assembler *Assembler, sink ArtifactSink, logger ports.Logger, emitter DeliveryEventEmitter) *Job {
	return &Job{
		config:    config,
		pipeline:  pipeline,
		assembler: assembler,
		sink:      sink,
		logger:    logger,
		emitter:   emitter,
	}
}

// Execute performs one run. It returns exactly one terminal error: the
// first chunk failure, or the delivery failure.
func (j *Job) Execute(ctx context.Context, req domain.Request) (Report, error) {
	started := time.Now()

	result, err := j.pipeline.Run(ctx, req)
	if err != nil {
		return Report{RunID: result.RunID}, err
	}

	album, err := j.assembler.Assemble(result, req.Caption, req.ChatID)
	if err != nil {
		return Report{RunID: result.RunID}, err
	}
	report := Report{RunID: result.RunID, Images: album.Size()}

	if j.config.DryRun {
		if j.sink == nil {
			return report, fmt.Errorf("dry run: no artifact sink configured")
		}
		for _, art := range result.Artifacts {
			if err := j.sink.WriteArtifact(ctx, result.RunID, art); err != nil {
				return report, fmt.Errorf("dry run: write %s: %w", art.Name, err)
			}
		}
		j.logger.Info("dry run, album not delivered", ports.Int("images", album.Size()))
		report.Took = time.Since(started)
		return report, nil
	}

	deliverStart := time.Now()
	if err := j.assembler.Deliver(ctx, album); err != nil {
		if j.emitter != nil {
			j.emitter.OnDeliveryFailed(result.RunID, err)
		}
		return report, err
	}
	if j.emitter != nil {
		j.emitter.OnDelivered(result.RunID, album.Size(), time.Since(deliverStart))
	}

	report.Delivered = true
	report.Took = time.Since(started)
	return report, nil
}
