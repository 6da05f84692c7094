package sheetshot

import (
	"time"

	"github.com/bft-labs/sheetshot/internal/app"
	"github.com/bft-labs/sheetshot/internal/domain"
)

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ChunkRenderedEvent reports one chunk that finished rendering.
type ChunkRenderedEvent struct {
	StartRow   int
	EndRow     int
	ImageBytes int
	Duration   time.Duration
}

// ChunkFailedEvent reports one chunk that failed. Only the first failure
// of a run decides the outcome; siblings cancelled by it are reported too.
type ChunkFailedEvent struct {
	StartRow int
	EndRow   int
	Error    error
}

// RateLimitedEvent reports a 429 answer that will be retried.
type RateLimitedEvent struct {
	StartRow int
	EndRow   int
	Attempt  int
	Delay    time.Duration
}

// DeliveredEvent reports a successful album upload.
type DeliveredEvent struct {
	RunID    string
	Images   int
	Duration time.Duration
}

// DeliveryFailedEvent reports a failed album upload.
type DeliveryFailedEvent struct {
	RunID string
	Error error
}

// RunFinishedEvent reports the end of a run, one-shot or scheduled.
type RunFinishedEvent struct {
	RunID     string
	Images    int
	Delivered bool
	Duration  time.Duration
	Error     error
}

// EventHandler receives notifications. Methods are called synchronously
// from pipeline goroutines, possibly concurrently; return quickly.
// Embed BaseEventHandler to implement only what you need.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnChunkRendered(ChunkRenderedEvent)
	OnChunkFailed(ChunkFailedEvent)
	OnRateLimited(RateLimitedEvent)
	OnDelivered(DeliveredEvent)
	OnDeliveryFailed(DeliveryFailedEvent)
	OnRunFinished(RunFinishedEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnChunkRendered(ChunkRenderedEvent)   {}
func (BaseEventHandler) OnChunkFailed(ChunkFailedEvent)       {}
func (BaseEventHandler) OnRateLimited(RateLimitedEvent)       {}
func (BaseEventHandler) OnDelivered(DeliveredEvent)           {}
func (BaseEventHandler) OnDeliveryFailed(DeliveryFailedEvent) {}
func (BaseEventHandler) OnRunFinished(RunFinishedEvent)       {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnChunkRendered(rows domain.RowRange, imageBytes int, took time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnChunkRendered(ChunkRenderedEvent{
		StartRow:   rows.Start,
		EndRow:     rows.End,
		ImageBytes: imageBytes,
		Duration:   took,
	})
}

func (e *eventEmitterWrapper) OnChunkFailed(rows domain.RowRange, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnChunkFailed(ChunkFailedEvent{StartRow: rows.Start, EndRow: rows.End, Error: err})
}

func (e *eventEmitterWrapper) OnRateLimited(rows domain.RowRange, attempt int, delay time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnRateLimited(RateLimitedEvent{
		StartRow: rows.Start,
		EndRow:   rows.End,
		Attempt:  attempt,
		Delay:    delay,
	})
}

func (e *eventEmitterWrapper) OnDelivered(runID string, images int, took time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnDelivered(DeliveredEvent{RunID: runID, Images: images, Duration: took})
}

func (e *eventEmitterWrapper) OnDeliveryFailed(runID string, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnDeliveryFailed(DeliveryFailedEvent{RunID: runID, Error: err})
}

func (e *eventEmitterWrapper) OnRunFinished(report app.Report, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnRunFinished(RunFinishedEvent{
		RunID:     report.RunID,
		Images:    report.Images,
		Delivered: report.Delivered,
		Duration:  report.Took,
		Error:     err,
	})
}
