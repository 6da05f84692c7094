package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/sheetshot/internal/adapters/log"
	"github.com/bft-labs/sheetshot/internal/domain"
)

type memSink struct {
	mu      sync.Mutex
	written []string
}

func (s *memSink) WriteArtifact(_ context.Context, runID string, art domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, runID+"/"+art.Name)
	return nil
}

type deliveryEvents struct {
	delivered int
	failed    int
}

func (e *deliveryEvents) OnDelivered(string, int, time.Duration) { e.delivered++ }
func (e *deliveryEvents) OnDeliveryFailed(string, error)         { e.failed++ }

func newTestJob(r ChunkRenderer, sender *fakeSender, sink ArtifactSink, dryRun bool, events DeliveryEventEmitter) *Job {
	logs := log.NewRecorder()
	p := NewPipeline(r, logs, nil)
	p.newRunID = func() string { return "run-1" }
	return NewJob(JobConfig{DryRun: dryRun}, p, NewAssembler(sender, 0, logs), sink, logs, events)
}

func jobRequest(lastRow int) domain.Request {
	req := pipelineRequest(lastRow, 2)
	req.Caption = "Daily"
	req.ChatID = "-100"
	return req
}

func TestJob_DeliversOneAlbum(t *testing.T) {
	sender := &fakeSender{}
	events := &deliveryEvents{}
	job := newTestJob(&scriptedRenderer{}, sender, nil, false, events)

	report, err := job.Execute(context.Background(), jobRequest(120))
	require.NoError(t, err)

	assert.True(t, report.Delivered)
	assert.Equal(t, 3, report.Images)
	assert.Equal(t, "run-1", report.RunID)
	albums := sender.Albums()
	require.Len(t, albums, 1)
	assert.Equal(t, "Daily", albums[0].Items[0].Caption)
	assert.Equal(t, "-100", albums[0].ChatID)
	assert.Equal(t, 1, events.delivered)
}

func TestJob_ChunkFailureSkipsDelivery(t *testing.T) {
	sender := &fakeSender{}
	events := &deliveryEvents{}
	r := &scriptedRenderer{fail: func(c domain.Chunk) error {
		if c.Index == 1 {
			return &domain.ConversionError{Rows: c.Rows, Stage: domain.StageExit, Err: errors.New("exit 1")}
		}
		return nil
	}}
	job := newTestJob(r, sender, nil, false, events)

	report, err := job.Execute(context.Background(), jobRequest(120))

	assert.ErrorIs(t, err, domain.ErrConversion)
	assert.False(t, report.Delivered)
	assert.Empty(t, sender.Albums(), "no partial album")
	assert.Zero(t, events.delivered+events.failed)
}

func TestJob_DeliveryFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("chat not found")}
	events := &deliveryEvents{}
	job := newTestJob(&scriptedRenderer{}, sender, nil, false, events)

	_, err := job.Execute(context.Background(), jobRequest(50))

	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Len(t, sender.Albums(), 1)
	assert.Equal(t, 1, events.failed)
}

func TestJob_DryRunWritesSink(t *testing.T) {
	sender := &fakeSender{}
	sink := &memSink{}
	job := newTestJob(&scriptedRenderer{}, sender, sink, true, nil)

	report, err := job.Execute(context.Background(), jobRequest(120))
	require.NoError(t, err)

	assert.False(t, report.Delivered)
	assert.Equal(t, 3, report.Images)
	assert.Empty(t, sender.Albums())
	assert.Equal(t, []string{
		"run-1/Report_rows_1-40.png",
		"run-1/Report_rows_41-80.png",
		"run-1/Report_rows_81-120.png",
	}, sink.written)
}

func TestJob_DryRunWithoutSink(t *testing.T) {
	job := newTestJob(&scriptedRenderer{}, &fakeSender{}, nil, true, nil)
	_, err := job.Execute(context.Background(), jobRequest(10))
	assert.Error(t, err)
}
