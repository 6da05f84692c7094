package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// fakeExporter answers from a per-range script; once the script for a
// range is exhausted every further call succeeds.
type fakeExporter struct {
	mu     sync.Mutex
	script map[domain.RowRange][]error
	calls  map[domain.RowRange]int
	delay  map[domain.RowRange]time.Duration
}

func newFakeExporter() *fakeExporter {
	return &fakeExporter{
		script: map[domain.RowRange][]error{},
		calls:  map[domain.RowRange]int{},
		delay:  map[domain.RowRange]time.Duration{},
	}
}

func (e *fakeExporter) Export(ctx context.Context, req ports.ExportRequest) ([]byte, error) {
	e.mu.Lock()
	n := e.calls[req.Rows]
	e.calls[req.Rows] = n + 1
	var err error
	if n < len(e.script[req.Rows]) {
		err = e.script[req.Rows][n]
	}
	d := e.delay[req.Rows]
	e.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte("pdf " + req.Rows.String()), nil
}

func (e *fakeExporter) Calls(r domain.RowRange) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[r]
}

// fakeConverter turns "pdf x" into "png pdf x" unless told to fail.
type fakeConverter struct {
	fail func(doc []byte) error
}

func (c *fakeConverter) Convert(ctx context.Context, doc []byte) ([]byte, error) {
	if c.fail != nil {
		if err := c.fail(doc); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]byte("png "), doc...), nil
}

// memStaging is an in-memory ports.Staging that remembers every key ever put.
type memStaging struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
}

func newMemStaging() *memStaging {
	return &memStaging{objects: map[string][]byte{}}
}

func (s *memStaging) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.puts = append(s.puts, key)
	return nil
}

func (s *memStaging) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: not found", key)
	}
	return data, nil
}

func (s *memStaging) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStaging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *memStaging) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

// fakeSender records every album it is asked to send.
type fakeSender struct {
	mu     sync.Mutex
	albums []domain.Album
	err    error
}

func (s *fakeSender) SendAlbum(_ context.Context, album domain.Album) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.albums = append(s.albums, album)
	return s.err
}

func (s *fakeSender) Albums() []domain.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Album(nil), s.albums...)
}

// scriptedRenderer is a ChunkRenderer with per-chunk latency and failures
// that records the peak number of concurrent renders.
type scriptedRenderer struct {
	latency  func(c domain.Chunk) time.Duration
	fail     func(c domain.Chunk) error
	inFlight atomic.Int32
	peak     atomic.Int32
	started  atomic.Int32
	finished atomic.Int32
}

func (r *scriptedRenderer) Render(ctx context.Context, _ string, req domain.Request, chunk domain.Chunk) (domain.Artifact, error) {
	r.started.Add(1)
	defer r.finished.Add(1)

	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if r.latency != nil {
		select {
		case <-time.After(r.latency(chunk)):
		case <-ctx.Done():
			return domain.Artifact{}, ctx.Err()
		}
	}
	if r.fail != nil {
		if err := r.fail(chunk); err != nil {
			return domain.Artifact{}, err
		}
	}
	return domain.Artifact{
		Image:       []byte(chunk.Rows.String()),
		Name:        DisplayName(req, chunk),
		SourceStart: chunk.Start(),
		Rows:        chunk.Rows,
	}, nil
}

func noSleep(calls *[]time.Duration) func(context.Context, time.Duration) error {
	var mu sync.Mutex
	return func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		*calls = append(*calls, d)
		mu.Unlock()
		return ctx.Err()
	}
}

func fixedRand() float64 { return 0.5 }

func rateLimited(retryAfter time.Duration) error {
	return &domain.HTTPError{StatusCode: 429, Body: "quota", RetryAfter: retryAfter}
}
