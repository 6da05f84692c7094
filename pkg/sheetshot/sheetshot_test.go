package sheetshot_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/pkg/sheetshot"
)

func TestRun_DeliversOrderedAlbumThroughTelegram(t *testing.T) {
	export := exportServer(t, nil)

	var media []struct {
		Media   string `json:"media"`
		Caption string `json:"caption"`
	}
	files := map[string]string{}
	var calls atomic.Int32
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		_ = json.Unmarshal([]byte(r.FormValue("media")), &media)
		for k, fh := range r.MultipartForm.File {
			f, _ := fh[0].Open()
			data, _ := io.ReadAll(f)
			f.Close()
			files[k] = string(data)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer tg.Close()

	cfg := createTestConfig(t, export.URL)
	cfg.TelegramURL = tg.URL
	s, err := sheetshot.New(cfg, sheetshot.WithConverter(passthrough))
	require.NoError(t, err)
	defer s.Close()

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Delivered)
	assert.Equal(t, 3, report.Images)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, int32(1), calls.Load(), "exactly one upload")

	require.Len(t, media, 3)
	assert.Equal(t, "Daily", media[0].Caption)
	assert.Empty(t, media[1].Caption)
	assert.Equal(t, "png:pdf A1:K40", files["photo0"])
	assert.Equal(t, "png:pdf A41:K80", files["photo1"])
	assert.Equal(t, "png:pdf A81:K120", files["photo2"])
}

func TestRun_RetriesRateLimitedChunk(t *testing.T) {
	var limited atomic.Int32
	export := exportServer(t, func(rng string) int {
		if rng == "A41:K80" && limited.Add(1) <= 2 {
			return http.StatusTooManyRequests
		}
		return http.StatusOK
	})

	events := &eventTracker{}
	sender := &recordingSender{}
	s, err := sheetshot.New(createTestConfig(t, export.URL),
		sheetshot.WithConverter(passthrough),
		sheetshot.WithAlbumSender(sender),
		sheetshot.WithEventHandler(events),
	)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, sender.Albums(), 1)
	assert.Equal(t, 2, events.count("rate_limited"))
	assert.Equal(t, 3, events.count("chunk_rendered"))
	assert.Equal(t, 1, events.count("delivered"))
}

func TestRun_ChunkFailureDeliversNothing(t *testing.T) {
	export := exportServer(t, func(rng string) int {
		if rng == "A41:K80" {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})

	sender := &recordingSender{}
	s, err := sheetshot.New(createTestConfig(t, export.URL),
		sheetshot.WithConverter(passthrough),
		sheetshot.WithAlbumSender(sender),
	)
	require.NoError(t, err)
	defer s.Close()

	report, err := s.Run(context.Background())

	var ferr *domain.FetchError
	require.True(t, errors.As(err, &ferr), "error = %v", err)
	assert.Equal(t, 41, ferr.Rows.Start)
	assert.Equal(t, 1, ferr.Attempts)
	assert.False(t, report.Delivered)
	assert.Empty(t, sender.Albums())
}

func TestRun_ConversionFailure(t *testing.T) {
	export := exportServer(t, nil)
	failing := converterFunc(func(_ context.Context, doc []byte) ([]byte, error) {
		if string(doc) == "pdf A41:K80" {
			return nil, errors.New("rasterizer exited 1")
		}
		return doc, nil
	})

	sender := &recordingSender{}
	s, err := sheetshot.New(createTestConfig(t, export.URL),
		sheetshot.WithConverter(failing),
		sheetshot.WithAlbumSender(sender),
	)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Run(context.Background())

	var cerr *domain.ConversionError
	require.True(t, errors.As(err, &cerr), "error = %v", err)
	assert.Equal(t, 41, cerr.Rows.Start)
	assert.Empty(t, sender.Albums())
}

func TestRun_DryRunWritesOutputDir(t *testing.T) {
	export := exportServer(t, nil)
	out := t.TempDir()

	cfg := createTestConfig(t, export.URL)
	cfg.DryRun = true
	cfg.OutputDir = out
	cfg.TelegramToken = ""
	cfg.ChatID = ""

	s, err := sheetshot.New(cfg, sheetshot.WithConverter(passthrough))
	require.NoError(t, err)
	defer s.Close()

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Delivered)

	data, err := os.ReadFile(filepath.Join(out, report.RunID, "Report_rows_41-80.png"))
	require.NoError(t, err)
	assert.Equal(t, "png:pdf A41:K80", string(data))
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sheetshot.Config)
	}{
		{"no spreadsheet", func(c *sheetshot.Config) { c.SpreadsheetID = "" }},
		{"no last row", func(c *sheetshot.Config) { c.LastRow = 0 }},
		{"no chat", func(c *sheetshot.Config) { c.ChatID = "" }},
		{"bad converter", func(c *sheetshot.Config) { c.Converter = "gimp" }},
		{"bad backoff", func(c *sheetshot.Config) { c.Backoff = "fibonacci" }},
		{"bad columns", func(c *sheetshot.Config) { c.Columns = "1:2" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig(t, "http://127.0.0.1:1")
			tt.mutate(&cfg)
			_, err := sheetshot.New(cfg, sheetshot.WithConverter(passthrough))
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestStart_ScheduledRunsAndTrigger(t *testing.T) {
	export := exportServer(t, nil)
	sender := &recordingSender{}
	events := &eventTracker{}

	s, err := sheetshot.New(createTestConfig(t, export.URL),
		sheetshot.WithConverter(passthrough),
		sheetshot.WithAlbumSender(sender),
		sheetshot.WithEventHandler(events),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	waitFor(t, func() bool { return events.count("run_finished") == 1 })

	cfg := s.Config()
	cfg.Caption = "Updated"
	require.NoError(t, s.UpdateConfig(cfg))
	s.Trigger()
	waitFor(t, func() bool { return events.count("run_finished") == 2 })

	require.NoError(t, s.Stop())
	assert.Equal(t, sheetshot.StateStopped, s.Status())

	albums := sender.Albums()
	require.Len(t, albums, 2)
	assert.Equal(t, "Daily", albums[0].Items[0].Caption)
	assert.Equal(t, "Updated", albums[1].Items[0].Caption)
}

func TestStart_RefreshFollowsGrowingSheet(t *testing.T) {
	export := exportServer(t, nil)
	sender := &recordingSender{}
	events := &eventTracker{}

	var mu sync.Mutex
	rows := 0
	refresh := func(_ context.Context, current sheetshot.Config) (sheetshot.Config, error) {
		mu.Lock()
		defer mu.Unlock()
		rows += 40
		current.LastRow = rows
		return current, nil
	}

	cfg := createTestConfig(t, export.URL)
	cfg.LastRow = 1
	s, err := sheetshot.New(cfg,
		sheetshot.WithConverter(passthrough),
		sheetshot.WithAlbumSender(sender),
		sheetshot.WithEventHandler(events),
		sheetshot.WithRefresh(refresh),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	waitFor(t, func() bool { return events.count("run_finished") == 1 })
	s.Trigger()
	waitFor(t, func() bool { return events.count("run_finished") == 2 })
	require.NoError(t, s.Stop())

	albums := sender.Albums()
	require.Len(t, albums, 2)
	assert.Len(t, albums[0].Items, 1, "first run sees 40 rows")
	assert.Len(t, albums[1].Items, 2, "second run sees 80 rows")
	assert.Equal(t, 80, s.Config().LastRow)
}

func TestStart_RefreshFailureKeepsSchedule(t *testing.T) {
	export := exportServer(t, nil)
	sender := &recordingSender{}
	events := &eventTracker{}

	var calls atomic.Int32
	refresh := func(_ context.Context, current sheetshot.Config) (sheetshot.Config, error) {
		if calls.Add(1) == 1 {
			return current, errors.New("workbook unavailable")
		}
		return current, nil
	}

	s, err := sheetshot.New(createTestConfig(t, export.URL),
		sheetshot.WithConverter(passthrough),
		sheetshot.WithAlbumSender(sender),
		sheetshot.WithEventHandler(events),
		sheetshot.WithRefresh(refresh),
	)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	waitFor(t, func() bool { return events.count("run_finished") == 1 })
	assert.Empty(t, sender.Albums())

	s.Trigger()
	waitFor(t, func() bool { return events.count("run_finished") == 2 })
	require.NoError(t, s.Stop())
	assert.Len(t, sender.Albums(), 1)
	assert.Equal(t, 120, s.Config().LastRow)
}

func TestRun_EmitsRunFinished(t *testing.T) {
	export := exportServer(t, nil)
	events := &eventTracker{}
	s, err := sheetshot.New(createTestConfig(t, export.URL),
		sheetshot.WithConverter(passthrough),
		sheetshot.WithAlbumSender(&recordingSender{}),
		sheetshot.WithEventHandler(events),
	)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, events.count("run_finished"))
	assert.Equal(t, 1, events.count("delivered"))
}

func TestStart_RequiresInterval(t *testing.T) {
	cfg := createTestConfig(t, "http://127.0.0.1:1")
	cfg.Every = 0
	s, err := sheetshot.New(cfg, sheetshot.WithConverter(passthrough))
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Start(context.Background()), domain.ErrInvalidConfig)
	assert.Equal(t, sheetshot.StateStopped, s.Status())
}

func TestUpdateConfig_RejectsInvalid(t *testing.T) {
	s, err := sheetshot.New(createTestConfig(t, "http://127.0.0.1:1"), sheetshot.WithConverter(passthrough))
	require.NoError(t, err)
	defer s.Close()

	cfg := s.Config()
	cfg.LastRow = -1
	assert.ErrorIs(t, s.UpdateConfig(cfg), domain.ErrInvalidConfig)
	assert.Equal(t, 120, s.Config().LastRow)
}

func TestModuleVersions(t *testing.T) {
	versions := sheetshot.ModuleVersions()
	for _, name := range []string{"sheetshot", "sender", "log"} {
		assert.NotEmpty(t, versions[name], name)
	}
	assert.Len(t, sheetshot.CompatibilityMatrix(), len(versions))
}

// eventTracker counts events by kind.
type eventTracker struct {
	sheetshot.BaseEventHandler
	mu     sync.Mutex
	counts map[string]int
	states []sheetshot.StateChangeEvent
}

func (e *eventTracker) inc(kind string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.counts == nil {
		e.counts = map[string]int{}
	}
	e.counts[kind]++
}

func (e *eventTracker) count(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[kind]
}

func (e *eventTracker) OnStateChange(ev sheetshot.StateChangeEvent) {
	e.mu.Lock()
	e.states = append(e.states, ev)
	e.mu.Unlock()
	e.inc("state")
}

func (e *eventTracker) OnChunkRendered(sheetshot.ChunkRenderedEvent) { e.inc("chunk_rendered") }
func (e *eventTracker) OnRateLimited(sheetshot.RateLimitedEvent)     { e.inc("rate_limited") }
func (e *eventTracker) OnDelivered(sheetshot.DeliveredEvent)         { e.inc("delivered") }
func (e *eventTracker) OnRunFinished(sheetshot.RunFinishedEvent)     { e.inc("run_finished") }

func (e *eventTracker) StateChanges() []sheetshot.StateChangeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheetshot.StateChangeEvent(nil), e.states...)
}
