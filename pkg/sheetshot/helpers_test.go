package sheetshot_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/sheetshot/pkg/sheetshot"
)

// testLogger implements sheetshot.Logger for capturing log output in tests.
type testLogger struct {
	mu       *sync.Mutex
	messages *[]string
}

func newTestLogger() *testLogger {
	return &testLogger{mu: &sync.Mutex{}, messages: &[]string{}}
}

func (l *testLogger) Debug(msg string, fields ...sheetshot.LogField) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, fields ...sheetshot.LogField)  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, fields ...sheetshot.LogField)  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, fields ...sheetshot.LogField) { l.log("ERROR", msg) }

func (l *testLogger) With(fields ...sheetshot.LogField) sheetshot.Logger { return l }

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.messages = append(*l.messages, level+": "+msg)
}

func (l *testLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), *l.messages...)
}

// converterFunc adapts a function to sheetshot.Converter.
type converterFunc func(ctx context.Context, doc []byte) ([]byte, error)

func (f converterFunc) Convert(ctx context.Context, doc []byte) ([]byte, error) { return f(ctx, doc) }

var passthrough = converterFunc(func(_ context.Context, doc []byte) ([]byte, error) {
	return append([]byte("png:"), doc...), nil
})

// recordingSender is an in-memory sheetshot.AlbumSender.
type recordingSender struct {
	mu     sync.Mutex
	albums []sheetshot.Album
	err    error
}

func (s *recordingSender) SendAlbum(_ context.Context, album sheetshot.Album) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.albums = append(s.albums, album)
	return s.err
}

func (s *recordingSender) Albums() []sheetshot.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheetshot.Album(nil), s.albums...)
}

// exportServer answers every export with "pdf <range>". statusFor may
// override the status code per range.
func exportServer(t *testing.T, statusFor func(rng string) int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rng := r.URL.Query().Get("range")
		if statusFor != nil {
			if code := statusFor(rng); code != http.StatusOK {
				w.WriteHeader(code)
				fmt.Fprintf(w, "status %d", code)
				return
			}
		}
		fmt.Fprintf(w, "pdf %s", rng)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// createTestConfig creates a minimal valid config for testing.
func createTestConfig(t *testing.T, exportURL string) sheetshot.Config {
	t.Helper()
	return sheetshot.Config{
		SpreadsheetID: "sheet-1",
		GID:           "0",
		SheetName:     "Report",
		Columns:       "A:K",
		LastRow:       120,
		Caption:       "Daily",
		TelegramToken: "test-token",
		ChatID:        "-100",
		ExportURL:     exportURL,
		BackoffBase:   time.Millisecond,
		BackoffJitter: time.Millisecond,
		BackoffMax:    5 * time.Millisecond,
		Every:         time.Hour,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
