package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/bft-labs/sheetshot/internal/cliconfig"
	"github.com/bft-labs/sheetshot/pkg/sheetshot"
)

func TestLoader_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	content := `
spreadsheet_id = "from-file"
caption = "file caption"
chat_id = "-1"
concurrency = 3
last_row = 90
`
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SHEETSHOT_CAPTION", "env caption")
	t.Setenv("SHEETSHOT_CHAT_ID", "-2")
	t.Setenv("SHEETSHOT_TELEGRAM_TOKEN", "123:abc")

	cfg := cliconfig.DefaultConfig()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().StringVar(&cfg.ChatID, "chat-id", cfg.ChatID, "")
	cmd.Flags().IntVar(&cfg.MaxRowsPerChunk, "max-rows", cfg.MaxRowsPerChunk, "")
	if err := cmd.ParseFlags([]string{"--chat-id", "-3"}); err != nil {
		t.Fatal(err)
	}

	l := newLoader(cmd, cfg, cfgFile)
	got, err := l.load(context.Background(), false)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if got.SpreadsheetID != "from-file" {
		t.Errorf("SpreadsheetID = %q, want file value", got.SpreadsheetID)
	}
	if got.Caption != "env caption" {
		t.Errorf("Caption = %q, want env over file", got.Caption)
	}
	if got.ChatID != "-3" {
		t.Errorf("ChatID = %q, want flag over env and file", got.ChatID)
	}
	if got.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want file over default", got.Concurrency)
	}
	if got.MaxRowsPerChunk != 40 {
		t.Errorf("MaxRowsPerChunk = %d, want default", got.MaxRowsPerChunk)
	}
}

func TestLoader_ReloadStartsFromFlags(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	write := func(caption string) {
		t.Helper()
		content := "spreadsheet_id = \"s\"\nlast_row = 10\ncaption = \"" + caption + "\"\n"
		if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("first")

	cfg := cliconfig.DefaultConfig()
	cfg.DryRun = true
	cmd := &cobra.Command{Use: "test"}
	l := newLoader(cmd, cfg, cfgFile)

	got, err := l.load(context.Background(), false)
	if err != nil || got.Caption != "first" {
		t.Fatalf("first load = %q, %v", got.Caption, err)
	}

	write("second")
	got, err = l.load(context.Background(), false)
	if err != nil || got.Caption != "second" {
		t.Fatalf("reload = %q, %v", got.Caption, err)
	}
}

func TestLoader_MissingFileIsOptional(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	cfg.SpreadsheetID = "s"
	cfg.LastRow = 5
	cfg.DryRun = true

	l := newLoader(&cobra.Command{Use: "test"}, cfg, filepath.Join(t.TempDir(), "absent.toml"))
	if l.hasFile() {
		t.Fatal("hasFile() = true for a missing file")
	}
	if _, err := l.load(context.Background(), false); err != nil {
		t.Errorf("load() error = %v", err)
	}
}

// growingWorkbook serves an xlsx export whose last occupied row is set by
// the test between requests.
type growingWorkbook struct {
	mu   sync.Mutex
	rows int
}

func (g *growingWorkbook) setRows(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rows = n
}

func (g *growingWorkbook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	rows := g.rows
	g.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()
	for i := 1; i <= rows; i++ {
		if err := f.SetCellValue("Sheet1", fmt.Sprintf("A%d", i), i); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(buf.Bytes())
}

func TestLoader_RefreshFollowsGrowingSheet(t *testing.T) {
	book := &growingWorkbook{rows: 20}
	srv := httptest.NewServer(book)
	defer srv.Close()

	cfg := cliconfig.DefaultConfig()
	cfg.SpreadsheetID = "s"
	cfg.ExportURL = srv.URL
	cfg.DryRun = true
	l := newLoader(&cobra.Command{Use: "test"}, cfg, filepath.Join(t.TempDir(), "absent.toml"))

	pre, err := l.load(context.Background(), false)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if !pre.NeedsInspection() {
		t.Fatal("last row left at 0 should ask for detection")
	}

	first, err := l.refresh(context.Background(), sheetshot.Config{})
	if err != nil {
		t.Fatalf("refresh() error = %v", err)
	}
	if first.LastRow != 20 {
		t.Errorf("first LastRow = %d, want 20", first.LastRow)
	}

	book.setRows(35)
	second, err := l.refresh(context.Background(), first)
	if err != nil {
		t.Fatalf("refresh() error = %v", err)
	}
	if second.LastRow != 35 {
		t.Errorf("second LastRow = %d, want 35 after the sheet grew", second.LastRow)
	}
}

func TestLoader_RefreshKeepsConfiguredLastRow(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := cliconfig.DefaultConfig()
	cfg.SpreadsheetID = "s"
	cfg.LastRow = 42
	cfg.ExportURL = srv.URL
	cfg.DryRun = true
	l := newLoader(&cobra.Command{Use: "test"}, cfg, filepath.Join(t.TempDir(), "absent.toml"))

	got, err := l.refresh(context.Background(), sheetshot.Config{})
	if err != nil {
		t.Fatalf("refresh() error = %v", err)
	}
	if got.LastRow != 42 || hits.Load() != 0 {
		t.Errorf("LastRow = %d after %d workbook reads, want 42 without reads", got.LastRow, hits.Load())
	}
}
