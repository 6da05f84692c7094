package cliconfig

import (
	"context"
	"fmt"

	httpAdapter "github.com/bft-labs/sheetshot/internal/adapters/http"
	"github.com/bft-labs/sheetshot/internal/adapters/sheets"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// ResolveSheetInfo fills LastRow and Caption from the workbook when they
// are not configured. Configured values always win.
func ResolveSheetInfo(ctx context.Context, cfg *Config, inspector ports.SheetInspector) error {
	if !cfg.NeedsInspection() {
		return nil
	}

	info, err := inspector.Inspect(ctx, cfg.SpreadsheetID, cfg.SheetName, cfg.CaptionCell)
	if err != nil {
		return fmt.Errorf("inspect sheet: %w", err)
	}

	if cfg.LastRow == 0 {
		if info.LastRow < 1 {
			return fmt.Errorf("sheet %q has no occupied rows", info.SheetName)
		}
		cfg.LastRow = info.LastRow
	}
	if cfg.Caption == "" && cfg.CaptionCell != "" {
		cfg.Caption = info.Caption
	}
	if cfg.SheetName == "" {
		cfg.SheetName = info.SheetName
	}
	return nil
}

// NewInspector builds the workbook inspector for cfg. It downloads the
// spreadsheet as xlsx through the same export endpoint the pipeline uses.
func NewInspector(cfg Config, client ports.HTTPClient, logger ports.Logger) ports.SheetInspector {
	exporter := httpAdapter.NewSheetsExporter(client, cfg.ExportURL, logger)
	return sheets.NewInspector(exporter, cfg.AccessToken)
}
