// Package sheets discovers sheet metadata (last occupied row, caption
// cell) by reading the spreadsheet as an xlsx workbook.
package sheets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bft-labs/sheetshot/internal/ports"
)

// WorkbookSource downloads a spreadsheet as xlsx.
type WorkbookSource interface {
	ExportWorkbook(ctx context.Context, spreadsheetID, credential string) ([]byte, error)
}

// Inspector implements ports.SheetInspector.
type Inspector struct {
	source     WorkbookSource
	credential string
}

// NewInspector creates an Inspector authenticating with credential.
func NewInspector(source WorkbookSource, credential string) *Inspector {
	return &Inspector{source: source, credential: credential}
}

// Inspect downloads the workbook and reads sheetName from it.
func (i *Inspector) Inspect(ctx context.Context, spreadsheetID, sheetName, captionCell string) (ports.SheetInfo, error) {
	data, err := i.source.ExportWorkbook(ctx, spreadsheetID, i.credential)
	if err != nil {
		return ports.SheetInfo{}, fmt.Errorf("download workbook: %w", err)
	}
	return InspectWorkbook(bytes.NewReader(data), sheetName, captionCell)
}

// InspectWorkbook reads an xlsx workbook. An empty sheetName selects the
// first sheet. LastRow is the last row holding any non-blank cell.
func InspectWorkbook(r io.Reader, sheetName, captionCell string) (ports.SheetInfo, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ports.SheetInfo{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return ports.SheetInfo{}, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	}
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil || idx < 0 {
		return ports.SheetInfo{}, fmt.Errorf("sheet %q not found", sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return ports.SheetInfo{}, fmt.Errorf("read rows of %q: %w", sheetName, err)
	}
	info := ports.SheetInfo{SheetName: sheetName, LastRow: lastOccupiedRow(rows)}

	if captionCell != "" {
		if _, _, err := excelize.CellNameToCoordinates(captionCell); err != nil {
			return ports.SheetInfo{}, fmt.Errorf("caption cell %q: %w", captionCell, err)
		}
		v, err := f.GetCellValue(sheetName, captionCell)
		if err != nil {
			return ports.SheetInfo{}, fmt.Errorf("read caption cell %s: %w", captionCell, err)
		}
		info.Caption = strings.TrimSpace(v)
	}
	return info, nil
}

func lastOccupiedRow(rows [][]string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				return i + 1
			}
		}
	}
	return 0
}
