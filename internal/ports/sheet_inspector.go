package ports

import "context"

// SheetInfo is what the CLI layer needs to know about a sheet before a run.
type SheetInfo struct {
	SheetName string
	LastRow   int
	Caption   string
}

// SheetInspector reads sheet metadata that the pipeline itself never looks at.
type SheetInspector interface {
	// Inspect returns the last occupied row of the sheet and, when
	// captionCell is not empty, the value of that cell.
	Inspect(ctx context.Context, spreadsheetID, sheetName, captionCell string) (SheetInfo, error)
}
