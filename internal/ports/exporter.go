package ports

import (
	"context"

	"github.com/bft-labs/sheetshot/internal/domain"
)

// ExportRequest selects one printable range of a sheet.
type ExportRequest struct {
	SpreadsheetID string
	GID           string
	Columns       string
	Rows          domain.RowRange
	Credential    string
}

// Exporter renders a range of a remote sheet as a document.
type Exporter interface {
	// Export returns the raw document bytes for the requested range.
	// A non-2xx answer must be returned as *domain.HTTPError so that the
	// caller can tell a 429 from any other failure.
	Export(ctx context.Context, req ExportRequest) ([]byte, error)
}
