package domain

// Default tunables for a pipeline run.
const (
	DefaultMaxRowsPerChunk = 40
	DefaultMergeThreshold  = 9
	DefaultConcurrency     = 2
	DefaultColumns         = "A:Z"
)

// Request is the input of one pipeline run. It is not modified while the
// run is in progress.
type Request struct {
	// SpreadsheetID identifies the remote spreadsheet document.
	SpreadsheetID string

	// GID identifies the sheet (tab) inside the spreadsheet.
	GID string

	// SheetName is used to derive artifact display names. Falls back to GID.
	SheetName string

	// Columns is the column span exported for every chunk, e.g. "A:K".
	Columns string

	// Rows is the full row range to render. Start is always 1.
	Rows RowRange

	// MaxRowsPerChunk bounds the size of every planned chunk.
	MaxRowsPerChunk int

	// MergeThreshold is the minimum size of a trailing chunk before it is
	// merged into its predecessor. Zero disables merging.
	MergeThreshold int

	// Caption is attached to the first image of the album.
	Caption string

	// Credential is a ready-to-use bearer token for the export endpoint.
	Credential string

	// ChatID is the delivery destination.
	ChatID string

	// Concurrency bounds the number of chunk renders in flight.
	Concurrency int
}

// LastRow returns the last row of the requested range.
func (r Request) LastRow() int {
	return r.Rows.End
}
