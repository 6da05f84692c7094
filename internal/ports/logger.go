package ports

import "github.com/bft-labs/sheetshot/pkg/log"

// Logger provides structured logging capabilities.
type Logger = log.Logger

// Field is a key-value pair for structured logging.
type Field = log.Field

// Field constructors re-exported for the application layer.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
