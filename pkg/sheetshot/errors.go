package sheetshot

import "github.com/bft-labs/sheetshot/internal/domain"

// Errors returned by Sheetshot. Match them with errors.Is.
var (
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrInvalidRange    = domain.ErrInvalidRange
	ErrRateLimited     = domain.ErrRateLimited
	ErrFetch           = domain.ErrFetch
	ErrConversion      = domain.ErrConversion
	ErrDelivery        = domain.ErrDelivery
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
)

// Typed errors carrying the failing chunk or status code.
type (
	FetchError      = domain.FetchError
	ConversionError = domain.ConversionError
	DeliveryError   = domain.DeliveryError
	HTTPError       = domain.HTTPError
)
