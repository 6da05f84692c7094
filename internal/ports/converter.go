package ports

import "context"

// Converter rasterizes the first page of a document and trims uniform
// margins. Failures are reported as *domain.ConversionError.
type Converter interface {
	Convert(ctx context.Context, document []byte) ([]byte, error)
}
