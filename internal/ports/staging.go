package ports

import "context"

// Staging is scratch storage shared by all chunk renders of one run.
// Callers must use disjoint keys per chunk.
type Staging interface {
	// Put stores data under key.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the data stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
