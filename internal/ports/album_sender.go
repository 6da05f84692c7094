package ports

import (
	"context"

	"github.com/bft-labs/sheetshot/internal/domain"
)

// AlbumSender uploads an album to the chat endpoint.
// The upload is all-or-nothing from the caller's point of view; the
// implementation must not retry internally.
type AlbumSender interface {
	SendAlbum(ctx context.Context, album domain.Album) error
}
