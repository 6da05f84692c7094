package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// DefaultMaxAlbumItems is the largest album the chat endpoint accepts in one call.
const DefaultMaxAlbumItems = 10

// Assembler builds the single outbound album and hands it to the sender.
type Assembler struct {
	sender   ports.AlbumSender
	maxItems int
	logger   ports.Logger
}

// NewAssembler creates an Assembler. maxItems < 1 means DefaultMaxAlbumItems.
func NewAssembler(sender ports.AlbumSender, maxItems int, logger ports.Logger) *Assembler {
	if maxItems < 1 {
		maxItems = DefaultMaxAlbumItems
	}
	return &Assembler{sender: sender, maxItems: maxItems, logger: logger}
}

// Assemble orders the artifacts by SourceStart and builds the album.
// Only the first item carries the caption.
func (a *Assembler) Assemble(result domain.Result, caption, chatID string) (domain.Album, error) {
	if len(result.Artifacts) == 0 {
		return domain.Album{}, &domain.DeliveryError{Err: fmt.Errorf("nothing to deliver")}
	}
	if len(result.Artifacts) > a.maxItems {
		return domain.Album{}, &domain.DeliveryError{Items: len(result.Artifacts),
			Err: fmt.Errorf("album holds at most %d images", a.maxItems)}
	}

	artifacts := append([]domain.Artifact(nil), result.Artifacts...)
	domain.SortArtifacts(artifacts)

	album := domain.Album{ChatID: chatID, Items: make([]domain.AlbumItem, len(artifacts))}
	for i, art := range artifacts {
		album.Items[i] = domain.AlbumItem{Image: art.Image, Name: art.Name}
	}
	album.Items[0].Caption = caption
	return album, nil
}

// Deliver uploads the album in one call. It is never retried.
func (a *Assembler) Deliver(ctx context.Context, album domain.Album) error {
	if err := a.sender.SendAlbum(ctx, album); err != nil {
		return &domain.DeliveryError{Items: album.Size(), Err: err}
	}
	a.logger.Info("album delivered", ports.Int("images", album.Size()), ports.String("chat_id", album.ChatID))
	return nil
}
