package domain

import "sort"

// Artifact is the rendered image for one chunk.
// SourceStart always equals the Start of the chunk that produced it and is
// used only to restore original row order.
type Artifact struct {
	Image       []byte
	Name        string
	SourceStart int
	Rows        RowRange
}

// Result is the ordered output of one pipeline run.
type Result struct {
	RunID     string
	Artifacts []Artifact
}

// SortArtifacts orders artifacts by ascending SourceStart in place.
func SortArtifacts(artifacts []Artifact) {
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].SourceStart < artifacts[j].SourceStart
	})
}

// AlbumItem is one image in an outbound album.
type AlbumItem struct {
	Image   []byte
	Name    string
	Caption string
}

// Album is the single grouped upload for one run, in original row order.
// Only the first item carries a caption.
type Album struct {
	ChatID string
	Items  []AlbumItem
}

// Size returns the number of images in the album.
func (a Album) Size() int {
	return len(a.Items)
}
