package domain

import "testing"

func TestRowRange(t *testing.T) {
	r := RowRange{Start: 41, End: 80}
	if r.Size() != 40 {
		t.Errorf("Size() = %d, want 40", r.Size())
	}
	if !r.Valid() {
		t.Error("Valid() = false")
	}
	if r.String() != "41-80" {
		t.Errorf("String() = %q", r.String())
	}
	if (RowRange{Start: 0, End: 3}).Valid() || (RowRange{Start: 5, End: 4}).Valid() {
		t.Error("invalid ranges reported valid")
	}
}

func TestChunkKey(t *testing.T) {
	c := Chunk{Index: 1, Rows: RowRange{Start: 41, End: 80}}
	if c.Key() != "rows-41-80" {
		t.Errorf("Key() = %q", c.Key())
	}
	if c.Start() != 41 || c.End() != 80 {
		t.Errorf("Start/End = %d/%d", c.Start(), c.End())
	}
}

func TestSortArtifacts(t *testing.T) {
	arts := []Artifact{{SourceStart: 81}, {SourceStart: 1}, {SourceStart: 41}}
	SortArtifacts(arts)
	for i, want := range []int{1, 41, 81} {
		if arts[i].SourceStart != want {
			t.Fatalf("order = %v", arts)
		}
	}
}
