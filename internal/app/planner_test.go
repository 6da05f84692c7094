package app

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bft-labs/sheetshot/internal/domain"
)

func ranges(chunks []domain.Chunk) []domain.RowRange {
	out := make([]domain.RowRange, len(chunks))
	for i, c := range chunks {
		out[i] = c.Rows
	}
	return out
}

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name    string
		lastRow int
		max     int
		merge   int
		want    []domain.RowRange
	}{
		{"short tail merged", 45, 40, 9, []domain.RowRange{{Start: 1, End: 45}}},
		{"tail at threshold kept", 49, 40, 9, []domain.RowRange{{Start: 1, End: 40}, {Start: 41, End: 49}}},
		{"two chunks", 50, 40, 9, []domain.RowRange{{Start: 1, End: 40}, {Start: 41, End: 50}}},
		{"exact multiple", 80, 40, 9, []domain.RowRange{{Start: 1, End: 40}, {Start: 41, End: 80}}},
		{"single row", 1, 40, 9, []domain.RowRange{{Start: 1, End: 1}}},
		{"single short chunk", 5, 40, 9, []domain.RowRange{{Start: 1, End: 5}}},
		{"merge only once", 83, 40, 9, []domain.RowRange{{Start: 1, End: 40}, {Start: 41, End: 83}}},
		{"merge disabled", 45, 40, 0, []domain.RowRange{{Start: 1, End: 40}, {Start: 41, End: 45}}},
		{"tiny chunks", 7, 2, 2, []domain.RowRange{{Start: 1, End: 2}, {Start: 3, End: 4}, {Start: 5, End: 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := PlanChunks(tt.lastRow, tt.max, tt.merge)
			if err != nil {
				t.Fatalf("PlanChunks() error = %v", err)
			}
			if got := ranges(chunks); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PlanChunks(%d, %d, %d) = %v, want %v", tt.lastRow, tt.max, tt.merge, got, tt.want)
			}
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunk %d has index %d", i, c.Index)
				}
			}
		})
	}
}

func TestPlanChunks_CoversEveryRowOnce(t *testing.T) {
	for lastRow := 1; lastRow <= 200; lastRow++ {
		for _, max := range []int{1, 7, 40} {
			chunks, err := PlanChunks(lastRow, max, 9)
			if err != nil {
				t.Fatalf("PlanChunks(%d, %d) error = %v", lastRow, max, err)
			}
			next := 1
			for i, c := range chunks {
				if c.Start() != next {
					t.Fatalf("PlanChunks(%d, %d): chunk %d starts at %d, want %d", lastRow, max, i, c.Start(), next)
				}
				if c.End() < c.Start() {
					t.Fatalf("PlanChunks(%d, %d): empty chunk %s", lastRow, max, c.Rows)
				}
				if i < len(chunks)-1 && c.Rows.Size() > max {
					t.Fatalf("PlanChunks(%d, %d): non-final chunk %s exceeds max", lastRow, max, c.Rows)
				}
				next = c.End() + 1
			}
			if next != lastRow+1 {
				t.Fatalf("PlanChunks(%d, %d) ends at %d", lastRow, max, next-1)
			}
			if len(chunks) > 1 && chunks[len(chunks)-1].Rows.Size() > max+9-1 {
				t.Fatalf("PlanChunks(%d, %d): final chunk %s too large", lastRow, max, chunks[len(chunks)-1].Rows)
			}
		}
	}
}

func TestPlanChunks_Deterministic(t *testing.T) {
	a, _ := PlanChunks(123, 40, 9)
	b, _ := PlanChunks(123, 40, 9)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("plans differ: %v vs %v", a, b)
	}
}

func TestPlanChunks_Invalid(t *testing.T) {
	tests := []struct {
		name                string
		lastRow, max, merge int
	}{
		{"zero last row", 0, 40, 9},
		{"negative last row", -3, 40, 9},
		{"zero max", 10, 0, 9},
		{"negative merge", 10, 40, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanChunks(tt.lastRow, tt.max, tt.merge)
			if !errors.Is(err, domain.ErrInvalidRange) {
				t.Fatalf("error = %v, want ErrInvalidRange", err)
			}
			var rerr *domain.InvalidRangeError
			if !errors.As(err, &rerr) || rerr.LastRow != tt.lastRow {
				t.Errorf("error = %#v", err)
			}
		})
	}
}
