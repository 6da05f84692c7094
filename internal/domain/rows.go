package domain

import "fmt"

// RowRange is an inclusive span of 1-based spreadsheet rows.
// A valid range satisfies 1 <= Start <= End.
type RowRange struct {
	Start int
	End   int
}

// Size returns the number of rows covered by the range.
func (r RowRange) Size() int {
	return r.End - r.Start + 1
}

// Valid reports whether the range is well formed.
func (r RowRange) Valid() bool {
	return r.Start >= 1 && r.Start <= r.End
}

// String renders the range as "start-end".
func (r RowRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Chunk is one planned segment of the source table.
// Chunks are created by the planner and never mutated afterwards; the
// position of a chunk in the overall sequence is implied by Rows.Start.
type Chunk struct {
	// Index is the zero-based position in the planned sequence.
	Index int

	// Rows is the row span rendered by this chunk.
	Rows RowRange
}

// Start returns the first source row of the chunk.
func (c Chunk) Start() int { return c.Rows.Start }

// End returns the last source row of the chunk.
func (c Chunk) End() int { return c.Rows.End }

// Key returns a staging-safe identifier unique within one run.
func (c Chunk) Key() string {
	return "rows-" + c.Rows.String()
}
