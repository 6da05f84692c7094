package app

import "github.com/bft-labs/sheetshot/internal/domain"

// PlanChunks splits [1, lastRow] into consecutive chunks of at most
// maxRowsPerChunk rows. When the final chunk is smaller than
// mergeThreshold it is folded into its predecessor; this happens at most
// once. A mergeThreshold of zero disables merging.
//
// PlanChunks is pure: identical input always yields an identical plan.
func PlanChunks(lastRow, maxRowsPerChunk, mergeThreshold int) ([]domain.Chunk, error) {
	switch {
	case lastRow < 1:
		return nil, &domain.InvalidRangeError{LastRow: lastRow, MaxRowsPerChunk: maxRowsPerChunk,
			MergeThreshold: mergeThreshold, Reason: "last row must be at least 1"}
	case maxRowsPerChunk < 1:
		return nil, &domain.InvalidRangeError{LastRow: lastRow, MaxRowsPerChunk: maxRowsPerChunk,
			MergeThreshold: mergeThreshold, Reason: "max rows per chunk must be at least 1"}
	case mergeThreshold < 0:
		return nil, &domain.InvalidRangeError{LastRow: lastRow, MaxRowsPerChunk: maxRowsPerChunk,
			MergeThreshold: mergeThreshold, Reason: "merge threshold must not be negative"}
	}

	ranges := make([]domain.RowRange, 0, (lastRow+maxRowsPerChunk-1)/maxRowsPerChunk)
	for start := 1; start <= lastRow; {
		end := min(start+maxRowsPerChunk-1, lastRow)
		ranges = append(ranges, domain.RowRange{Start: start, End: end})
		start = end + 1
	}

	if n := len(ranges); n >= 2 && ranges[n-1].Size() < mergeThreshold {
		ranges[n-2].End = ranges[n-1].End
		ranges = ranges[:n-1]
	}

	chunks := make([]domain.Chunk, len(ranges))
	for i, r := range ranges {
		chunks[i] = domain.Chunk{Index: i, Rows: r}
	}
	return chunks, nil
}
