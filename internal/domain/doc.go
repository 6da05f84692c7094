// Package domain contains the core entities and value objects for sheetshot.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (HTTP, staging, logging) and contains only the
// rules of the chunked rendering pipeline.
//
// # Entities
//
//   - [RowRange]: an inclusive, 1-based span of spreadsheet rows
//   - [Chunk]: one planned RowRange, rendered as one page image
//   - [Artifact]: the rendered image for one chunk, tagged for re-ordering
//   - [Album]: the single ordered payload handed to the delivery boundary
//   - [Request]: the immutable input of one pipeline run
//
// # Errors
//
// Failures are reported through a small taxonomy ([InvalidRangeError],
// [RateLimitedError], [FetchError], [ConversionError], [DeliveryError]).
// Each type unwraps to a sentinel so callers can use errors.Is as well as
// errors.As.
package domain
