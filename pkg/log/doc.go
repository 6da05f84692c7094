// Package log provides a logging abstraction for sheetshot components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. Default implementations are provided for zerolog
// and a no-op logger for testing.
//
// # Usage
//
// Use the provided zerolog adapter:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Derive a scoped logger that stamps every entry with the same fields:
//
//	chunkLog := logger.With(log.String("rows", "1-40"))
//
// Or use the no-op logger for testing:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.1.0
package log
