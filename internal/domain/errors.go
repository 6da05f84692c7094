package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors. Every typed error below unwraps to one of these.
var (
	// ErrInvalidRange is returned for bad planning input, before any network activity.
	ErrInvalidRange = errors.New("sheetshot: invalid row range")

	// ErrRateLimited marks a 429 answer from the export endpoint.
	ErrRateLimited = errors.New("sheetshot: rate limited")

	// ErrFetch marks a terminal export failure.
	ErrFetch = errors.New("sheetshot: export failed")

	// ErrConversion marks a terminal raster conversion failure.
	ErrConversion = errors.New("sheetshot: conversion failed")

	// ErrDelivery marks a failed album upload.
	ErrDelivery = errors.New("sheetshot: delivery failed")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("sheetshot: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("sheetshot: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("sheetshot: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("sheetshot: invalid configuration")
)

// InvalidRangeError reports planning input that cannot produce chunks.
type InvalidRangeError struct {
	LastRow         int
	MaxRowsPerChunk int
	MergeThreshold  int
	Reason          string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range (last row %d, max rows %d, merge threshold %d): %s",
		e.LastRow, e.MaxRowsPerChunk, e.MergeThreshold, e.Reason)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// HTTPError is a non-2xx answer from a remote endpoint.
type HTTPError struct {
	StatusCode int
	Body       string

	// RetryAfter is the server-provided delay hint, zero when absent.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the status is 429.
func (e *HTTPError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// RateLimitedError is the last 429 seen by the retry loop.
// It never escapes the pipeline on its own; exhaustion wraps it in a FetchError.
type RateLimitedError struct {
	Attempt    int
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited on attempt %d: %v", e.Attempt, e.Err)
}

func (e *RateLimitedError) Unwrap() []error { return []error{ErrRateLimited, e.Err} }

// FetchError is a terminal export failure for one chunk.
type FetchError struct {
	Rows     RowRange
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("export rows %s failed after %d attempt(s): %v", e.Rows, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// StatusCode returns the HTTP status behind the failure, or 0.
func (e *FetchError) StatusCode() int {
	var herr *HTTPError
	if errors.As(e.Err, &herr) {
		return herr.StatusCode
	}
	return 0
}

// Conversion stages.
const (
	StageStart  = "start"
	StageExit   = "exit"
	StageDecode = "decode"
)

// ConversionError is a terminal raster conversion failure for one chunk.
// Stage tells whether the converter could not be started, exited with a
// failure, or produced output that could not be decoded.
type ConversionError struct {
	Rows  RowRange
	Stage string
	Err   error
}

func (e *ConversionError) Error() string {
	if e.Rows.Valid() {
		return fmt.Sprintf("convert rows %s (%s): %v", e.Rows, e.Stage, e.Err)
	}
	return fmt.Sprintf("convert (%s): %v", e.Stage, e.Err)
}

func (e *ConversionError) Unwrap() []error { return []error{ErrConversion, e.Err} }

// DeliveryError is a failed album upload. It is never retried.
type DeliveryError struct {
	Items int
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver album of %d image(s): %v", e.Items, e.Err)
}

func (e *DeliveryError) Unwrap() []error { return []error{ErrDelivery, e.Err} }
