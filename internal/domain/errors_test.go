package domain

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	cause := errors.New("cause")
	rows := RowRange{Start: 41, End: 80}

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"invalid range", &InvalidRangeError{LastRow: 0, Reason: "x"}, ErrInvalidRange},
		{"rate limited", &RateLimitedError{Attempt: 1, Err: cause}, ErrRateLimited},
		{"fetch", &FetchError{Rows: rows, Attempts: 5, Err: cause}, ErrFetch},
		{"conversion", &ConversionError{Rows: rows, Stage: StageExit, Err: cause}, ErrConversion},
		{"delivery", &DeliveryError{Items: 3, Err: cause}, ErrDelivery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			if tt.sentinel != ErrInvalidRange && !errors.Is(tt.err, cause) {
				t.Errorf("cause not reachable from %v", tt.err)
			}
		})
	}
}

func TestFetchError_StatusCode(t *testing.T) {
	limited := &RateLimitedError{Attempt: 5, Err: &HTTPError{StatusCode: http.StatusTooManyRequests}}
	err := &FetchError{Rows: RowRange{Start: 1, End: 40}, Attempts: 5, Err: limited}

	if got := err.StatusCode(); got != http.StatusTooManyRequests {
		t.Errorf("StatusCode() = %d, want 429", got)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("exhausted fetch should still match ErrRateLimited")
	}
	if !strings.Contains(err.Error(), "1-40") {
		t.Errorf("Error() = %q, want rows", err.Error())
	}

	plain := &FetchError{Err: errors.New("dial")}
	if plain.StatusCode() != 0 {
		t.Errorf("StatusCode() = %d, want 0", plain.StatusCode())
	}
}

func TestConversionError_Message(t *testing.T) {
	err := &ConversionError{Rows: RowRange{Start: 41, End: 80}, Stage: StageStart, Err: errors.New("not found")}
	if got := err.Error(); !strings.Contains(got, "41-80") || !strings.Contains(got, "start") {
		t.Errorf("Error() = %q", got)
	}

	bare := &ConversionError{Stage: StageDecode, Err: errors.New("bad png")}
	if strings.Contains(bare.Error(), "rows") {
		t.Errorf("Error() = %q, want no rows", bare.Error())
	}
}

func TestHTTPError(t *testing.T) {
	if !(&HTTPError{StatusCode: 429}).RateLimited() {
		t.Error("429 should be rate limited")
	}
	if (&HTTPError{StatusCode: 503}).RateLimited() {
		t.Error("503 should not be rate limited")
	}
	if got := (&HTTPError{StatusCode: 404}).Error(); !strings.Contains(got, "Not Found") {
		t.Errorf("Error() = %q", got)
	}
}
