// Package http implements the spreadsheet export port over the Google
// Sheets export endpoint.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// DefaultExportURL is the base URL of the spreadsheet export endpoint.
const DefaultExportURL = "https://docs.google.com/spreadsheets/d"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// pdfPageOptions lay out every chunk as one tightly packed portrait page.
var pdfPageOptions = map[string]string{
	"size":                 "A4",
	"portrait":             "true",
	"fitw":                 "true",
	"gridlines":            "false",
	"printtitle":           "false",
	"sheetnames":           "false",
	"pagenum":              "UNDEFINED",
	"fzr":                  "false",
	"top_margin":           "0",
	"bottom_margin":        "0",
	"left_margin":          "0",
	"right_margin":         "0",
	"horizontal_alignment": "LEFT",
	"vertical_alignment":   "TOP",
}

// SheetsExporter implements ports.Exporter.
type SheetsExporter struct {
	client  ports.HTTPClient
	baseURL string
	logger  ports.Logger
}

// NewSheetsExporter creates an exporter. An empty baseURL means DefaultExportURL.
func NewSheetsExporter(client ports.HTTPClient, baseURL string, logger ports.Logger) *SheetsExporter {
	if baseURL == "" {
		baseURL = DefaultExportURL
	}
	return &SheetsExporter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Export downloads one row range of a sheet as a PDF document.
func (e *SheetsExporter) Export(ctx context.Context, req ports.ExportRequest) ([]byte, error) {
	a1, err := A1Range(req.Columns, req.Rows)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("format", "pdf")
	q.Set("gid", req.GID)
	q.Set("range", a1)
	for k, v := range pdfPageOptions {
		q.Set(k, v)
	}
	return e.get(ctx, req.SpreadsheetID, q, req.Credential)
}

// ExportWorkbook downloads the whole spreadsheet as an xlsx workbook.
func (e *SheetsExporter) ExportWorkbook(ctx context.Context, spreadsheetID, credential string) ([]byte, error) {
	q := url.Values{}
	q.Set("format", "xlsx")
	return e.get(ctx, spreadsheetID, q, credential)
}

func (e *SheetsExporter) get(ctx context.Context, spreadsheetID string, q url.Values, credential string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/export?%s", e.baseURL, url.PathEscape(spreadsheetID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// A1Range combines a column span such as "A:K" with a row range into an
// A1 reference such as "A1:K40".
func A1Range(columns string, rows domain.RowRange) (string, error) {
	if !rows.Valid() {
		return "", fmt.Errorf("invalid rows %s", rows)
	}
	if columns == "" {
		columns = domain.DefaultColumns
	}
	from, to, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(columns)), ":")
	if !ok {
		to = from
	}
	if !isColumn(from) || !isColumn(to) {
		return "", fmt.Errorf("invalid column span %q", columns)
	}
	return fmt.Sprintf("%s%d:%s%d", from, rows.Start, to, rows.End), nil
}

func isColumn(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
