package ports

import "net/http"

// HTTPClient abstracts HTTP operations for the export and delivery adapters.
// The standard *http.Client satisfies this interface; tests substitute
// httptest servers or recording fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
