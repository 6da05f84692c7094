package sender

import "net/http"

// HTTPClient abstracts request execution so uploads can be tested without
// reaching Telegram. The standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
