package ports

import "net/http"

// HTTPClient is the subset of *http.Client the HTTP sender needs.
// Tests substitute a fake to observe requests without a server.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
