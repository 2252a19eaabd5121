package sender

import (
	httpAdapter "github.com/bft-labs/logjam/internal/adapters/http"
	"github.com/bft-labs/logjam/pkg/log"
)

// Metadata provides context for HTTP sends.
// This information is included in HTTP headers for server-side tracking.
type Metadata = httpAdapter.Metadata

// HTTPSender POSTs batch payloads as JSON to ServiceURL + /v1/ingest/events.
type HTTPSender = httpAdapter.EventSender

// StatusError is returned by HTTPSender for non-2xx responses.
type StatusError = httpAdapter.StatusError

// NewHTTPSender creates a new HTTP sender. A nil client uses http.DefaultClient.
func NewHTTPSender(client HTTPClient, metadata Metadata, logger log.Logger) *HTTPSender {
	return httpAdapter.NewEventSender(client, metadata, logger)
}
