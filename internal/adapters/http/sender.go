package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/bft-labs/logjam/internal/ports"
)

const eventsEndpoint = "/v1/ingest/events"

// maxResponseBody bounds how much of a response is read and decoded.
const maxResponseBody = 1 << 20

// Metadata provides context for the send operation.
// This information is included in HTTP headers for server-side tracking.
type Metadata struct {
	// Hostname is the agent's hostname
	Hostname string

	// OSArch is the operating system and architecture (e.g., "linux/amd64").
	// Defaults to the running platform.
	OSArch string

	// AuthKey is the API authentication key
	AuthKey string

	// ServiceURL is the base URL of the ingestion service
	ServiceURL string
}

// EventSender implements ports.Sender by POSTing the batch payload as JSON.
type EventSender struct {
	client   ports.HTTPClient
	metadata Metadata
	logger   ports.Logger
}

// NewEventSender creates a new HTTP event sender.
func NewEventSender(client ports.HTTPClient, metadata Metadata, logger ports.Logger) *EventSender {
	if client == nil {
		client = http.DefaultClient
	}
	if metadata.OSArch == "" {
		metadata.OSArch = runtime.GOOS + "/" + runtime.GOARCH
	}
	if logger == nil {
		logger = ports.NewNoopLogger()
	}
	return &EventSender{
		client:   client,
		metadata: metadata,
		logger:   logger,
	}
}

// Send transmits a batch to the remote service.
//
// A 2xx status is a success unless the response is a JSON object whose
// "success" field is false. Any other status is returned as an error.
func (s *EventSender) Send(ctx context.Context, batch ports.Batch) (ports.Response, error) {
	payload := batch.Payload
	if payload == nil {
		payload = batch.Events
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	url := s.metadata.ServiceURL + eventsEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ports.Response{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.metadata.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.metadata.AuthKey)
	}
	req.Header.Set("X-Logjam-Key", string(batch.Key))
	req.Header.Set("X-Agent-Hostname", s.metadata.Hostname)
	req.Header.Set("X-Agent-OSArch", s.metadata.OSArch)

	resp, err := s.client.Do(req)
	if err != nil {
		return ports.Response{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode/100 != 2 {
		return ports.Response{}, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	decoded := decodeBody(respBody)
	success := true
	if obj, ok := decoded.(map[string]any); ok {
		if v, ok := obj["success"].(bool); ok {
			success = v
		}
	}
	if !success {
		s.logger.Debug("sink reported failure",
			ports.String("key", string(batch.Key)),
			ports.Int("status", resp.StatusCode),
		)
	}
	return ports.Response{Success: success, Body: decoded}, nil
}

// decodeBody returns the JSON value in b, the raw text when b is not JSON,
// or nil when b is empty.
func decodeBody(b []byte) any {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}
