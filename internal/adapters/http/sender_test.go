package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

func TestEventSender_Send(t *testing.T) {
	var (
		gotHeader http.Header
		gotPath   string
		gotBody   []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"accepted":2}`))
	}))
	defer srv.Close()

	s := NewEventSender(srv.Client(), Metadata{
		Hostname:   "host-1",
		AuthKey:    "secret",
		ServiceURL: srv.URL,
	}, nil)

	events := []domain.Event{{ID: "1", Code: "a"}, {ID: "2", Code: "b"}}
	resp, err := s.Send(context.Background(), ports.Batch{Key: "checkout", Events: events, Payload: events})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if gotPath != eventsEndpoint {
		t.Errorf("path = %q, want %q", gotPath, eventsEndpoint)
	}
	headers := map[string]string{
		"Authorization":    "Bearer secret",
		"Content-Type":     "application/json",
		"X-Logjam-Key":     "checkout",
		"X-Agent-Hostname": "host-1",
	}
	for k, want := range headers {
		if got := gotHeader.Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}
	if gotHeader.Get("X-Agent-OSArch") == "" {
		t.Error("X-Agent-OSArch not set")
	}
	if len(gotBody) != 2 || gotBody[1]["code"] != "b" {
		t.Errorf("body = %v", gotBody)
	}
	if diff := cmp.Diff(map[string]any{"success": true, "accepted": float64(2)}, resp.Body); diff != "" {
		t.Errorf("response body mismatch (-want +got):\n%s", diff)
	}
}

func TestEventSender_Responses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantSuccess bool
		wantStatus  int
	}{
		{"empty 2xx", http.StatusNoContent, "", true, 0},
		{"plain text", http.StatusOK, "ok", true, 0},
		{"success false", http.StatusOK, `{"success":false,"reason":"quota"}`, false, 0},
		{"server error", http.StatusInternalServerError, "boom", false, 500},
		{"unauthorized", http.StatusUnauthorized, "", false, 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewEventSender(srv.Client(), Metadata{ServiceURL: srv.URL}, nil)
			resp, err := s.Send(context.Background(), ports.Batch{Key: "k"})

			if tt.wantStatus != 0 {
				var se *StatusError
				if !errors.As(err, &se) || se.Code != tt.wantStatus {
					t.Fatalf("Send() error = %v, want status %d", err, tt.wantStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", resp.Success, tt.wantSuccess)
			}
		})
	}
}

type failingClient struct{ err error }

func (c failingClient) Do(*http.Request) (*http.Response, error) { return nil, c.err }

func TestEventSender_TransportError(t *testing.T) {
	errDial := errors.New("dial refused")
	s := NewEventSender(failingClient{err: errDial}, Metadata{ServiceURL: "http://sink.invalid"}, nil)

	_, err := s.Send(context.Background(), ports.Batch{Key: "k"})
	if !errors.Is(err, errDial) {
		t.Errorf("Send() error = %v, want wrapped dial error", err)
	}
}

func TestEventSender_UnmarshalablePayload(t *testing.T) {
	s := NewEventSender(failingClient{}, Metadata{}, nil)

	_, err := s.Send(context.Background(), ports.Batch{Key: "k", Payload: func() {}})
	if err == nil {
		t.Fatal("Send() succeeded with a func payload")
	}
}
