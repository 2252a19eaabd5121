package sender

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bft-labs/logjam/internal/domain"
)

func TestEnvelope(t *testing.T) {
	events := []domain.Event{{ID: "1", Code: "a"}, {ID: "2", Code: "b"}}

	got, ok := Envelope("checkout")(events).(EnvelopePayload)
	if !ok {
		t.Fatal("Envelope did not return an EnvelopePayload")
	}
	if got.Key != "checkout" || got.Count != 2 || len(got.Events) != 2 {
		t.Errorf("payload = %+v", got)
	}
	if got.SentAt == "" {
		t.Error("SentAt not set")
	}
}

func TestFunc(t *testing.T) {
	var seen Batch
	s := Func(func(ctx context.Context, b Batch) (Response, error) {
		seen = b
		return Response{Success: true}, nil
	})

	resp, err := s.Send(context.Background(), Batch{Key: "k"})
	if err != nil || !resp.Success || seen.Key != "k" {
		t.Errorf("Send() = %+v, %v", resp, err)
	}
}

func TestHTTPSender_Envelope(t *testing.T) {
	var body EnvelopePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewReliable(NewHTTPSender(srv.Client(), Metadata{ServiceURL: srv.URL}, nil), DefaultReliableConfig(), nil)
	events := []domain.Event{{ID: "1", Code: "a"}}

	resp, err := s.Send(context.Background(), Batch{Key: "k", Events: events, Payload: Envelope("k")(events)})
	if err != nil || !resp.Success {
		t.Fatalf("Send() = %+v, %v", resp, err)
	}
	if body.Key != "k" || body.Count != 1 || body.Events[0].Code != "a" {
		t.Errorf("server received %+v", body)
	}
}
