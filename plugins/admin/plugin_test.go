package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/logjam/pkg/logjam"
	"github.com/bft-labs/logjam/pkg/sender"
)

// sink records batch sizes and fails while fail is set.
type sink struct {
	mu    sync.Mutex
	sizes []int
	fail  bool
}

func (s *sink) Send(ctx context.Context, b sender.Batch) (sender.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return sender.Response{}, errors.New("sink down")
	}
	s.sizes = append(s.sizes, len(b.Events))
	return sender.Response{Success: true}, nil
}

type fixture struct {
	lj   *logjam.Logjam
	sink *sink
	srv  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := &sink{}
	plugin := New(Config{Gatherer: reg})

	cfg := logjam.DefaultConfig()
	cfg.TimeInterval = time.Hour
	lj, err := logjam.New(cfg,
		logjam.WithSender(s),
		logjam.WithMetrics(reg),
		logjam.WithPlugin(plugin),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := lj.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = lj.Stop() })

	srv := httptest.NewServer(plugin.Handler())
	t.Cleanup(srv.Close)

	lj.Log("a", "a1")
	lj.Log("a", "a2")
	lj.Log("b", "b1")
	return &fixture{lj: lj, sink: s, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestAdmin_ListKeysAndLogs(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/v1/keys", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var view viewResponse
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(viewResponse{
		Keys:   []logjam.Key{"a", "b"},
		Paused: []logjam.Key{},
		Active: []logjam.Key{"a", "b"},
	}, view); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}

	_, body = f.do(t, http.MethodGet, "/v1/logs?key=a", "")
	var logs map[string][]map[string]any
	if err := json.Unmarshal(body, &logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) != 1 || len(logs["a"]) != 2 || logs["a"][0]["code"] != "a1" {
		t.Errorf("logs = %v", logs)
	}
}

func TestAdmin_JamAndDrive(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/jam", `{"keys":["a","zzz"],"capabilities":["logging"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var jam struct {
		Jammed []logjam.Key `json:"jammed"`
	}
	if err := json.Unmarshal(body, &jam); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]logjam.Key{"a"}, jam.Jammed); diff != "" {
		t.Errorf("jammed mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.lj.Log("a", "dropped"); ok {
		t.Error("a should be jammed for logging")
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/drive", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("drive status = %d", resp.StatusCode)
	}
	if _, ok := f.lj.Log("a", "accepted"); !ok {
		t.Error("a should be driven")
	}
}

func TestAdmin_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed body", "/v1/jam", `{"keys":`},
		{"no keys", "/v1/jam", `{}`},
		{"unknown capability", "/v1/jam", `{"keys":["a"],"capabilities":["nope"]}`},
		{"malformed flush", "/v1/flush", `[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, tt.path, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", resp.StatusCode, body)
			}
		})
	}
}

func TestAdmin_FlushAndClear(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/flush", `{"keys":["a"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var results []sendResult
	if err := json.Unmarshal(body, &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]sendResult{{Key: "a", Sent: true, Success: true, Count: 2}}, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/clear", `{"keys":["b"]}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d", resp.StatusCode)
	}
	if got := f.lj.Orchestrator().ReadAggregate("b")["b"]; len(got) != 0 {
		t.Errorf("b after clear = %d events", len(got))
	}
}

func TestAdmin_SendKey(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/v1/keys/a/send", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	f.lj.Orchestrator().Jam([]logjam.Key{"b"}, logjam.CapSending)
	resp, body = f.do(t, http.MethodPost, "/v1/keys/b/send", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("jammed send status = %d, want 409", resp.StatusCode)
	}
	var res sendResult
	_ = json.Unmarshal(body, &res)
	if res.Rejected != string(logjam.RejectPaused) {
		t.Errorf("Rejected = %q, want %q", res.Rejected, logjam.RejectPaused)
	}

	f.lj.Orchestrator().Drive()
	f.sink.mu.Lock()
	f.sink.fail = true
	f.sink.mu.Unlock()
	resp, body = f.do(t, http.MethodPost, "/v1/keys/b/send", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("failed send status = %d, want 502", resp.StatusCode)
	}
	_ = json.Unmarshal(body, &res)
	if res.Error == "" || res.Success {
		t.Errorf("result = %+v, want an error", res)
	}
}

func TestAdmin_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/healthz", "")
	if !strings.Contains(string(body), `"status":"Running"`) {
		t.Errorf("health body = %s", body)
	}

	if _, err := f.lj.Send(context.Background(), "a"); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `logjam_dispatch_total{key="a",result="success"} 1`) {
		t.Errorf("metrics missing dispatch counter:\n%s", body)
	}
}

func TestAdmin_ServesOnAddr(t *testing.T) {
	plugin := New(Config{Addr: "127.0.0.1:0"})
	lj, err := logjam.New(logjam.Config{}, logjam.WithPlugin(plugin))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := lj.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	resp, err := http.Get("http://" + plugin.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := lj.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if _, err := http.Get("http://" + plugin.Addr().String() + "/healthz"); err == nil {
		t.Error("server should be closed after Stop")
	}
}

func TestAdmin_RequiresInstance(t *testing.T) {
	if err := New(Config{}).Initialize(context.Background(), logjam.PluginConfig{}); err == nil {
		t.Error("Initialize without an instance should fail")
	}
}
