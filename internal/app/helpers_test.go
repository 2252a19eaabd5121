package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// fakeSender records batches. When gate is set, Send blocks until it is closed.
type fakeSender struct {
	mu      sync.Mutex
	batches []ports.Batch
	gate    chan struct{}
	started chan ports.Batch
	resp    ports.Response
	err     error
	panics  bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		started: make(chan ports.Batch, 16),
		resp:    ports.Response{Success: true},
	}
}

func (f *fakeSender) Send(ctx context.Context, b ports.Batch) (ports.Response, error) {
	f.mu.Lock()
	f.batches = append(f.batches, b)
	gate, resp, err, panics := f.gate, f.resp, f.err, f.panics
	f.mu.Unlock()

	f.started <- b
	if gate != nil {
		<-gate
	}
	if panics {
		panic("sink exploded")
	}
	return resp, err
}

func (f *fakeSender) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// recordingEmitter forwards send results to channels.
type recordingEmitter struct {
	sent       chan int
	failed     chan error
	mu         sync.Mutex
	configErrs []error
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{
		sent:   make(chan int, 16),
		failed: make(chan error, 16),
	}
}

func (r *recordingEmitter) OnSendSuccess(key domain.Key, count int, duration time.Duration) {
	r.sent <- count
}

func (r *recordingEmitter) OnSendError(key domain.Key, err error, count int) {
	r.failed <- err
}

func (r *recordingEmitter) OnConfigError(key domain.Key, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configErrs = append(r.configErrs, err)
}

func waitBatch(t *testing.T, ch <-chan ports.Batch) ports.Batch {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a send")
		return ports.Batch{}
	}
}

func waitInt(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send success")
		return 0
	}
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send failure")
		return nil
	}
}

func codes(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Code
	}
	return out
}

// testController builds a main controller with a long timer so only the
// threshold and manual triggers fire.
func testController(t *testing.T, store *Store, key domain.Key, s ports.Sender, emitter SendEventEmitter) *Controller {
	t.Helper()
	cfg := DefaultControllerConfig(key)
	cfg.Sender = s
	cfg.TimeInterval = time.Hour
	c := NewController(cfg, store, nil, mockLogger{}, emitter)
	t.Cleanup(c.Close)
	return c
}

var errSink = errors.New("sink unavailable")
