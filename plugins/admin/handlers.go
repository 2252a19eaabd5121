package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/logjam"
)

// flushTimeout bounds flush and send requests.
const flushTimeout = 30 * time.Second

// keysRequest is the body of jam, drive, clear and flush requests.
type keysRequest struct {
	Keys         []string `json:"keys"`
	Capabilities []string `json:"capabilities,omitempty"`
}

func (r keysRequest) keys() []logjam.Key {
	if len(r.Keys) == 0 {
		return nil
	}
	raw := make([]any, len(r.Keys))
	for i, k := range r.Keys {
		raw[i] = k
	}
	return logjam.NormalizeKeys(raw...)
}

// viewResponse is returned by GET /v1/keys.
type viewResponse struct {
	Keys   []logjam.Key `json:"keys"`
	Paused []logjam.Key `json:"paused"`
	Active []logjam.Key `json:"active"`
}

// sendResult reports one key's flush or send.
type sendResult struct {
	Key      logjam.Key `json:"key"`
	Sent     bool       `json:"sent"`
	Success  bool       `json:"success"`
	Count    int        `json:"count,omitempty"`
	Rejected string     `json:"rejected,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func resultFrom(r logjam.FlushResult) sendResult {
	out := sendResult{Key: r.Key, Rejected: string(r.Rejected)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if r.Outcome != nil {
		out.Sent = true
		out.Success = r.Outcome.Success
		out.Count = r.Outcome.Count
		if r.Outcome.Err != nil {
			out.Error = r.Outcome.Err.Error()
		}
	}
	return out
}

func (p *Plugin) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": p.lj.Status().String()})
}

// listKeys returns the tracked keys and which are paused.
// GET /v1/keys
func (p *Plugin) listKeys(w http.ResponseWriter, r *http.Request) {
	v := p.lj.Orchestrator().View()
	writeJSON(w, http.StatusOK, viewResponse{Keys: v.Keys, Paused: v.Paused, Active: v.Active})
}

// readLogs returns buffered events per key; ?key= may repeat.
// GET /v1/logs
func (p *Plugin) readLogs(w http.ResponseWriter, r *http.Request) {
	keys := keysRequest{Keys: r.URL.Query()["key"]}.keys()
	writeJSON(w, http.StatusOK, p.lj.Orchestrator().ReadAggregate(keys...))
}

// jam pauses capabilities for registered keys.
// POST /v1/jam
func (p *Plugin) jam(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKeys(w, r)
	if !ok {
		return
	}
	keys := req.keys()
	if len(keys) == 0 {
		http.Error(w, "keys are required", http.StatusBadRequest)
		return
	}
	caps := logjam.ParseCapability(req.Capabilities...)
	if caps == 0 {
		http.Error(w, "no known capability", http.StatusBadRequest)
		return
	}

	jammed := p.lj.Orchestrator().Jam(keys, caps)
	if jammed == nil {
		jammed = []logjam.Key{}
	}
	p.logger.Info("keys jammed via admin API", log.Int("keys", len(jammed)))
	writeJSON(w, http.StatusOK, map[string]any{"jammed": jammed})
}

// drive resumes keys; no keys resumes everything.
// POST /v1/drive
func (p *Plugin) drive(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKeys(w, r)
	if !ok {
		return
	}
	p.lj.Orchestrator().Drive(req.keys()...)
	w.WriteHeader(http.StatusNoContent)
}

// clear empties buffers; no keys clears every key.
// POST /v1/clear
func (p *Plugin) clear(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKeys(w, r)
	if !ok {
		return
	}
	p.lj.Orchestrator().Clear(req.keys()...)
	w.WriteHeader(http.StatusNoContent)
}

// flush sends every pending batch and reports per-key results.
// POST /v1/flush
func (p *Plugin) flush(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKeys(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), flushTimeout)
	defer cancel()

	results := p.lj.Orchestrator().Flush(ctx, req.keys()...)
	out := make([]sendResult, len(results))
	for i, res := range results {
		out[i] = resultFrom(res)
	}
	writeJSON(w, http.StatusOK, out)
}

// send triggers one key; ?override=true bypasses the in-flight and
// manual-sending guards.
// POST /v1/keys/{key}/send
func (p *Plugin) send(w http.ResponseWriter, r *http.Request) {
	key := logjam.NormalizeKey(chi.URLParam(r, "key"))

	var opts []logjam.TriggerOption
	if r.URL.Query().Get("override") == "true" {
		opts = append(opts, logjam.WithOverride())
	}

	ctx, cancel := context.WithTimeout(r.Context(), flushTimeout)
	defer cancel()

	d, reason := p.lj.Trigger(ctx, key, opts...)
	if reason != logjam.RejectNone {
		writeJSON(w, http.StatusConflict, sendResult{Key: key, Rejected: string(reason)})
		return
	}
	out, err := d.Wait(ctx)
	res := logjam.FlushResult{Key: key, Outcome: &out, Err: err}
	if err != nil {
		res.Outcome = nil
	}

	status := http.StatusOK
	if err != nil || !out.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resultFrom(res))
}

// decodeKeys reads an optional keysRequest body.
func decodeKeys(w http.ResponseWriter, r *http.Request) (keysRequest, bool) {
	var req keysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
