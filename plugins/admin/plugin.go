// Package admin serves a small HTTP API for operating a logjam instance:
// listing keys and buffered events, jamming and driving keys, clearing and
// flushing buffers, and exposing Prometheus metrics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/logjam"
)

// Config holds configuration options for the admin plugin.
type Config struct {
	// Addr is the listen address. Empty builds the handler without serving it.
	Addr string

	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// ReadHeaderTimeout bounds request header reads.
	// Default: 5 seconds
	ReadHeaderTimeout time.Duration
}

// Plugin serves the admin API.
type Plugin struct {
	mu sync.Mutex

	cfg Config

	lj      *logjam.Logjam
	logger  log.Logger
	handler http.Handler
	server  *http.Server
	addr    net.Addr
	done    chan struct{}
}

// New creates a new admin plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	return &Plugin{cfg: cfg, logger: log.NewNoopLogger()}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "admin"
}

// Initialize builds the router and, when Addr is set, starts serving it.
// A listen failure aborts Start.
func (p *Plugin) Initialize(ctx context.Context, cfg logjam.PluginConfig) error {
	if cfg.Instance == nil {
		return errors.New("admin: plugin requires a logjam instance")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.lj = cfg.Instance
	if cfg.Logger != nil {
		p.logger = log.With(cfg.Logger, log.String("plugin", "admin"))
	}
	p.handler = p.routes()

	if p.cfg.Addr == "" {
		p.logger.Info("admin API built without listener")
		return nil
	}

	ln, err := net.Listen("tcp", p.cfg.Addr)
	if err != nil {
		return fmt.Errorf("admin: listen %s: %w", p.cfg.Addr, err)
	}
	p.addr = ln.Addr()
	p.server = &http.Server{
		Handler:           p.handler,
		ReadHeaderTimeout: p.cfg.ReadHeaderTimeout,
	}
	p.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("admin server failed", log.Err(err))
		}
	}(p.server, p.done)

	p.logger.Info("admin API listening", log.String("addr", p.addr.String()))
	return nil
}

// Shutdown stops the HTTP server.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv, done := p.server, p.done
	p.server, p.done = nil, nil
	p.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	return err
}

// Handler returns the admin router. It is nil before Initialize.
func (p *Plugin) Handler() http.Handler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler
}

// Addr returns the bound listen address, or nil when not serving.
func (p *Plugin) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

func (p *Plugin) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", p.health)
	if p.cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/keys", p.listKeys)
		r.Get("/logs", p.readLogs)
		r.Post("/jam", p.jam)
		r.Post("/drive", p.drive)
		r.Post("/clear", p.clear)
		r.Post("/flush", p.flush)
		r.Post("/keys/{key}/send", p.send)
	})
	return r
}
