// Package resourcegating pauses sending for logjam keys while the process is
// under heavy load. When enabled, it samples a load probe periodically and
// jams sending for every key above the threshold that is not already jammed,
// then releases sending on exactly those keys once the load falls below the
// resume level.
package resourcegating

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/logjam"
)

// DefaultGoroutinesPerCPU is the goroutine count per CPU that GoroutineProbe
// reports as full load.
const DefaultGoroutinesPerCPU = 100

// Probe reports the current load as a fraction where 1.0 is saturated.
type Probe func() float64

// GoroutineProbe uses the goroutine count per CPU as a proxy for load.
func GoroutineProbe(perCPU int) Probe {
	if perCPU <= 0 {
		perCPU = DefaultGoroutinesPerCPU
	}
	return func() float64 {
		return float64(runtime.NumGoroutine()) / float64(runtime.NumCPU()*perCPU)
	}
}

// Plugin implements resource gating functionality.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	threshold     float64
	resume        float64
	checkInterval time.Duration
	probe         Probe

	// Runtime state
	orch   *logjam.Orchestrator
	logger log.Logger
	gated  bool
	jammed map[logjam.Key]struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the resource gating plugin.
type Config struct {
	// Threshold is the load (0.0-1.0) at or above which sending is jammed.
	// Default: 0.85
	Threshold float64

	// Resume is the load below which the plugin releases the keys it jammed.
	// Default: 0.70, capped at Threshold
	Resume float64

	// CheckInterval is how often the probe is sampled.
	// Default: 5 seconds
	CheckInterval time.Duration

	// Probe samples the load. Default: GoroutineProbe(DefaultGoroutinesPerCPU)
	Probe Probe
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:     0.85,
		Resume:        0.70,
		CheckInterval: 5 * time.Second,
	}
}

// New creates a new resource gating plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.85
	}
	if cfg.Resume <= 0 {
		cfg.Resume = 0.70
	}
	if cfg.Resume > cfg.Threshold {
		cfg.Resume = cfg.Threshold
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if cfg.Probe == nil {
		cfg.Probe = GoroutineProbe(DefaultGoroutinesPerCPU)
	}

	return &Plugin{
		threshold:     cfg.Threshold,
		resume:        cfg.Resume,
		checkInterval: cfg.CheckInterval,
		probe:         cfg.Probe,
		logger:        log.NewNoopLogger(),
		jammed:        make(map[logjam.Key]struct{}),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "resourcegating"
}

// Initialize takes a first sample and starts the sampling loop.
func (p *Plugin) Initialize(ctx context.Context, cfg logjam.PluginConfig) error {
	if cfg.Instance == nil {
		return errors.New("resourcegating: plugin requires a logjam instance")
	}

	p.mu.Lock()
	p.orch = cfg.Instance.Orchestrator()
	if cfg.Logger != nil {
		p.logger = log.With(cfg.Logger, log.String("plugin", "resourcegating"))
	}
	p.mu.Unlock()

	p.Check()

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("resource gating plugin initialized")

	p.wg.Add(1)
	go p.loop(loopCtx)

	return nil
}

// Shutdown stops sampling and releases the keys the plugin jammed.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
	return nil
}

func (p *Plugin) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check()
		}
	}
}

// Check samples the probe once and jams or releases keys accordingly. While the
// gate is closed every check also jams keys that appeared since the last one.
func (p *Plugin) Check() {
	load := p.probe()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.orch == nil {
		return
	}

	switch {
	case load >= p.threshold:
		if !p.gated {
			p.logger.Warn("load above threshold, jamming sends",
				log.Any("load", load),
				log.Any("threshold", p.threshold))
		}
		p.gated = true
		// keys already jammed for sending belong to someone else
		var fresh []logjam.Key
		for _, k := range p.orch.Keys() {
			if _, ok := p.jammed[k]; ok {
				continue
			}
			if p.orch.Paused(k)&logjam.CapSending != 0 {
				continue
			}
			fresh = append(fresh, k)
		}
		for _, k := range p.orch.Jam(fresh, logjam.CapSending) {
			p.jammed[k] = struct{}{}
		}
	case p.gated && load < p.resume:
		p.logger.Info("load recovered, driving jammed keys",
			log.Any("load", load),
			log.Int("keys", len(p.jammed)))
		p.releaseLocked()
	}
}

// releaseLocked lifts the sending jam the plugin placed, leaving other
// capabilities untouched. Caller must hold p.mu.
func (p *Plugin) releaseLocked() {
	if p.orch != nil && len(p.jammed) > 0 {
		keys := make([]logjam.Key, 0, len(p.jammed))
		for k := range p.jammed {
			keys = append(keys, k)
		}
		p.orch.Release(keys, logjam.CapSending)
	}
	p.jammed = make(map[logjam.Key]struct{})
	p.gated = false
}

// ResourcesOK returns true if the gate is open.
func (p *Plugin) ResourcesOK() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.gated
}

// Ensure Plugin implements logjam.Plugin.
var _ logjam.Plugin = (*Plugin)(nil)
