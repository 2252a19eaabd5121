// Package bufferprune bounds logjam's memory use. Keys whose sends keep
// failing or that are jammed for sending accumulate events without limit;
// this plugin periodically drops the oldest events of any key above a high
// watermark until it is back at the low watermark.
package bufferprune

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/logjam"
)

// Plugin implements buffer pruning functionality.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	checkInterval  time.Duration
	highWatermark  int
	lowWatermark   int
	runImmediately bool

	// Runtime state
	orch    *logjam.Orchestrator
	logger  log.Logger
	dropped int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config holds configuration options for the buffer prune plugin.
type Config struct {
	// CheckInterval is how often buffers are checked.
	// Default: 1 minute
	CheckInterval time.Duration

	// HighWatermark is the buffered event count above which a key is pruned.
	// Default: 10000
	HighWatermark int

	// LowWatermark is the event count a pruned key is trimmed to.
	// Default: 80% of HighWatermark
	LowWatermark int

	// RunImmediately if true, prunes once on startup.
	RunImmediately bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  time.Minute,
		HighWatermark:  10000,
		LowWatermark:   8000,
		RunImmediately: true,
	}
}

// New creates a new buffer prune plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = 10000
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark > cfg.HighWatermark {
		cfg.LowWatermark = cfg.HighWatermark * 4 / 5
	}

	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		highWatermark:  cfg.HighWatermark,
		lowWatermark:   cfg.LowWatermark,
		runImmediately: cfg.RunImmediately,
		logger:         log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "bufferprune"
}

// Initialize sets up the plugin and starts the prune loop.
func (p *Plugin) Initialize(ctx context.Context, cfg logjam.PluginConfig) error {
	if cfg.Instance == nil {
		return errors.New("bufferprune: plugin requires a logjam instance")
	}

	p.mu.Lock()
	p.orch = cfg.Instance.Orchestrator()
	if cfg.Logger != nil {
		p.logger = log.With(cfg.Logger, log.String("plugin", "bufferprune"))
	}
	p.mu.Unlock()

	pruneCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("buffer prune plugin initialized",
		log.Int("high_watermark", p.highWatermark),
		log.Int("low_watermark", p.lowWatermark))

	p.wg.Add(1)
	go p.pruneLoop(pruneCtx)

	return nil
}

// Shutdown stops the prune loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) pruneLoop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.PruneOnce()
	}

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce()
		}
	}
}

// PruneOnce performs a single check and returns the events dropped per key.
func (p *Plugin) PruneOnce() map[logjam.Key]int {
	p.mu.RLock()
	orch := p.orch
	p.mu.RUnlock()
	if orch == nil {
		return nil
	}

	pruned := orch.Prune(p.highWatermark, p.lowWatermark)
	if len(pruned) == 0 {
		return pruned
	}

	total := 0
	for _, n := range pruned {
		total += n
	}
	p.mu.Lock()
	p.dropped += total
	p.mu.Unlock()

	p.logger.Info("buffer prune completed",
		log.Int("keys", len(pruned)),
		log.Int("dropped", total))
	return pruned
}

// Dropped returns the total number of events dropped so far.
func (p *Plugin) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// Ensure Plugin implements logjam.Plugin.
var _ logjam.Plugin = (*Plugin)(nil)
