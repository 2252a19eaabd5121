// Package pausewatcher jams and drives logjam keys from a TOML pause file.
// The file is watched for changes, so an operator can pause a noisy stream or
// a failing sink without restarting the process.
//
// The pause file looks like:
//
//	# keys to jam
//	jammed = ["checkout", "audit"]
//	# "logging", "sending" or both (default)
//	capabilities = ["sending"]
package pausewatcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/logjam"
)

// File is the decoded pause file.
type File struct {
	Jammed       []string `toml:"jammed"`
	Capabilities []string `toml:"capabilities"`
}

// Plugin applies the pause file to the instance-wide orchestrator.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	orch     *logjam.Orchestrator
	logger   log.Logger
	applied  []logjam.Key
	closed   bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the pause watcher plugin.
type Config struct {
	// Path is the pause file. Empty disables the plugin.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new pause watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "pausewatcher"
}

// Initialize applies the pause file once and starts watching it.
func (p *Plugin) Initialize(ctx context.Context, cfg logjam.PluginConfig) error {
	if cfg.Instance == nil {
		return errors.New("pausewatcher: plugin requires a logjam instance")
	}

	p.mu.Lock()
	p.orch = cfg.Instance.Orchestrator()
	if cfg.Logger != nil {
		p.logger = log.With(cfg.Logger, log.String("plugin", "pausewatcher"))
	}
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("pause watcher disabled: no pause file configured")
		return nil
	}

	if err := p.Reload(); err != nil {
		p.logger.Error("pause file rejected", log.Err(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pausewatcher: create watcher: %w", err)
	}
	// Editors replace files, so the directory is watched rather than the file.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("pausewatcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("pause watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and drives the keys it jammed.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.debounce != nil {
		p.debounce.Stop()
	}
	if p.orch != nil && len(p.applied) > 0 {
		p.orch.Drive(p.applied...)
		p.applied = nil
	}
	return nil
}

// Jammed returns the keys currently jammed by the pause file.
func (p *Plugin) Jammed() []logjam.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]logjam.Key(nil), p.applied...)
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("pause watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.Reload(); err != nil {
			p.logger.Error("pause file rejected", log.Err(err))
		}
	})
}

// Reload reads the pause file and applies it. Keys jammed by the previous
// version of the file are driven first. A missing file drives everything the
// plugin jammed. A malformed file leaves the current state untouched.
func (p *Plugin) Reload() error {
	f, err := readFile(p.path)
	if err != nil {
		return err
	}

	keys := f.keys()
	caps := logjam.ParseCapability(f.Capabilities...)
	if caps == 0 {
		return fmt.Errorf("pause file %s: no known capability in %v", p.path, f.Capabilities)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.orch == nil {
		return errors.New("pausewatcher: not initialized")
	}
	if p.closed {
		return nil
	}

	if len(p.applied) > 0 {
		p.orch.Drive(p.applied...)
	}
	p.applied = nil
	if len(keys) == 0 {
		p.logger.Info("pause file cleared")
		return nil
	}

	// Listed keys are registered so a pause can precede a key's first event.
	p.orch.RegisterKeys(keys...)
	p.applied = p.orch.Jam(keys, caps)
	p.logger.Info("pause file applied",
		log.Int("keys", len(p.applied)),
		log.Stringer("capabilities", caps))
	return nil
}

func (f File) keys() []logjam.Key {
	raw := make([]any, 0, len(f.Jammed))
	for _, k := range f.Jammed {
		if k != "" {
			raw = append(raw, k)
		}
	}
	return logjam.NormalizeKeys(raw...)
}

// readFile decodes path. A missing file decodes as empty.
func readFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read pause file: %w", err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse pause file %s: %w", path, err)
	}
	return f, nil
}

// Ensure Plugin implements logjam.Plugin.
var _ logjam.Plugin = (*Plugin)(nil)
