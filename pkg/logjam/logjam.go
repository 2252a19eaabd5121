package logjam

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bft-labs/logjam/internal/adapters/metrics"
	"github.com/bft-labs/logjam/internal/app"
	"github.com/bft-labs/logjam/internal/domain"
	"github.com/bft-labs/logjam/internal/ports"
	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/sender"
)

// Version is the version of the logjam module.
const Version = "1.0.0"

// Logjam batches events per key and ships them to a sink. It can be embedded
// in other applications. Use New() to create an instance and Start() to enable
// plugins; events can be logged at any time before Stop.
type Logjam struct {
	config       Config
	opts         options
	lifecycle    *app.Lifecycle
	store        *app.Store
	normalizer   *app.Normalizer
	orchestrator *app.Orchestrator
	sender       ports.Sender
	logger       ports.Logger
	emitter      *eventEmitterWrapper
	plugins      []Plugin

	// ownedRedis is closed on Stop when New dialed it
	ownedRedis *redis.Client

	mu          sync.Mutex
	controllers map[domain.Key]*app.Controller
	cancel      context.CancelFunc
}

// New creates a new Logjam instance with the given configuration.
// The instance is created in StateStopped.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Logjam, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := options{httpClient: &http.Client{Timeout: cfg.HTTPTimeout}}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	var m *metrics.Metrics
	if o.metrics {
		m = metrics.New(o.registerer)
		emitter.metrics = m
	}

	store := app.NewStore(logger)
	l := &Logjam{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		store:     store,
		normalizer: app.NewNormalizer(app.NormalizerConfig{
			Path:   cfg.Path,
			Href:   cfg.Href,
			UserID: cfg.UserID,
		}),
		orchestrator: app.NewOrchestrator(store, logger),
		logger:       logger,
		emitter:      emitter,
		plugins:      o.plugins,
		controllers:  make(map[domain.Key]*app.Controller),
	}
	if m != nil {
		// lives as long as the store
		m.Observe(store)
	}
	l.sender = l.buildSender()
	return l, nil
}

// buildSender selects the default sink. It returns nil when nothing is
// configured; controllers then only accumulate.
func (l *Logjam) buildSender() ports.Sender {
	var s ports.Sender
	switch {
	case l.opts.sender != nil:
		s = l.opts.sender
	case l.config.Sink == SinkRedis:
		client := l.opts.redisClient
		if client == nil {
			l.ownedRedis = redis.NewClient(&redis.Options{Addr: l.config.RedisAddr})
			client = l.ownedRedis
		}
		s = sender.NewRedisSender(client, l.config.RedisPrefix, l.logger)
	case l.config.ServiceURL != "":
		s = sender.NewHTTPSender(l.opts.httpClient, sender.Metadata{
			Hostname:   hostname(),
			AuthKey:    l.config.AuthKey,
			ServiceURL: l.config.ServiceURL,
		}, l.logger)
	default:
		return nil
	}
	if l.opts.reliable != nil {
		s = sender.NewReliable(s, *l.opts.reliable, l.logger)
	}
	return s
}

// Start initializes plugins and moves the instance to StateRunning.
// The provided context is handed to plugins for their lifetime.
func (l *Logjam) Start(ctx context.Context) error {
	l.mu.Lock()
	if !l.lifecycle.CanStart() {
		l.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	if err := l.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		l.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	// plugins may call back into the instance, so l.mu is not held here
	pluginCfg := PluginConfig{
		ServiceURL: l.config.ServiceURL,
		AuthKey:    l.config.AuthKey,
		Logger:     l.logger,
		Instance:   l,
	}
	for i, p := range l.plugins {
		if err := initPlugin(runCtx, p, pluginCfg); err != nil {
			l.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			for j := i - 1; j >= 0; j-- {
				_ = shutdownPlugin(context.Background(), l.plugins[j])
			}
			cancel()
			_ = l.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		l.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	return l.lifecycle.TransitionTo(app.StateRunning, "started")
}

// Stop ends the session: with FlushOnStop every key's pending events are
// sent once, otherwise every key is jammed and cleared. Controller timers are
// stopped and plugins shut down.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (l *Logjam) Stop() error {
	l.mu.Lock()
	if !l.lifecycle.CanStop() {
		l.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := l.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		l.mu.Unlock()
		return err
	}
	if l.cancel != nil {
		l.cancel()
	}
	controllers := l.controllers
	l.controllers = make(map[domain.Key]*app.Controller)
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), l.config.ShutdownTimeout)
	defer cancel()

	l.lifecycle.Go(func() {
		l.orchestrator.Logout(ctx, l.config.FlushOnStop)
		for _, c := range controllers {
			c.Close()
			_ = c.WaitIdle(ctx)
		}
	})
	err := l.lifecycle.WaitWithTimeout(l.config.ShutdownTimeout)

	for i := len(l.plugins) - 1; i >= 0; i-- {
		p := l.plugins[i]
		if shutdownErr := shutdownPlugin(ctx, p); shutdownErr != nil {
			l.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			l.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	if l.ownedRedis != nil {
		_ = l.ownedRedis.Close()
	}

	if err != nil {
		_ = l.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = l.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	// Logout jammed every key; a restarted instance logs again.
	l.store.Drive()
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (l *Logjam) Status() State {
	return convertState(l.lifecycle.State())
}

// Log normalizes raw and appends it under key, creating the key's main
// controller on first use. It returns false when the key is jammed for logging.
func (l *Logjam) Log(key any, raw any) (Event, bool) {
	return l.Controller(key).Log(raw)
}

// Controller returns the main controller for key, creating it with the
// instance's sink and settings. When no sink is configured the controller is
// a simple instance and the configuration error is reported to the handler.
func (l *Logjam) Controller(key any) *Controller {
	k := domain.NormalizeKey(key)

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.controllers[k]; ok {
		return c
	}

	cfg := l.config.controllerConfig(k)
	cfg.Sender = l.sender
	if l.opts.prep != nil {
		cfg.Prep = l.opts.prep(k)
	}
	c := app.NewController(cfg, l.store, l.normalizer, l.logger, l.emitter)
	l.controllers[k] = c
	return c
}

// SimpleController returns a controller that shares key's buffers but never
// sends on its own.
func (l *Logjam) SimpleController(key any) *Controller {
	return app.NewSimpleController(domain.NormalizeKey(key), l.store, l.normalizer, l.logger)
}

// Trigger asks key's main controller to send its active buffer now.
func (l *Logjam) Trigger(ctx context.Context, key any, opts ...TriggerOption) (*Dispatch, RejectReason) {
	return l.Controller(key).Trigger(ctx, opts...)
}

// Send triggers key and waits for the outcome. A rejected trigger and a
// failed send are both returned as errors.
func (l *Logjam) Send(ctx context.Context, key any, opts ...TriggerOption) (Outcome, error) {
	d, reason := l.Trigger(ctx, key, opts...)
	if reason != RejectNone {
		return Outcome{Key: domain.NormalizeKey(key)}, reason.Err()
	}
	out, err := d.Wait(ctx)
	if err != nil {
		return out, err
	}
	if !out.Success {
		return out, out.Err
	}
	return out, nil
}

// Orchestrator returns an orchestrator over keys. With no keys it returns the
// instance-wide orchestrator that tracks every key.
func (l *Logjam) Orchestrator(keys ...any) *Orchestrator {
	if len(keys) == 0 {
		return l.orchestrator
	}
	return app.NewOrchestrator(l.store, l.logger, domain.NormalizeKeys(keys...)...)
}

// SetUserID sets the user id stamped on subsequent events. "" clears it.
func (l *Logjam) SetUserID(id string) {
	l.normalizer.SetUserID(id)
}

// SetLocation sets the path and href stamped on subsequent events.
func (l *Logjam) SetLocation(path, href string) {
	l.normalizer.SetLocation(path, href)
}

// Config returns the effective configuration.
func (l *Logjam) Config() Config {
	return l.config
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// eventEmitterWrapper adapts EventHandler and metrics to the internal emitter
// interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
	metrics *metrics.Metrics
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSendSuccess(key domain.Key, count int, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.OnSendSuccess(key, count, duration)
	}
	if e.handler != nil {
		e.handler.OnSendSuccess(SendSuccessEvent{Key: key, Count: count, Duration: duration})
	}
}

func (e *eventEmitterWrapper) OnSendError(key domain.Key, err error, count int) {
	if e.metrics != nil {
		e.metrics.OnSendError(key, err, count)
	}
	if e.handler != nil {
		e.handler.OnSendError(SendErrorEvent{Key: key, Error: err, Count: count})
	}
}

func (e *eventEmitterWrapper) OnConfigError(key domain.Key, err error) {
	if e.metrics != nil {
		e.metrics.OnConfigError(key, err)
	}
	if e.handler != nil {
		e.handler.OnConfigError(ConfigErrorEvent{Key: key, Error: err})
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// ModuleVersions returns the versions of the bundled modules.
func ModuleVersions() map[string]string {
	return map[string]string{
		"logjam": Version,
		"sender": sender.Version,
		"log":    log.Version,
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"sender": {sender.Version, sender.MinCompatibleVersion},
		"log":    {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
