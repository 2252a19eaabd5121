package logjam

import (
	"fmt"
	"time"

	"github.com/bft-labs/logjam/internal/app"
	"github.com/bft-labs/logjam/internal/domain"
)

// Sink names accepted in Config.Sink.
const (
	SinkHTTP  = "http"
	SinkRedis = "redis"
)

// Default configuration values.
const (
	DefaultServiceURL      = "http://localhost:8080"
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultPendingSendMax  = app.DefaultPendingSendMax
	DefaultTimeInterval    = app.DefaultTimeInterval
	DefaultShutdownTimeout = app.ShutdownTimeout
	DefaultRedisPrefix     = "logjam"
)

// Config holds the configuration of a Logjam instance.
// Use DefaultConfig() for sensible defaults; zero values are filled by New.
type Config struct {
	// ServiceURL is the base URL of the HTTP ingestion service.
	// When empty and no sender is injected, controllers accumulate only.
	ServiceURL string

	// AuthKey is sent as a bearer token
	AuthKey string

	// HTTPTimeout bounds each HTTP send
	HTTPTimeout time.Duration

	// ManualSending disables the threshold and timer triggers; only
	// overriding triggers send
	ManualSending bool

	// PendingSendMax is the active-buffer length that triggers a send
	PendingSendMax int

	// TimeInterval is how often each key's timer checks for pending events
	TimeInterval time.Duration

	// UserID, Path and Href are stamped on every event's metadata
	UserID string
	Path   string
	Href   string

	// FlushOnStop sends every key's pending events during Stop instead of
	// dropping them
	FlushOnStop bool

	// ShutdownTimeout bounds Stop
	ShutdownTimeout time.Duration

	// Sink selects the default sender: "http" (default) or "redis"
	Sink string

	// RedisAddr and RedisPrefix configure the redis sink
	RedisAddr   string
	RedisPrefix string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:      DefaultServiceURL,
		HTTPTimeout:     DefaultHTTPTimeout,
		PendingSendMax:  DefaultPendingSendMax,
		TimeInterval:    DefaultTimeInterval,
		ShutdownTimeout: DefaultShutdownTimeout,
		Sink:            SinkHTTP,
		RedisPrefix:     DefaultRedisPrefix,
	}
}

// SetDefaults fills zero-valued fields with defaults.
// ServiceURL is left empty so that an unconfigured instance does not ship.
func (c *Config) SetDefaults() {
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.PendingSendMax == 0 {
		c.PendingSendMax = DefaultPendingSendMax
	}
	if c.TimeInterval == 0 {
		c.TimeInterval = DefaultTimeInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Sink == "" {
		c.Sink = SinkHTTP
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = DefaultRedisPrefix
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.Sink {
	case SinkHTTP, SinkRedis:
	default:
		return fmt.Errorf("%w: unknown sink %q", domain.ErrInvalidConfig, c.Sink)
	}
	if c.Sink == SinkRedis && c.RedisAddr == "" {
		return fmt.Errorf("%w: redis sink requires RedisAddr", domain.ErrInvalidConfig)
	}
	if c.PendingSendMax < 0 {
		return fmt.Errorf("%w: PendingSendMax must be positive", domain.ErrInvalidConfig)
	}
	if c.TimeInterval < 0 {
		return fmt.Errorf("%w: TimeInterval must be positive", domain.ErrInvalidConfig)
	}
	if c.HTTPTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: timeouts must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// controllerConfig maps c onto a controller configuration for key.
func (c Config) controllerConfig(key domain.Key) app.ControllerConfig {
	cc := app.DefaultControllerConfig(key)
	cc.ActiveSending = !c.ManualSending
	cc.PendingSendMax = c.PendingSendMax
	cc.TimeInterval = c.TimeInterval
	return cc
}
