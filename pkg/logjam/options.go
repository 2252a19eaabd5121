package logjam

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/logjam/internal/ports"
	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/sender"
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Option configures optional behavior of Logjam.
type Option func(*options)

// options holds the optional configuration for a Logjam instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	sender       sender.Sender
	prep         func(Key) sender.PrepFunc
	registerer   prometheus.Registerer
	metrics      bool
	redisClient  sender.RedisClient
	reliable     *sender.ReliableConfig
}

// WithHTTPClient sets a custom HTTP client for the HTTP sink.
// If not provided, a client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for logjam events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Logjam starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithSender replaces the sink selected by Config.Sink.
func WithSender(s sender.Sender) Option {
	return func(o *options) {
		o.sender = s
	}
}

// WithPrep sets the prep function factory used for every main controller.
// sender.Envelope is a ready-made factory.
func WithPrep(prep func(Key) sender.PrepFunc) Option {
	return func(o *options) {
		o.prep = prep
	}
}

// WithMetrics exports dispatch metrics on reg. A nil reg uses a private
// registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = true
		o.registerer = reg
	}
}

// WithRedisClient sets the client used by the redis sink instead of dialing
// Config.RedisAddr. *redis.Client satisfies sender.RedisClient.
func WithRedisClient(client sender.RedisClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithReliability wraps the sink with rate limiting, a circuit breaker and
// retries.
func WithReliability(cfg sender.ReliableConfig) Option {
	return func(o *options) {
		o.reliable = &cfg
	}
}
