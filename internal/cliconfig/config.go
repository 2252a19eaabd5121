package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/logjam/pkg/logjam"
)

// DefaultServiceURL is the default endpoint for shipping events.
const DefaultServiceURL = logjam.DefaultServiceURL

// DefaultKeyField is the input record field that selects the key.
const DefaultKeyField = "key"

// Config holds CLI configuration for logjam.
type Config struct {
	// Input is the NDJSON source; "-" or empty reads stdin
	Input    string
	KeyField string

	Sink        string
	ServiceURL  string
	AuthKey     string
	RedisAddr   string
	RedisPrefix string

	PendingSendMax  int
	TimeInterval    time.Duration
	HTTPTimeout     time.Duration
	ShutdownTimeout time.Duration
	ManualSending   bool
	FlushOnExit     bool
	UserID          string

	Retries   int
	RateLimit float64

	AdminAddr     string
	PauseFile     string
	LoadThreshold float64
	MaxBuffered   int

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Input:           "-",
		KeyField:        DefaultKeyField,
		Sink:            logjam.SinkHTTP,
		ServiceURL:      DefaultServiceURL,
		RedisPrefix:     logjam.DefaultRedisPrefix,
		PendingSendMax:  logjam.DefaultPendingSendMax,
		TimeInterval:    logjam.DefaultTimeInterval,
		HTTPTimeout:     logjam.DefaultHTTPTimeout,
		ShutdownTimeout: logjam.DefaultShutdownTimeout,
		FlushOnExit:     true,
		Retries:         3,
		RateLimit:       100,
		LogLevel:        "info",
		AuthKey:         os.Getenv("LOGJAM_AUTH_KEY"),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Input == "" {
		c.Input = "-"
	}
	if c.KeyField == "" {
		c.KeyField = DefaultKeyField
	}

	switch c.Sink {
	case "":
		c.Sink = logjam.SinkHTTP
	case logjam.SinkHTTP, logjam.SinkRedis:
	default:
		return fmt.Errorf("unknown sink %q (want %s or %s)", c.Sink, logjam.SinkHTTP, logjam.SinkRedis)
	}

	if c.Sink == logjam.SinkRedis && c.RedisAddr == "" {
		return fmt.Errorf("redis-addr is required for the redis sink")
	}

	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	// Ensure no trailing slash
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if c.PendingSendMax <= 0 {
		return fmt.Errorf("pending-send-max must be positive")
	}
	if c.TimeInterval <= 0 {
		return fmt.Errorf("time interval must be positive")
	}
	if c.LoadThreshold < 0 || c.LoadThreshold > 1 {
		return fmt.Errorf("load-threshold must be between 0 and 1")
	}
	if c.MaxBuffered < 0 {
		return fmt.Errorf("max-buffered must not be negative")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}

	return nil
}

// Logjam converts the CLI configuration into a library configuration.
func (c Config) Logjam() logjam.Config {
	return logjam.Config{
		ServiceURL:      c.ServiceURL,
		AuthKey:         c.AuthKey,
		HTTPTimeout:     c.HTTPTimeout,
		ManualSending:   c.ManualSending,
		PendingSendMax:  c.PendingSendMax,
		TimeInterval:    c.TimeInterval,
		UserID:          c.UserID,
		FlushOnStop:     c.FlushOnExit,
		ShutdownTimeout: c.ShutdownTimeout,
		Sink:            c.Sink,
		RedisAddr:       c.RedisAddr,
		RedisPrefix:     c.RedisPrefix,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
