package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Input           string  `toml:"input"`
	KeyField        string  `toml:"key_field"`
	Sink            string  `toml:"sink"`
	ServiceURL      string  `toml:"service_url"`
	AuthKey         string  `toml:"auth_key"`
	RedisAddr       string  `toml:"redis_addr"`
	RedisPrefix     string  `toml:"redis_prefix"`
	PendingSendMax  int     `toml:"pending_send_max"`
	TimeInterval    string  `toml:"time_interval"`
	HTTPTimeout     string  `toml:"http_timeout"`
	ShutdownTimeout string  `toml:"shutdown_timeout"`
	ManualSending   *bool   `toml:"manual_sending"`
	FlushOnExit     *bool   `toml:"flush_on_exit"`
	UserID          string  `toml:"user_id"`
	Retries         int     `toml:"retries"`
	RateLimit       float64 `toml:"rate_limit"`
	AdminAddr       string  `toml:"admin_addr"`
	PauseFile       string  `toml:"pause_file"`
	LoadThreshold   float64 `toml:"load_threshold"`
	MaxBuffered     int     `toml:"max_buffered"`
	LogLevel        string  `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.logjam/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logjam", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("input", fc.Input, &cfg.Input)
	s.setString("key-field", fc.KeyField, &cfg.KeyField)
	s.setString("sink", fc.Sink, &cfg.Sink)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("redis-addr", fc.RedisAddr, &cfg.RedisAddr)
	s.setString("redis-prefix", fc.RedisPrefix, &cfg.RedisPrefix)
	s.setString("user-id", fc.UserID, &cfg.UserID)
	s.setString("admin-addr", fc.AdminAddr, &cfg.AdminAddr)
	s.setString("pause-file", fc.PauseFile, &cfg.PauseFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("time-interval", fc.TimeInterval, &cfg.TimeInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setFloat("rate-limit", fc.RateLimit, &cfg.RateLimit)
	s.setFloat("load-threshold", fc.LoadThreshold, &cfg.LoadThreshold)

	s.setInt("pending-send-max", fc.PendingSendMax, &cfg.PendingSendMax)
	s.setInt("retries", fc.Retries, &cfg.Retries)
	s.setInt("max-buffered", fc.MaxBuffered, &cfg.MaxBuffered)

	s.setBool("manual-sending", fc.ManualSending, &cfg.ManualSending)
	s.setBool("flush-on-exit", fc.FlushOnExit, &cfg.FlushOnExit)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
