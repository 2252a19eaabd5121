package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOGJAM_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("input", os.Getenv("LOGJAM_INPUT"), &cfg.Input)
	s.setString("key-field", os.Getenv("LOGJAM_KEY_FIELD"), &cfg.KeyField)
	s.setString("sink", os.Getenv("LOGJAM_SINK"), &cfg.Sink)
	s.setString("service-url", os.Getenv("LOGJAM_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", os.Getenv("LOGJAM_AUTH_KEY"), &cfg.AuthKey)
	s.setString("redis-addr", os.Getenv("LOGJAM_REDIS_ADDR"), &cfg.RedisAddr)
	s.setString("redis-prefix", os.Getenv("LOGJAM_REDIS_PREFIX"), &cfg.RedisPrefix)
	s.setString("user-id", os.Getenv("LOGJAM_USER_ID"), &cfg.UserID)
	s.setString("admin-addr", os.Getenv("LOGJAM_ADMIN_ADDR"), &cfg.AdminAddr)
	s.setString("pause-file", os.Getenv("LOGJAM_PAUSE_FILE"), &cfg.PauseFile)
	s.setString("log-level", os.Getenv("LOGJAM_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("time-interval", os.Getenv("LOGJAM_TIME_INTERVAL"), &cfg.TimeInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("LOGJAM_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("LOGJAM_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	if err := s.setFloatFromString("rate-limit", os.Getenv("LOGJAM_RATE_LIMIT"), &cfg.RateLimit); err != nil {
		return err
	}
	if err := s.setFloatFromString("load-threshold", os.Getenv("LOGJAM_LOAD_THRESHOLD"), &cfg.LoadThreshold); err != nil {
		return err
	}

	if err := s.setIntFromString("pending-send-max", os.Getenv("LOGJAM_PENDING_SEND_MAX"), &cfg.PendingSendMax); err != nil {
		return err
	}
	if err := s.setIntFromString("retries", os.Getenv("LOGJAM_RETRIES"), &cfg.Retries); err != nil {
		return err
	}
	if err := s.setIntFromString("max-buffered", os.Getenv("LOGJAM_MAX_BUFFERED"), &cfg.MaxBuffered); err != nil {
		return err
	}

	s.setBoolFromString("manual-sending", os.Getenv("LOGJAM_MANUAL_SENDING"), &cfg.ManualSending)
	s.setBoolFromString("flush-on-exit", os.Getenv("LOGJAM_FLUSH_ON_EXIT"), &cfg.FlushOnExit)

	return nil
}
