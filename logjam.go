// Package logjam batches structured events per key and ships them to a sink
// without blocking the producer.
//
// Example usage:
//
//	cfg := logjam.DefaultConfig()
//	cfg.ServiceURL = "https://ingest.example.com"
//	cfg.AuthKey = "your-api-key"
//	cfg.FlushOnStop = true
//	if err := logjam.Run(ctx, cfg, nil, logjam.WithLogger(logjam.NewLogger("info"))); err != nil {
//	    log.Fatal(err)
//	}
//
// Run is the blocking entry point. Embedders that need to log events use
// pkg/logjam directly.
package logjam

import (
	"context"
	"fmt"
	"os"

	"github.com/bft-labs/logjam/pkg/log"
	lj "github.com/bft-labs/logjam/pkg/logjam"
)

// Config holds the configuration of a Logjam instance.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = lj.Config

// Option configures an instance.
type Option = lj.Option

// Logger is the structured logger used throughout logjam.
type Logger = log.Logger

// DefaultServiceURL is the default endpoint for shipping events.
const DefaultServiceURL = lj.DefaultServiceURL

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return lj.DefaultConfig()
}

// WithLogger sets the instance logger.
func WithLogger(l Logger) Option {
	return lj.WithLogger(l)
}

// NewLogger returns a console logger on stderr at the given level.
func NewLogger(level string) Logger {
	return log.NewZerologAdapter(os.Stderr, level)
}

// Run starts an instance and blocks until ctx is cancelled, then stops it.
// The instance is handed to ready, when non-nil, once it is running.
func Run(ctx context.Context, cfg Config, ready func(*lj.Logjam), opts ...Option) error {
	inst, err := lj.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("create logjam: %w", err)
	}
	if err := inst.Start(ctx); err != nil {
		return fmt.Errorf("start logjam: %w", err)
	}
	if ready != nil {
		ready(inst)
	}

	<-ctx.Done()

	if err := inst.Stop(); err != nil {
		return fmt.Errorf("stop logjam: %w", err)
	}
	return nil
}
