package bufferprune

import "github.com/bft-labs/logjam/pkg/logjam"

// WithBufferPrune returns a logjam Option that enables buffer pruning.
// When enabled, the plugin periodically checks every key's buffered event
// count and drops the oldest events of keys above the high watermark.
//
// Usage:
//
//	lj, err := logjam.New(cfg,
//	    bufferprune.WithBufferPrune(bufferprune.Config{
//	        CheckInterval: time.Minute,
//	        HighWatermark: 10000,
//	        LowWatermark:  8000,
//	    }),
//	)
func WithBufferPrune(cfg Config) logjam.Option {
	plugin := New(cfg)
	return logjam.WithPlugin(plugin)
}

// WithDefaultBufferPrune returns a logjam Option that enables buffer pruning
// with default settings (check every minute, high watermark 10000 events, low
// watermark 8000 events).
//
// Usage:
//
//	lj, err := logjam.New(cfg, bufferprune.WithDefaultBufferPrune())
func WithDefaultBufferPrune() logjam.Option {
	return WithBufferPrune(DefaultConfig())
}
