package resourcegating

import "github.com/bft-labs/logjam/pkg/logjam"

// WithResourceGating returns a logjam Option that enables resource gating.
// When enabled, the plugin samples system load and jams sending for every key
// while the load is above the threshold. Events keep accumulating and are
// shipped once the load recovers.
//
// Usage:
//
//	lj, err := logjam.New(cfg,
//	    resourcegating.WithResourceGating(resourcegating.Config{
//	        Threshold: 0.85,
//	        Resume:    0.70,
//	    }),
//	)
func WithResourceGating(cfg Config) logjam.Option {
	plugin := New(cfg)
	return logjam.WithPlugin(plugin)
}

// WithDefaultResourceGating returns a logjam Option that enables resource
// gating with default settings (threshold 0.85, resume 0.70, check every 5s).
//
// Usage:
//
//	lj, err := logjam.New(cfg, resourcegating.WithDefaultResourceGating())
func WithDefaultResourceGating() logjam.Option {
	return WithResourceGating(DefaultConfig())
}
