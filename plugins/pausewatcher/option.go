package pausewatcher

import "github.com/bft-labs/logjam/pkg/logjam"

// WithPauseWatcher returns a logjam Option that enables pause file watching.
// When enabled, the plugin jams the keys listed in the pause file and drives
// them again when they are removed from it.
//
// Usage:
//
//	lj, err := logjam.New(cfg,
//	    pausewatcher.WithPauseWatcher(pausewatcher.Config{
//	        Path:          "/etc/logjam/pause.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithPauseWatcher(cfg Config) logjam.Option {
	plugin := New(cfg)
	return logjam.WithPlugin(plugin)
}
