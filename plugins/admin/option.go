package admin

import "github.com/bft-labs/logjam/pkg/logjam"

// WithAdmin returns a logjam Option that serves the admin API.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	lj, err := logjam.New(cfg,
//	    logjam.WithMetrics(reg),
//	    admin.WithAdmin(admin.Config{Addr: ":9090", Gatherer: reg}),
//	)
func WithAdmin(cfg Config) logjam.Option {
	return logjam.WithPlugin(New(cfg))
}
